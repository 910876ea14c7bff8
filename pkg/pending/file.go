package pending

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const pendingDirName = "pending"

// FileStore keeps the pending record as one JSON file per wizard kind under
// the adoptctl home directory. The filesystem is injected so tests run
// against afero.MemMapFs.
type FileStore struct {
	fs   afero.Fs
	path string
}

func NewFileStore(fs afero.Fs, home, kind string) *FileStore {
	return &FileStore{
		fs:   fs,
		path: filepath.Join(home, pendingDirName, kind+".json"),
	}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() (Context, bool, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Context{}, false, nil
		}
		return Context{}, false, errors.Wrapf(err, "read pending context %s", s.path)
	}
	var c Context
	if err := json.Unmarshal(b, &c); err != nil {
		return Context{}, false, errors.Wrapf(err, "parse pending context %s", s.path)
	}
	return c, true, nil
}

func (s *FileStore) Save(c Context) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "create pending dir")
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal pending context")
	}
	if err := afero.WriteFile(s.fs, s.path, b, 0o644); err != nil {
		return errors.Wrapf(err, "write pending context %s", s.path)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := s.fs.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "remove pending context %s", s.path)
	}
	return nil
}
