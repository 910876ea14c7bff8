// Package catalog stores design results on disk so templates can be adopted
// by name. Each entry is one JSON file under <home>/designs/.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/personakit/adoptctl/pkg/design"
)

const designsDirName = "designs"

var ErrNotFound = errors.New("design result not found")

// Entry is a stored design result plus the review it came from.
type Entry struct {
	TemplateName string          `json:"templateName"`
	ReviewID     string          `json:"reviewId,omitempty"`
	Result       json.RawMessage `json:"result"`
}

// ParsedResult decodes the stored result payload.
func (e Entry) ParsedResult() (*design.Result, error) {
	return design.ParseResult(string(e.Result))
}

// Store reads and writes catalog entries. The filesystem is injected so
// tests run against afero.MemMapFs.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, home string) *Store {
	return &Store{fs: fs, dir: filepath.Join(home, designsDirName)}
}

func (s *Store) Dir() string { return s.dir }

// List returns the stored template names, sorted.
func (s *Store) List() ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read designs dir")
	}
	var names []string
	for _, fi := range infos {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(fi.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Load(name string) (Entry, error) {
	b, err := afero.ReadFile(s.fs, s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, errors.Wrapf(ErrNotFound, "%s", name)
		}
		return Entry{}, errors.Wrapf(err, "read design %s", name)
	}
	return decodeEntry(b, name)
}

func (s *Store) Save(name string, e Entry) error {
	if name == "" {
		return errors.New("empty design name")
	}
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal design entry")
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "create designs dir")
	}
	if err := afero.WriteFile(s.fs, s.path(name), b, 0o644); err != nil {
		return errors.Wrapf(err, "write design %s", name)
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Resolve loads a design result given either a catalog name or a path to a
// JSON file. Paths win when the file exists; the file may hold a full entry
// or a bare design result.
func (s *Store) Resolve(nameOrPath string) (Entry, error) {
	if ok, _ := afero.Exists(s.fs, nameOrPath); ok && strings.ContainsAny(nameOrPath, "/\\.") {
		b, err := afero.ReadFile(s.fs, nameOrPath)
		if err != nil {
			return Entry{}, errors.Wrapf(err, "read design file %s", nameOrPath)
		}
		fallback := strings.TrimSuffix(filepath.Base(nameOrPath), ".json")
		return decodeEntry(b, fallback)
	}
	return s.Load(nameOrPath)
}

func decodeEntry(b []byte, fallbackName string) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, errors.Wrap(err, "parse design entry")
	}
	if len(e.Result) == 0 {
		// Bare design result without the entry wrapper.
		if _, err := design.ParseResult(string(b)); err != nil {
			return Entry{}, errors.Wrap(err, "parse design result")
		}
		e = Entry{TemplateName: fallbackName, Result: json.RawMessage(b)}
	}
	if e.TemplateName == "" {
		e.TemplateName = fallbackName
	}
	return e, nil
}
