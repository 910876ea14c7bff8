package catalog

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const resultJSON = `{
  "summary": "Deploy notifier",
  "suggested_tools": ["notify_slack"],
  "full_prompt_markdown": "# Deploy notifier"
}`

func TestSaveLoadList(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, "/home/adopt")

	require.NoError(t, s.Save("deploy-notifier", Entry{
		TemplateName: "Deploy Notifier",
		ReviewID:     "rev-1",
		Result:       json.RawMessage(resultJSON),
	}))
	require.NoError(t, s.Save("alerts", Entry{
		TemplateName: "Alerts",
		Result:       json.RawMessage(resultJSON),
	}))

	names, err := s.List()
	require.NoError(t, err)
	require.Equal(t, []string{"alerts", "deploy-notifier"}, names)

	e, err := s.Load("deploy-notifier")
	require.NoError(t, err)
	require.Equal(t, "Deploy Notifier", e.TemplateName)
	require.Equal(t, "rev-1", e.ReviewID)

	res, err := e.ParsedResult()
	require.NoError(t, err)
	require.Equal(t, []string{"notify_slack"}, res.SuggestedTools)
}

func TestLoadMissing(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "/home/adopt")
	_, err := s.Load("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListEmptyHome(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "/home/adopt")
	names, err := s.List()
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestResolvePathWithBareResult(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tmp/my-design.json", []byte(resultJSON), 0o644))

	s := NewStore(fs, "/home/adopt")
	e, err := s.Resolve("/tmp/my-design.json")
	require.NoError(t, err)
	require.Equal(t, "my-design", e.TemplateName)

	res, err := e.ParsedResult()
	require.NoError(t, err)
	require.Equal(t, "Deploy notifier", res.Summary)
}

func TestResolveFallsBackToCatalogName(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, "/home/adopt")
	require.NoError(t, s.Save("alerts", Entry{TemplateName: "Alerts", Result: json.RawMessage(resultJSON)}))

	e, err := s.Resolve("alerts")
	require.NoError(t, err)
	require.Equal(t, "Alerts", e.TemplateName)
}
