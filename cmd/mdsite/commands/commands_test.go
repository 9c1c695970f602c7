package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/history"
)

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli, kong.Name("mdsite"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	return parser
}

func TestCLI_ServeIsDefaultCommand(t *testing.T) {
	var cli CLI
	ctx, err := newParser(t, &cli).Parse([]string{"-o", "site"})
	require.NoError(t, err)
	assert.Equal(t, "serve", ctx.Command())
	assert.Equal(t, "site", cli.Serve.Output)
}

func TestCLI_ParsesSubcommandFlags(t *testing.T) {
	var cli CLI
	ctx, err := newParser(t, &cli).Parse([]string{"serve", "--address", "127.0.0.1:9000", "--no-live-reload", "-s", "docs"})
	require.NoError(t, err)
	assert.Equal(t, "serve", ctx.Command())
	assert.Equal(t, "127.0.0.1:9000", cli.Serve.Address)
	assert.True(t, cli.Serve.NoLiveReload)
	assert.Equal(t, "docs", cli.Serve.Source)

	cli = CLI{}
	ctx, err = newParser(t, &cli).Parse([]string{"history", "-n", "5", "--json"})
	require.NoError(t, err)
	assert.Equal(t, "history", ctx.Command())
	assert.Equal(t, 5, cli.History.Limit)
	assert.True(t, cli.History.JSON)
}

func TestBuildCmd_BuildsSite(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	src := filepath.Join(dir, "content")
	out := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "guide"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "intro.md"), []byte("# Intro\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "guide", "setup.md"), []byte("Setup"), 0o644))

	var buf bytes.Buffer
	cmd := &BuildCmd{SiteFlags: SiteFlags{Source: src, Output: out}, out: &buf}
	require.NoError(t, cmd.run(context.Background(), &CLI{}))

	assert.FileExists(t, filepath.Join(out, "intro.html"))
	assert.FileExists(t, filepath.Join(out, "guide", "setup.html"))
	assert.FileExists(t, filepath.Join(out, "index.html"))
	assert.Contains(t, buf.String(), "Built 2 pages")
}

func TestBuildCmd_MissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cmd := &BuildCmd{SiteFlags: SiteFlags{Source: filepath.Join(dir, "missing"), Output: filepath.Join(dir, "public")}, out: &bytes.Buffer{}}
	err := cmd.run(context.Background(), &CLI{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func TestInitCmd_WritesConfigOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mdsite.yaml")
	root := &CLI{Config: path}

	require.NoError(t, (&InitCmd{}).Run(nil, root))
	assert.FileExists(t, path)

	err := (&InitCmd{}).Run(nil, root)
	require.Error(t, err)
	require.NoError(t, (&InitCmd{Force: true}).Run(nil, root))
}

func TestHistoryCmd_RequiresHistoryPath(t *testing.T) {
	t.Chdir(t.TempDir())
	err := (&HistoryCmd{Limit: 5}).Run(nil, &CLI{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestHistoryCmd_PrintsTableAndJSON(t *testing.T) {
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(context.Background(), history.Record{
		ID: "b-1", Trigger: "watch", StartedAt: started, Duration: 42 * time.Millisecond,
		Success: true, Pages: 3, Revision: "main@01234567",
	}))
	require.NoError(t, store.Record(context.Background(), history.Record{
		ID: "b-2", Trigger: "manual", StartedAt: started.Add(time.Minute), Error: "boom",
	}))

	var table bytes.Buffer
	require.NoError(t, (&HistoryCmd{Limit: 10, out: &table}).print(context.Background(), store))
	assert.Contains(t, table.String(), "TRIGGER")
	assert.Contains(t, table.String(), "main@01234567")
	assert.Contains(t, table.String(), "failed")
	assert.Less(t, bytes.Index(table.Bytes(), []byte("b-2")), bytes.Index(table.Bytes(), []byte("b-1")))

	var raw bytes.Buffer
	require.NoError(t, (&HistoryCmd{Limit: 1, JSON: true, out: &raw}).print(context.Background(), store))
	var recs []history.Record
	require.NoError(t, json.Unmarshal(raw.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "b-2", recs[0].ID)
}

func TestHistoryCmd_EmptyJSONIsArray(t *testing.T) {
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var raw bytes.Buffer
	require.NoError(t, (&HistoryCmd{Limit: 5, JSON: true, out: &raw}).print(context.Background(), store))
	assert.JSONEq(t, "[]", raw.String())
}
