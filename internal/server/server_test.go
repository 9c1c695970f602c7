package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdsite/internal/history"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
	"git.home.luguber.info/inful/mdsite/internal/rebuild"
	"git.home.luguber.info/inful/mdsite/internal/site"
	"git.home.luguber.info/inful/mdsite/internal/sourcerev"
)

const testPage = "<!DOCTYPE html>\n<html><body><h1>Hi</h1></body></html>\n"

func outputDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(testPage), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte(testPage), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.css"), []byte("body{}"), 0o644))
	return dir
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_ServesFilesWithoutLiveReload(t *testing.T) {
	ts := httptest.NewServer(New(Options{OutputDir: outputDir(t)}).Handler())
	defer ts.Close()

	resp, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testPage, body)

	resp, body = get(t, ts.URL+"/site.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{}", body)

	resp, _ = get(t, ts.URL+"/missing.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/livereload.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_InjectsLiveReloadIntoHTML(t *testing.T) {
	ts := httptest.NewServer(New(Options{OutputDir: outputDir(t), LiveReload: true}).Handler())
	defer ts.Close()

	_, body := get(t, ts.URL+"/a.html")
	assert.Contains(t, body, liveReloadTag+"</body>")

	_, body = get(t, ts.URL+"/")
	assert.Contains(t, body, liveReloadTag+"</body>")

	_, body = get(t, ts.URL+"/site.css")
	assert.Equal(t, "body{}", body)

	resp, body := get(t, ts.URL+"/livereload.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Contains(t, body, "EventSource('/livereload')")
}

func TestServer_StatusAndHealth(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "public")
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.md"), []byte("# A"), 0o644))
	runner := rebuild.New(site.NewBuilder(), src, out, rebuild.WithRevisionFunc(func(string) (sourcerev.Revision, error) {
		return sourcerev.Revision{}, nil
	}))
	res := runner.Rebuild(context.Background(), rebuild.TriggerStartup)
	require.NoError(t, res.Err)

	ts := httptest.NewServer(New(Options{OutputDir: out, Status: runner.Status()}).Handler())
	defer ts.Close()

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	resp, body = get(t, ts.URL+"/api/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var snap rebuild.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	assert.True(t, snap.HasGoodBuild)
	assert.Equal(t, res.ID, snap.LastBuildID)
	assert.Equal(t, 1, snap.LastPages)

	_, body = get(t, ts.URL+"/a.html")
	assert.Contains(t, body, "<h1>A</h1>")
}

func TestServer_BuildErrorPageBeforeFirstGoodBuild(t *testing.T) {
	src := filepath.Join(t.TempDir(), "missing")
	out := filepath.Join(t.TempDir(), "public")
	runner := rebuild.New(site.NewBuilder(), src, out, rebuild.WithRevisionFunc(func(string) (sourcerev.Revision, error) {
		return sourcerev.Revision{}, nil
	}))
	require.Error(t, runner.Rebuild(context.Background(), rebuild.TriggerStartup).Err)

	ts := httptest.NewServer(New(Options{OutputDir: out, Status: runner.Status()}).Handler())
	defer ts.Close()

	resp, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "Build failed")
	assert.Contains(t, body, "read source directory")
}

func TestServer_BuildsEndpoint(t *testing.T) {
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	require.NoError(t, store.Record(context.Background(), history.Record{ID: "b1", Trigger: "manual", StartedAt: time.Now(), Success: true}))

	ts := httptest.NewServer(New(Options{OutputDir: outputDir(t), History: store}).Handler())
	defer ts.Close()

	resp, body := get(t, ts.URL+"/api/builds?limit=5")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var recs []history.Record
	require.NoError(t, json.Unmarshal([]byte(body), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "b1", recs[0].ID)

	resp, body = get(t, ts.URL+"/api/builds?limit=zero")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "limit must be a positive integer")
}

func TestServer_BuildsEndpointDisabled(t *testing.T) {
	ts := httptest.NewServer(New(Options{OutputDir: outputDir(t)}).Handler())
	defer ts.Close()

	resp, _ := get(t, ts.URL+"/api/builds")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, ts.URL+"/api/status")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	rec.IncRebuildTrigger("manual")

	ts := httptest.NewServer(New(Options{OutputDir: outputDir(t), Metrics: metrics.HTTPHandler(reg)}).Handler())
	defer ts.Close()

	resp, body := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "mdsite_rebuild_triggers_total")
}

func TestServer_LiveReloadBroadcastAfterBuild(t *testing.T) {
	s := New(Options{OutputDir: outputDir(t), LiveReload: true})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/livereload")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	hook := s.BuildHook()
	require.NoError(t, hook(context.Background(), rebuild.Result{ID: "build-1"}))

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data:") {
			break
		}
	}
	assert.Equal(t, "data: {\"hash\":\"build-1\"}\n", line)

	require.NoError(t, hook(context.Background(), rebuild.Result{ID: "build-2", Err: errors.New("boom")}))
	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data:") {
			break
		}
	}
	assert.Equal(t, "data: {\"hash\":\"error-build-2\"}\n", line)
}

func TestServer_StartStop(t *testing.T) {
	s := New(Options{Address: "127.0.0.1:0", OutputDir: outputDir(t)})
	require.NoError(t, s.Start(context.Background()))

	resp, body := get(t, "http://"+s.Addr()+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "ok")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	_, err := http.Get("http://" + s.Addr() + "/healthz")
	require.Error(t, err)
}

func TestServer_StartFailsOnBusyAddress(t *testing.T) {
	first := New(Options{Address: "127.0.0.1:0", OutputDir: t.TempDir()})
	require.NoError(t, first.Start(context.Background()))
	defer func() { _ = first.Stop(context.Background()) }()

	second := New(Options{Address: first.Addr(), OutputDir: t.TempDir()})
	require.Error(t, second.Start(context.Background()))
}
