package web

import (
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/aria/engine/core"
	"github.com/spaghettifunk/aria/engine/media"
)

// unavailableStore fails every fetch; resources still settle into terminal
// states, which is all the monitoring surface needs.
type unavailableStore struct{}

func (unavailableStore) FetchText(folder, path string) (string, error) {
	return "", errors.Errorf("no such asset %s/%s", folder, path)
}

func (unavailableStore) FetchBinary(folder, path string) ([]byte, error) {
	return nil, errors.Errorf("no such asset %s/%s", folder, path)
}

func (unavailableStore) FetchImage(folder, path string) (image.Image, error) {
	return nil, errors.Errorf("no such asset %s/%s", folder, path)
}

func newTestManager(t *testing.T) *media.Manager {
	t.Helper()
	m, err := media.NewManager(&media.ManagerConfig{Storage: unavailableStore{}})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { m.Shutdown() })
	m.LoadManifest(&media.Manifest{
		Music: []*media.MusicDescriptor{{Name: "theme", Path: "theme.wav"}},
	})

	r := m.Music("theme")
	done := make(chan struct{})
	r.ExecuteWhenReady(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("music never reached a terminal state")
	}
	return m
}

func TestHandlerResources(t *testing.T) {
	m := newTestManager(t)

	w := httptest.NewRecorder()
	handlerResources(m)(w, httptest.NewRequest(http.MethodGet, "/json/resources", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var infos []media.ResourceInfo
	if err := json.NewDecoder(w.Body).Decode(&infos); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "theme" || infos[0].State != "ready" {
		t.Fatalf("resources = %+v", infos)
	}
}

func TestHandlerCategory(t *testing.T) {
	m := newTestManager(t)

	w := httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/json/resources/music", nil),
		map[string]string{"category": "music"})
	handlerCategory(m)(w, req)

	var infos []media.ResourceInfo
	if err := json.NewDecoder(w.Body).Decode(&infos); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(infos) != 1 || infos[0].Category != media.CategoryMusic {
		t.Fatalf("music category = %+v", infos)
	}

	w = httptest.NewRecorder()
	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/json/resources/shaders", nil),
		map[string]string{"category": "shaders"})
	handlerCategory(m)(w, req)
	infos = nil
	json.NewDecoder(w.Body).Decode(&infos)
	if len(infos) != 0 {
		t.Fatalf("shaders category = %+v", infos)
	}
}

func TestHandlerMetrics(t *testing.T) {
	m := newTestManager(t)

	w := httptest.NewRecorder()
	handlerMetrics(m)(w, httptest.NewRequest(http.MethodGet, "/json/metrics", nil))

	var snap core.MetricsSnapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if snap.FilesFetched != 1 || snap.FetchFailures != 1 {
		t.Fatalf("metrics = %+v", snap)
	}
}

func TestHandlerDump(t *testing.T) {
	m := newTestManager(t)

	w := httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/dump/music/theme", nil),
		map[string]string{"category": "music", "name": "theme"})
	handlerDump(m)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "MusicResource") {
		t.Fatalf("dump body = %q", w.Body.String())
	}
}

func TestHandlerDumpUnknown(t *testing.T) {
	m := newTestManager(t)

	w := httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/dump/music/ghost", nil),
		map[string]string{"category": "music", "name": "ghost"})
	handlerDump(m)(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
