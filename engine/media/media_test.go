package media

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/spaghettifunk/aria/engine/core"
	"github.com/spaghettifunk/aria/engine/renderer"
)

// fakeStore is an in-memory Fetcher that counts every fetch per key and can
// hold fetches at a gate, globally or per file, until the test releases them.
type fakeStore struct {
	mu      sync.Mutex
	texts   map[string]string
	bins    map[string][]byte
	images  map[string]image.Image
	fetches map[string]int
	gate    chan struct{}
	gates   map[string]chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		texts:   make(map[string]string),
		bins:    make(map[string][]byte),
		images:  make(map[string]image.Image),
		fetches: make(map[string]int),
		gates:   make(map[string]chan struct{}),
	}
}

// block makes every subsequent fetch wait; the returned func releases them.
// Must be called before the first request is issued.
func (f *fakeStore) block() func() {
	gate := make(chan struct{})
	f.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// blockPath gates fetches of a single file, so tests can pin the completion
// order of concurrent fetches.
func (f *fakeStore) blockPath(folder, path string) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[folder+"/"+path] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *fakeStore) wait(key string) {
	f.mu.Lock()
	gate := f.gates[key]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeStore) record(folder, path string) {
	f.mu.Lock()
	f.fetches[folder+"/"+path]++
	f.mu.Unlock()
}

func (f *fakeStore) count(folder, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[folder+"/"+path]
}

func (f *fakeStore) totalFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.fetches {
		total += n
	}
	return total
}

func (f *fakeStore) FetchText(folder, path string) (string, error) {
	f.wait(folder + "/" + path)
	f.record(folder, path)
	f.mu.Lock()
	text, ok := f.texts[folder+"/"+path]
	f.mu.Unlock()
	if !ok {
		return "", errors.Errorf("no such asset %s/%s", folder, path)
	}
	return text, nil
}

func (f *fakeStore) FetchBinary(folder, path string) ([]byte, error) {
	f.wait(folder + "/" + path)
	f.record(folder, path)
	f.mu.Lock()
	data, ok := f.bins[folder+"/"+path]
	f.mu.Unlock()
	if !ok {
		return nil, errors.Errorf("no such asset %s/%s", folder, path)
	}
	return data, nil
}

func (f *fakeStore) FetchImage(folder, path string) (image.Image, error) {
	f.wait(folder + "/" + path)
	f.record(folder, path)
	f.mu.Lock()
	img, ok := f.images[folder+"/"+path]
	f.mu.Unlock()
	if !ok {
		return nil, errors.Errorf("no such asset %s/%s", folder, path)
	}
	return img, nil
}

// fakeBackend counts builds and keeps the latest inputs for inspection.
type fakeBackend struct {
	mu            sync.Mutex
	textureBuilds int
	cubemapBuilds int
	shaderBuilds  int
	lastLayers    []image.Image
	lastFaces     []image.Image
	lastVertex    string
	lastFragment  string
}

func (b *fakeBackend) BuildTexture(name string, layers []image.Image) (*renderer.Texture, error) {
	b.mu.Lock()
	b.textureBuilds++
	b.lastLayers = layers
	b.mu.Unlock()
	return renderer.NullBackend{}.BuildTexture(name, layers)
}

func (b *fakeBackend) BuildCubemap(name string, faces []image.Image) (*renderer.Cubemap, error) {
	b.mu.Lock()
	b.cubemapBuilds++
	b.lastFaces = faces
	b.mu.Unlock()
	return renderer.NullBackend{}.BuildCubemap(name, faces)
}

func (b *fakeBackend) BuildShaderProgram(name, vertexSource, fragmentSource string, defines map[string]string, blendMode string, attributes map[string]string) (*renderer.ShaderProgram, error) {
	b.mu.Lock()
	b.shaderBuilds++
	b.lastVertex = vertexSource
	b.lastFragment = fragmentSource
	b.mu.Unlock()
	return renderer.NullBackend{}.BuildShaderProgram(name, vertexSource, fragmentSource, defines, blendMode, attributes)
}

func newTestManager(t *testing.T, store *fakeStore) (*Manager, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	m, err := NewManager(&ManagerConfig{Storage: store, Backend: backend, Workers: 4})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { m.Shutdown() })
	return m, backend
}

func waitTerminal(t *testing.T, r Resource) {
	t.Helper()
	done := make(chan struct{})
	r.ExecuteWhenReady(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s '%s' never reached a terminal state", r.Category(), r.Name())
	}
}

func testImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestNewManagerRequiresStorage(t *testing.T) {
	if _, err := NewManager(nil); err == nil {
		t.Fatal("expected an error for a nil config")
	}
	if _, err := NewManager(&ManagerConfig{}); err == nil {
		t.Fatal("expected an error for a missing storage")
	}
}

func TestGetResourceUnknownName(t *testing.T) {
	m, _ := newTestManager(t, newFakeStore())

	if r := m.GetResource(CategoryMusic, "ghost", GetParams{}); r != nil {
		t.Fatalf("expected nil for an undeclared resource, got %v", r)
	}
	if r := m.GetResource(CategoryMusic, "ghost", GetParams{AllowNullResult: true}); r != nil {
		t.Fatalf("expected nil with AllowNullResult, got %v", r)
	}
}

func TestGetResourceDoNotLoad(t *testing.T) {
	store := newFakeStore()
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		Music: []*MusicDescriptor{{Name: "theme", Path: "theme.wav"}},
	})

	r := m.GetResource(CategoryMusic, "theme", GetParams{DoNotLoad: true})
	if r == nil {
		t.Fatal("expected a handle for a declared resource")
	}
	if got := r.State(); got != StateUnrequested {
		t.Fatalf("state = %s, want unrequested", got)
	}
	if n := store.totalFetches(); n != 0 {
		t.Fatalf("DoNotLoad fetched %d files", n)
	}
}

func TestLookupNeverConstructs(t *testing.T) {
	m, _ := newTestManager(t, newFakeStore())
	m.LoadManifest(&Manifest{
		Music: []*MusicDescriptor{{Name: "theme", Path: "theme.wav"}},
	})

	if r := m.Lookup(CategoryMusic, "theme"); r != nil {
		t.Fatal("Lookup constructed a resource")
	}
	m.GetResource(CategoryMusic, "theme", GetParams{DoNotLoad: true})
	if r := m.Lookup(CategoryMusic, "theme"); r == nil {
		t.Fatal("Lookup missed a constructed resource")
	}
}

func TestGetResourceReturnsSameInstance(t *testing.T) {
	m, _ := newTestManager(t, newFakeStore())
	m.LoadManifest(&Manifest{
		Music: []*MusicDescriptor{{Name: "theme", Path: "theme.wav"}},
	})

	a := m.GetResource(CategoryMusic, "theme", GetParams{DoNotLoad: true})
	b := m.GetResource(CategoryMusic, "theme", GetParams{DoNotLoad: true})
	if a != b {
		t.Fatal("repeated lookups returned distinct instances")
	}
}

func TestExecuteWhenReadySynchronousWhenIdle(t *testing.T) {
	m, _ := newTestManager(t, newFakeStore())

	ran := false
	m.ExecuteWhenReady(func() { ran = true })
	if !ran {
		t.Fatal("callback did not run synchronously with nothing loading")
	}
}

func TestExecuteWhenReadyWaitsForLoading(t *testing.T) {
	store := newFakeStore()
	store.bins["music/theme.wav"] = wavBytes(t, 2, 44100, 16, 64)
	release := store.block()
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		Music: []*MusicDescriptor{{Name: "theme", Path: "theme.wav"}},
	})

	r := m.Music("theme")
	done := make(chan struct{})
	m.ExecuteWhenReady(func() { close(done) })

	select {
	case <-done:
		t.Fatal("callback ran while a resource was still loading")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback never ran after loading finished")
	}
	if !r.IsReadyToUse() {
		t.Fatalf("music state = %s, want ready", r.State())
	}
}

func TestExecuteOnResourceLoadHook(t *testing.T) {
	store := newFakeStore()
	store.bins["music/theme.wav"] = wavBytes(t, 2, 44100, 16, 64)
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		Music: []*MusicDescriptor{{Name: "theme", Path: "theme.wav"}},
	})

	loaded := make(chan Resource, 1)
	id := m.ExecuteOnResourceLoad(func(r Resource) { loaded <- r })

	r := m.Music("theme")
	waitTerminal(t, r)

	select {
	case got := <-loaded:
		if got.Name() != "theme" {
			t.Fatalf("hook saw '%s', want 'theme'", got.Name())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("load hook never fired")
	}

	m.RemoveOnResourceLoad(id)
}

func TestResourceReadyEventFired(t *testing.T) {
	store := newFakeStore()
	store.bins["music/theme.wav"] = wavBytes(t, 2, 44100, 16, 64)
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		Music: []*MusicDescriptor{{Name: "theme", Path: "theme.wav"}},
	})

	ready := make(chan core.EventContext, 1)
	listener := &struct{}{}
	m.Events().Register(core.EVENT_CODE_RESOURCE_READY, listener,
		func(code core.SystemEventCode, sender, inst interface{}, data core.EventContext) bool {
			ready <- data
			return false
		})

	waitTerminal(t, m.Music("theme"))

	select {
	case ctx := <-ready:
		if ctx.Category != string(CategoryMusic) || ctx.Name != "theme" {
			t.Fatalf("event context = %+v", ctx)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ready event never fired")
	}
}

func TestRequestAllLoadsManifest(t *testing.T) {
	store := newFakeStore()
	store.bins["music/theme.wav"] = wavBytes(t, 2, 44100, 16, 64)
	store.bins["sfx/step.wav"] = wavBytes(t, 1, 22050, 16, 32)
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		Music:        []*MusicDescriptor{{Name: "theme", Path: "theme.wav"}},
		SoundEffects: []*SoundEffectDescriptor{{Name: "step", Samples: []string{"step.wav"}}},
	})

	m.RequestAll()
	waitTerminal(t, m.Lookup(CategoryMusic, "theme"))
	waitTerminal(t, m.Lookup(CategorySoundEffect, "step"))

	snap := m.Metrics()
	if snap.ResourcesLoaded != 2 {
		t.Fatalf("metrics report %d resources loaded, want 2", snap.ResourcesLoaded)
	}
	if snap.FilesFetched != 2 {
		t.Fatalf("metrics report %d files fetched, want 2", snap.FilesFetched)
	}
}

func TestResourcesSnapshot(t *testing.T) {
	store := newFakeStore()
	store.bins["music/theme.wav"] = wavBytes(t, 2, 44100, 16, 64)
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		Music: []*MusicDescriptor{{Name: "theme", Path: "theme.wav"}},
	})

	waitTerminal(t, m.Music("theme"))

	infos := m.Resources()
	if len(infos) != 1 {
		t.Fatalf("snapshot has %d entries, want 1", len(infos))
	}
	if infos[0].Name != "theme" || infos[0].State != "ready" {
		t.Fatalf("snapshot entry = %+v", infos[0])
	}
}
