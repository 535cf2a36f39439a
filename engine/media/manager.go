package media

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/spaghettifunk/aria/engine/assets"
	"github.com/spaghettifunk/aria/engine/core"
	"github.com/spaghettifunk/aria/engine/renderer"
)

// ManagerConfig wires the manager's collaborators.
type ManagerConfig struct {
	/** @brief The storage every fetch goes through. Required. */
	Storage assets.Fetcher
	/** @brief The GPU object constructor. Defaults to renderer.NullBackend. */
	Backend renderer.Backend
	/** @brief Sample decoder for sound effects and music. Defaults to WAVDecoder. */
	Audio AudioDecoder
	/** @brief Number of fetch workers. Defaults to 4. */
	Workers int
}

// Manager is the resource registry: a mapping from (category, name) to
// resource instances, the shared caches, and the bulk-readiness
// notification layer. All resource mutation is serialized through its lock;
// listener callbacks always run outside of it.
type Manager struct {
	mu sync.RWMutex

	storage assets.Fetcher
	backend renderer.Backend
	audio   AudioDecoder
	jobs    *JobSystem
	events  *core.EventBus
	metrics *core.LoadMetrics

	manifest   *Manifest
	categories map[Category]map[string]Resource

	includes *includeCache

	// Resources currently between requested and terminal.
	loading map[Resource]struct{}

	whenReady []*whenReadyEntry
	onLoad    map[uuid.UUID]func(Resource)

	// Callbacks gathered while holding mu, run right after releasing it.
	notifyq []func()
}

type whenReadyEntry struct {
	fn      func()
	pending map[Resource]struct{}
}

func NewManager(config *ManagerConfig) (*Manager, error) {
	if config == nil || config.Storage == nil {
		err := fmt.Errorf("failed to create media manager: config.Storage is required")
		core.LogError(err.Error())
		return nil, err
	}

	backend := config.Backend
	if backend == nil {
		backend = renderer.NullBackend{}
	}
	audio := config.Audio
	if audio == nil {
		audio = WAVDecoder{}
	}
	workers := config.Workers
	if workers == 0 {
		workers = 4
	}

	jobs, err := NewJobSystem(workers, 64)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		storage:    config.Storage,
		backend:    backend,
		audio:      audio,
		jobs:       jobs,
		events:     core.NewEventBus(),
		metrics:    core.NewLoadMetrics(),
		manifest:   &Manifest{},
		categories: make(map[Category]map[string]Resource),
		includes:   newIncludeCache(),
		loading:    make(map[Resource]struct{}),
		onLoad:     make(map[uuid.UUID]func(Resource)),
	}
	for c := range folderFor {
		m.categories[c] = make(map[string]Resource)
	}
	return m, nil
}

// LoadManifest merges a parsed description table into the registry. Already
// constructed resources keep their descriptors.
func (m *Manager) LoadManifest(manifest *Manifest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifest.Textures = append(m.manifest.Textures, manifest.Textures...)
	m.manifest.Cubemaps = append(m.manifest.Cubemaps, manifest.Cubemaps...)
	m.manifest.Shaders = append(m.manifest.Shaders, manifest.Shaders...)
	m.manifest.Models = append(m.manifest.Models, manifest.Models...)
	m.manifest.SoundEffects = append(m.manifest.SoundEffects, manifest.SoundEffects...)
	m.manifest.Music = append(m.manifest.Music, manifest.Music...)
	m.manifest.Fonts = append(m.manifest.Fonts, manifest.Fonts...)
}

func (m *Manager) Events() *core.EventBus {
	return m.events
}

func (m *Manager) Metrics() core.MetricsSnapshot {
	return m.metrics.Snapshot()
}

func (m *Manager) Shutdown() error {
	return m.jobs.Shutdown()
}

// GetParams carries the registry-level flags plus the per-type request
// parameters (a *TextureParams, *CubemapParams, *ModelParams, ... or nil).
type GetParams struct {
	// Do not trigger a load, just return the handle.
	DoNotLoad bool
	// Suppress the error report when the resource does not exist.
	AllowNullResult bool
	// Per-type parameters, forwarded to Request.
	Params interface{}
}

// GetResource looks up or lazily constructs the named resource, triggers a
// request for it unless DoNotLoad is set, and returns the handle
// immediately, possibly still loading. A name with no manifest entry is
// reported as an error and yields nil unless AllowNullResult is set.
func (m *Manager) GetResource(category Category, name string, params GetParams) Resource {
	m.mu.Lock()
	r := m.categories[category][name]
	if r == nil {
		r = m.constructLocked(category, name)
		if r == nil {
			m.mu.Unlock()
			if !params.AllowNullResult {
				core.LogError("no %s resource named '%s': %s", category, name, core.ErrResourceNotFound.Error())
			}
			return nil
		}
		m.categories[category][name] = r
	}
	m.mu.Unlock()

	if !params.DoNotLoad {
		r.Request(params.Params)
	}
	return r
}

// Lookup returns the already-constructed resource or nil. It never
// constructs and never triggers a load.
func (m *Manager) Lookup(category Category, name string) Resource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.categories[category][name]
}

// ExecuteWhenReady queues fn to run once every resource currently loading
// has reached a terminal state. If none is loading, fn runs synchronously
// before ExecuteWhenReady returns. Resources requested afterwards do not
// delay fn.
func (m *Manager) ExecuteWhenReady(fn func()) {
	m.mu.Lock()
	if len(m.loading) == 0 {
		m.mu.Unlock()
		fn()
		return
	}
	pending := make(map[Resource]struct{}, len(m.loading))
	for r := range m.loading {
		pending[r] = struct{}{}
	}
	m.whenReady = append(m.whenReady, &whenReadyEntry{fn: fn, pending: pending})
	m.mu.Unlock()
}

// ExecuteOnResourceLoad registers a monitoring hook invoked on every future
// resource readiness transition. It is not a one-shot; remove it with
// RemoveOnResourceLoad.
func (m *Manager) ExecuteOnResourceLoad(fn func(Resource)) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.onLoad[id] = fn
	return id
}

func (m *Manager) RemoveOnResourceLoad(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.onLoad, id)
}

// ResourceInfo is a point-in-time description of one registry entry.
type ResourceInfo struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
	State    string   `json:"state"`
	Error    string   `json:"error,omitempty"`
}

// Resources snapshots every constructed resource, for monitoring surfaces.
func (m *Manager) Resources() []ResourceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ResourceInfo
	for category, byName := range m.categories {
		for name, r := range byName {
			b := r.base()
			info := ResourceInfo{Category: category, Name: name, State: b.state.String()}
			if b.err != nil {
				info.Error = b.err.Error()
			}
			out = append(out, info)
		}
	}
	return out
}

// RequestAll requests every resource the manifest declares, with default
// parameters. Useful for preloading everything up front.
func (m *Manager) RequestAll() {
	m.mu.RLock()
	manifest := *m.manifest
	m.mu.RUnlock()

	for _, d := range manifest.Textures {
		m.Texture(d.Name, nil)
	}
	for _, d := range manifest.Cubemaps {
		m.Cubemap(d.Name, nil)
	}
	for _, d := range manifest.Shaders {
		m.Shader(d.Name, nil)
	}
	for _, d := range manifest.Models {
		m.Model(d.Name, nil)
	}
	for _, d := range manifest.SoundEffects {
		m.SoundEffect(d.Name)
	}
	for _, d := range manifest.Music {
		m.Music(d.Name)
	}
	for _, d := range manifest.Fonts {
		m.BitmapFont(d.Name)
	}
}

// request implements the shared Request path for every resource type.
func (m *Manager) request(r Resource, params interface{}) {
	m.mu.Lock()
	b := r.base()
	if b.state == StateFailed || !r.requiresReloadLocked(params) {
		m.mu.Unlock()
		return
	}
	if b.state == StateUnrequested || b.state.Terminal() {
		b.clock.Start()
		b.state = StateRequested
	}
	m.loading[r] = struct{}{}
	ops := r.requestFilesLocked(params)
	m.unlockAndNotify()

	for _, op := range ops {
		m.jobs.SubmitNonBlocking(op)
	}
}

// readyLocked finalizes a resource into the ready state and queues every
// notification that has to happen outside the lock.
func (m *Manager) readyLocked(b *baseResource) {
	b.state = StateReady
	b.clock.Update()
	m.metrics.RecordLoad(b.clock.Elapsed())
	b.clock.Stop()
	core.LogDebug("%s '%s' ready", b.category, b.name)
	m.queueTerminalLocked(b, core.EVENT_CODE_RESOURCE_READY, true)
}

// failLocked puts a resource into the absorbing failed state.
func (m *Manager) failLocked(b *baseResource, err error) {
	b.state = StateFailed
	b.err = err
	b.clock.Stop()
	m.metrics.RecordFailure()
	core.LogError("%s '%s' failed: %s", b.category, b.name, err.Error())
	m.queueTerminalLocked(b, core.EVENT_CODE_RESOURCE_FAILED, false)
}

func (m *Manager) queueTerminalLocked(b *baseResource, code core.SystemEventCode, ready bool) {
	r := b.self
	delete(m.loading, r)

	// One-shot per-resource listeners, exactly once, then discarded.
	listeners := b.onReady
	b.onReady = nil
	for _, fn := range listeners {
		m.notifyq = append(m.notifyq, fn)
	}

	if ready {
		for _, hook := range m.onLoad {
			h := hook
			m.notifyq = append(m.notifyq, func() { h(r) })
		}
	}

	ctx := core.EventContext{Category: string(b.category), Name: b.name, Err: b.err}
	m.notifyq = append(m.notifyq, func() { m.events.Fire(code, m, ctx) })

	// Settle bulk-readiness waiters.
	kept := m.whenReady[:0]
	for _, e := range m.whenReady {
		delete(e.pending, r)
		if len(e.pending) == 0 {
			fn := e.fn
			m.notifyq = append(m.notifyq, fn)
		} else {
			kept = append(kept, e)
		}
	}
	m.whenReady = kept

	if len(m.loading) == 0 {
		m.notifyq = append(m.notifyq, func() {
			m.events.Fire(core.EVENT_CODE_ALL_RESOURCES_READY, m, core.EventContext{})
		})
	}
}

// unlockAndNotify releases the manager lock and runs the queued callbacks.
// Every mutation path ends here so no callback ever runs under the lock.
func (m *Manager) unlockAndNotify() {
	q := m.notifyq
	m.notifyq = nil
	m.mu.Unlock()
	for _, fn := range q {
		fn()
	}
}

// constructLocked builds the resource for a manifest entry, or nil when the
// manifest does not declare it.
func (m *Manager) constructLocked(category Category, name string) Resource {
	switch category {
	case CategoryTexture:
		for _, d := range m.manifest.Textures {
			if d.Name == name {
				return newTextureResource(m, d)
			}
		}
	case CategoryCubemap:
		for _, d := range m.manifest.Cubemaps {
			if d.Name == name {
				return newCubemapResource(m, d)
			}
		}
	case CategoryShader:
		for _, d := range m.manifest.Shaders {
			if d.Name == name {
				return newShaderResource(m, d)
			}
		}
	case CategoryModel:
		for _, d := range m.manifest.Models {
			if d.Name == name {
				return newModelResource(m, d)
			}
		}
	case CategorySoundEffect:
		for _, d := range m.manifest.SoundEffects {
			if d.Name == name {
				return newSoundEffectResource(m, d)
			}
		}
	case CategoryMusic:
		for _, d := range m.manifest.Music {
			if d.Name == name {
				return newMusicResource(m, d)
			}
		}
	case CategoryBitmapFont:
		for _, d := range m.manifest.Fonts {
			if d.Name == name {
				return newBitmapFontResource(m, d)
			}
		}
	}
	return nil
}

// Typed accessors, thin aliases over GetResource.

func (m *Manager) Texture(name string, params *TextureParams) *TextureResource {
	r := m.GetResource(CategoryTexture, name, GetParams{Params: params})
	if r == nil {
		return nil
	}
	return r.(*TextureResource)
}

func (m *Manager) Cubemap(name string, params *CubemapParams) *CubemapResource {
	r := m.GetResource(CategoryCubemap, name, GetParams{Params: params})
	if r == nil {
		return nil
	}
	return r.(*CubemapResource)
}

// Shader resolves named variants before the lookup: when params carries a
// variant name the descriptor maps, the mapped shader is returned instead.
func (m *Manager) Shader(name string, params *ShaderParams) *ShaderResource {
	if params != nil && params.Variant != "" {
		m.mu.RLock()
		for _, d := range m.manifest.Shaders {
			if d.Name == name {
				if mapped, ok := d.Variants[params.Variant]; ok {
					name = mapped
				}
				break
			}
		}
		m.mu.RUnlock()
	}
	r := m.GetResource(CategoryShader, name, GetParams{Params: params})
	if r == nil {
		return nil
	}
	return r.(*ShaderResource)
}

func (m *Manager) Model(name string, params *ModelParams) *ModelResource {
	r := m.GetResource(CategoryModel, name, GetParams{Params: params})
	if r == nil {
		return nil
	}
	return r.(*ModelResource)
}

func (m *Manager) SoundEffect(name string) *SoundEffectResource {
	r := m.GetResource(CategorySoundEffect, name, GetParams{})
	if r == nil {
		return nil
	}
	return r.(*SoundEffectResource)
}

func (m *Manager) Music(name string) *MusicResource {
	r := m.GetResource(CategoryMusic, name, GetParams{})
	if r == nil {
		return nil
	}
	return r.(*MusicResource)
}

func (m *Manager) BitmapFont(name string) *BitmapFontResource {
	r := m.GetResource(CategoryBitmapFont, name, GetParams{})
	if r == nil {
		return nil
	}
	return r.(*BitmapFontResource)
}
