package media

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/aria/engine/core"
)

// Resource is a named, lazily-loaded asset tracked through a lifecycle state
// machine. Concrete types are the closed set in this package: texture,
// cubemap, shader, model, sound effect, music, bitmap font. Each implements
// the two unexported extension points; everything else is shared base
// behavior.
//
// Lifecycle contract:
//   - Request is a no-op whenever RequiresReload reports false, so callers
//     may call it repeatedly and cheaply. This is the single deduplication
//     point: at most one in-flight file batch exists per resource.
//   - File completion order is irrelevant; readiness depends only on the
//     per-type counters reaching equality.
//   - On-ready listeners fire exactly once, then are discarded. They also
//     fire on a terminal failure so nothing waits forever; callers check
//     IsReadyToUse.
type Resource interface {
	ID() uuid.UUID
	Name() string
	Category() Category
	State() State
	Err() error

	// IsReadyToUse is true only in the ready state.
	IsReadyToUse() bool

	// RequiresReload reports whether the given parameters imply files that
	// are neither present nor in flight.
	RequiresReload(params interface{}) bool

	// Request transitions to requested and fires the implied fetches, unless
	// RequiresReload(params) is false.
	Request(params interface{})

	// ExecuteWhenReady queues fn to run once this resource reaches a
	// terminal state; runs it immediately if it already has.
	ExecuteWhenReady(fn func())

	base() *baseResource

	// Extension points, called with the manager lock held. requestFilesLocked
	// returns the fetch jobs to submit once the lock is released.
	requiresReloadLocked(params interface{}) bool
	requestFilesLocked(params interface{}) []func()
}

type baseResource struct {
	id       uuid.UUID
	name     string
	category Category
	state    State
	err      error
	onReady  []func()
	clock    *core.Clock
	mgr      *Manager
	self     Resource
}

func (b *baseResource) init(m *Manager, category Category, name string, self Resource) {
	b.id = uuid.New()
	b.name = name
	b.category = category
	b.state = StateUnrequested
	b.clock = core.NewClock()
	b.mgr = m
	b.self = self
}

func (b *baseResource) ID() uuid.UUID      { return b.id }
func (b *baseResource) Name() string       { return b.name }
func (b *baseResource) Category() Category { return b.category }
func (b *baseResource) base() *baseResource {
	return b
}

func (b *baseResource) State() State {
	b.mgr.mu.RLock()
	defer b.mgr.mu.RUnlock()
	return b.state
}

func (b *baseResource) Err() error {
	b.mgr.mu.RLock()
	defer b.mgr.mu.RUnlock()
	return b.err
}

func (b *baseResource) IsReadyToUse() bool {
	return b.State() == StateReady
}

func (b *baseResource) RequiresReload(params interface{}) bool {
	b.mgr.mu.RLock()
	defer b.mgr.mu.RUnlock()
	if b.state == StateFailed {
		return false
	}
	return b.self.requiresReloadLocked(params)
}

func (b *baseResource) Request(params interface{}) {
	b.mgr.request(b.self, params)
}

func (b *baseResource) ExecuteWhenReady(fn func()) {
	m := b.mgr
	m.mu.Lock()
	if b.state.Terminal() {
		m.mu.Unlock()
		fn()
		return
	}
	b.onReady = append(b.onReady, fn)
	m.mu.Unlock()
}

// markLoadingLocked moves a requested resource into the loading-data state
// once its first file completion starts being processed.
func (b *baseResource) markLoadingLocked() {
	if b.state == StateRequested {
		b.state = StateLoadingData
	}
}
