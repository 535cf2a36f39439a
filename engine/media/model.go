package media

import (
	"fmt"

	"github.com/spaghettifunk/aria/engine/core"
	"github.com/spaghettifunk/aria/engine/formats"
)

// ModelParams requests geometry up to a maximum level of detail. A nil
// MaxLOD means "all the detail there is".
type ModelParams struct {
	MaxLOD *int
}

// ModelResource picks, among a sparse list of model files each declaring its
// own maximum LOD, the best match for a requested level: the nearest file at
// or below the request, falling back upward to the nearest more detailed
// file when nothing smaller exists. One file is fetched per request cycle
// and MaxLoadedLOD only ever grows.
type ModelResource struct {
	baseResource
	desc *ModelDescriptor

	maxLoadedLOD int
	inFlightLOD  int
	object       *formats.Model
}

func newModelResource(m *Manager, desc *ModelDescriptor) *ModelResource {
	r := &ModelResource{
		desc:         desc,
		maxLoadedLOD: -1,
		inFlightLOD:  -1,
	}
	r.init(m, CategoryModel, desc.Name, r)
	return r
}

// ModelFromObject registers an immediately-ready model resource built from
// an in-memory object, skipping the file list entirely.
func (m *Manager) ModelFromObject(name string, object *formats.Model) *ModelResource {
	r := &ModelResource{
		maxLoadedLOD: -1,
		inFlightLOD:  -1,
		object:       object,
	}
	r.init(m, CategoryModel, name, r)

	m.mu.Lock()
	r.state = StateReady
	m.categories[CategoryModel][name] = r
	ctx := core.EventContext{Category: string(CategoryModel), Name: name}
	m.notifyq = append(m.notifyq, func() { m.events.Fire(core.EVENT_CODE_RESOURCE_READY, m, ctx) })
	m.unlockAndNotify()
	return r
}

func (r *ModelResource) maxAvailableLOD() int {
	max := -1
	for _, f := range r.desc.Files {
		if f.MaxLOD > max {
			max = f.MaxLOD
		}
	}
	return max
}

func (r *ModelResource) wantedLOD(params interface{}) (int, bool) {
	var p *ModelParams
	if params != nil {
		p, _ = params.(*ModelParams)
	}
	if p == nil || p.MaxLOD == nil {
		// No maximum requested: ask for the available maximum.
		if r.desc == nil || len(r.desc.Files) == 0 {
			return 0, false
		}
		return r.maxAvailableLOD(), true
	}
	return *p.MaxLOD, true
}

// resolveFile implements the search order: scan from the requested maximum
// down to zero, then fall back upward from requested+1 to the available
// maximum, and report an error when the descriptor list yields nothing.
func (r *ModelResource) resolveFile(want int) (*ModelFileDescriptor, error) {
	for lod := want; lod >= 0; lod-- {
		for _, f := range r.desc.Files {
			if f.MaxLOD == lod {
				return f, nil
			}
		}
	}
	if len(r.desc.Files) > 0 {
		for lod := want + 1; lod <= r.maxAvailableLOD(); lod++ {
			for _, f := range r.desc.Files {
				if f.MaxLOD == lod {
					return f, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("model '%s': %s (requested max %d)", r.name, core.ErrNoUsableFile.Error(), want)
}

func (r *ModelResource) requiresReloadLocked(params interface{}) bool {
	if r.desc == nil {
		// Built from an in-memory object; nothing to fetch, ever.
		return false
	}
	want, ok := r.wantedLOD(params)
	if !ok {
		// Empty descriptor list: let the request cycle report the error,
		// but only once.
		return r.state == StateUnrequested
	}
	// Compare the file the request resolves to, not the requested level: a
	// request above maxLoadedLOD can still land on the already-loaded file.
	file, err := r.resolveFile(want)
	if err != nil {
		return r.state == StateUnrequested
	}
	if r.maxLoadedLOD >= 0 && file.MaxLOD <= r.maxLoadedLOD {
		return false
	}
	if r.inFlightLOD >= 0 && file.MaxLOD <= r.inFlightLOD {
		return false
	}
	return true
}

func (r *ModelResource) requestFilesLocked(params interface{}) []func() {
	want, ok := r.wantedLOD(params)
	if !ok {
		r.mgr.failLocked(&r.baseResource, fmt.Errorf("model '%s': %s", r.name, core.ErrNoUsableFile.Error()))
		return nil
	}
	file, err := r.resolveFile(want)
	if err != nil {
		r.mgr.failLocked(&r.baseResource, err)
		return nil
	}
	if file.MaxLOD <= r.maxLoadedLOD {
		// The resolved file is already loaded; the request is satisfied in
		// place, and the cycle still has to reach a terminal state.
		r.mgr.readyLocked(&r.baseResource)
		return nil
	}
	r.inFlightLOD = file.MaxLOD

	lod := file.MaxLOD
	path := fmt.Sprintf("%s%s.%s", r.desc.BasePath, file.Suffix, r.desc.Format)
	return []func(){func() {
		text, ferr := r.mgr.storage.FetchText(folderFor[CategoryModel], path)
		r.mgr.metrics.RecordFetch(len(text), ferr != nil)
		r.completeFile(lod, text, ferr)
	}}
}

func (r *ModelResource) completeFile(lod int, text string, err error) {
	m := r.mgr
	m.mu.Lock()
	r.markLoadingLocked()
	r.inFlightLOD = -1

	if err != nil {
		core.LogWarn("model '%s': file for LOD %d failed to load: %s", r.name, lod, err.Error())
	} else {
		object, perr := formats.ParseModel(r.name, []byte(text))
		if perr != nil {
			core.LogWarn("model '%s': file for LOD %d failed to parse: %s", r.name, lod, perr.Error())
		} else {
			r.object = object
			if lod > r.maxLoadedLOD {
				r.maxLoadedLOD = lod
			}
		}
	}
	m.readyLocked(&r.baseResource)
	m.unlockAndNotify()
}

// MaxLoadedLOD reports the detail level actually obtained so far, -1 before
// any file arrived. It is monotonically non-decreasing.
func (r *ModelResource) MaxLoadedLOD() int {
	r.mgr.mu.RLock()
	defer r.mgr.mu.RUnlock()
	return r.maxLoadedLOD
}

// Object returns the decoded model, nil when loading failed or is still in
// progress.
func (r *ModelResource) Object() *formats.Model {
	r.mgr.mu.RLock()
	defer r.mgr.mu.RUnlock()
	return r.object
}
