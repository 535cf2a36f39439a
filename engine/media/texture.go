package media

import (
	"fmt"
	"image"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/aria/engine/core"
	"github.com/spaghettifunk/aria/engine/renderer"
)

// TextureParams selects which cells of the (type, quality) grid a request
// wants. Nil slices mean every type / every quality the manifest declares.
type TextureParams struct {
	Types     []TextureType
	Qualities []Quality
}

type textureCell struct {
	Type    TextureType
	Quality Quality
}

type textureVariant struct {
	// Sorted copy of the requested type set; lookup is order-insensitive.
	types []TextureType
	// Preference order matters, compared verbatim.
	qualities []Quality
	managed   *renderer.Texture
}

// TextureResource holds a sparse matrix of raw images indexed by
// (type, quality), and a cache of managed textures derived from them.
// A given cell is fetched at most once for the resource's lifetime.
type TextureResource struct {
	baseResource
	desc *TextureDescriptor

	images    map[TextureType]map[Quality]image.Image
	requested map[textureCell]bool
	loaded    int
	total     int

	variants []*textureVariant
}

func newTextureResource(m *Manager, desc *TextureDescriptor) *TextureResource {
	t := &TextureResource{
		desc:      desc,
		images:    make(map[TextureType]map[Quality]image.Image),
		requested: make(map[textureCell]bool),
	}
	t.init(m, CategoryTexture, desc.Name, t)
	return t
}

// wantedCells intersects the request with the declared grid.
func (t *TextureResource) wantedCells(params interface{}) []textureCell {
	var p *TextureParams
	if params != nil {
		p, _ = params.(*TextureParams)
	}

	var types []TextureType
	var qualities []Quality
	if p != nil {
		types = p.Types
		qualities = p.Qualities
	}
	if len(types) == 0 {
		for ty := range t.desc.TypeSuffixes {
			types = append(types, ty)
		}
	}
	if len(qualities) == 0 {
		for q := range t.desc.QualitySuffixes {
			qualities = append(qualities, q)
		}
	}

	var cells []textureCell
	for _, ty := range types {
		if _, declared := t.desc.TypeSuffixes[ty]; !declared {
			continue
		}
		for _, q := range qualities {
			if _, declared := t.desc.QualitySuffixes[q]; !declared {
				continue
			}
			cells = append(cells, textureCell{Type: ty, Quality: q})
		}
	}
	return cells
}

func (t *TextureResource) requiresReloadLocked(params interface{}) bool {
	for _, cell := range t.wantedCells(params) {
		if !t.requested[cell] {
			return true
		}
	}
	return false
}

func (t *TextureResource) requestFilesLocked(params interface{}) []func() {
	var ops []func()
	for _, cell := range t.wantedCells(params) {
		if t.requested[cell] {
			continue
		}
		t.requested[cell] = true
		t.total++

		cell := cell
		path := fmt.Sprintf("%s%s%s.%s",
			t.desc.BasePath,
			t.desc.TypeSuffixes[cell.Type],
			t.desc.QualitySuffixes[cell.Quality],
			t.desc.Format)
		ops = append(ops, func() {
			img, err := t.mgr.storage.FetchImage(folderFor[CategoryTexture], path)
			t.mgr.metrics.RecordFetch(0, err != nil)
			t.completeCell(cell, img, err)
		})
	}
	return ops
}

func (t *TextureResource) completeCell(cell textureCell, img image.Image, err error) {
	m := t.mgr
	m.mu.Lock()
	t.markLoadingLocked()
	if err != nil {
		// One bad cell never blocks the texture; the slot just stays empty.
		core.LogWarn("texture '%s': cell (%s, %s) failed to load: %s", t.name, cell.Type, cell.Quality, err.Error())
	} else {
		byQuality := t.images[cell.Type]
		if byQuality == nil {
			byQuality = make(map[Quality]image.Image)
			t.images[cell.Type] = byQuality
		}
		byQuality[cell.Quality] = img
	}
	t.loaded++
	if t.loaded == t.total && t.state != StateReady {
		m.readyLocked(&t.baseResource)
	}
	m.unlockAndNotify()
}

// ManagedTexture returns the managed texture for the exact
// (type set, quality preference list) pair, building and caching it on the
// first request. The type set is order-insensitive; the preference list is
// order-sensitive since it encodes priority, most-preferred first.
func (t *TextureResource) ManagedTexture(types []TextureType, qualityPrefs []Quality) *renderer.Texture {
	m := t.mgr
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.state != StateReady {
		core.LogError("texture '%s': managed texture requested before ready: %s", t.name, core.ErrResourceNotReady.Error())
		return nil
	}

	sortedTypes := slices.Clone(types)
	slices.Sort(sortedTypes)

	for _, v := range t.variants {
		if slices.Equal(v.types, sortedTypes) && slices.Equal(v.qualities, qualityPrefs) {
			return v.managed
		}
	}

	quality, ok := t.pickQualityLocked(types, qualityPrefs)
	if !ok {
		core.LogError("texture '%s': %s", t.name, core.ErrNoUsableQuality.Error())
		return nil
	}

	layers := make([]image.Image, 0, len(types))
	for _, ty := range types {
		layers = append(layers, t.images[ty][quality])
	}

	managed, err := m.backend.BuildTexture(t.name, layers)
	if err != nil {
		core.LogError("texture '%s': backend build failed: %s", t.name, err.Error())
		return nil
	}

	t.variants = append(t.variants, &textureVariant{
		types:     sortedTypes,
		qualities: slices.Clone(qualityPrefs),
		managed:   managed,
	})
	return managed
}

// pickQualityLocked selects, among the declared qualities for which every
// requested type has a loaded image, the one with the lowest index in the
// preference list.
func (t *TextureResource) pickQualityLocked(types []TextureType, qualityPrefs []Quality) (Quality, bool) {
	best := -1
	var bestQuality Quality
	for q := range t.desc.QualitySuffixes {
		idx := slices.Index(qualityPrefs, q)
		if idx < 0 {
			continue
		}
		if best >= 0 && idx >= best {
			continue
		}
		available := true
		for _, ty := range types {
			if t.images[ty][q] == nil {
				available = false
				break
			}
		}
		if available {
			best = idx
			bestQuality = q
		}
	}
	return bestQuality, best >= 0
}

// LoadedQualities lists the qualities for which at least one cell has image
// data, in no particular order.
func (t *TextureResource) LoadedQualities() []Quality {
	t.mgr.mu.RLock()
	defer t.mgr.mu.RUnlock()
	seen := make(map[Quality]bool)
	var out []Quality
	for _, byQuality := range t.images {
		for q, img := range byQuality {
			if img != nil && !seen[q] {
				seen[q] = true
				out = append(out, q)
			}
		}
	}
	return out
}
