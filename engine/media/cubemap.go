package media

import (
	"fmt"
	"image"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/aria/engine/core"
	"github.com/spaghettifunk/aria/engine/renderer"
)

// CubemapParams selects which quality tiers to fetch; every declared face is
// always fetched. Nil means every declared quality.
type CubemapParams struct {
	Qualities []Quality
}

type cubemapCell struct {
	Face    string
	Quality Quality
}

type cubemapVariant struct {
	qualities []Quality
	managed   *renderer.Cubemap
}

// CubemapResource holds a sparse (face, quality) matrix of raw images and a
// cache of managed cubemaps keyed by the exact quality preference list used
// to request them.
type CubemapResource struct {
	baseResource
	desc *CubemapDescriptor

	images    map[string]map[Quality]image.Image
	requested map[cubemapCell]bool
	loaded    int
	total     int

	variants []*cubemapVariant
}

func newCubemapResource(m *Manager, desc *CubemapDescriptor) *CubemapResource {
	c := &CubemapResource{
		desc:      desc,
		images:    make(map[string]map[Quality]image.Image),
		requested: make(map[cubemapCell]bool),
	}
	c.init(m, CategoryCubemap, desc.Name, c)
	return c
}

// faces returns the declared face names in a stable order.
func (c *CubemapResource) faces() []string {
	faces := maps.Keys(c.desc.FaceSuffixes)
	slices.Sort(faces)
	return faces
}

func (c *CubemapResource) wantedCells(params interface{}) []cubemapCell {
	var p *CubemapParams
	if params != nil {
		p, _ = params.(*CubemapParams)
	}

	var qualities []Quality
	if p != nil {
		qualities = p.Qualities
	}
	if len(qualities) == 0 {
		for q := range c.desc.QualitySuffixes {
			qualities = append(qualities, q)
		}
	}

	var cells []cubemapCell
	for _, face := range c.faces() {
		for _, q := range qualities {
			if _, declared := c.desc.QualitySuffixes[q]; !declared {
				continue
			}
			cells = append(cells, cubemapCell{Face: face, Quality: q})
		}
	}
	return cells
}

func (c *CubemapResource) requiresReloadLocked(params interface{}) bool {
	for _, cell := range c.wantedCells(params) {
		if !c.requested[cell] {
			return true
		}
	}
	return false
}

func (c *CubemapResource) requestFilesLocked(params interface{}) []func() {
	var ops []func()
	for _, cell := range c.wantedCells(params) {
		if c.requested[cell] {
			continue
		}
		c.requested[cell] = true
		c.total++

		cell := cell
		path := fmt.Sprintf("%s%s%s.%s",
			c.desc.BasePath,
			c.desc.FaceSuffixes[cell.Face],
			c.desc.QualitySuffixes[cell.Quality],
			c.desc.Format)
		ops = append(ops, func() {
			img, err := c.mgr.storage.FetchImage(folderFor[CategoryCubemap], path)
			c.mgr.metrics.RecordFetch(0, err != nil)
			c.completeCell(cell, img, err)
		})
	}
	return ops
}

func (c *CubemapResource) completeCell(cell cubemapCell, img image.Image, err error) {
	m := c.mgr
	m.mu.Lock()
	c.markLoadingLocked()
	if err != nil {
		core.LogWarn("cubemap '%s': face %s at %s failed to load: %s", c.name, cell.Face, cell.Quality, err.Error())
	} else {
		byQuality := c.images[cell.Face]
		if byQuality == nil {
			byQuality = make(map[Quality]image.Image)
			c.images[cell.Face] = byQuality
		}
		byQuality[cell.Quality] = img
	}
	c.loaded++
	if c.loaded == c.total && c.state != StateReady {
		m.readyLocked(&c.baseResource)
	}
	m.unlockAndNotify()
}

// ManagedCubemap returns the managed cubemap for the exact quality
// preference list, building and caching it on first request. A quality is
// usable only when every declared face loaded at that quality.
func (c *CubemapResource) ManagedCubemap(qualityPrefs []Quality) *renderer.Cubemap {
	m := c.mgr
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.state != StateReady {
		core.LogError("cubemap '%s': managed cubemap requested before ready: %s", c.name, core.ErrResourceNotReady.Error())
		return nil
	}

	for _, v := range c.variants {
		if slices.Equal(v.qualities, qualityPrefs) {
			return v.managed
		}
	}

	quality, ok := c.pickQualityLocked(qualityPrefs)
	if !ok {
		core.LogError("cubemap '%s': %s", c.name, core.ErrNoUsableQuality.Error())
		return nil
	}

	faces := c.faces()
	imgs := make([]image.Image, 0, len(faces))
	for _, face := range faces {
		imgs = append(imgs, c.images[face][quality])
	}

	managed, err := m.backend.BuildCubemap(c.name, imgs)
	if err != nil {
		core.LogError("cubemap '%s': backend build failed: %s", c.name, err.Error())
		return nil
	}

	c.variants = append(c.variants, &cubemapVariant{
		qualities: slices.Clone(qualityPrefs),
		managed:   managed,
	})
	return managed
}

func (c *CubemapResource) pickQualityLocked(qualityPrefs []Quality) (Quality, bool) {
	best := -1
	var bestQuality Quality
	for q := range c.desc.QualitySuffixes {
		idx := slices.Index(qualityPrefs, q)
		if idx < 0 {
			continue
		}
		if best >= 0 && idx >= best {
			continue
		}
		available := true
		for _, face := range c.faces() {
			if c.images[face][q] == nil {
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
