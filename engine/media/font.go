package media

import (
	"strings"

	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/aria/engine/core"
)

// BitmapFontResource is an atomic single-file resource wrapping a parsed
// .fnt descriptor. Page textures are regular texture resources, referenced
// by the descriptor but not loaded here. A failed fetch or parse leaves a
// nil descriptor sentinel; the resource still reaches ready.
type BitmapFontResource struct {
	baseResource
	desc *BitmapFontDescriptor

	font *bmfont.Descriptor
}

func newBitmapFontResource(m *Manager, desc *BitmapFontDescriptor) *BitmapFontResource {
	r := &BitmapFontResource{desc: desc}
	r.init(m, CategoryBitmapFont, desc.Name, r)
	return r
}

func (r *BitmapFontResource) requiresReloadLocked(params interface{}) bool {
	return r.state == StateUnrequested
}

func (r *BitmapFontResource) requestFilesLocked(params interface{}) []func() {
	path := r.desc.Path
	return []func(){func() {
		text, err := r.mgr.storage.FetchText(folderFor[CategoryBitmapFont], path)
		r.mgr.metrics.RecordFetch(len(text), err != nil)
		r.completeFont(path, text, err)
	}}
}

func (r *BitmapFontResource) completeFont(path, text string, err error) {
	m := r.mgr
	m.mu.Lock()
	r.markLoadingLocked()

	if err != nil {
		core.LogWarn("font '%s': descriptor '%s' failed to load: %s", r.name, path, err.Error())
	} else {
		font, perr := bmfont.ReadDescriptor(strings.NewReader(text))
		if perr != nil {
			core.LogWarn("font '%s': descriptor '%s' failed to parse: %s", r.name, path, perr.Error())
		} else {
			r.font = font
		}
	}
	if r.state != StateReady {
		m.readyLocked(&r.baseResource)
	}
	m.unlockAndNotify()
}

// Font returns the parsed descriptor, nil when it could not be loaded.
func (r *BitmapFontResource) Font() *bmfont.Descriptor {
	r.mgr.mu.RLock()
	defer r.mgr.mu.RUnlock()
	return r.font
}
