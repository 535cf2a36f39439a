package media

import (
	"strings"

	"github.com/spaghettifunk/aria/engine/containers"
	"github.com/spaghettifunk/aria/engine/core"
)

const (
	includePrefix = `#include "`
	includeSuffix = `"`
)

// includeCache is shared by every shader resource of one manager: an include
// path maps to either pending splice callbacks or the resolved text, so a
// given include file is fetched from storage at most once process-wide, no
// matter how many shaders reference it.
type includeCache struct {
	entries map[string]*includeEntry
}

type includeEntry struct {
	resolved bool
	text     string
	// Splice closures waiting on the text. Invoked under the manager lock;
	// each may fan out further fetch jobs for nested includes.
	pending *containers.Queue[func(text string) []func()]
}

func newIncludeCache() *includeCache {
	return &includeCache{entries: make(map[string]*includeEntry)}
}

// parseIncludeDirective extracts the referenced path from a line beginning
// with the include prefix token.
func parseIncludeDirective(line string) (string, bool) {
	if !strings.HasPrefix(line, includePrefix) {
		return "", false
	}
	rest := line[len(includePrefix):]
	end := strings.Index(rest, includeSuffix)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// resolveLocked routes one discovered include directive through the cache.
// Returns fetch jobs to submit once the manager lock is released.
func (ic *includeCache) resolveLocked(m *Manager, path string, splice func(text string) []func()) []func() {
	entry := ic.entries[path]
	switch {
	case entry == nil:
		entry = &includeEntry{pending: containers.NewQueue[func(text string) []func()]()}
		ic.entries[path] = entry
		entry.pending.Enqueue(splice)
		return []func(){m.includeFetchOp(path)}
	case !entry.resolved:
		entry.pending.Enqueue(splice)
		return nil
	default:
		return splice(entry.text)
	}
}

// includeFetchOp performs the single fetch for an include path and drains
// every splice closure queued for it, across all waiting shaders.
func (m *Manager) includeFetchOp(path string) func() {
	return func() {
		text, err := m.storage.FetchText(folderFor[CategoryShader], path)
		m.metrics.RecordFetch(len(text), err != nil)

		m.mu.Lock()
		entry := m.includes.entries[path]
		if entry == nil || entry.resolved {
			// A second fetch for a path can only mean a bookkeeping bug.
			core.LogFatal("include cache entry for '%s' missing or double-resolved", path)
		}
		if err != nil {
			core.LogWarn("shader include '%s' failed to load: %s", path, err.Error())
			text = ""
		}
		entry.resolved = true
		entry.text = text

		var ops []func()
		for _, splice := range entry.pending.Drain() {
			ops = append(ops, splice(text)...)
		}
		entry.pending = nil
		m.unlockAndNotify()

		for _, op := range ops {
			m.jobs.SubmitNonBlocking(op)
		}
	}
}
