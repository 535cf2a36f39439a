package media

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/aria/engine/core"
	"github.com/spaghettifunk/aria/engine/renderer"
)

// ShaderParams carries the optional named-variant selection used by the
// typed accessor. Loading itself takes no parameters.
type ShaderParams struct {
	Variant string
}

type shaderSlot int

const (
	slotVertex shaderSlot = iota
	slotFragment
	slotCount
)

func (s shaderSlot) String() string {
	switch s {
	case slotVertex:
		return "vertex"
	case slotFragment:
		return "fragment"
	}
	return "unknown"
}

// unpackSamplerArraysDefine is prepended to both sources when a managed
// variant is built with the unpack flag set.
const unpackSamplerArraysDefine = "#define UNPACK_SAMPLER_ARRAYS\n"

// maxShaderIncludes bounds the include expansion of one shader. A cyclic
// include graph keeps producing directives on every splice; past the bound
// they are left unresolved and the shader degrades instead of recursing
// until the stack runs out.
const maxShaderIncludes = 256

type shaderVariant struct {
	defines map[string]string
	unpack  bool
	managed *renderer.ShaderProgram
}

// ShaderResource holds the two raw source strings, mutated in place as
// include directives resolve, and a cache of derived programs keyed by the
// exact defines-substitution map used to build them.
//
// The resource is ready only when both sources are non-nil (a failed fetch
// leaves the empty-string sentinel) and every include discovered across both
// sources has resolved. The include total grows mid-resolution as nested
// includes are found, so readiness is always recomputed from the current
// counters, never from a cached total.
type ShaderResource struct {
	baseResource
	desc *ShaderDescriptor

	sources        [slotCount]*string
	includesToLoad int
	includesLoaded int

	variants []*shaderVariant
}

func newShaderResource(m *Manager, desc *ShaderDescriptor) *ShaderResource {
	s := &ShaderResource{desc: desc}
	s.init(m, CategoryShader, desc.Name, s)
	return s
}

func (s *ShaderResource) requiresReloadLocked(params interface{}) bool {
	// Both source files are implied by any request; one batch per lifetime.
	return s.state == StateUnrequested
}

func (s *ShaderResource) requestFilesLocked(params interface{}) []func() {
	fetch := func(slot shaderSlot, path string) func() {
		return func() {
			text, err := s.mgr.storage.FetchText(folderFor[CategoryShader], path)
			s.mgr.metrics.RecordFetch(len(text), err != nil)
			s.completeSource(slot, text, err)
		}
	}
	return []func(){
		fetch(slotVertex, s.desc.VertexSource),
		fetch(slotFragment, s.desc.FragmentSource),
	}
}

func (s *ShaderResource) completeSource(slot shaderSlot, text string, err error) {
	m := s.mgr
	m.mu.Lock()
	s.markLoadingLocked()

	var ops []func()
	if err != nil {
		core.LogWarn("shader '%s': %s source failed to load: %s", s.name, slot, err.Error())
		sentinel := ""
		s.sources[slot] = &sentinel
	} else {
		src := text
		s.sources[slot] = &src
		ops = s.scanIncludesLocked(slot, text)
	}
	s.checkReadyLocked()
	m.unlockAndNotify()

	for _, op := range ops {
		m.jobs.SubmitNonBlocking(op)
	}
}

// scanIncludesLocked counts and resolves every include directive in the
// given text fragment. Returns fetch jobs for includes not yet in the cache.
// Counting happens strictly before resolving: a cached include resolves
// synchronously and checks readiness, so every directive of this fragment
// must already be on the to-load counter by then.
func (s *ShaderResource) scanIncludesLocked(slot shaderSlot, text string) []func() {
	var found []string
	for _, line := range strings.Split(text, "\n") {
		path, ok := parseIncludeDirective(line)
		if !ok {
			continue
		}
		if s.includesToLoad >= maxShaderIncludes {
			core.LogWarn("shader '%s': include limit reached, leaving '%s' unresolved", s.name, path)
			continue
		}
		found = append(found, path)
		s.includesToLoad++
	}

	var ops []func()
	for _, path := range found {
		ops = append(ops, s.mgr.includes.resolveLocked(s.mgr, path, s.spliceClosure(slot, path))...)
	}
	return ops
}

func (s *ShaderResource) spliceClosure(slot shaderSlot, path string) func(text string) []func() {
	return func(text string) []func() {
		return s.spliceLocked(slot, path, text)
	}
}

// spliceLocked replaces the first line still carrying an include directive
// for the given path with the resolved text, verbatim, then re-scans only
// the replacement text for nested includes. One occurrence is substituted
// per resolution pass; duplicate identical directives wait for their own
// pass.
func (s *ShaderResource) spliceLocked(slot shaderSlot, path, text string) []func() {
	if slot < 0 || slot >= slotCount {
		core.LogFatal("shader '%s': splice into invalid slot %d", s.name, slot)
	}
	src := s.sources[slot]
	if src == nil {
		core.LogFatal("shader '%s': splice into unloaded %s source", s.name, slot)
	}

	var ops []func()
	lines := strings.Split(*src, "\n")
	for i, line := range lines {
		p, ok := parseIncludeDirective(line)
		if !ok || p != path {
			continue
		}
		lines[i] = text
		*src = strings.Join(lines, "\n")
		ops = s.scanIncludesLocked(slot, text)
		break
	}
	// The counter advances even when no line matched anymore (an earlier
	// pass consumed it), otherwise readiness would never be reached.
	s.includesLoaded++
	s.checkReadyLocked()
	return ops
}

func (s *ShaderResource) checkReadyLocked() {
	if s.state == StateReady {
		return
	}
	if s.sources[slotVertex] == nil || s.sources[slotFragment] == nil {
		return
	}
	if s.includesLoaded != s.includesToLoad {
		return
	}
	s.mgr.readyLocked(&s.baseResource)
}

// VertexSource returns the current vertex source text; empty until loaded.
func (s *ShaderResource) VertexSource() string {
	return s.source(slotVertex)
}

// FragmentSource returns the current fragment source text; empty until loaded.
func (s *ShaderResource) FragmentSource() string {
	return s.source(slotFragment)
}

func (s *ShaderResource) source(slot shaderSlot) string {
	s.mgr.mu.RLock()
	defer s.mgr.mu.RUnlock()
	if s.sources[slot] == nil {
		return ""
	}
	return *s.sources[slot]
}

// ManagedShader returns the program derived with the exact
// defines-substitution map and unpack flag, building and caching it on the
// first request. Cache entries are never evicted.
func (s *ShaderResource) ManagedShader(defines map[string]string, unpackSamplerArrays bool) *renderer.ShaderProgram {
	m := s.mgr
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.state != StateReady {
		core.LogError("shader '%s': managed shader requested before ready: %s", s.name, core.ErrResourceNotReady.Error())
		return nil
	}

	for _, v := range s.variants {
		if v.unpack == unpackSamplerArrays && maps.Equal(v.defines, defines) {
			return v.managed
		}
	}

	vertex := s.substitute(*s.sources[slotVertex], defines, unpackSamplerArrays)
	fragment := s.substitute(*s.sources[slotFragment], defines, unpackSamplerArrays)

	managed, err := m.backend.BuildShaderProgram(s.name, vertex, fragment, defines, s.desc.BlendMode, s.desc.Attributes)
	if err != nil {
		core.LogError("shader '%s': backend build failed: %s", s.name, err.Error())
		return nil
	}

	s.variants = append(s.variants, &shaderVariant{
		defines: maps.Clone(defines),
		unpack:  unpackSamplerArrays,
		managed: managed,
	})
	return managed
}

func (s *ShaderResource) substitute(source string, defines map[string]string, unpack bool) string {
	keys := maps.Keys(defines)
	slices.Sort(keys)
	for _, k := range keys {
		source = strings.ReplaceAll(source, k, defines[k])
	}
	if unpack {
		source = unpackSamplerArraysDefine + source
	}
	return source
}
