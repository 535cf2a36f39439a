package media

import (
	"math/rand"

	"github.com/spaghettifunk/aria/engine/core"
	"github.com/spaghettifunk/aria/engine/formats"
)

// AudioDecoder turns fetched bytes into a playable sample. It is a pure
// collaborator; the media layer owns retries-never and slot bookkeeping.
type AudioDecoder interface {
	DecodeAudioSample(data []byte) (*formats.AudioSample, error)
}

// WAVDecoder is the default decoder: RIFF/WAVE PCM payloads.
type WAVDecoder struct{}

func (WAVDecoder) DecodeAudioSample(data []byte) (*formats.AudioSample, error) {
	return formats.DecodeWAV(data)
}

// SoundEffectResource holds one playable sample per declared file. A sample
// that fails to fetch or decode leaves a nil slot instead of failing the
// resource: one bad file never blocks an otherwise-usable effect, and a
// failed slot is never selected for playback.
type SoundEffectResource struct {
	baseResource
	desc *SoundEffectDescriptor

	samples []*formats.AudioSample
	loaded  int
}

func newSoundEffectResource(m *Manager, desc *SoundEffectDescriptor) *SoundEffectResource {
	s := &SoundEffectResource{desc: desc}
	s.init(m, CategorySoundEffect, desc.Name, s)
	return s
}

func (s *SoundEffectResource) requiresReloadLocked(params interface{}) bool {
	return s.state == StateUnrequested
}

func (s *SoundEffectResource) requestFilesLocked(params interface{}) []func() {
	s.samples = make([]*formats.AudioSample, len(s.desc.Samples))
	if len(s.desc.Samples) == 0 {
		// Nothing to fetch; account the empty batch right away.
		s.mgr.readyLocked(&s.baseResource)
		return nil
	}

	ops := make([]func(), 0, len(s.desc.Samples))
	for i, path := range s.desc.Samples {
		i, path := i, path
		ops = append(ops, func() {
			data, err := s.mgr.storage.FetchBinary(folderFor[CategorySoundEffect], path)
			s.mgr.metrics.RecordFetch(len(data), err != nil)
			s.completeSample(i, path, data, err)
		})
	}
	return ops
}

func (s *SoundEffectResource) completeSample(index int, path string, data []byte, err error) {
	m := s.mgr
	m.mu.Lock()
	s.markLoadingLocked()

	if err != nil {
		core.LogWarn("sound effect '%s': sample '%s' failed to load: %s", s.name, path, err.Error())
	} else {
		sample, derr := m.audio.DecodeAudioSample(data)
		if derr != nil {
			core.LogWarn("sound effect '%s': sample '%s' failed to decode: %s", s.name, path, derr.Error())
		} else {
			s.samples[index] = sample
		}
	}
	s.loaded++
	if s.loaded == len(s.samples) && s.state != StateReady {
		m.readyLocked(&s.baseResource)
	}
	m.unlockAndNotify()
}

// Sample picks a random playable sample, skipping failed slots. Nil when
// nothing usable loaded.
func (s *SoundEffectResource) Sample() *formats.AudioSample {
	m := s.mgr
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s.state != StateReady {
		core.LogError("sound effect '%s': sample requested before ready: %s", s.name, core.ErrResourceNotReady.Error())
		return nil
	}

	usable := make([]*formats.AudioSample, 0, len(s.samples))
	for _, sample := range s.samples {
		if sample != nil {
			usable = append(usable, sample)
		}
	}
	if len(usable) == 0 {
		return nil
	}
	return usable[rand.Intn(len(usable))]
}

// SampleCount returns (usable, declared) sample counts.
func (s *SoundEffectResource) SampleCount() (int, int) {
	s.mgr.mu.RLock()
	defer s.mgr.mu.RUnlock()
	usable := 0
	for _, sample := range s.samples {
		if sample != nil {
			usable++
		}
	}
	return usable, len(s.desc.Samples)
}

// MusicResource is an atomic single-file resource. A failed fetch or decode
// still reaches the ready state carrying a nil sample, so nothing blocks
// forever; callers check Sample() before playing.
type MusicResource struct {
	baseResource
	desc *MusicDescriptor

	sample *formats.AudioSample
}

func newMusicResource(m *Manager, desc *MusicDescriptor) *MusicResource {
	r := &MusicResource{desc: desc}
	r.init(m, CategoryMusic, desc.Name, r)
	return r
}

func (r *MusicResource) requiresReloadLocked(params interface{}) bool {
	return r.state == StateUnrequested
}

func (r *MusicResource) requestFilesLocked(params interface{}) []func() {
	path := r.desc.Path
	return []func(){func() {
		data, err := r.mgr.storage.FetchBinary(folderFor[CategoryMusic], path)
		r.mgr.metrics.RecordFetch(len(data), err != nil)
		r.completeTrack(path, data, err)
	}}
}

func (r *MusicResource) completeTrack(path string, data []byte, err error) {
	m := r.mgr
	m.mu.Lock()
	r.markLoadingLocked()

	if err != nil {
		core.LogWarn("music '%s': track '%s' failed to load: %s", r.name, path, err.Error())
	} else {
		sample, derr := m.audio.DecodeAudioSample(data)
		if derr != nil {
			core.LogWarn("music '%s': track '%s' failed to decode: %s", r.name, path, derr.Error())
		} else {
			r.sample = sample
		}
	}
	if r.state != StateReady {
		m.readyLocked(&r.baseResource)
	}
	m.unlockAndNotify()
}

// Sample returns the decoded track, nil when it could not be loaded.
func (r *MusicResource) Sample() *formats.AudioSample {
	r.mgr.mu.RLock()
	defer r.mgr.mu.RUnlock()
	return r.sample
}
