package media

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// wavBytes builds a minimal RIFF/WAVE PCM payload with a zeroed data chunk.
func wavBytes(t *testing.T, channels uint16, rate uint32, bits uint16, dataLen int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("building wav payload: %v", err)
		}
	}

	buf.WriteString("RIFF")
	w(uint32(4 + 24 + 8 + dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1)) // PCM
	w(channels)
	w(rate)
	w(rate * uint32(channels) * uint32(bits/8)) // byte rate
	w(channels * bits / 8)                      // block align
	w(bits)

	buf.WriteString("data")
	w(uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

func TestSoundEffectLoadsAllSamples(t *testing.T) {
	store := newFakeStore()
	store.bins["sfx/step1.wav"] = wavBytes(t, 1, 22050, 16, 32)
	store.bins["sfx/step2.wav"] = wavBytes(t, 1, 22050, 16, 32)
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		SoundEffects: []*SoundEffectDescriptor{
			{Name: "step", Samples: []string{"step1.wav", "step2.wav"}},
		},
	})

	r := m.SoundEffect("step")
	waitTerminal(t, r)

	if !r.IsReadyToUse() {
		t.Fatalf("state = %s, want ready", r.State())
	}
	usable, declared := r.SampleCount()
	if usable != 2 || declared != 2 {
		t.Fatalf("sample count = (%d, %d), want (2, 2)", usable, declared)
	}
	if r.Sample() == nil {
		t.Fatal("Sample returned nil with two usable samples")
	}
}

func TestSoundEffectPartialFailureStillReady(t *testing.T) {
	store := newFakeStore()
	store.bins["sfx/a.wav"] = wavBytes(t, 1, 22050, 16, 32)
	// b.wav is missing, c.wav is not a wav payload.
	store.bins["sfx/c.wav"] = []byte("not a riff payload")
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		SoundEffects: []*SoundEffectDescriptor{
			{Name: "crunch", Samples: []string{"a.wav", "b.wav", "c.wav"}},
		},
	})

	r := m.SoundEffect("crunch")
	waitTerminal(t, r)

	if !r.IsReadyToUse() {
		t.Fatalf("state = %s, want ready despite bad samples", r.State())
	}
	usable, declared := r.SampleCount()
	if usable != 1 || declared != 3 {
		t.Fatalf("sample count = (%d, %d), want (1, 3)", usable, declared)
	}
	// Failed slots are never selected.
	for i := 0; i < 50; i++ {
		if r.Sample() == nil {
			t.Fatal("Sample returned a failed slot")
		}
	}
}

func TestSoundEffectNoSamples(t *testing.T) {
	store := newFakeStore()
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		SoundEffects: []*SoundEffectDescriptor{{Name: "silence"}},
	})

	r := m.SoundEffect("silence")
	waitTerminal(t, r)

	if !r.IsReadyToUse() {
		t.Fatalf("state = %s, want ready", r.State())
	}
	if r.Sample() != nil {
		t.Fatal("Sample returned data for an empty effect")
	}
	if n := store.totalFetches(); n != 0 {
		t.Fatalf("empty effect fetched %d files", n)
	}
}

func TestSoundEffectRequestIdempotent(t *testing.T) {
	store := newFakeStore()
	store.bins["sfx/a.wav"] = wavBytes(t, 1, 22050, 16, 32)
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		SoundEffects: []*SoundEffectDescriptor{{Name: "step", Samples: []string{"a.wav"}}},
	})

	r := m.SoundEffect("step")
	waitTerminal(t, r)
	r.Request(nil)
	r.Request(nil)

	if n := store.count("sfx", "a.wav"); n != 1 {
		t.Fatalf("sample fetched %d times, want 1", n)
	}
}

func TestMusicLoad(t *testing.T) {
	store := newFakeStore()
	store.bins["music/theme.wav"] = wavBytes(t, 2, 44100, 16, 44100*4)
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		Music: []*MusicDescriptor{{Name: "theme", Path: "theme.wav"}},
	})

	r := m.Music("theme")
	waitTerminal(t, r)

	sample := r.Sample()
	if sample == nil {
		t.Fatal("Sample returned nil after a successful load")
	}
	if sample.Channels != 2 || sample.SampleRate != 44100 || sample.BitsPerSample != 16 {
		t.Fatalf("decoded sample = %+v", sample)
	}
	if sample.Duration().Seconds() != 1 {
		t.Fatalf("duration = %s, want 1s", sample.Duration())
	}
}

func TestMusicFailureStillReachesReady(t *testing.T) {
	store := newFakeStore()
	m, _ := newTestManager(t, store)
	m.LoadManifest(&Manifest{
		Music: []*MusicDescriptor{{Name: "lost", Path: "missing.wav"}},
	})

	r := m.Music("lost")
	waitTerminal(t, r)

	if !r.IsReadyToUse() {
		t.Fatalf("state = %s, want ready with a nil sample", r.State())
	}
	if r.Sample() != nil {
		t.Fatal("Sample returned data for a failed fetch")
	}
}
