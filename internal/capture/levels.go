package capture

import (
	"encoding/binary"
	"math"
)

// maxFrames bounds the amplitude history. The display is best-effort: when
// the consumer falls behind, old frames are dropped, never queued unbounded.
const maxFrames = 64

// LevelMeter turns raw 16-bit PCM chunks into a bounded ring of RMS
// amplitude frames in [0,1]. Purely cosmetic; nothing downstream reads it.
type LevelMeter struct {
	sampleRate int
	channels   int
	frames     []float64
}

func NewLevelMeter(sampleRate, channels int) *LevelMeter {
	return &LevelMeter{sampleRate: sampleRate, channels: channels}
}

// Push computes one amplitude frame for the chunk and appends it,
// evicting the oldest frame once the ring is full.
func (m *LevelMeter) Push(chunk []byte) {
	m.frames = append(m.frames, rms(chunk))
	if len(m.frames) > maxFrames {
		m.frames = m.frames[len(m.frames)-maxFrames:]
	}
}

// Frames returns a copy of the current amplitude history.
func (m *LevelMeter) Frames() []float64 {
	out := make([]float64, len(m.frames))
	copy(out, m.frames)
	return out
}

func (m *LevelMeter) Reset() {
	m.frames = nil
}

// rms computes the root-mean-square amplitude of little-endian int16
// samples, normalized to [0,1]. Trailing odd bytes are ignored.
func rms(chunk []byte) float64 {
	n := len(chunk) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(chunk[i*2:]))
		v := float64(s) / math.MaxInt16
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
