package sound

import (
	"crypto/sha1" // #nosec G505 - hashing for cache-busting only
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const (
	sampleRate = 44100
	toneHz     = 2048
	pulseOn    = 150 * time.Millisecond
	pulseOff   = 150 * time.Millisecond
	pulses     = 10
	amplitude  = 9830 // ~0.3 of int16 range
)

// ToneDuration is the total length of the alarm tone.
const ToneDuration = pulses * (pulseOn + pulseOff)

// Synthesize renders the alarm tone as a 16-bit mono WAV: a square wave at
// toneHz pulsed on/off.
func Synthesize() []byte {
	onSamples := int(sampleRate * pulseOn / time.Second)
	offSamples := int(sampleRate * pulseOff / time.Second)
	total := pulses * (onSamples + offSamples)

	data := make([]byte, 44+total*2)
	writeWAVHeader(data, total)

	offset := 44
	halfPeriod := sampleRate / (2 * toneHz)
	if halfPeriod < 1 {
		halfPeriod = 1
	}
	for p := 0; p < pulses; p++ {
		for i := 0; i < onSamples; i++ {
			sample := int16(amplitude)
			if (i/halfPeriod)%2 == 1 {
				sample = -amplitude
			}
			binary.LittleEndian.PutUint16(data[offset:], uint16(sample))
			offset += 2
		}
		// Silent gap between pulses; samples are already zero.
		offset += offSamples * 2
	}
	return data
}

func writeWAVHeader(data []byte, samples int) {
	byteRate := sampleRate * 2
	dataSize := samples * 2

	copy(data[0:4], "RIFF")
	binary.LittleEndian.PutUint32(data[4:], uint32(36+dataSize))
	copy(data[8:12], "WAVE")
	copy(data[12:16], "fmt ")
	binary.LittleEndian.PutUint32(data[16:], 16)                 // fmt chunk size
	binary.LittleEndian.PutUint16(data[20:], 1)                  // PCM
	binary.LittleEndian.PutUint16(data[22:], 1)                  // mono
	binary.LittleEndian.PutUint32(data[24:], uint32(sampleRate)) // sample rate
	binary.LittleEndian.PutUint32(data[28:], uint32(byteRate))   // byte rate
	binary.LittleEndian.PutUint16(data[32:], 2)                  // block align
	binary.LittleEndian.PutUint16(data[34:], 16)                 // bits per sample
	copy(data[36:40], "data")
	binary.LittleEndian.PutUint32(data[40:], uint32(dataSize))
}

// Manager holds the synthesized alarm tone and its cache-busting URL.
type Manager struct {
	data []byte
	hash string
	url  string
}

// NewManager synthesizes the alarm tone once at startup.
func NewManager() *Manager {
	data := Synthesize()
	sum := sha1.Sum(data)
	hash := hex.EncodeToString(sum[:])
	return &Manager{
		data: data,
		hash: hash,
		url:  fmt.Sprintf("/sounds/alert.wav?v=%s", hash),
	}
}

func (m *Manager) Data() []byte { return m.data }
func (m *Manager) URL() string  { return m.url }
func (m *Manager) Hash() string { return m.hash }

// Broadcaster pushes a typed event to connected chart clients.
type Broadcaster interface {
	Broadcast(event string, data any)
}

// Player tracks one playback handle per alert. Each Play allocates a fresh
// handle released when the tone finishes or on ReleaseAll.
type Player struct {
	mu      sync.Mutex
	mgr     *Manager
	bc      Broadcaster
	playing map[string]*time.Timer
}

// NewPlayer creates a player broadcasting playback requests over bc.
func NewPlayer(mgr *Manager, bc Broadcaster) *Player {
	return &Player{
		mgr:     mgr,
		bc:      bc,
		playing: make(map[string]*time.Timer),
	}
}

// Play starts the alarm tone for an alert. A tone already playing for the
// same alert is released first.
func (p *Player) Play(alertID string) error {
	if p.mgr == nil {
		return fmt.Errorf("no alarm tone available")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.playing[alertID]; ok {
		t.Stop()
		delete(p.playing, alertID)
	}
	if p.bc != nil {
		p.bc.Broadcast("sound", map[string]any{
			"alertId": alertID,
			"url":     p.mgr.URL(),
		})
	}
	p.playing[alertID] = time.AfterFunc(ToneDuration, func() {
		p.Release(alertID)
	})
	return nil
}

// Release drops the playback handle for an alert. Safe when no handle exists.
func (p *Player) Release(alertID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.playing[alertID]; ok {
		t.Stop()
		delete(p.playing, alertID)
	}
}

// ReleaseAll drops every playback handle.
func (p *Player) ReleaseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.playing {
		t.Stop()
		delete(p.playing, id)
	}
}

// Active returns the number of live playback handles.
func (p *Player) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.playing)
}
