package presentation

import (
	"path"
	"strings"

	"gameworld/internal/logging"
)

// MusicBackend plays dynamic music tracks.
type MusicBackend interface {
	Init(musicFile string) error
	Pause(paused bool)
	Start(label string)
}

// DynamicMusic drives a MusicBackend from level and snapshot state.
type DynamicMusic struct {
	backend MusicBackend
	log     logging.Logger
	file    string
	label   string
}

// NewDynamicMusic wraps backend. A nil backend discards everything.
func NewDynamicMusic(backend MusicBackend, log logging.Logger) *DynamicMusic {
	if backend == nil {
		backend = NopMusic{}
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &DynamicMusic{backend: backend, log: log}
}

// MusicFile returns the music definition that belongs to mapName.
func MusicFile(mapName string) string {
	return strings.TrimSuffix(mapName, path.Ext(mapName)) + ".mus"
}

// Init loads the music definition of mapName. A backend failure is
// logged; the level plays without music.
func (m *DynamicMusic) Init(mapName string) {
	m.file = MusicFile(mapName)
	m.label = ""
	if err := m.backend.Init(m.file); err != nil {
		m.log.Warn("dynamic music unavailable", "file", m.file, "error", err)
	}
}

// Update switches to label, or pauses when label is empty.
func (m *DynamicMusic) Update(label string) {
	m.label = label
	if label == "" {
		m.backend.Pause(true)
		return
	}
	m.backend.Pause(false)
	m.backend.Start(label)
}

// File is the music definition loaded by the last Init.
func (m *DynamicMusic) File() string { return m.file }

// Label is the label passed to the last Update.
func (m *DynamicMusic) Label() string { return m.label }

// NopMusic ignores every call.
type NopMusic struct{}

func (NopMusic) Init(string) error { return nil }
func (NopMusic) Pause(bool)        {}
func (NopMusic) Start(string)      {}

// LogMusic reports music changes through a logger, for headless viewers.
type LogMusic struct {
	Log logging.Logger
}

func (l LogMusic) Init(file string) error {
	l.Log.Info("music loaded", "file", file)
	return nil
}

func (l LogMusic) Pause(paused bool) { l.Log.Debug("music pause", "paused", paused) }

func (l LogMusic) Start(label string) { l.Log.Info("music started", "label", label) }
