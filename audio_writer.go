package main

import (
	"sort"
	"sync"

	"github.com/cwsl/ka9q_sstvtx/sstv"
)

// AudioWriterParams contains output stream parameters
type AudioWriterParams struct {
	SampleRate    int // Hz (e.g., 22050)
	Channels      int // Always 1 (mono)
	BitsPerSample int // Always 16
}

// AudioWriter writes signed PCM samples to a container file
type AudioWriter interface {
	// WriteSamples appends samples
	WriteSamples(samples []int16) error

	// Close finalizes headers and closes the file
	Close() error

	// GetDuration returns the duration written so far
	GetDuration() float64

	// GetDataSize returns the number of sample bytes written so far
	GetDataSize() int64
}

// AudioWriterFactory is a function that creates a new writer for a file
type AudioWriterFactory func(filename string, params AudioWriterParams) (AudioWriter, error)

// AudioFormatInfo contains metadata about a registered format
type AudioFormatInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Extension   string `json:"extension"`
}

// AudioWriterRegistry manages available audio container formats
type AudioWriterRegistry struct {
	factories map[string]AudioWriterFactory
	info      map[string]AudioFormatInfo
	mu        sync.RWMutex
}

// NewAudioWriterRegistry creates a new audio writer registry
func NewAudioWriterRegistry() *AudioWriterRegistry {
	return &AudioWriterRegistry{
		factories: make(map[string]AudioWriterFactory),
		info:      make(map[string]AudioFormatInfo),
	}
}

// Register registers a new audio format
func (awr *AudioWriterRegistry) Register(name string, factory AudioWriterFactory, info AudioFormatInfo) {
	awr.mu.Lock()
	defer awr.mu.Unlock()

	awr.factories[name] = factory
	awr.info[name] = info
}

// Create creates a writer for the named format
func (awr *AudioWriterRegistry) Create(name, filename string, params AudioWriterParams) (AudioWriter, error) {
	if err := awr.Check(name); err != nil {
		return nil, err
	}

	awr.mu.RLock()
	factory := awr.factories[name]
	awr.mu.RUnlock()

	return factory(filename, params)
}

// Check returns an InvalidFormat error if name is not registered
func (awr *AudioWriterRegistry) Check(name string) error {
	if awr.Exists(name) {
		return nil
	}
	if name == "ogg" {
		return &sstv.Error{Kind: sstv.KindInvalidFormat, Message: "ogg output is not supported by this build (use wav or aiff)"}
	}
	return &sstv.Error{Kind: sstv.KindInvalidFormat, Message: "unknown audio format: " + name}
}

// List returns information about all registered formats, sorted by name
func (awr *AudioWriterRegistry) List() []AudioFormatInfo {
	awr.mu.RLock()
	defer awr.mu.RUnlock()

	list := make([]AudioFormatInfo, 0, len(awr.info))
	for _, info := range awr.info {
		list = append(list, info)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	return list
}

// Exists checks if a format is registered
func (awr *AudioWriterRegistry) Exists(name string) bool {
	awr.mu.RLock()
	defer awr.mu.RUnlock()

	_, exists := awr.factories[name]
	return exists
}

// newDefaultAudioWriters registers the built-in containers
func newDefaultAudioWriters() *AudioWriterRegistry {
	registry := NewAudioWriterRegistry()
	registry.Register("wav", func(filename string, params AudioWriterParams) (AudioWriter, error) {
		return NewWAVWriter(filename, params.SampleRate, params.Channels, params.BitsPerSample)
	}, AudioFormatInfo{Name: "wav", Description: "RIFF WAVE, 16-bit PCM", Extension: ".wav"})
	registry.Register("aiff", func(filename string, params AudioWriterParams) (AudioWriter, error) {
		return NewAIFFWriter(filename, params.SampleRate, params.Channels, params.BitsPerSample)
	}, AudioFormatInfo{Name: "aiff", Description: "Audio IFF, 16-bit big-endian PCM", Extension: ".aiff"})
	return registry
}
