package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WAVWriter handles writing PCM audio data to WAV files
type WAVWriter struct {
	file          *os.File
	buf           *bufio.Writer
	sampleRate    int
	channels      int
	bitsPerSample int
	dataSize      int64
	headerWritten bool
}

// WAVHeader represents a canonical 44-byte PCM WAV header
type WAVHeader struct {
	// RIFF chunk
	ChunkID   [4]byte // "RIFF"
	ChunkSize uint32  // File size - 8
	Format    [4]byte // "WAVE"

	// fmt sub-chunk
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // 1 or 2
	SampleRate    uint32  // Sample rate in Hz
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample/8
	BlockAlign    uint16  // NumChannels * BitsPerSample/8
	BitsPerSample uint16  // 8, 16, etc.

	// data sub-chunk
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // NumSamples * NumChannels * BitsPerSample/8
}

// NewWAVWriter creates a new WAV file writer
func NewWAVWriter(filename string, sampleRate, channels, bitsPerSample int) (*WAVWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}

	w := &WAVWriter{
		file:          file,
		buf:           bufio.NewWriterSize(file, 64*1024),
		sampleRate:    sampleRate,
		channels:      channels,
		bitsPerSample: bitsPerSample,
	}

	// Write placeholder header (will be updated on close)
	if err := w.writeHeader(w.buf, 0xFFFFFFFF, 0xFFFFFFFF); err != nil {
		file.Close()
		return nil, err
	}
	w.headerWritten = true

	return w, nil
}

// writeHeader writes the WAV header with the given chunk sizes
func (w *WAVWriter) writeHeader(dst io.Writer, chunkSize, dataSize uint32) error {
	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     chunkSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(w.channels),
		SampleRate:    uint32(w.sampleRate),
		ByteRate:      uint32(w.sampleRate * w.channels * w.bitsPerSample / 8),
		BlockAlign:    uint16(w.channels * w.bitsPerSample / 8),
		BitsPerSample: uint16(w.bitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	if err := binary.Write(dst, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	return nil
}

// WriteSamples writes signed PCM samples to the WAV file
func (w *WAVWriter) WriteSamples(samples []int16) error {
	if !w.headerWritten {
		return fmt.Errorf("header not written")
	}

	if err := binary.Write(w.buf, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	w.dataSize += int64(len(samples) * w.bitsPerSample / 8)

	return nil
}

// Close finalizes the WAV file by updating the header with correct sizes
func (w *WAVWriter) Close() error {
	if w.file == nil {
		return nil
	}
	defer func() { w.file = nil }()

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush WAV data: %w", err)
	}

	// Seek to beginning to update header
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to seek to beginning: %w", err)
	}

	// 36 = header size - 8
	if err := w.writeHeader(w.file, uint32(w.dataSize+36), uint32(w.dataSize)); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to update WAV header: %w", err)
	}

	return w.file.Close()
}

// GetDataSize returns the number of bytes written to the data section
func (w *WAVWriter) GetDataSize() int64 {
	return w.dataSize
}

// GetDuration returns the duration of the written audio
func (w *WAVWriter) GetDuration() float64 {
	bytesPerSample := w.bitsPerSample / 8
	samplesWritten := w.dataSize / int64(w.channels*bytesPerSample)
	return float64(samplesWritten) / float64(w.sampleRate)
}
