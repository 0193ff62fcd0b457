package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

/*
 * AIFF writer
 *
 * FORM/AIFF container with a COMM chunk and one SSND chunk. All fields
 * are big-endian; the sample rate is an 80-bit IEEE 754 extended float.
 */

// AIFFWriter handles writing PCM audio data to AIFF files
type AIFFWriter struct {
	file          *os.File
	buf           *bufio.Writer
	sampleRate    int
	channels      int
	bitsPerSample int
	dataSize      int64
}

// AIFFHeader is the 54-byte header up to the first sample
type AIFFHeader struct {
	// FORM chunk
	FormID   [4]byte // "FORM"
	FormSize uint32  // File size - 8
	FormType [4]byte // "AIFF"

	// COMM chunk
	CommID          [4]byte  // "COMM"
	CommSize        uint32   // 18
	NumChannels     uint16   // 1 or 2
	NumSampleFrames uint32   // Samples per channel
	SampleSize      uint16   // Bits per sample
	SampleRate      [10]byte // 80-bit extended float

	// SSND chunk
	SSNDID    [4]byte // "SSND"
	SSNDSize  uint32  // 8 + data bytes
	Offset    uint32  // 0
	BlockSize uint32  // 0
}

// aiffHeaderSize is the size of AIFFHeader on disk
const aiffHeaderSize = 54

// NewAIFFWriter creates a new AIFF file writer
func NewAIFFWriter(filename string, sampleRate, channels, bitsPerSample int) (*AIFFWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create AIFF file: %w", err)
	}

	w := &AIFFWriter{
		file:          file,
		buf:           bufio.NewWriterSize(file, 64*1024),
		sampleRate:    sampleRate,
		channels:      channels,
		bitsPerSample: bitsPerSample,
	}

	// Placeholder header, rewritten on close
	if err := w.writeHeader(w.buf); err != nil {
		file.Close()
		return nil, err
	}

	return w, nil
}

// extended80 encodes a non-negative integer rate as an 80-bit extended float
func extended80(rate int) [10]byte {
	var out [10]byte
	if rate <= 0 {
		return out
	}
	exp := int(math.Floor(math.Log2(float64(rate))))
	for uint64(1)<<uint(exp) > uint64(rate) {
		exp--
	}
	for uint64(1)<<uint(exp+1) <= uint64(rate) {
		exp++
	}
	mantissa := uint64(rate) << uint(63-exp)
	binary.BigEndian.PutUint16(out[0:2], uint16(16383+exp))
	binary.BigEndian.PutUint64(out[2:10], mantissa)
	return out
}

// writeHeader writes the header for the data written so far
func (w *AIFFWriter) writeHeader(dst io.Writer) error {
	frameBytes := int64(w.channels * w.bitsPerSample / 8)
	frames := int64(0)
	if frameBytes > 0 {
		frames = w.dataSize / frameBytes
	}

	header := AIFFHeader{
		FormID:          [4]byte{'F', 'O', 'R', 'M'},
		FormSize:        uint32(aiffHeaderSize - 8 + w.dataSize),
		FormType:        [4]byte{'A', 'I', 'F', 'F'},
		CommID:          [4]byte{'C', 'O', 'M', 'M'},
		CommSize:        18,
		NumChannels:     uint16(w.channels),
		NumSampleFrames: uint32(frames),
		SampleSize:      uint16(w.bitsPerSample),
		SampleRate:      extended80(w.sampleRate),
		SSNDID:          [4]byte{'S', 'S', 'N', 'D'},
		SSNDSize:        uint32(8 + w.dataSize),
	}

	if err := binary.Write(dst, binary.BigEndian, &header); err != nil {
		return fmt.Errorf("failed to write AIFF header: %w", err)
	}
	return nil
}

// WriteSamples writes signed PCM samples to the AIFF file
func (w *AIFFWriter) WriteSamples(samples []int16) error {
	if err := binary.Write(w.buf, binary.BigEndian, samples); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	w.dataSize += int64(len(samples) * w.bitsPerSample / 8)
	return nil
}

// Close finalizes the AIFF file by updating the header with correct sizes
func (w *AIFFWriter) Close() error {
	if w.file == nil {
		return nil
	}
	defer func() { w.file = nil }()

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush AIFF data: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to seek to beginning: %w", err)
	}
	if err := w.writeHeader(w.file); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to update AIFF header: %w", err)
	}

	return w.file.Close()
}

// GetDataSize returns the number of bytes written to the SSND chunk
func (w *AIFFWriter) GetDataSize() int64 {
	return w.dataSize
}

// GetDuration returns the duration of the written audio
func (w *AIFFWriter) GetDuration() float64 {
	frames := w.dataSize / int64(w.channels*w.bitsPerSample/8)
	return float64(frames) / float64(w.sampleRate)
}
