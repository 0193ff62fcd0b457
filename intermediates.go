package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/cwsl/ka9q_sstvtx/sstv"
)

// intermediatePath builds the path of a kept file next to output or in dir
func intermediatePath(output, dir, suffix string) string {
	base := strings.TrimSuffix(output, filepath.Ext(output)) + suffix
	if dir == "" {
		return base
	}
	return filepath.Join(dir, filepath.Base(base))
}

// saveProcessedImage writes the normalized, overlaid image as PNG
func saveProcessedImage(path string, img *sstv.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return &FileError{Code: ExitFileWrite, Op: "create", Path: path, Err: err}
	}
	defer file.Close()

	if err := png.Encode(file, img.RGBA()); err != nil {
		return &FileError{Code: ExitFileWrite, Op: "write", Path: path, Err: err}
	}
	log.Printf("[Intermediates] Saved processed image: %s", path)
	return nil
}

// writeSampleDump writes raw little-endian uint16 samples, zstd compressed unless raw
func writeSampleDump(w io.Writer, samples []uint16, raw bool) error {
	if raw {
		bw := bufio.NewWriter(w)
		if err := binary.Write(bw, binary.LittleEndian, samples); err != nil {
			return err
		}
		return bw.Flush()
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if err := binary.Write(enc, binary.LittleEndian, samples); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// saveSampleDump writes the stream samples next to the output file
func saveSampleDump(path string, stream *sstv.Stream, raw bool) error {
	file, err := os.Create(path)
	if err != nil {
		return &FileError{Code: ExitFileWrite, Op: "create", Path: path, Err: err}
	}
	defer file.Close()

	if err := writeSampleDump(file, stream.Samples, raw); err != nil {
		return &FileError{Code: ExitFileWrite, Op: "write", Path: path, Err: err}
	}
	log.Printf("[Intermediates] Saved %d samples: %s", stream.Len(), path)
	return nil
}
