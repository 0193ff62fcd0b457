package main

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	_ "golang.org/x/image/bmp"

	"github.com/cwsl/ka9q_sstvtx/sstv"
)

// loadImage decodes a PNG, JPEG, GIF, BMP or PPM file into an RGB raster.
// It returns the detected format name.
func loadImage(path string) (*sstv.Image, string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", &FileError{Code: ExitFileNotFound, Op: "open", Path: path, Err: err}
		}
		return nil, "", &FileError{Code: ExitFileOpen, Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	src, format, err := image.Decode(file)
	if err != nil {
		return nil, "", &FileError{Code: ExitImageLoad, Op: "decode", Path: path, Err: err}
	}

	img := sstv.FromImage(src)
	if img.Width == 0 || img.Height == 0 {
		return nil, format, &sstv.Error{Kind: sstv.KindNoInputImage, Message: fmt.Sprintf("image %s has no pixels", path)}
	}
	return img, format, nil
}
