package main

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
)

/*
 * Netpbm PPM decoder (P3 plain and P6 raw)
 * Registered with the image package so image.Decode recognizes it.
 */

func init() {
	image.RegisterFormat("ppm", "P6", decodePPM, decodePPMConfig)
	image.RegisterFormat("ppm", "P3", decodePPM, decodePPMConfig)
}

// ppmHeader holds the parsed header fields
type ppmHeader struct {
	magic  string
	width  int
	height int
	maxval int
}

// ppmReader tokenizes a PPM header, skipping whitespace and comments
type ppmReader struct {
	r *bufio.Reader
}

func (p *ppmReader) token() (string, error) {
	var tok []byte
	for {
		c, err := p.r.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return string(tok), nil
			}
			return "", err
		}
		switch {
		case c == '#' && len(tok) == 0:
			if _, err := p.r.ReadString('\n'); err != nil {
				return "", err
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
		}
	}
}

func (p *ppmReader) number() (int, error) {
	tok, err := p.token()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("ppm: invalid number %q", tok)
	}
	return v, nil
}

func readPPMHeader(p *ppmReader) (ppmHeader, error) {
	var h ppmHeader
	var err error
	if h.magic, err = p.token(); err != nil {
		return h, err
	}
	if h.magic != "P3" && h.magic != "P6" {
		return h, fmt.Errorf("ppm: unsupported magic %q", h.magic)
	}
	if h.width, err = p.number(); err != nil {
		return h, err
	}
	if h.height, err = p.number(); err != nil {
		return h, err
	}
	if h.maxval, err = p.number(); err != nil {
		return h, err
	}
	if h.width == 0 || h.height == 0 || h.maxval == 0 || h.maxval > 65535 {
		return h, fmt.Errorf("ppm: invalid header %dx%d maxval %d", h.width, h.height, h.maxval)
	}
	return h, nil
}

func decodePPMConfig(r io.Reader) (image.Config, error) {
	h, err := readPPMHeader(&ppmReader{r: bufio.NewReader(r)})
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: h.width, Height: h.height}, nil
}

func decodePPM(r io.Reader) (image.Image, error) {
	p := &ppmReader{r: bufio.NewReader(r)}
	h, err := readPPMHeader(p)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, h.width, h.height))
	wide := h.maxval > 255
	scale := func(v int) uint8 {
		if v > h.maxval {
			v = h.maxval
		}
		return uint8((v*255 + h.maxval/2) / h.maxval)
	}

	next := func() (int, error) {
		if h.magic == "P3" {
			return p.number()
		}
		if wide {
			var b [2]byte
			if _, err := io.ReadFull(p.r, b[:]); err != nil {
				return 0, err
			}
			return int(b[0])<<8 | int(b[1]), nil
		}
		c, err := p.r.ReadByte()
		return int(c), err
	}

	for y := 0; y < h.height; y++ {
		for x := 0; x < h.width; x++ {
			var rgb [3]uint8
			for i := range rgb {
				v, err := next()
				if err != nil {
					return nil, fmt.Errorf("ppm: truncated pixel data: %w", err)
				}
				rgb[i] = scale(v)
			}
			img.SetRGBA(x, y, color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xff})
		}
	}
	return img, nil
}
