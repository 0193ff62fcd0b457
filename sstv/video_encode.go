package sstv

/*
 * Scan line encoders
 *
 * One encoder per ScanlineFormat. Each emits a full frame of lines into
 * the synthesizer; pixel tones are sent back to back and rely on the
 * synthesizer's sample carry for timing accuracy.
 */

// lineEncoder writes every scan line of img for protocol p
type lineEncoder func(s *Synthesizer, p *Protocol, img *Image, progress func(line int))

var lineEncoders = map[ScanlineFormat]lineEncoder{
	Format111:    encodeMartin,
	Format111Rev: encodeScottie,
	Format420:    encodeRobot36,
	Format422:    encodeRobot72,
}

// gbrChannel returns channel c (0=G, 1=B, 2=R) of pixel (x, y)
func gbrChannel(img *Image, x, y, c int) uint8 {
	r, g, b := img.RGB(x, y)
	switch c {
	case 0:
		return g
	case 1:
		return b
	default:
		return r
	}
}

// scanGBR sends one colour channel of a line
func scanGBR(s *Synthesizer, p *Protocol, img *Image, y, c int) {
	pixel := p.PixelTime()
	for x := 0; x < p.Width; x++ {
		s.Tone(PixelFreq(gbrChannel(img, x, y, c)), pixel)
	}
}

// encodeMartin: sync, porch, then G, B, R each followed by a separator
func encodeMartin(s *Synthesizer, p *Protocol, img *Image, progress func(int)) {
	for y := 0; y < p.Height; y++ {
		s.Tone(FreqSync, p.SyncTime)
		s.Tone(FreqBlack, p.PorchTime)
		for c := 0; c < 3; c++ {
			scanGBR(s, p, img, y, c)
			s.Tone(FreqBlack, p.SeptrTime)
		}
		progress(y)
	}
}

// encodeScottie: one leading sync, then per line sep, G, sep, B, sync, porch, R
func encodeScottie(s *Synthesizer, p *Protocol, img *Image, progress func(int)) {
	s.Tone(FreqSync, p.SyncTime)
	for y := 0; y < p.Height; y++ {
		s.Tone(FreqBlack, p.SeptrTime)
		scanGBR(s, p, img, y, 0)
		s.Tone(FreqBlack, p.SeptrTime)
		scanGBR(s, p, img, y, 1)
		s.Tone(FreqSync, p.SyncTime)
		s.Tone(FreqBlack, p.PorchTime)
		scanGBR(s, p, img, y, 2)
		progress(y)
	}
}

// yuvFrame holds the converted planes for the Robot encoders
type yuvFrame struct {
	w, h      int
	y, ry, by []float64
}

func toYUV(img *Image) *yuvFrame {
	n := img.Width * img.Height
	f := &yuvFrame{
		w:  img.Width,
		h:  img.Height,
		y:  make([]float64, n),
		ry: make([]float64, n),
		by: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		f.y[i], f.ry[i], f.by[i] = rgbToYUV(img.Pix[i*3], img.Pix[i*3+1], img.Pix[i*3+2])
	}
	return f
}

// robotSync sends sync and porch at the start of a Robot line
func robotSync(s *Synthesizer, p *Protocol) {
	s.Tone(FreqSync, p.SyncTime)
	s.Tone(FreqBlack, p.PorchTime)
}

// scanPlane sends one row of a plane. pair, when >= 0, is averaged in.
func scanPlane(s *Synthesizer, plane []float64, w, y, pair int, pixel float64) {
	row := plane[y*w : (y+1)*w]
	var other []float64
	if pair >= 0 {
		other = plane[pair*w : (pair+1)*w]
	}
	for x := 0; x < w; x++ {
		v := row[x]
		if other != nil {
			v = (v + other[x]) / 2
		}
		s.Tone(PixelFreq(clip(v)), pixel)
	}
}

// encodeRobot36: Y every line, R-Y on even lines and B-Y on odd lines,
// chroma averaged over the line pair
func encodeRobot36(s *Synthesizer, p *Protocol, img *Image, progress func(int)) {
	f := toYUV(img)
	for y := 0; y < p.Height; y++ {
		robotSync(s, p)
		scanPlane(s, f.y, f.w, y, -1, p.PixelTime())

		pair := y + 1
		if y%2 == 1 {
			pair = y - 1
		}
		if pair >= p.Height {
			pair = -1
		}

		if y%2 == 0 {
			s.Tone(FreqBlack, p.SeptrTime)
			s.Tone(FreqChromaPorch, robotChromaPorch)
			scanPlane(s, f.ry, f.w, y, pair, p.ChromaPixelTime())
		} else {
			s.Tone(FreqOddSeptr, p.SeptrTime)
			s.Tone(FreqChromaPorch, robotChromaPorch)
			scanPlane(s, f.by, f.w, y, pair, p.ChromaPixelTime())
		}
		progress(y)
	}
}

// encodeRobot72: Y, R-Y and B-Y on every line
func encodeRobot72(s *Synthesizer, p *Protocol, img *Image, progress func(int)) {
	f := toYUV(img)
	for y := 0; y < p.Height; y++ {
		robotSync(s, p)
		scanPlane(s, f.y, f.w, y, -1, p.PixelTime())

		s.Tone(FreqBlack, p.SeptrTime)
		s.Tone(FreqChromaPorch, robotChromaPorch)
		scanPlane(s, f.ry, f.w, y, -1, p.ChromaPixelTime())

		s.Tone(FreqOddSeptr, p.SeptrTime)
		s.Tone(FreqChromaPorch, robotChromaPorch)
		scanPlane(s, f.by, f.w, y, -1, p.ChromaPixelTime())
		progress(y)
	}
}
