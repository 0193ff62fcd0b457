package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/ka9q_sstvtx/overlay"
	"github.com/cwsl/ka9q_sstvtx/sstv"
)

func mustParse(t *testing.T, args ...string) *cliOptions {
	t.Helper()
	cli, err := parseArgs(args)
	require.NoError(t, err)
	return cli
}

func TestParseArgsShortFlags(t *testing.T) {
	cli := mustParse(t, "-i", "in.png", "-o", "out.wav", "-p", "r36", "-f", "aiff", "-r", "44100",
		"-a", "pad", "-C", "N0CALL", "-W", "20", "-T", "700")

	assert.Equal(t, "in.png", cli.Input)
	assert.Equal(t, "out.wav", cli.Output)
	assert.Equal(t, "r36", cli.Protocol)
	assert.Equal(t, "aiff", cli.Format)
	assert.Equal(t, "44100", cli.SampleRate)
	assert.Equal(t, "pad", cli.Aspect)
	assert.Equal(t, "N0CALL", cli.Callsign)
	assert.True(t, cli.changed("wpm"))
	assert.True(t, cli.changed("tone"))
	assert.False(t, cli.Verbose)
	assert.False(t, cli.Keep)
}

func TestParseArgsImplications(t *testing.T) {
	cli := mustParse(t, "-Z")
	assert.True(t, cli.Timestamps)
	assert.True(t, cli.Verbose)
	assert.True(t, cli.Keep)

	cli = mustParse(t, "-v")
	assert.True(t, cli.Keep)
}

func TestParseArgsErrors(t *testing.T) {
	_, err := parseArgs([]string{"-x"})
	assert.Error(t, err)
	assert.Equal(t, ExitUnknown, exitCodeFor(err))

	_, err = parseArgs([]string{"-i", "a.png", "extra"})
	assert.Error(t, err)
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in          string
		leadingZero bool
		want        int
		err         error
	}{
		{"22050", true, 22050, nil},
		{"0", false, 0, nil},
		{"020", true, 20, nil},
		{"020", false, 0, errLeadingZero},
		{"", true, 0, errNotDecimal},
		{"22050.5", true, 0, errNotDecimal},
		{"-8000", true, 0, errNotDecimal},
		{"+20", false, 0, errNotDecimal},
		{" 20", false, 0, errNotDecimal},
		{"abc", true, 0, errNotDecimal},
		{"1e4", true, 0, errNotDecimal},
		{"99999999999999999999", true, 0, strconv.ErrRange},
	}
	for _, tt := range tests {
		got, err := parseDecimal(tt.in, tt.leadingZero)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestBuildOptionsKeepsParseCause(t *testing.T) {
	cli := mustParse(t, "-i", "in.png", "-r", "99999999999999999999")
	_, _, err := buildOptions(cli, DefaultConfig(), newDefaultAudioWriters())
	require.Error(t, err)
	assert.Equal(t, sstv.KindInvalidSampleRate, sstv.KindOf(err))
	assert.ErrorIs(t, err, sstv.ErrInvalidSampleRate)
	assert.ErrorIs(t, err, strconv.ErrRange)

	cli = mustParse(t, "-i", "in.png", "-C", "N0CALL", "-W", "020")
	_, _, err = buildOptions(cli, DefaultConfig(), newDefaultAudioWriters())
	assert.ErrorIs(t, err, sstv.ErrInvalidWpm)
	assert.ErrorIs(t, err, errLeadingZero)
	assert.Equal(t, ExitInvalidWpm, exitCodeFor(err))
}

func TestBuildOptionsDefaults(t *testing.T) {
	cli := mustParse(t, "-i", "in.png")
	opts, format, err := buildOptions(cli, DefaultConfig(), newDefaultAudioWriters())
	require.NoError(t, err)

	assert.Equal(t, "wav", format)
	assert.Equal(t, "m1", opts.Protocol)
	assert.Equal(t, sstv.AspectCenter, opts.Aspect)
	assert.Equal(t, sstv.DefaultSampleRate, opts.SampleRate)
	assert.Equal(t, 2.0, opts.CWGap)
	assert.True(t, opts.Preamble)
	assert.True(t, opts.Trailer)
	assert.Nil(t, opts.CW)
}

func TestBuildOptionsCW(t *testing.T) {
	cli := mustParse(t, "-i", "in.png", "-C", "n0call")
	opts, _, err := buildOptions(cli, DefaultConfig(), newDefaultAudioWriters())
	require.NoError(t, err)
	require.NotNil(t, opts.CW)
	assert.Equal(t, sstv.DefaultWPM, opts.CW.WPM)
	assert.Equal(t, sstv.DefaultToneHz, opts.CW.ToneHz)
	assert.Equal(t, "SSTV DE N0CALL", opts.CW.Message())

	cli = mustParse(t, "-i", "in.png", "-C", "N0CALL", "-W", "50", "-T", "400")
	opts, _, err = buildOptions(cli, DefaultConfig(), newDefaultAudioWriters())
	require.NoError(t, err)
	assert.Equal(t, 50, opts.CW.WPM)
	assert.Equal(t, 400, opts.CW.ToneHz)
}

func TestBuildOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
		code int
	}{
		{"no input", []string{"-p", "m1"}, sstv.ErrNoInputImage, 111},
		{"protocol", []string{"-i", "a.png", "-p", "M1"}, sstv.ErrInvalidProtocol, 112},
		{"protocol first", []string{"-i", "a.png", "-p", "x", "-r", "1"}, sstv.ErrInvalidProtocol, 112},
		{"format", []string{"-i", "a.png", "-f", "mp3"}, sstv.ErrInvalidFormat, 113},
		{"ogg", []string{"-i", "a.png", "-f", "ogg"}, sstv.ErrInvalidFormat, 113},
		{"rate low", []string{"-i", "a.png", "-r", "7999"}, sstv.ErrInvalidSampleRate, 114},
		{"rate high", []string{"-i", "a.png", "-r", "48001"}, sstv.ErrInvalidSampleRate, 114},
		{"rate zero", []string{"-i", "a.png", "-r", "0"}, sstv.ErrInvalidSampleRate, 114},
		{"rate negative", []string{"-i", "a.png", "-r", "-22050"}, sstv.ErrInvalidSampleRate, 114},
		{"rate fractional", []string{"-i", "a.png", "-r", "22050.5"}, sstv.ErrInvalidSampleRate, 114},
		{"rate text", []string{"-i", "a.png", "-r", "fast"}, sstv.ErrInvalidSampleRate, 114},
		{"aspect", []string{"-i", "a.png", "-a", "Center"}, sstv.ErrInvalidAspectMode, 115},
		{"callsign chars", []string{"-i", "a.png", "-C", "N0-CALL"}, sstv.ErrInvalidCallsign, 116},
		{"callsign long", []string{"-i", "a.png", "-C", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}, sstv.ErrInvalidCallsign, 116},
		{"callsign empty", []string{"-i", "a.png", "-C", ""}, sstv.ErrInvalidCallsign, 116},
		{"wpm zero", []string{"-i", "a.png", "-C", "N0CALL", "-W", "0"}, sstv.ErrInvalidWpm, 117},
		{"wpm high", []string{"-i", "a.png", "-C", "N0CALL", "-W", "51"}, sstv.ErrInvalidWpm, 117},
		{"wpm leading zero", []string{"-i", "a.png", "-C", "N0CALL", "-W", "020"}, sstv.ErrInvalidWpm, 117},
		{"wpm text", []string{"-i", "a.png", "-C", "N0CALL", "-W", "fast"}, sstv.ErrInvalidWpm, 117},
		{"tone low", []string{"-i", "a.png", "-C", "N0CALL", "-T", "399"}, sstv.ErrInvalidTone, 118},
		{"tone high", []string{"-i", "a.png", "-C", "N0CALL", "-T", "2001"}, sstv.ErrInvalidTone, 118},
		{"tone fractional", []string{"-i", "a.png", "-C", "N0CALL", "-T", "700.5"}, sstv.ErrInvalidTone, 118},
		{"wpm without call", []string{"-i", "a.png", "-W", "20"}, sstv.ErrCwRequiresCallsign, 119},
		{"tone without call", []string{"-i", "a.png", "-T", "700"}, sstv.ErrCwRequiresCallsign, 119},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := mustParse(t, tt.args...)
			_, _, err := buildOptions(cli, DefaultConfig(), newDefaultAudioWriters())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, tt.code, exitCodeFor(err))
		})
	}
}

func TestBuildOverlays(t *testing.T) {
	config := DefaultConfig()
	config.Overlays = []overlay.Spec{{Text: "HELLO"}}

	cli := mustParse(t, "-S", "n0call", "-G", "fn31PR", "-O")
	specs, location, err := buildOverlays(cli, config)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, "N0CALL", specs[0].Text)
	assert.Equal(t, overlay.PlaceTop, specs[0].Placement)
	assert.Equal(t, "FN31pr", specs[1].Text)
	assert.Equal(t, overlay.PlaceBottom, specs[1].Placement)
	assert.Equal(t, "HELLO", specs[2].Text)

	require.NotNil(t, location)
	assert.Equal(t, "FN31pr", location.Grid)
	assert.InDelta(t, 41.7, location.Latitude, 0.1)
	assert.InDelta(t, -72.7, location.Longitude, 0.1)

	_, _, err = buildOverlays(mustParse(t, "-G", "ZZ99"), config)
	assert.Error(t, err)

	specs, location, err = buildOverlays(mustParse(t), config)
	require.NoError(t, err)
	assert.Empty(t, specs)
	assert.Nil(t, location)
}

func TestResolveOutputPath(t *testing.T) {
	assert.Equal(t, "photo.jpg.wav", resolveOutputPath("photo.jpg", "", "wav"))
	assert.Equal(t, "out.aiff", resolveOutputPath("photo.jpg", "out", "aiff"))
	assert.Equal(t, "dir.v2/out.wav", resolveOutputPath("photo.jpg", "dir.v2/out", "wav"))
	assert.Equal(t, "out.snd", resolveOutputPath("photo.jpg", "out.snd", "wav"))
}

func TestListProtocols(t *testing.T) {
	var buf bytes.Buffer
	listProtocols(&buf, newDefaultAudioWriters())

	out := buf.String()
	for _, p := range sstv.Protocols {
		assert.Contains(t, out, p.Name)
	}
	assert.Contains(t, out, "aiff")
	assert.Contains(t, out, "sample_rate")
}

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.png")
	writeTestPNG(t, input, 160, 120)

	output := filepath.Join(dir, "out.wav")
	cli := mustParse(t, "-i", input, "-o", output, "-p", "r36", "-r", "8000",
		"-C", "N0CALL", "-W", "25", "-T", "700", "-K", "-S", "N0CALL", "--analyze")
	require.NoError(t, run(cli))

	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(2*8000*36))

	_, err = os.Stat(filepath.Join(dir, "out.processed.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "out.samples.zst"))
	assert.NoError(t, err)
}

func TestRunMissingInputFile(t *testing.T) {
	dir := t.TempDir()
	cli := mustParse(t, "-i", filepath.Join(dir, "nope.png"), "-p", "r36")
	err := run(cli)
	assert.Equal(t, ExitFileNotFound, exitCodeFor(err))
}

func TestRunUndecodableImage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(input, []byte("not an image"), 0644))

	err := run(mustParse(t, "-i", input))
	assert.Equal(t, ExitImageLoad, exitCodeFor(err))
}

func TestRunConfigError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"3.0\"\n"), 0644))

	err := run(mustParse(t, "-i", "in.png", "--config", path))
	assert.Equal(t, ExitConfig, exitCodeFor(err))
}

func TestRunPushesMetricsOnFailure(t *testing.T) {
	var pushes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	config := writeConfig(t, "prometheus:\n  pushgateway:\n    enabled: true\n    url: "+server.URL+"\n")

	err := run(mustParse(t, "-i", filepath.Join(dir, "nope.png"), "--config", config))
	assert.Equal(t, ExitFileNotFound, exitCodeFor(err))
	assert.Equal(t, int32(1), pushes.Load())

	err = run(mustParse(t, "-i", filepath.Join(dir, "nope.png"), "-r", "7999", "--config", config))
	assert.Equal(t, ExitInvalidSampleRate, exitCodeFor(err))
	assert.Equal(t, int32(2), pushes.Load())
}

func TestDecodeVIS(t *testing.T) {
	img := sstv.NewImage(64, 64)
	for _, p := range sstv.Protocols {
		stream, err := sstv.Encode(img, sstv.Options{Protocol: p.Key, Aspect: sstv.AspectCenter, SampleRate: 8000, Preamble: true})
		require.NoError(t, err)

		code, ok := decodeVIS(stream)
		require.True(t, ok, p.Key)
		assert.Equal(t, p.VIS, code, p.Key)
		assert.Same(t, p, sstv.LookupVIS(code))
	}

	_, ok := decodeVIS(sstv.NewStream(8000, 0))
	assert.False(t, ok)
}
