package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cwsl/ka9q_sstvtx/analysis"
	"github.com/cwsl/ka9q_sstvtx/overlay"
	"github.com/cwsl/ka9q_sstvtx/sstv"
)

// Version is the release version
const Version = "v1.0.0"

// defaultConfigFile is read when --config is absent and the file exists
const defaultConfigFile = "sstvtx.yaml"

// analyzeMaxSection bounds the sections that get a spectrum in --analyze
const analyzeMaxSection = 10.0 // seconds

// Global debug flag
var DebugMode bool

func toUpper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// cliOptions holds the parsed command line. Numeric values stay strings
// until buildOptions so errors come out in validation order.
type cliOptions struct {
	Input      string
	Output     string
	Protocol   string
	Format     string
	SampleRate string
	Aspect     string
	Callsign   string
	WPM        string
	Tone       string

	Verbose    bool
	Keep       bool
	Timestamps bool

	Station        string
	Grid           string
	ConfigOverlays bool

	ConfigFile    string
	Analyze       bool
	ListProtocols bool
	ShowHelp      bool
	ShowVersion   bool

	flags *pflag.FlagSet
}

// changed reports whether a flag was given on the command line
func (c *cliOptions) changed(name string) bool {
	return c.flags != nil && c.flags.Changed(name)
}

// newFlagSet declares all flags bound to cli
func newFlagSet(cli *cliOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("sstvtx", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringVarP(&cli.Input, "input", "i", "", "Input image (PNG, JPEG, GIF, BMP, PPM)")
	fs.StringVarP(&cli.Output, "output", "o", "", "Output audio file (default: <input>.<format>)")
	fs.StringVarP(&cli.Protocol, "protocol", "p", "", "SSTV protocol: m1, m2, s1, s2, sdx, r36, r72 (default m1)")
	fs.StringVarP(&cli.Format, "format", "f", "", "Audio format: wav, aiff (default wav)")
	fs.StringVarP(&cli.SampleRate, "rate", "r", "", "Sample rate in Hz, 8000-48000 (default 22050)")
	fs.StringVarP(&cli.Aspect, "aspect", "a", "", "Aspect mode: center, pad, stretch (default center)")
	fs.StringVarP(&cli.Callsign, "callsign", "C", "", "Callsign sent as a CW identifier after the image")
	fs.StringVarP(&cli.WPM, "wpm", "W", "", "CW speed in words per minute, 1-50 (default 15)")
	fs.StringVarP(&cli.Tone, "tone", "T", "", "CW tone in Hz, 400-2000 (default 800)")
	fs.BoolVarP(&cli.Verbose, "verbose", "v", false, "Verbose progress output (implies -K)")
	fs.BoolVarP(&cli.Keep, "keep", "K", false, "Keep the processed image and sample dump")
	fs.BoolVarP(&cli.Timestamps, "timestamps", "Z", false, "Timestamp log lines (implies -v)")
	fs.StringVarP(&cli.Station, "station", "S", "", "Station callsign banner at the top of the image")
	fs.StringVarP(&cli.Grid, "grid", "G", "", "Maidenhead locator banner at the bottom of the image")
	fs.BoolVarP(&cli.ConfigOverlays, "overlays", "O", false, "Apply the overlays listed in the config file")
	fs.BoolVarP(&cli.ShowHelp, "help", "h", false, "Show this help")
	fs.StringVar(&cli.ConfigFile, "config", "", "Configuration file (default ./"+defaultConfigFile+" if present)")
	fs.BoolVar(&cli.Analyze, "analyze", false, "Log signal statistics after encoding")
	fs.BoolVar(&cli.ListProtocols, "list-protocols", false, "List supported protocols and formats, then exit")
	fs.BoolVar(&cli.ShowVersion, "version", false, "Print version and exit")

	return fs
}

// parseArgs parses the command line (without the program name)
func parseArgs(args []string) (*cliOptions, error) {
	cli := &cliOptions{}
	cli.flags = newFlagSet(cli)

	if err := cli.flags.Parse(args); err != nil {
		return nil, err
	}
	if cli.flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", cli.flags.Arg(0))
	}

	if cli.Timestamps {
		cli.Verbose = true
	}
	if cli.Verbose {
		cli.Keep = true
	}
	return cli, nil
}

var (
	errNotDecimal  = errors.New("not an unsigned decimal number")
	errLeadingZero = errors.New("leading zeros are not allowed")
)

// parseDecimal parses an unsigned base-10 integer. Signs, fractions,
// whitespace and (unless allowed) leading zeros are rejected.
func parseDecimal(s string, allowLeadingZero bool) (int, error) {
	if s == "" {
		return 0, errNotDecimal
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errNotDecimal
		}
	}
	if !allowLeadingZero && len(s) > 1 && s[0] == '0' {
		return 0, errLeadingZero
	}
	return strconv.Atoi(s)
}

// usageError builds an argument error of the given kind
func usageError(kind sstv.Kind, format string, args ...interface{}) error {
	return &sstv.Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// loadConfigFor loads path, or ./sstvtx.yaml when path is empty and it exists
func loadConfigFor(path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return DefaultConfig(), nil
		}
		path = defaultConfigFile
	}

	config, err := LoadConfig(path)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if err := config.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return config, nil
}

// configureLogging merges logging settings and sets up the standard logger
func configureLogging(cli *cliOptions, config *Config) {
	if config.Logging.Timestamps {
		cli.Timestamps = true
	}
	if cli.Timestamps || config.Logging.Verbose || os.Getenv("DEBUG") != "" {
		cli.Verbose = true
	}
	if cli.Verbose {
		cli.Keep = true
	}
	DebugMode = cli.Verbose

	log.SetFlags(0)
	if cli.Timestamps {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}
}

// buildOptions merges flags over config. Checks run in the order input,
// protocol, format, aspect, sample rate, CW.
func buildOptions(cli *cliOptions, config *Config, writers *AudioWriterRegistry) (sstv.Options, string, error) {
	opts := sstv.Options{
		Protocol:   config.Defaults.Protocol,
		Aspect:     sstv.AspectMode(config.Defaults.Aspect),
		SampleRate: config.Defaults.SampleRate,
		CWGap:      float64(config.CW.GapMS) / 1000,
		Preamble:   *config.Encoder.Preamble,
		Trailer:    *config.Encoder.Trailer,
		Amplitude:  config.Encoder.Amplitude,
		Verbose:    cli.Verbose,
	}
	format := config.Defaults.Format

	if cli.Input == "" {
		return opts, format, usageError(sstv.KindNoInputImage, "input file (-i) is required")
	}

	if cli.changed("protocol") {
		opts.Protocol = cli.Protocol
	}
	if _, err := sstv.Lookup(opts.Protocol); err != nil {
		return opts, format, err
	}

	if cli.changed("format") {
		format = cli.Format
	}
	if err := writers.Check(format); err != nil {
		return opts, format, err
	}

	if cli.changed("aspect") {
		opts.Aspect = sstv.AspectMode(cli.Aspect)
	}
	if _, err := sstv.ParseAspectMode(string(opts.Aspect)); err != nil {
		return opts, format, err
	}

	if cli.changed("rate") {
		rate, err := parseDecimal(cli.SampleRate, true)
		if err != nil {
			return opts, format, sstv.WrapError(sstv.KindInvalidSampleRate, err, "invalid sample rate %q", cli.SampleRate)
		}
		opts.SampleRate = rate
	}

	cw, err := buildCWSpec(cli, config)
	if err != nil {
		return opts, format, err
	}
	opts.CW = cw

	if _, err := opts.Validate(); err != nil {
		return opts, format, err
	}
	return opts, format, nil
}

// buildCWSpec returns the identifier spec, or nil when no callsign is given
func buildCWSpec(cli *cliOptions, config *Config) (*sstv.CWSpec, error) {
	if cli.Callsign == "" {
		if cli.changed("wpm") || cli.changed("tone") {
			return nil, usageError(sstv.KindCwRequiresCallsign, "-C <callsign> is required if -W or -T are provided")
		}
		if cli.changed("callsign") {
			return nil, usageError(sstv.KindInvalidCallsign, "callsign is empty")
		}
		return nil, nil
	}
	if _, err := sstv.NormalizeCallsign(cli.Callsign); err != nil {
		return nil, err
	}

	spec := &sstv.CWSpec{
		Callsign: cli.Callsign,
		WPM:      config.CW.WPM,
		ToneHz:   config.CW.Tone,
		Prefix:   *config.CW.Prefix,
	}
	if cli.changed("wpm") {
		wpm, err := parseDecimal(cli.WPM, false)
		if err != nil {
			return nil, sstv.WrapError(sstv.KindInvalidWpm, err, "invalid CW speed %q", cli.WPM)
		}
		spec.WPM = wpm
	}
	if cli.changed("tone") {
		tone, err := parseDecimal(cli.Tone, false)
		if err != nil {
			return nil, sstv.WrapError(sstv.KindInvalidTone, err, "invalid CW tone %q", cli.Tone)
		}
		spec.ToneHz = tone
	}
	return spec, nil
}

// buildOverlays collects the banners requested by -S, -G and -O
func buildOverlays(cli *cliOptions, config *Config) ([]overlay.Spec, *EventLocation, error) {
	var specs []overlay.Spec
	var location *EventLocation

	if cli.Station != "" {
		specs = append(specs, overlay.Banner(toUpper(cli.Station), overlay.PlaceTop))
	}
	if cli.Grid != "" {
		grid, err := NormalizeLocator(cli.Grid)
		if err != nil {
			return nil, nil, fmt.Errorf("grid locator %q: %w", cli.Grid, err)
		}
		lat, lon, err := MaidenheadToLatLon(grid)
		if err != nil {
			return nil, nil, fmt.Errorf("grid locator %q: %w", cli.Grid, err)
		}
		location = &EventLocation{Grid: grid, Latitude: lat, Longitude: lon}
		specs = append(specs, overlay.Banner(grid, overlay.PlaceBottom))
	}
	if cli.ConfigOverlays {
		specs = append(specs, config.Overlays...)
	}

	if len(specs) > overlay.MaxOverlays {
		return nil, nil, fmt.Errorf("too many overlays: %d (max %d)", len(specs), overlay.MaxOverlays)
	}
	return specs, location, nil
}

// resolveOutputPath applies the default output name and extension
func resolveOutputPath(input, output, format string) string {
	if output == "" {
		return input + "." + format
	}
	if filepath.Ext(output) == "" {
		return output + "." + format
	}
	return output
}

// encodeImage fits img to the protocol, burns in overlays and renders audio
func encodeImage(img *sstv.Image, opts sstv.Options, overlays []overlay.Spec) (*sstv.Stream, *sstv.Image, error) {
	fitted, protocol, err := sstv.Prepare(img, opts)
	if err != nil {
		return nil, nil, err
	}
	if len(overlays) > 0 {
		if err := overlay.Apply(fitted, overlays); err != nil {
			return nil, nil, fmt.Errorf("failed to apply overlays: %w", err)
		}
	}
	stream, err := sstv.Render(fitted, protocol, opts)
	if err != nil {
		return nil, nil, err
	}
	return stream, fitted, nil
}

// writeAudio writes the stream to path in the given container format
func writeAudio(writers *AudioWriterRegistry, format, path string, stream *sstv.Stream) error {
	writer, err := writers.Create(format, path, AudioWriterParams{
		SampleRate:    stream.SampleRate,
		Channels:      1,
		BitsPerSample: 16,
	})
	if err != nil {
		var se *sstv.Error
		if errors.As(err, &se) {
			return err
		}
		return &FileError{Code: ExitFileOpen, Op: "create", Path: path, Err: err}
	}

	samples := stream.Int16()
	if err := writer.WriteSamples(samples); err != nil {
		writer.Close()
		return &FileError{Code: ExitFileWrite, Op: "write", Path: path, Err: err}
	}
	if want := int64(2 * len(samples)); writer.GetDataSize() != want {
		writer.Close()
		return &FileError{Code: ExitFileWrite, Op: "write", Path: path,
			Err: fmt.Errorf("short write: %d of %d bytes", writer.GetDataSize(), want)}
	}
	if err := writer.Close(); err != nil {
		return &FileError{Code: ExitFileWrite, Op: "close", Path: path, Err: err}
	}
	if DebugMode {
		log.Printf("[Audio] Wrote %s: %d bytes, %.3fs", path, writer.GetDataSize(), writer.GetDuration())
	}
	return nil
}

// decodeVIS reads the VIS code back from the header section. ok is false
// when the section is missing or the parity does not check.
func decodeVIS(stream *sstv.Stream) (code uint8, ok bool) {
	sec, found := stream.Section(sstv.SectionVIS)
	if !found {
		return 0, false
	}
	rate := float64(stream.SampleRate)
	ones := 0
	for i := 0; i < 8; i++ {
		start, length := sstv.VISBitOffset(i)
		a := sec.Start + int((start+0.003)*rate)
		b := sec.Start + int((start+length-0.003)*rate)
		if b > sec.End || a >= b {
			return 0, false
		}
		bit := stream.Samples[a:b]
		if analysis.ToneLevel(bit, stream.SampleRate, sstv.FreqVISOne) > analysis.ToneLevel(bit, stream.SampleRate, sstv.FreqVISZero) {
			ones++
			if i < 7 {
				code |= 1 << i
			}
		}
	}
	return code, ones%2 == 0
}

// analyzeStream logs level statistics, the decoded VIS header and
// per-section dominant tones
func analyzeStream(stream *sstv.Stream) {
	s := analysis.Summarize(stream.Samples, stream.SampleRate)
	log.Printf("[Analyze] %d samples, %.3fs, mean %.1f, rms %.3f, peak %.3f, max step %d",
		s.Samples, s.Duration, s.Mean, s.RMS, s.Peak, s.MaxStep)

	if code, ok := decodeVIS(stream); !ok {
		log.Printf("[Analyze] VIS header did not decode")
	} else if p := sstv.LookupVIS(code); p != nil {
		log.Printf("[Analyze] VIS %d decodes as %s", code, p.Name)
	} else {
		log.Printf("[Analyze] VIS %d matches no protocol", code)
	}

	for _, section := range stream.Sections {
		seconds := float64(section.Len()) / float64(stream.SampleRate)
		if section.Len() == 0 || seconds > analyzeMaxSection {
			log.Printf("[Analyze] %-9s %8.3fs", section.Name, seconds)
			continue
		}
		samples := stream.Samples[section.Start:section.End]
		log.Printf("[Analyze] %-9s %8.3fs  dominant %.1f Hz", section.Name, seconds,
			analysis.DominantFrequency(samples, stream.SampleRate))
	}
}

// listProtocols prints the protocol and format tables
func listProtocols(w io.Writer, writers *AudioWriterRegistry) {
	fmt.Fprintf(w, "%-4s %-11s %4s %-9s %-4s %8s\n", "KEY", "NAME", "VIS", "SIZE", "COLOR", "SECONDS")
	for _, p := range sstv.Protocols {
		fmt.Fprintf(w, "%-4s %-11s %4d %-9s %-4s %8.1f\n",
			p.Key, p.Name, p.VIS, fmt.Sprintf("%dx%d", p.Width, p.Height), p.ColorEnc, p.TransmissionTime())
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Formats:")
	for _, info := range writers.List() {
		fmt.Fprintf(w, "  %-5s %s\n", info.Name, info.Description)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Parameters:")
	params, _ := sstv.GetInfo()["parameters"].(map[string]interface{})
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p, ok := params[name].(map[string]interface{}); ok {
			fmt.Fprintf(w, "  %-12s %v-%v (default %v)\n", name, p["min"], p["max"], p["default"])
		}
	}
}

// printUsage writes help text to w
func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "sstvtx %s - SSTV image to audio encoder with CW identification\n\n", Version)
	fmt.Fprintln(w, "Usage: sstvtx -i <image> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  sstvtx -i photo.jpg -p r36 -o photo.wav")
	fmt.Fprintln(w, "  sstvtx -i photo.png -p m1 -f aiff -r 44100 -C N0CALL -W 20 -T 700")
}

// run performs one encode job
func run(cli *cliOptions) error {
	jobID := uuid.New().String()

	config, err := loadConfigFor(cli.ConfigFile)
	if err != nil {
		return err
	}
	configureLogging(cli, config)

	writers := newDefaultAudioWriters()
	metrics := NewEncoderMetrics()

	// Failed jobs are counted and pushed the same way as successful ones
	fail := func(protocol string, err error) error {
		metrics.RecordEncode(protocol, 0, nil, err)
		pushMetrics(metrics, config, jobID)
		return err
	}

	opts, format, err := buildOptions(cli, config, writers)
	if err != nil {
		return fail(opts.Protocol, err)
	}
	overlays, location, err := buildOverlays(cli, config)
	if err != nil {
		return fail(opts.Protocol, err)
	}
	output := resolveOutputPath(cli.Input, cli.Output, format)

	if DebugMode {
		log.Printf("[Job %s] %s -> %s (%s, %s, %d Hz, aspect %s)", jobID, cli.Input, output,
			opts.Protocol, format, opts.SampleRate, opts.Aspect)
	}

	img, imageFormat, err := loadImage(cli.Input)
	if err != nil {
		return fail(opts.Protocol, err)
	}
	if DebugMode {
		log.Printf("[Job %s] Loaded %s image %dx%d", jobID, imageFormat, img.Width, img.Height)
	}

	start := time.Now()
	stream, processed, err := encodeImage(img, opts, overlays)
	elapsed := time.Since(start)
	if err != nil {
		return fail(opts.Protocol, err)
	}

	if cli.Keep {
		if err := saveProcessedImage(intermediatePath(output, config.Intermediates.Dir, ".processed.png"), processed); err != nil {
			log.Printf("[Intermediates] Warning: %v", err)
		}
	}

	if err := writeAudio(writers, format, output, stream); err != nil {
		return fail(opts.Protocol, err)
	}
	metrics.RecordEncode(opts.Protocol, elapsed, stream, nil)

	if cli.Keep {
		suffix := ".samples.zst"
		if config.Intermediates.Raw {
			suffix = ".samples.raw"
		}
		if err := saveSampleDump(intermediatePath(output, config.Intermediates.Dir, suffix), stream, config.Intermediates.Raw); err != nil {
			log.Printf("[Intermediates] Warning: %v", err)
		}
	}

	if cli.Analyze {
		analyzeStream(stream)
	}

	pushMetrics(metrics, config, jobID)

	if config.MQTT.Enabled {
		protocol, _ := sstv.Lookup(opts.Protocol)
		event := EncodeEvent{
			JobID:        jobID,
			Timestamp:    time.Now().Unix(),
			Protocol:     protocol.Key,
			ProtocolName: protocol.Name,
			VIS:          protocol.VIS,
			SampleRate:   stream.SampleRate,
			Samples:      stream.Len(),
			Duration:     stream.Duration(),
			Format:       format,
			Input:        cli.Input,
			Output:       output,
			Location:     location,
		}
		if opts.CW != nil {
			event.Callsign = toUpper(opts.CW.Callsign)
		}
		if config.MQTT.IncludeMetrics {
			if snapshot, err := metrics.Snapshot(); err == nil {
				event.Metrics = snapshot
			}
		}
		if err := publishEncodeEvent(&config.MQTT, event); err != nil {
			log.Printf("[MQTT] Warning: %v", err)
		}
	}

	fmt.Printf("Encoded %s (%s) to %s: %.2fs at %d Hz in %v\n",
		cli.Input, opts.Protocol, output, stream.Duration(), stream.SampleRate, elapsed.Round(time.Millisecond))
	return nil
}

// pushMetrics samples resource usage and pushes to the Pushgateway when enabled
func pushMetrics(metrics *EncoderMetrics, config *Config, jobID string) {
	metrics.RecordResourceUsage()
	if !config.Prometheus.Pushgateway.Enabled {
		return
	}
	if err := metrics.pushToGateway(config, jobID); err != nil {
		log.Printf("[Metrics] Warning: %v", err)
	}
}

// publishEncodeEvent connects, publishes one event and disconnects
func publishEncodeEvent(config *MQTTConfig, event EncodeEvent) error {
	publisher, err := NewMQTTPublisher(config)
	if err != nil {
		return err
	}
	defer publisher.Disconnect()
	return publisher.PublishEncode(event)
}

func main() {
	cli, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'sstvtx -h' for usage.")
		os.Exit(exitCodeFor(err))
	}

	switch {
	case cli.ShowHelp:
		printUsage(os.Stdout, cli.flags)
		return
	case cli.ShowVersion:
		fmt.Printf("sstvtx %s\n", Version)
		return
	case cli.ListProtocols:
		listProtocols(os.Stdout, newDefaultAudioWriters())
		return
	}

	if err := run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}
