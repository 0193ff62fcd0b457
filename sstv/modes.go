package sstv

import "strings"

/*
 * SSTV Protocol Specifications (transmit side)
 *
 * Timings follow the same references the receive-side mode table used:
 *   - Martin Bruchanov OK2MNM (2012, 2019): www.sstv-handbook.com/download/sstv_04.pdf
 *   - JL Barber N7CXI: "Proposal for SSTV Mode Specifications" (Dayton SSTV forum, 2000)
 *   - Dave Jones KB4YZ (1999): "SSTV Modes - Line Timing"
 *
 * All times are in seconds, all frequencies in Hz.
 */

// Tone frequencies shared by every protocol
const (
	FreqSync   = 1200.0
	FreqBlack  = 1500.0
	FreqWhite  = 2300.0
	FreqLeader = 1900.0

	// Robot chroma porch and odd-line separator
	FreqChromaPorch = 1900.0
	FreqOddSeptr    = 2300.0
)

// ColorEncoding represents the color format carried on the scan line
type ColorEncoding int

const (
	ColorGBR ColorEncoding = 0
	ColorYUV ColorEncoding = 2
)

func (c ColorEncoding) String() string {
	switch c {
	case ColorGBR:
		return "GBR"
	case ColorYUV:
		return "YUV"
	default:
		return "unknown"
	}
}

// ScanlineFormat selects the line encoder for a protocol
type ScanlineFormat int

const (
	Format111    ScanlineFormat = 0 // Sp0g1g2 (Martin: sync, porch, G, sep, B, sep, R, sep)
	Format420    ScanlineFormat = 2 // Sp00g[12] (Robot 36: Y, then R-Y or B-Y by line parity)
	Format422    ScanlineFormat = 3 // Sp00g1g2 (Robot 72: Y, R-Y, B-Y)
	Format111Rev ScanlineFormat = 5 // g0g1Sp2 (Scottie: sep, G, sep, B, sync, porch, R)
)

// Protocol is an immutable protocol descriptor
type Protocol struct {
	Key         string         // CLI key, lowercase
	Name        string         // Long, human-readable name
	VIS         uint8          // VIS code (7-bit)
	Width       int            // Pixels per line
	Height      int            // Lines per frame
	SyncTime    float64        // Duration of sync pulse
	PorchTime   float64        // Duration of sync porch
	SeptrTime   float64        // Duration of channel separator
	ScanTime    float64        // Scan duration of a full-width channel (G/B/R or Y)
	ChromaTime  float64        // Scan duration of a chroma channel (Robot only)
	LineTime    float64        // Nominal time of one line
	NominalTime float64        // Documented image transmission time
	ColorEnc    ColorEncoding  // Color encoding
	Format      ScanlineFormat // Scan line layout
}

// PixelTime returns the duration of one pixel on a full-width channel.
func (p *Protocol) PixelTime() float64 {
	return p.ScanTime / float64(p.Width)
}

// ChromaPixelTime returns the duration of one chroma pixel (Robot only).
func (p *Protocol) ChromaPixelTime() float64 {
	return p.ChromaTime / float64(p.Width)
}

// ImageTime returns the exact length of the image section as the
// line encoders emit it, including Scottie's leading sync pulse.
func (p *Protocol) ImageTime() float64 {
	t := p.LineTime * float64(p.Height)
	if p.Format == Format111Rev {
		t += p.SyncTime
	}
	return t
}

// TransmissionTime returns VIS header plus image time.
func (p *Protocol) TransmissionTime() float64 {
	return VISDuration + p.ImageTime()
}

// Robot separator and porch timings
const (
	robotSyncTime    = 9e-3
	robotPorchTime   = 3e-3
	robotSeptrTime   = 4.5e-3
	robotChromaPorch = 1.5e-3
)

// martinLineTime sums the Martin line layout for a given per-channel scan time.
func martinLineTime(sync, porch, scan float64) float64 {
	return sync + porch + 3*(scan+porch)
}

// scottieLineTime sums the Scottie line layout.
func scottieLineTime(sync, septr, scan float64) float64 {
	return septr + scan + septr + scan + sync + septr + scan
}

// robotLineTime sums the Robot line layout for one or two chroma channels.
func robotLineTime(yScan, cScan float64, chromaChannels int) float64 {
	return robotSyncTime + robotPorchTime + yScan +
		float64(chromaChannels)*(robotSeptrTime+robotChromaPorch+cScan)
}

// Protocols is the fixed protocol table, in listing order
var Protocols = []*Protocol{
	{
		Key:         "m1",
		Name:        "Martin 1",
		VIS:         0x2c,
		Width:       320,
		Height:      256,
		SyncTime:    4.862e-3,
		PorchTime:   0.572e-3,
		SeptrTime:   0.572e-3,
		ScanTime:    0.4576e-3 * 320,
		LineTime:    martinLineTime(4.862e-3, 0.572e-3, 0.4576e-3*320),
		NominalTime: 114,
		ColorEnc:    ColorGBR,
		Format:      Format111,
	},
	{
		Key:         "m2",
		Name:        "Martin 2",
		VIS:         0x28,
		Width:       320,
		Height:      256,
		SyncTime:    4.862e-3,
		PorchTime:   0.572e-3,
		SeptrTime:   0.572e-3,
		ScanTime:    0.2288e-3 * 320,
		LineTime:    martinLineTime(4.862e-3, 0.572e-3, 0.2288e-3*320),
		NominalTime: 58,
		ColorEnc:    ColorGBR,
		Format:      Format111,
	},
	{
		Key:         "s1",
		Name:        "Scottie 1",
		VIS:         0x3c,
		Width:       320,
		Height:      256,
		SyncTime:    9e-3,
		PorchTime:   1.5e-3,
		SeptrTime:   1.5e-3,
		ScanTime:    0.4320e-3 * 320,
		LineTime:    scottieLineTime(9e-3, 1.5e-3, 0.4320e-3*320),
		NominalTime: 110,
		ColorEnc:    ColorGBR,
		Format:      Format111Rev,
	},
	{
		Key:         "s2",
		Name:        "Scottie 2",
		VIS:         0x38,
		Width:       320,
		Height:      256,
		SyncTime:    9e-3,
		PorchTime:   1.5e-3,
		SeptrTime:   1.5e-3,
		ScanTime:    0.2752e-3 * 320,
		LineTime:    scottieLineTime(9e-3, 1.5e-3, 0.2752e-3*320),
		NominalTime: 71,
		ColorEnc:    ColorGBR,
		Format:      Format111Rev,
	},
	{
		Key:         "sdx",
		Name:        "Scottie DX",
		VIS:         0x4c,
		Width:       320,
		Height:      256,
		SyncTime:    9e-3,
		PorchTime:   1.5e-3,
		SeptrTime:   1.5e-3,
		ScanTime:    1.0800e-3 * 320,
		LineTime:    scottieLineTime(9e-3, 1.5e-3, 1.0800e-3*320),
		NominalTime: 269,
		ColorEnc:    ColorGBR,
		Format:      Format111Rev,
	},
	{
		Key:         "r36",
		Name:        "Robot 36",
		VIS:         0x08,
		Width:       320,
		Height:      240,
		SyncTime:    robotSyncTime,
		PorchTime:   robotPorchTime,
		SeptrTime:   robotSeptrTime,
		ScanTime:    88e-3,
		ChromaTime:  44e-3,
		LineTime:    robotLineTime(88e-3, 44e-3, 1),
		NominalTime: 36,
		ColorEnc:    ColorYUV,
		Format:      Format420,
	},
	{
		Key:         "r72",
		Name:        "Robot 72",
		VIS:         0x0c,
		Width:       320,
		Height:      240,
		SyncTime:    robotSyncTime,
		PorchTime:   robotPorchTime,
		SeptrTime:   robotSeptrTime,
		ScanTime:    138e-3,
		ChromaTime:  69e-3,
		LineTime:    robotLineTime(138e-3, 69e-3, 2),
		NominalTime: 72,
		ColorEnc:    ColorYUV,
		Format:      Format422,
	},
}

var protocolsByKey = func() map[string]*Protocol {
	m := make(map[string]*Protocol, len(Protocols))
	for _, p := range Protocols {
		m[p.Key] = p
	}
	return m
}()

// Lookup returns the protocol for a key. Keys are case-sensitive.
func Lookup(key string) (*Protocol, error) {
	if p, ok := protocolsByKey[key]; ok {
		return p, nil
	}
	return nil, newError(KindInvalidProtocol, "unknown protocol %q (valid: %s)", key, strings.Join(ProtocolKeys(), ", "))
}

// LookupVIS returns the protocol carrying a VIS code, or nil.
func LookupVIS(vis uint8) *Protocol {
	for _, p := range Protocols {
		if p.VIS == vis {
			return p
		}
	}
	return nil
}

// ProtocolKeys lists valid protocol keys in table order.
func ProtocolKeys() []string {
	keys := make([]string, len(Protocols))
	for i, p := range Protocols {
		keys[i] = p.Key
	}
	return keys
}
