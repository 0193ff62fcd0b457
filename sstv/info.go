package sstv

import "fmt"

/*
 * Encoder metadata
 * Used by --list-protocols and the encode-complete event
 */

// GetInfo returns encoder metadata
func GetInfo() map[string]interface{} {
	modes := make([]map[string]interface{}, 0, len(Protocols))
	for _, p := range Protocols {
		modes = append(modes, map[string]interface{}{
			"key":        p.Key,
			"name":       p.Name,
			"vis":        p.VIS,
			"resolution": fmt.Sprintf("%dx%d", p.Width, p.Height),
			"color":      p.ColorEnc.String(),
			"seconds":    p.NominalTime,
		})
	}

	return map[string]interface{}{
		"name":        "sstv",
		"description": "Slow Scan Television (SSTV) encoder with CW identification",
		"parameters": map[string]interface{}{
			"sample_rate": map[string]interface{}{
				"type":    "integer",
				"min":     MinSampleRate,
				"max":     MaxSampleRate,
				"default": DefaultSampleRate,
			},
			"cw_wpm": map[string]interface{}{
				"type":    "integer",
				"min":     MinWPM,
				"max":     MaxWPM,
				"default": DefaultWPM,
			},
			"cw_tone": map[string]interface{}{
				"type":    "integer",
				"min":     MinToneHz,
				"max":     MaxToneHz,
				"default": DefaultToneHz,
			},
		},
		"supported_modes": modes,
	}
}
