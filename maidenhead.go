package main

import (
	"fmt"
	"strings"
)

// NormalizeLocator validates a Maidenhead locator and returns it in the
// conventional mixed case (e.g. "FN31pr"). Supports 4, 6, or 8 characters.
func NormalizeLocator(locator string) (string, error) {
	locator = strings.ToUpper(strings.TrimSpace(locator))

	// Validate length (must be 4, 6, or 8 characters)
	if len(locator) != 4 && len(locator) != 6 && len(locator) != 8 {
		return "", fmt.Errorf("invalid Maidenhead locator length: %d (must be 4, 6, or 8)", len(locator))
	}

	if locator[0] < 'A' || locator[0] > 'R' || locator[1] < 'A' || locator[1] > 'R' {
		return "", fmt.Errorf("invalid field characters (must be A-R)")
	}
	if locator[2] < '0' || locator[2] > '9' || locator[3] < '0' || locator[3] > '9' {
		return "", fmt.Errorf("invalid square characters (must be 0-9)")
	}
	if len(locator) >= 6 {
		if locator[4] < 'A' || locator[4] > 'X' || locator[5] < 'A' || locator[5] > 'X' {
			return "", fmt.Errorf("invalid subsquare characters (must be A-X)")
		}
	}
	if len(locator) == 8 {
		if locator[6] < '0' || locator[6] > '9' || locator[7] < '0' || locator[7] > '9' {
			return "", fmt.Errorf("invalid extended square characters (must be 0-9)")
		}
	}

	if len(locator) >= 6 {
		locator = locator[:4] + strings.ToLower(locator[4:6]) + locator[6:]
	}
	return locator, nil
}

// MaidenheadToLatLon converts a Maidenhead locator to latitude and longitude
// Returns the center point of the grid square
func MaidenheadToLatLon(locator string) (lat, lon float64, err error) {
	locator, err = NormalizeLocator(locator)
	if err != nil {
		return 0, 0, err
	}
	locator = strings.ToUpper(locator)

	// Field (first 2 characters): 20° longitude × 10° latitude
	lon = float64(locator[0]-'A') * 20.0
	lat = float64(locator[1]-'A') * 10.0

	// Square (characters 3-4): 2° longitude × 1° latitude
	lon += float64(locator[2]-'0') * 2.0
	lat += float64(locator[3]-'0') * 1.0

	// Subsquare (characters 5-6): 5' longitude × 2.5' latitude
	if len(locator) >= 6 {
		lon += float64(locator[4]-'A') * (2.0 / 24.0)
		lat += float64(locator[5]-'A') * (1.0 / 24.0)
	}

	// Extended square (characters 7-8): 0.5' longitude × 0.25' latitude
	if len(locator) == 8 {
		lon += float64(locator[6]-'0') * (2.0 / 240.0)
		lat += float64(locator[7]-'0') * (1.0 / 240.0)
	}

	// Adjust to center of grid square
	switch len(locator) {
	case 4:
		lon += 1.0
		lat += 0.5
	case 6:
		lon += (2.0 / 48.0)
		lat += (1.0 / 48.0)
	case 8:
		lon += (2.0 / 480.0)
		lat += (1.0 / 480.0)
	}

	// Convert to standard coordinate system
	lon -= 180.0
	lat -= 90.0

	return lat, lon, nil
}
