package climate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// NormalizePostcode uppercases and strips all whitespace.
func NormalizePostcode(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// CandidateKeys returns the lookup keys for a normalised postcode in the
// order they are tried: full code, outcode, sector, area.
func CandidateKeys(pc string) []string {
	if pc == "" {
		return nil
	}
	keys := []string{pc}
	outcode, inward := splitPostcode(pc)
	if inward != "" {
		keys = append(keys, outcode, outcode+inward[:1])
	}
	if area := leadingLetters(outcode); area != "" {
		keys = append(keys, area)
	}
	return lo.Uniq(keys)
}

// splitPostcode separates a full UK postcode into outcode and the three
// character inward code. Inputs too short to carry an inward code are
// returned whole as the outcode.
func splitPostcode(pc string) (outcode, inward string) {
	if len(pc) < 5 {
		return pc, ""
	}
	in := pc[len(pc)-3:]
	if !unicode.IsDigit(rune(in[0])) {
		return pc, ""
	}
	return pc[:len(pc)-3], in
}

func leadingLetters(s string) string {
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if i < 0 {
		return s
	}
	return s[:i]
}

// LatLon is a WGS84 coordinate.
type LatLon struct {
	Lat float64
	Lon float64
}

func (l LatLon) String() string {
	return strconv.FormatFloat(l.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(l.Lon, 'f', 6, 64)
}

// ParseLatLon parses "<lat>,<lon>" with lat in [-90,90] and lon in [-180,180].
func ParseLatLon(s string) (LatLon, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return LatLon{}, fmt.Errorf("%w: %q", ErrInvalidLatLon, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return LatLon{}, fmt.Errorf("%w: %q", ErrInvalidLatLon, s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return LatLon{}, fmt.Errorf("%w: %q", ErrInvalidLatLon, s)
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return LatLon{}, fmt.Errorf("%w: %q out of range", ErrInvalidLatLon, s)
	}
	return LatLon{Lat: lat, Lon: lon}, nil
}
