package climate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePostcode(t *testing.T) {
	assert.Equal(t, "SW1A1AA", NormalizePostcode(" sw1a\t1aa "))
	assert.Equal(t, "", NormalizePostcode("   "))
}

func TestCandidateKeys(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"SW1A1AA", []string{"SW1A1AA", "SW1A", "SW1A1", "SW"}},
		{"M11AE", []string{"M11AE", "M1", "M11", "M"}},
		{"HG3", []string{"HG3", "HG"}},
		{"EH", []string{"EH"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CandidateKeys(tt.in))
		})
	}
}

func TestParseLatLon(t *testing.T) {
	ll, err := ParseLatLon(" 51.5014, -0.1419 ")
	require.NoError(t, err)
	assert.InDelta(t, 51.5014, ll.Lat, 1e-9)
	assert.InDelta(t, -0.1419, ll.Lon, 1e-9)

	for _, bad := range []string{"", "51.5", "91,0", "0,181", "a,b", "NaN,0", "1,2,3"} {
		_, err := ParseLatLon(bad)
		assert.ErrorIs(t, err, ErrInvalidLatLon, bad)
	}
}
