package heatloss

import (
	"math"
	"strings"

	"github.com/samber/lo"
)

// Policy is the rule combining the base ventilation rate with device overrides.
type Policy int

const (
	PolicyMax Policy = iota
	PolicySum
)

func (p Policy) Valid() bool {
	return p == PolicyMax || p == PolicySum
}

func (p Policy) String() string {
	if p == PolicySum {
		return "sum"
	}
	return "max"
}

// ParsePolicy never fails: anything other than "sum" selects PolicyMax.
func ParsePolicy(s string) Policy {
	if strings.EqualFold(strings.TrimSpace(s), "sum") {
		return PolicySum
	}
	return PolicyMax
}

// CombineFlows applies p to a base and device flow (L/s). Invalid policies
// behave as PolicyMax.
func CombineFlows(p Policy, base, device float64) float64 {
	base, device = nonNeg(base), nonNeg(device)
	if p == PolicySum {
		return finite(base + device)
	}
	return math.Max(base, device)
}

type ventEra int

const (
	ventEraUnknown ventEra = iota
	ventEraLeaky
	ventEraStandard
	ventEraTight
)

func eraOf(b AgeBand) ventEra {
	switch {
	case b >= AgeBandA && b <= AgeBandF:
		return ventEraLeaky
	case b >= AgeBandG && b <= AgeBandI:
		return ventEraStandard
	case b >= AgeBandJ && b <= AgeBandL:
		return ventEraTight
	default:
		return ventEraUnknown
	}
}

// BaseRate returns the base ventilation rate (L/s) for an age band and room
// type, falling back to a default row when the combination is absent.
func BaseRate(b AgeBand, rt RoomType) float64 {
	if row, ok := baseVentilation[eraOf(b)]; ok {
		if v, ok := row[rt]; ok {
			return v
		}
	}
	return fallbackVentilation
}

// DeviceOverrideFlow sums override flows. Devices without an override add 0.
func DeviceOverrideFlow(devices []VentDevice) float64 {
	return finite(lo.SumBy(devices, func(d VentDevice) float64 {
		if d.OverrideFlow == nil {
			return 0
		}
		return nonNeg(*d.OverrideFlow)
	}))
}

// DefaultDeviceFlow is the nominal flow (L/s) shown for a device type. It is
// not used by ComputeRoomLoss.
func DefaultDeviceFlow(t VentType) (float64, bool) {
	v, ok := defaultDeviceFlow[t]
	return v, ok
}
