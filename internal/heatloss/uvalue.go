package heatloss

import "math"

// The Resolve*U functions return ok=false when the element does not carry
// enough information to produce a U-value. A resolved 0 means "no loss"
// (internal or party elements) and is distinct from unresolved.

func ResolveWallU(w Wall) (float64, bool) {
	f := w.Fabric
	switch category(f, w.UValue) {
	case CategoryKnown:
		u, ok := declared(w.UValue)
		if !ok {
			return 0, false
		}
		if f.Basement && !f.IncludesGroundContact {
			u = round2(u + BasementWallUplift)
		}
		return u, true
	case CategoryInternal, CategoryParty:
		return 0, true
	case CategoryGraded:
		base, ok := WallTableU(f.Era, f.Construction)
		if !ok {
			return 0, false
		}
		if f.Added != nil {
			return WithInsulation(base, *f.Added), true
		}
		return base, true
	default:
		return 0, false
	}
}

func ResolveFloorU(fl Floor) (float64, bool) {
	f := fl.Fabric
	switch category(f, fl.UValue) {
	case CategoryKnown:
		u, ok := declared(fl.UValue)
		if !ok {
			return 0, false
		}
		if f.Exposure == ExposureGround && f.Deck == DeckSolid && !f.IncludesGroundContact {
			u = round2(u + SolidGroundFloorUplift)
		}
		return u, true
	case CategoryInternal, CategoryParty:
		return 0, true
	case CategoryGraded:
		return curveU(f)
	default:
		return 0, false
	}
}

func ResolveCeilingU(c Ceiling) (float64, bool) {
	f := c.Fabric
	switch category(f, c.UValue) {
	case CategoryKnown:
		return declared(c.UValue)
	case CategoryInternal, CategoryParty:
		return 0, true
	case CategoryGraded:
		return curveU(f)
	default:
		return 0, false
	}
}

// ResolveOpeningU prefers a declared value, then the glazing/frame estimate,
// then a per-kind default.
func ResolveOpeningU(o Opening) float64 {
	if u, ok := declared(o.UValue); ok {
		return u
	}
	if u, ok := WindowU(o.Glazing, o.Frame); ok && o.Kind != OpeningDoor {
		return u
	}
	if u, ok := openingFallbackU[o.Kind]; ok {
		return u
	}
	return defaultOpeningU
}

// WallTableU looks up the as-built U-value for an era and construction.
func WallTableU(era AgeBand, c WallConstruction) (float64, bool) {
	row, ok := wallU[c]
	if !ok {
		return 0, false
	}
	u, ok := row[era]
	return u, ok
}

// WithInsulation adds the resistance of layer in series with a construction of
// U-value base. Unknown materials or non-positive thickness leave base unchanged.
func WithInsulation(base float64, layer InsulationLayer) float64 {
	lambda, ok := conductivity[layer.Material]
	t := nonNeg(layer.ThicknessMM)
	if !ok || t == 0 || base <= 0 {
		return round2(base)
	}
	rAdd := (t / 1000) / lambda
	return round2(1 / (1/base + rAdd))
}

// Conductivity returns λ (W/m·K) for a material.
func Conductivity(m Material) (float64, bool) {
	l, ok := conductivity[m]
	return l, ok
}

// WindowU is the glazing baseline scaled by the frame multiplier.
func WindowU(g Glazing, fr Frame) (float64, bool) {
	base, ok := glazingU[g]
	if !ok {
		return 0, false
	}
	mult, ok := frameFactor[fr]
	if !ok {
		mult = 1
	}
	return round2(base * mult), true
}

// CurveFor returns the insulation curve for an exposure and deck construction.
func CurveFor(e Exposure, d Deck) ([]Point, bool) {
	pts, ok := curves[curveKey{e, d}]
	return pts, ok
}

// Lerp interpolates U over points ordered by thickness, clamping to the end
// points outside their range.
func Lerp(points []Point, t float64) float64 {
	if len(points) == 0 {
		return 0
	}
	t = finite(t)
	first, last := points[0], points[len(points)-1]
	if t <= first.ThicknessMM {
		return first.U
	}
	if t >= last.ThicknessMM {
		return last.U
	}
	for i := 1; i < len(points); i++ {
		p0, p1 := points[i-1], points[i]
		if t > p1.ThicknessMM {
			continue
		}
		if t == p1.ThicknessMM {
			return p1.U
		}
		return round2(p0.U + (t-p0.ThicknessMM)/(p1.ThicknessMM-p0.ThicknessMM)*(p1.U-p0.U))
	}
	return last.U
}

func curveU(f Fabric) (float64, bool) {
	if f.Exposure == ExposureInternal {
		return 0, true
	}
	pts, ok := CurveFor(f.Exposure, f.Deck)
	if !ok || f.InsulationMM == nil {
		return 0, false
	}
	return Lerp(pts, *f.InsulationMM), true
}

// category treats an unspecified category with a declared value as known.
func category(f Fabric, u *float64) Category {
	if f.Category == CategoryUnspecified && u != nil {
		return CategoryKnown
	}
	return f.Category
}

func declared(u *float64) (float64, bool) {
	if u == nil || !isFinite(*u) || *u < 0 {
		return 0, false
	}
	return *u, true
}

// round2 rounds half away from zero at two decimals, nudged so that products
// like 3.1×1.15 land on 3.57 rather than 3.56.
func round2(v float64) float64 {
	r := v * 100
	return math.Round(r+math.Copysign(1e-9, r)) / 100
}
