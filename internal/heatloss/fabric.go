package heatloss

import "fmt"

// Category states how an element's U-value is to be obtained.
type Category int

const (
	CategoryUnspecified Category = iota
	CategoryKnown                // declared by the surveyor
	CategoryGraded               // derived from construction tables
	CategoryInternal
	CategoryParty
)

func (c Category) String() string {
	switch c {
	case CategoryKnown:
		return "known"
	case CategoryGraded:
		return "graded"
	case CategoryInternal:
		return "internal"
	case CategoryParty:
		return "party"
	default:
		return "unspecified"
	}
}

func ParseCategory(s string) (Category, error) {
	switch normalizeEnum(s) {
	case "known", "known_value":
		return CategoryKnown, nil
	case "graded", "external", "by_construction":
		return CategoryGraded, nil
	case "internal":
		return CategoryInternal, nil
	case "party", "party_wall":
		return CategoryParty, nil
	case "", "unspecified":
		return CategoryUnspecified, nil
	default:
		return CategoryUnspecified, fmt.Errorf("invalid u-value category: %q", s)
	}
}

// WallConstruction is the wall build-up used by the era table.
type WallConstruction int

const (
	WallUnknown WallConstruction = iota
	WallSolidBrick
	WallStone
	WallCavityUnfilled
	WallCavityFilled
	WallTimberFrame
	WallSystemBuilt
)

func (w WallConstruction) String() string {
	switch w {
	case WallSolidBrick:
		return "solid_brick"
	case WallStone:
		return "stone"
	case WallCavityUnfilled:
		return "cavity_unfilled"
	case WallCavityFilled:
		return "cavity_filled"
	case WallTimberFrame:
		return "timber_frame"
	case WallSystemBuilt:
		return "system_built"
	default:
		return "unknown"
	}
}

func ParseWallConstruction(s string) (WallConstruction, error) {
	switch normalizeEnum(s) {
	case "solid_brick", "solid":
		return WallSolidBrick, nil
	case "stone":
		return WallStone, nil
	case "cavity_unfilled", "cavity":
		return WallCavityUnfilled, nil
	case "cavity_filled":
		return WallCavityFilled, nil
	case "timber_frame", "timber":
		return WallTimberFrame, nil
	case "system_built", "system":
		return WallSystemBuilt, nil
	default:
		return WallUnknown, fmt.Errorf("invalid wall construction: %q", s)
	}
}

// Exposure is the thermal exposure of a floor or ceiling.
type Exposure int

const (
	ExposureUnknown Exposure = iota
	ExposureGround
	ExposureExposed
	ExposureInternal
)

func (e Exposure) String() string {
	switch e {
	case ExposureGround:
		return "ground"
	case ExposureExposed:
		return "exposed"
	case ExposureInternal:
		return "internal"
	default:
		return "unknown"
	}
}

func ParseExposure(s string) (Exposure, error) {
	switch normalizeEnum(s) {
	case "ground", "ground_contact":
		return ExposureGround, nil
	case "exposed":
		return ExposureExposed, nil
	case "internal":
		return ExposureInternal, nil
	default:
		return ExposureUnknown, fmt.Errorf("invalid exposure: %q", s)
	}
}

// Deck is the construction of a floor or ceiling.
type Deck int

const (
	DeckUnknown Deck = iota
	DeckSolid
	DeckSuspended
	DeckLoft
	DeckFlatRoof
)

func (d Deck) String() string {
	switch d {
	case DeckSolid:
		return "solid"
	case DeckSuspended:
		return "suspended"
	case DeckLoft:
		return "loft"
	case DeckFlatRoof:
		return "flat_roof"
	default:
		return "unknown"
	}
}

func ParseDeck(s string) (Deck, error) {
	switch normalizeEnum(s) {
	case "solid":
		return DeckSolid, nil
	case "suspended", "suspended_timber":
		return DeckSuspended, nil
	case "loft", "pitched":
		return DeckLoft, nil
	case "flat_roof", "flat":
		return DeckFlatRoof, nil
	default:
		return DeckUnknown, fmt.Errorf("invalid deck construction: %q", s)
	}
}

// Material is an insulating material applied to an existing construction.
type Material int

const (
	MaterialUnknown Material = iota
	MaterialMineralWool
	MaterialEPS
	MaterialXPS
	MaterialPIR
	MaterialPhenolic
	MaterialWoodFibre
)

func (m Material) String() string {
	switch m {
	case MaterialMineralWool:
		return "mineral_wool"
	case MaterialEPS:
		return "eps"
	case MaterialXPS:
		return "xps"
	case MaterialPIR:
		return "pir"
	case MaterialPhenolic:
		return "phenolic"
	case MaterialWoodFibre:
		return "wood_fibre"
	default:
		return "unknown"
	}
}

func ParseMaterial(s string) (Material, error) {
	switch normalizeEnum(s) {
	case "mineral_wool", "glass_wool", "rock_wool":
		return MaterialMineralWool, nil
	case "eps":
		return MaterialEPS, nil
	case "xps":
		return MaterialXPS, nil
	case "pir":
		return MaterialPIR, nil
	case "phenolic":
		return MaterialPhenolic, nil
	case "wood_fibre", "wood_fiber":
		return MaterialWoodFibre, nil
	default:
		return MaterialUnknown, fmt.Errorf("invalid insulation material: %q", s)
	}
}

// Glazing is the number of panes in a window.
type Glazing int

const (
	GlazingUnknown Glazing = iota
	GlazingSingle
	GlazingDouble
	GlazingTriple
)

func (g Glazing) String() string {
	switch g {
	case GlazingSingle:
		return "single"
	case GlazingDouble:
		return "double"
	case GlazingTriple:
		return "triple"
	default:
		return "unknown"
	}
}

func ParseGlazing(s string) (Glazing, error) {
	switch normalizeEnum(s) {
	case "single":
		return GlazingSingle, nil
	case "double":
		return GlazingDouble, nil
	case "triple":
		return GlazingTriple, nil
	default:
		return GlazingUnknown, fmt.Errorf("invalid glazing: %q", s)
	}
}

// Frame is a window frame material.
type Frame int

const (
	FrameUnknown Frame = iota
	FrameUPVC
	FrameTimber
	FrameAluminium
)

func (f Frame) String() string {
	switch f {
	case FrameUPVC:
		return "upvc"
	case FrameTimber:
		return "timber"
	case FrameAluminium:
		return "aluminium"
	default:
		return "unknown"
	}
}

func ParseFrame(s string) (Frame, error) {
	switch normalizeEnum(s) {
	case "upvc", "pvc":
		return FrameUPVC, nil
	case "timber", "wood":
		return FrameTimber, nil
	case "aluminium", "aluminum", "metal":
		return FrameAluminium, nil
	default:
		return FrameUnknown, fmt.Errorf("invalid frame: %q", s)
	}
}

// InsulationLayer is an insulating layer added in series with a construction.
type InsulationLayer struct {
	ThicknessMM float64
	Material    Material
}

// Fabric carries whatever the surveyor knows about an element's build-up.
type Fabric struct {
	Category Category

	Era          AgeBand
	Construction WallConstruction
	Added        *InsulationLayer

	Exposure     Exposure
	Deck         Deck
	InsulationMM *float64

	Basement              bool
	IncludesGroundContact bool
}
