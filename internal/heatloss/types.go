package heatloss

import (
	"fmt"
	"strings"
)

// Adjacency classifies what lies on the far side of an envelope element.
type Adjacency int

const (
	AdjacencyUnknown Adjacency = iota
	AdjacencyExterior
	AdjacencyInteriorHeated
	AdjacencyInteriorUnheated
	AdjacencyGround
)

func (a Adjacency) Valid() bool {
	return a >= AdjacencyExterior && a <= AdjacencyGround
}

func (a Adjacency) String() string {
	switch a {
	case AdjacencyExterior:
		return "Exterior"
	case AdjacencyInteriorHeated:
		return "Interior (Heated)"
	case AdjacencyInteriorUnheated:
		return "Interior (Unheated)"
	case AdjacencyGround:
		return "Ground"
	default:
		return "unknown"
	}
}

// Factor scales the indoor/outdoor difference for this adjacency. An unheated
// neighbour is assumed to sit halfway between indoor and outdoor.
func (a Adjacency) Factor() float64 {
	switch a {
	case AdjacencyInteriorHeated:
		return 0
	case AdjacencyInteriorUnheated:
		return 0.5
	default:
		return 1
	}
}

// ParseAdjacency accepts the display names and their snake_case forms.
func ParseAdjacency(s string) (Adjacency, error) {
	switch normalizeEnum(s) {
	case "exterior", "external", "outside":
		return AdjacencyExterior, nil
	case "interior_heated", "interior", "heated":
		return AdjacencyInteriorHeated, nil
	case "interior_unheated", "unheated":
		return AdjacencyInteriorUnheated, nil
	case "ground":
		return AdjacencyGround, nil
	default:
		return AdjacencyUnknown, fmt.Errorf("invalid adjacency: %q", s)
	}
}

// OpeningKind is the type of an opening in a wall or ceiling.
type OpeningKind int

const (
	OpeningUnknown OpeningKind = iota
	OpeningWindow
	OpeningDoor
	OpeningRoofWindow
)

func (k OpeningKind) Valid() bool {
	return k == OpeningWindow || k == OpeningDoor || k == OpeningRoofWindow
}

func (k OpeningKind) String() string {
	switch k {
	case OpeningWindow:
		return "window"
	case OpeningDoor:
		return "door"
	case OpeningRoofWindow:
		return "roof_window"
	default:
		return "unknown"
	}
}

func ParseOpeningKind(s string) (OpeningKind, error) {
	switch normalizeEnum(s) {
	case "window":
		return OpeningWindow, nil
	case "door":
		return OpeningDoor, nil
	case "roof_window", "rooflight", "skylight":
		return OpeningRoofWindow, nil
	default:
		return OpeningUnknown, fmt.Errorf("invalid opening kind: %q", s)
	}
}

// VentType is the kind of ventilation device fitted to a room.
type VentType int

const (
	VentUnknown VentType = iota
	VentTrickle
	VentMVHRSupply
	VentMVHRExtract
	VentMechanicalExtract
	VentPassive
)

func (v VentType) Valid() bool {
	return v >= VentTrickle && v <= VentPassive
}

func (v VentType) String() string {
	switch v {
	case VentTrickle:
		return "trickle_vent"
	case VentMVHRSupply:
		return "mvhr_supply"
	case VentMVHRExtract:
		return "mvhr_extract"
	case VentMechanicalExtract:
		return "mechanical_extract"
	case VentPassive:
		return "passive_vent"
	default:
		return "unknown"
	}
}

func ParseVentType(s string) (VentType, error) {
	switch normalizeEnum(s) {
	case "trickle_vent", "trickle":
		return VentTrickle, nil
	case "mvhr_supply":
		return VentMVHRSupply, nil
	case "mvhr_extract":
		return VentMVHRExtract, nil
	case "mechanical_extract", "extract_fan":
		return VentMechanicalExtract, nil
	case "passive_vent", "passive", "psv":
		return VentPassive, nil
	default:
		return VentUnknown, fmt.Errorf("invalid ventilation device type: %q", s)
	}
}

// AgeBand is the RdSAP construction age band, A (pre-1900) to L (2012 onwards).
type AgeBand int

const (
	AgeBandUnknown AgeBand = iota
	AgeBandA
	AgeBandB
	AgeBandC
	AgeBandD
	AgeBandE
	AgeBandF
	AgeBandG
	AgeBandH
	AgeBandI
	AgeBandJ
	AgeBandK
	AgeBandL
)

var ageBandYears = map[AgeBand]string{
	AgeBandA: "before 1900",
	AgeBandB: "1900-1929",
	AgeBandC: "1930-1949",
	AgeBandD: "1950-1966",
	AgeBandE: "1967-1975",
	AgeBandF: "1976-1982",
	AgeBandG: "1983-1990",
	AgeBandH: "1991-1995",
	AgeBandI: "1996-2002",
	AgeBandJ: "2003-2006",
	AgeBandK: "2007-2011",
	AgeBandL: "2012 onwards",
}

func (b AgeBand) Valid() bool {
	return b >= AgeBandA && b <= AgeBandL
}

func (b AgeBand) String() string {
	if !b.Valid() {
		return "unknown"
	}
	return string(rune('A' + int(b-AgeBandA)))
}

// Years returns the construction period covered by the band.
func (b AgeBand) Years() string {
	return ageBandYears[b]
}

func ParseAgeBand(s string) (AgeBand, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	if len(t) == 1 && t[0] >= 'A' && t[0] <= 'L' {
		return AgeBandA + AgeBand(t[0]-'A'), nil
	}
	return AgeBandUnknown, fmt.Errorf("invalid age band: %q", s)
}

// RoomType selects the base ventilation rate for a room.
type RoomType int

const (
	RoomUnknown RoomType = iota
	RoomLiving
	RoomDining
	RoomBedroom
	RoomKitchen
	RoomBathroom
	RoomWC
	RoomUtility
	RoomHall
	RoomStudy
)

var roomTypeNames = map[RoomType]string{
	RoomLiving:   "living",
	RoomDining:   "dining",
	RoomBedroom:  "bedroom",
	RoomKitchen:  "kitchen",
	RoomBathroom: "bathroom",
	RoomWC:       "wc",
	RoomUtility:  "utility",
	RoomHall:     "hall",
	RoomStudy:    "study",
}

func (r RoomType) Valid() bool {
	_, ok := roomTypeNames[r]
	return ok
}

func (r RoomType) String() string {
	if n, ok := roomTypeNames[r]; ok {
		return n
	}
	return "unknown"
}

func ParseRoomType(s string) (RoomType, error) {
	n := normalizeEnum(s)
	switch n {
	case "lounge", "living_room":
		return RoomLiving, nil
	case "landing", "hallway":
		return RoomHall, nil
	case "toilet":
		return RoomWC, nil
	}
	for rt, name := range roomTypeNames {
		if name == n {
			return rt, nil
		}
	}
	return RoomUnknown, fmt.Errorf("invalid room type: %q", s)
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("(", "", ")", "", "-", "_", " ", "_").Replace(s)
	return s
}
