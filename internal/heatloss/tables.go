package heatloss

// Reference data below follows the RdSAP default tables (walls by age band,
// roof/floor insulation curves) in simplified form. Values are W/m²K unless noted.

// wallU is indexed by construction then age band. Missing bands mean the
// construction was not built in that era and the value cannot be graded.
var wallU = map[WallConstruction]map[AgeBand]float64{
	WallSolidBrick: {
		AgeBandA: 2.1, AgeBandB: 2.1, AgeBandC: 2.1, AgeBandD: 2.1, AgeBandE: 1.7, AgeBandF: 1.7,
		AgeBandG: 1.0, AgeBandH: 0.6, AgeBandI: 0.45, AgeBandJ: 0.35, AgeBandK: 0.3, AgeBandL: 0.28,
	},
	WallStone: {
		AgeBandA: 2.3, AgeBandB: 2.3, AgeBandC: 2.3, AgeBandD: 2.3, AgeBandE: 1.7, AgeBandF: 1.7,
		AgeBandG: 1.0, AgeBandH: 0.6, AgeBandI: 0.45, AgeBandJ: 0.35, AgeBandK: 0.3, AgeBandL: 0.28,
	},
	WallCavityUnfilled: {
		AgeBandB: 1.6, AgeBandC: 1.6, AgeBandD: 1.6, AgeBandE: 1.6, AgeBandF: 1.0,
		AgeBandG: 0.6, AgeBandH: 0.6, AgeBandI: 0.45, AgeBandJ: 0.35, AgeBandK: 0.3, AgeBandL: 0.28,
	},
	WallCavityFilled: {
		AgeBandB: 0.7, AgeBandC: 0.7, AgeBandD: 0.7, AgeBandE: 0.7, AgeBandF: 0.5,
		AgeBandG: 0.4, AgeBandH: 0.4, AgeBandI: 0.35, AgeBandJ: 0.35, AgeBandK: 0.3, AgeBandL: 0.28,
	},
	WallTimberFrame: {
		AgeBandA: 2.5, AgeBandB: 1.9, AgeBandC: 1.9, AgeBandD: 1.0, AgeBandE: 0.8, AgeBandF: 0.45,
		AgeBandG: 0.4, AgeBandH: 0.4, AgeBandI: 0.4, AgeBandJ: 0.35, AgeBandK: 0.3, AgeBandL: 0.28,
	},
	WallSystemBuilt: {
		AgeBandC: 2.0, AgeBandD: 2.0, AgeBandE: 1.7, AgeBandF: 1.0,
		AgeBandG: 0.6, AgeBandH: 0.6, AgeBandI: 0.45, AgeBandJ: 0.35, AgeBandK: 0.3, AgeBandL: 0.28,
	},
}

// conductivity is λ in W/m·K.
var conductivity = map[Material]float64{
	MaterialMineralWool: 0.040,
	MaterialEPS:         0.038,
	MaterialXPS:         0.034,
	MaterialPIR:         0.022,
	MaterialPhenolic:    0.020,
	MaterialWoodFibre:   0.045,
}

// Point is one (insulation thickness, U) control point of a curve.
type Point struct {
	ThicknessMM float64
	U           float64
}

type curveKey struct {
	exposure Exposure
	deck     Deck
}

var exposedFloorCurve = []Point{
	{0, 1.20}, {50, 0.50}, {100, 0.30}, {150, 0.22}, {200, 0.17},
}

// LoftCurve is the pitched-roof curve keyed by loft insulation depth.
var LoftCurve = []Point{
	{0, 2.30}, {12, 1.50}, {25, 1.00}, {50, 0.68}, {75, 0.50}, {100, 0.40},
	{125, 0.35}, {150, 0.30}, {175, 0.25}, {200, 0.21}, {225, 0.19}, {250, 0.17},
	{270, 0.16}, {300, 0.14}, {350, 0.12}, {400, 0.11},
}

var flatRoofCurve = []Point{
	{0, 2.30}, {50, 0.68}, {100, 0.40}, {150, 0.30}, {200, 0.21}, {250, 0.17},
}

var curves = map[curveKey][]Point{
	{ExposureGround, DeckSolid}: {
		{0, 0.70}, {25, 0.55}, {50, 0.45}, {75, 0.38}, {100, 0.32}, {150, 0.25}, {200, 0.20},
	},
	{ExposureGround, DeckSuspended}: {
		{0, 0.80}, {25, 0.60}, {50, 0.48}, {75, 0.40}, {100, 0.34}, {150, 0.26}, {200, 0.21},
	},
	{ExposureExposed, DeckSolid}:     exposedFloorCurve,
	{ExposureExposed, DeckSuspended}: exposedFloorCurve,
	{ExposureExposed, DeckLoft}:      LoftCurve,
	{ExposureExposed, DeckFlatRoof}:  flatRoofCurve,
}

var glazingU = map[Glazing]float64{
	GlazingSingle: 4.8,
	GlazingDouble: 3.1,
	GlazingTriple: 2.0,
}

var frameFactor = map[Frame]float64{
	FrameUPVC:      1.00,
	FrameTimber:    1.05,
	FrameAluminium: 1.15,
}

// openingFallbackU applies when an opening has neither a declared U-value nor
// a glazing description.
var openingFallbackU = map[OpeningKind]float64{
	OpeningWindow:     2.8,
	OpeningDoor:       3.0,
	OpeningRoofWindow: 3.1,
}

const defaultOpeningU = 2.8

// Ground-contact uplift applied to declared values that exclude the ground effect.
const (
	BasementWallUplift     = 0.15
	SolidGroundFloorUplift = 0.10
)

// baseVentilation is the base extract/supply rate in L/s by room type, grouped
// by airtightness era. Rows absent here fall back to fallbackVentilation.
var baseVentilation = map[ventEra]map[RoomType]float64{
	ventEraLeaky: {
		RoomLiving: 10, RoomDining: 10, RoomBedroom: 8, RoomKitchen: 15, RoomBathroom: 12,
		RoomWC: 8, RoomUtility: 12, RoomHall: 8, RoomStudy: 8,
	},
	ventEraStandard: {
		RoomLiving: 8, RoomDining: 8, RoomBedroom: 6, RoomKitchen: 13, RoomBathroom: 8,
		RoomWC: 6, RoomUtility: 8, RoomHall: 5, RoomStudy: 6,
	},
	ventEraTight: {
		RoomLiving: 6, RoomDining: 6, RoomBedroom: 5, RoomKitchen: 13, RoomBathroom: 8,
		RoomWC: 6, RoomUtility: 8, RoomHall: 4, RoomStudy: 5,
	},
}

const fallbackVentilation = 8.0

// defaultDeviceFlow is display data only: the aggregator never uses it.
var defaultDeviceFlow = map[VentType]float64{
	VentTrickle:           5,
	VentMVHRSupply:        8,
	VentMVHRExtract:       13,
	VentMechanicalExtract: 15,
	VentPassive:           5,
}
