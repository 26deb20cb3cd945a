package heatloss

import "github.com/samber/lo"

// VolumetricHeatCapacity of air in Wh/m³K.
const VolumetricHeatCapacity = 0.33

// LpsToM3h converts L/s to m³/h.
const LpsToM3h = 3.6

// Inputs are the per-call parameters of ComputeRoomLoss.
type Inputs struct {
	IndoorC  float64
	OutdoorC float64
	VolumeM3 *float64 // takes precedence over the room's own volume when finite and > 0
	AgeBand  AgeBand
	RoomType RoomType
	Policy   Policy
}

type ElementClass int

const (
	ClassWall ElementClass = iota
	ClassFloor
	ClassCeiling
	ClassOpening
)

func (c ElementClass) String() string {
	switch c {
	case ClassWall:
		return "wall"
	case ClassFloor:
		return "floor"
	case ClassCeiling:
		return "ceiling"
	default:
		return "opening"
	}
}

// ElementLoss is one line of the fabric breakdown.
type ElementLoss struct {
	ID       string
	Name     string
	Class    ElementClass
	ParentID string // set on openings
	Area     float64
	U        float64
	Resolved bool
	Factor   float64
	LossW    float64
}

type RoomLossBreakdown struct {
	Room string

	DeltaT float64

	WallsW    float64
	FloorsW   float64
	CeilingsW float64
	OpeningsW float64

	TransmissionW float64

	FlowBaseLps    float64
	FlowDevicesLps float64
	FlowLps        float64
	FlowM3h        float64
	VolumeM3       float64
	ACH            float64
	VentilationW   float64

	TotalW float64

	Elements []ElementLoss
}

// ComputeRoomLoss is a pure function of its arguments; malformed numbers are
// treated as 0 and missing U-values contribute nothing. Any intermediate that
// overflows is also reported as 0, so every field of the result is finite.
func ComputeRoomLoss(room RoomModel, in Inputs) RoomLossBreakdown {
	dt := finite(finite(in.IndoorC) - finite(in.OutdoorC))
	out := RoomLossBreakdown{Room: room.Name, DeltaT: dt}

	for _, w := range room.Walls {
		u, ok := ResolveWallU(w)
		line := fabricLine(w.Element, ClassWall, w.NetArea(), u, ok, dt)
		out.WallsW += line.LossW
		out.Elements = append(out.Elements, line)
		out.OpeningsW += out.addOpenings(w.ID, w.Openings, w.Adjacent, dt)
	}
	for _, f := range room.Floors {
		u, ok := ResolveFloorU(f)
		line := fabricLine(f.Element, ClassFloor, f.GrossArea(), u, ok, dt)
		out.FloorsW += line.LossW
		out.Elements = append(out.Elements, line)
	}
	for _, c := range room.Ceilings {
		u, ok := ResolveCeilingU(c)
		line := fabricLine(c.Element, ClassCeiling, c.NetArea(), u, ok, dt)
		out.CeilingsW += line.LossW
		out.Elements = append(out.Elements, line)
		out.OpeningsW += out.addOpenings(c.ID, c.Openings, c.Adjacent, dt)
	}
	out.WallsW, out.FloorsW = finite(out.WallsW), finite(out.FloorsW)
	out.CeilingsW, out.OpeningsW = finite(out.CeilingsW), finite(out.OpeningsW)
	out.TransmissionW = finite(out.WallsW + out.FloorsW + out.CeilingsW + out.OpeningsW)

	out.FlowBaseLps = BaseRate(in.AgeBand, in.RoomType)
	out.FlowDevicesLps = DeviceOverrideFlow(room.Ventilation)
	out.FlowLps = CombineFlows(in.Policy, out.FlowBaseLps, out.FlowDevicesLps)
	out.FlowM3h = finite(out.FlowLps * LpsToM3h)
	out.VentilationW = finite(VolumetricHeatCapacity * out.FlowM3h * dt)

	out.VolumeM3 = room.Volume()
	if in.VolumeM3 != nil && isFinite(*in.VolumeM3) && *in.VolumeM3 > 0 {
		out.VolumeM3 = *in.VolumeM3
	}
	if out.VolumeM3 > 0 {
		out.ACH = finite(out.FlowM3h / out.VolumeM3)
	}

	out.TotalW = finite(out.TransmissionW + out.VentilationW)
	return out
}

// addOpenings appends one line per opening; openings share the parent's adjacency.
func (b *RoomLossBreakdown) addOpenings(parent string, os []Opening, adj Adjacency, dt float64) float64 {
	var sum float64
	for _, o := range os {
		u := ResolveOpeningU(o)
		a := o.Area()
		line := ElementLoss{
			ID:       o.ID,
			Name:     o.Kind.String(),
			Class:    ClassOpening,
			ParentID: parent,
			Area:     a,
			U:        u,
			Resolved: true,
			Factor:   adj.Factor(),
			LossW:    transmission(u, a, dt, adj.Factor()),
		}
		sum += line.LossW
		b.Elements = append(b.Elements, line)
	}
	return sum
}

func fabricLine(e Element, class ElementClass, a, u float64, resolved bool, dt float64) ElementLoss {
	line := ElementLoss{
		ID:       e.ID,
		Name:     e.Name,
		Class:    class,
		Area:     a,
		Resolved: resolved,
		Factor:   e.Adjacent.Factor(),
	}
	if resolved {
		line.U = u
		line.LossW = transmission(u, a, dt, line.Factor)
	}
	return line
}

// transmission clamps at zero so that a reversed temperature difference never
// produces negative fabric loss.
func transmission(u, a, dt, factor float64) float64 {
	q := nonNeg(u) * a * dt * factor
	if q < 0 || !isFinite(q) {
		return 0
	}
	return q
}

// RoomInput pairs a room with its per-room parameters for building totals.
type RoomInput struct {
	Room     RoomModel
	RoomType RoomType
	VolumeM3 *float64
}

type BuildingBreakdown struct {
	Rooms         []RoomLossBreakdown
	TransmissionW float64
	VentilationW  float64
	TotalW        float64
	FlowM3h       float64
	VolumeM3      float64
}

// ComputeBuildingLoss runs ComputeRoomLoss for each room under shared
// conditions and sums the results.
func ComputeBuildingLoss(rooms []RoomInput, indoorC, outdoorC float64, band AgeBand, p Policy) BuildingBreakdown {
	out := BuildingBreakdown{
		Rooms: lo.Map(rooms, func(r RoomInput, _ int) RoomLossBreakdown {
			return ComputeRoomLoss(r.Room, Inputs{
				IndoorC:  indoorC,
				OutdoorC: outdoorC,
				VolumeM3: r.VolumeM3,
				AgeBand:  band,
				RoomType: r.RoomType,
				Policy:   p,
			})
		}),
	}
	for _, r := range out.Rooms {
		out.TransmissionW += r.TransmissionW
		out.VentilationW += r.VentilationW
		out.FlowM3h += r.FlowM3h
		out.VolumeM3 += r.VolumeM3
	}
	out.TransmissionW, out.VentilationW = finite(out.TransmissionW), finite(out.VentilationW)
	out.FlowM3h, out.VolumeM3 = finite(out.FlowM3h), finite(out.VolumeM3)
	out.TotalW = finite(out.TransmissionW + out.VentilationW)
	return out
}
