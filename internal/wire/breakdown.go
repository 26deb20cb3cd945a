package wire

import (
	"github.com/samber/lo"

	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
)

type ElementLoss struct {
	ID       string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	Class    string  `json:"class" yaml:"class"`
	ParentID string  `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Area     float64 `json:"area_m2" yaml:"area_m2"`
	U        float64 `json:"u_value" yaml:"u_value"`
	Resolved bool    `json:"resolved" yaml:"resolved"`
	Factor   float64 `json:"factor" yaml:"factor"`
	LossW    float64 `json:"loss_w" yaml:"loss_w"`
}

type RoomBreakdown struct {
	Room           string        `json:"room" yaml:"room"`
	DeltaT         float64       `json:"delta_t" yaml:"delta_t"`
	WallsW         float64       `json:"walls_w" yaml:"walls_w"`
	FloorsW        float64       `json:"floors_w" yaml:"floors_w"`
	CeilingsW      float64       `json:"ceilings_w" yaml:"ceilings_w"`
	OpeningsW      float64       `json:"openings_w" yaml:"openings_w"`
	TransmissionW  float64       `json:"transmission_w" yaml:"transmission_w"`
	FlowBaseLps    float64       `json:"flow_base_lps" yaml:"flow_base_lps"`
	FlowDevicesLps float64       `json:"flow_devices_lps" yaml:"flow_devices_lps"`
	FlowLps        float64       `json:"flow_lps" yaml:"flow_lps"`
	FlowM3h        float64       `json:"flow_m3h" yaml:"flow_m3h"`
	VolumeM3       float64       `json:"volume_m3" yaml:"volume_m3"`
	ACH            float64       `json:"ach" yaml:"ach"`
	VentilationW   float64       `json:"ventilation_w" yaml:"ventilation_w"`
	TotalW         float64       `json:"total_w" yaml:"total_w"`
	Elements       []ElementLoss `json:"elements" yaml:"elements"`
}

type BuildingBreakdown struct {
	Rooms         []RoomBreakdown `json:"rooms" yaml:"rooms"`
	TransmissionW float64         `json:"transmission_w" yaml:"transmission_w"`
	VentilationW  float64         `json:"ventilation_w" yaml:"ventilation_w"`
	TotalW        float64         `json:"total_w" yaml:"total_w"`
	FlowM3h       float64         `json:"flow_m3h" yaml:"flow_m3h"`
	VolumeM3      float64         `json:"volume_m3" yaml:"volume_m3"`
}

func FromRoomBreakdown(b heatloss.RoomLossBreakdown) RoomBreakdown {
	return RoomBreakdown{
		Room:           b.Room,
		DeltaT:         b.DeltaT,
		WallsW:         b.WallsW,
		FloorsW:        b.FloorsW,
		CeilingsW:      b.CeilingsW,
		OpeningsW:      b.OpeningsW,
		TransmissionW:  b.TransmissionW,
		FlowBaseLps:    b.FlowBaseLps,
		FlowDevicesLps: b.FlowDevicesLps,
		FlowLps:        b.FlowLps,
		FlowM3h:        b.FlowM3h,
		VolumeM3:       b.VolumeM3,
		ACH:            b.ACH,
		VentilationW:   b.VentilationW,
		TotalW:         b.TotalW,
		Elements: lo.Map(b.Elements, func(e heatloss.ElementLoss, _ int) ElementLoss {
			return ElementLoss{
				ID:       e.ID,
				Name:     e.Name,
				Class:    e.Class.String(),
				ParentID: e.ParentID,
				Area:     e.Area,
				U:        e.U,
				Resolved: e.Resolved,
				Factor:   e.Factor,
				LossW:    e.LossW,
			}
		}),
	}
}

func FromBuildingBreakdown(b heatloss.BuildingBreakdown) BuildingBreakdown {
	return BuildingBreakdown{
		Rooms:         lo.Map(b.Rooms, func(r heatloss.RoomLossBreakdown, _ int) RoomBreakdown { return FromRoomBreakdown(r) }),
		TransmissionW: b.TransmissionW,
		VentilationW:  b.VentilationW,
		TotalW:        b.TotalW,
		FlowM3h:       b.FlowM3h,
		VolumeM3:      b.VolumeM3,
	}
}
