package wire

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
)

type Insulation struct {
	ThicknessMM Number `json:"thickness_mm" yaml:"thickness_mm"`
	Material    string `json:"material" yaml:"material"`
}

type Fabric struct {
	Category     string      `json:"category,omitempty" yaml:"category,omitempty"`
	AgeBand      string      `json:"age_band,omitempty" yaml:"age_band,omitempty"`
	Construction string      `json:"construction,omitempty" yaml:"construction,omitempty"`
	Added        *Insulation `json:"added_insulation,omitempty" yaml:"added_insulation,omitempty"`

	Exposure     string `json:"exposure,omitempty" yaml:"exposure,omitempty"`
	Deck         string `json:"deck,omitempty" yaml:"deck,omitempty"`
	InsulationMM Number `json:"insulation_mm" yaml:"insulation_mm,omitempty"`

	Basement              bool `json:"basement,omitempty" yaml:"basement,omitempty"`
	IncludesGroundContact bool `json:"includes_ground_contact,omitempty" yaml:"includes_ground_contact,omitempty"`
}

type Element struct {
	ID       string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	Adjacent string  `json:"adjacent" yaml:"adjacent"`
	Width    Number  `json:"width" yaml:"width"`
	Height   Number  `json:"height" yaml:"height"`
	UValue   Number  `json:"u_value" yaml:"u_value,omitempty"`
	Fabric   *Fabric `json:"fabric,omitempty" yaml:"fabric,omitempty"`
}

type Opening struct {
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Kind    string `json:"kind" yaml:"kind"`
	Width   Number `json:"width" yaml:"width"`
	Height  Number `json:"height" yaml:"height"`
	UValue  Number `json:"u_value" yaml:"u_value,omitempty"`
	Glazing string `json:"glazing,omitempty" yaml:"glazing,omitempty"`
	Frame   string `json:"frame,omitempty" yaml:"frame,omitempty"`
}

type Wall struct {
	Element  `yaml:",inline"`
	Openings []Opening `json:"openings,omitempty" yaml:"openings,omitempty"`
}

type Ceiling struct {
	Element  `yaml:",inline"`
	Openings []Opening `json:"openings,omitempty" yaml:"openings,omitempty"`
}

type Vent struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty"`
	Type         string `json:"type" yaml:"type"`
	OverrideFlow Number `json:"override_flow_lps" yaml:"override_flow_lps,omitempty"`
	Notes        string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Room is one room as edited. RoomType and Volume are per-room inputs that
// travel with the geometry.
type Room struct {
	Name           string    `json:"name" yaml:"name"`
	RoomType       string    `json:"room_type,omitempty" yaml:"room_type,omitempty"`
	Length         Number    `json:"length" yaml:"length"`
	Width          Number    `json:"width" yaml:"width"`
	Height         Number    `json:"height" yaml:"height"`
	VolumeOverride Number    `json:"volume_override" yaml:"volume_override,omitempty"`
	Walls          []Wall    `json:"walls,omitempty" yaml:"walls,omitempty"`
	Floors         []Element `json:"floors,omitempty" yaml:"floors,omitempty"`
	Ceilings       []Ceiling `json:"ceilings,omitempty" yaml:"ceilings,omitempty"`
	Ventilation    []Vent    `json:"ventilation,omitempty" yaml:"ventilation,omitempty"`
}

// ToModel converts the room to engine types. Numbers are never rejected;
// unrecognised enum names are reported together and leave the zero value.
func (r Room) ToModel() (heatloss.RoomModel, heatloss.RoomType, error) {
	var errs []error
	m := heatloss.RoomModel{
		Name:           r.Name,
		Length:         r.Length.Float(),
		Width:          r.Width.Float(),
		Height:         r.Height.Float(),
		VolumeOverride: r.VolumeOverride.Ptr(),
	}
	rt := parseEnum("room_type", r.RoomType, heatloss.ParseRoomType, &errs)

	for i, w := range r.Walls {
		m.Walls = append(m.Walls, heatloss.Wall{
			Element:  w.Element.toModel(fmt.Sprintf("walls[%d]", i), &errs),
			Openings: openings(fmt.Sprintf("walls[%d]", i), w.Openings, &errs),
		})
	}
	for i, f := range r.Floors {
		m.Floors = append(m.Floors, heatloss.Floor{Element: f.toModel(fmt.Sprintf("floors[%d]", i), &errs)})
	}
	for i, c := range r.Ceilings {
		m.Ceilings = append(m.Ceilings, heatloss.Ceiling{
			Element:  c.Element.toModel(fmt.Sprintf("ceilings[%d]", i), &errs),
			Openings: openings(fmt.Sprintf("ceilings[%d]", i), c.Openings, &errs),
		})
	}
	for i, v := range r.Ventilation {
		m.Ventilation = append(m.Ventilation, heatloss.VentDevice{
			ID:           v.ID,
			Type:         parseEnum(fmt.Sprintf("ventilation[%d].type", i), v.Type, heatloss.ParseVentType, &errs),
			OverrideFlow: v.OverrideFlow.Ptr(),
			Notes:        v.Notes,
		})
	}
	return m, rt, errors.Join(errs...)
}

func (e Element) toModel(path string, errs *[]error) heatloss.Element {
	out := heatloss.Element{
		ID:       e.ID,
		Name:     e.Name,
		Adjacent: parseEnum(path+".adjacent", e.Adjacent, heatloss.ParseAdjacency, errs),
		Width:    e.Width.Float(),
		Height:   e.Height.Float(),
		UValue:   e.UValue.Ptr(),
	}
	if e.Fabric != nil {
		out.Fabric = e.Fabric.toModel(path+".fabric", errs)
	}
	return out
}

func (f Fabric) toModel(path string, errs *[]error) heatloss.Fabric {
	out := heatloss.Fabric{
		Category:              parseEnum(path+".category", f.Category, heatloss.ParseCategory, errs),
		Era:                   parseEnum(path+".age_band", f.AgeBand, heatloss.ParseAgeBand, errs),
		Construction:          parseEnum(path+".construction", f.Construction, heatloss.ParseWallConstruction, errs),
		Exposure:              parseEnum(path+".exposure", f.Exposure, heatloss.ParseExposure, errs),
		Deck:                  parseEnum(path+".deck", f.Deck, heatloss.ParseDeck, errs),
		InsulationMM:          f.InsulationMM.Ptr(),
		Basement:              f.Basement,
		IncludesGroundContact: f.IncludesGroundContact,
	}
	if f.Added != nil && f.Added.ThicknessMM.Set {
		out.Added = &heatloss.InsulationLayer{
			ThicknessMM: f.Added.ThicknessMM.V,
			Material:    parseEnum(path+".added_insulation.material", f.Added.Material, heatloss.ParseMaterial, errs),
		}
	}
	return out
}

func openings(path string, os []Opening, errs *[]error) []heatloss.Opening {
	out := make([]heatloss.Opening, 0, len(os))
	for i, o := range os {
		p := fmt.Sprintf("%s.openings[%d]", path, i)
		out = append(out, heatloss.Opening{
			ID:      o.ID,
			Kind:    parseEnum(p+".kind", o.Kind, heatloss.ParseOpeningKind, errs),
			Width:   o.Width.Float(),
			Height:  o.Height.Float(),
			UValue:  o.UValue.Ptr(),
			Glazing: parseEnum(p+".glazing", o.Glazing, heatloss.ParseGlazing, errs),
			Frame:   parseEnum(p+".frame", o.Frame, heatloss.ParseFrame, errs),
		})
	}
	return out
}

// parseEnum treats an empty string as the zero value.
func parseEnum[T any](field, s string, parse func(string) (T, error), errs *[]error) T {
	var zero T
	if strings.TrimSpace(s) == "" {
		return zero
	}
	v, err := parse(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", field, err))
		return zero
	}
	return v
}

// FromModel is the inverse of ToModel.
func FromModel(m heatloss.RoomModel, rt heatloss.RoomType) Room {
	r := Room{
		Name:           m.Name,
		Length:         Num(m.Length),
		Width:          Num(m.Width),
		Height:         Num(m.Height),
		VolumeOverride: NumberFrom(m.VolumeOverride),
	}
	if rt.Valid() {
		r.RoomType = rt.String()
	}
	for _, w := range m.Walls {
		r.Walls = append(r.Walls, Wall{Element: fromElement(w.Element), Openings: fromOpenings(w.Openings)})
	}
	for _, f := range m.Floors {
		r.Floors = append(r.Floors, fromElement(f.Element))
	}
	for _, c := range m.Ceilings {
		r.Ceilings = append(r.Ceilings, Ceiling{Element: fromElement(c.Element), Openings: fromOpenings(c.Openings)})
	}
	for _, v := range m.Ventilation {
		r.Ventilation = append(r.Ventilation, Vent{
			ID:           v.ID,
			Type:         enumName(v.Type.Valid(), v.Type),
			OverrideFlow: NumberFrom(v.OverrideFlow),
			Notes:        v.Notes,
		})
	}
	return r
}

func fromElement(e heatloss.Element) Element {
	out := Element{
		ID:       e.ID,
		Name:     e.Name,
		Adjacent: enumName(e.Adjacent.Valid(), e.Adjacent),
		Width:    Num(e.Width),
		Height:   Num(e.Height),
		UValue:   NumberFrom(e.UValue),
	}
	if e.Fabric != (heatloss.Fabric{}) {
		f := e.Fabric
		out.Fabric = &Fabric{
			Category:              enumName(f.Category != heatloss.CategoryUnspecified, f.Category),
			AgeBand:               enumName(f.Era.Valid(), f.Era),
			Construction:          enumName(f.Construction != heatloss.WallUnknown, f.Construction),
			Exposure:              enumName(f.Exposure != heatloss.ExposureUnknown, f.Exposure),
			Deck:                  enumName(f.Deck != heatloss.DeckUnknown, f.Deck),
			InsulationMM:          NumberFrom(f.InsulationMM),
			Basement:              f.Basement,
			IncludesGroundContact: f.IncludesGroundContact,
		}
		if f.Added != nil {
			out.Fabric.Added = &Insulation{
				ThicknessMM: Num(f.Added.ThicknessMM),
				Material:    enumName(f.Added.Material != heatloss.MaterialUnknown, f.Added.Material),
			}
		}
	}
	return out
}

func fromOpenings(os []heatloss.Opening) []Opening {
	var out []Opening
	for _, o := range os {
		out = append(out, Opening{
			ID:      o.ID,
			Kind:    enumName(o.Kind.Valid(), o.Kind),
			Width:   Num(o.Width),
			Height:  Num(o.Height),
			UValue:  NumberFrom(o.UValue),
			Glazing: enumName(o.Glazing != heatloss.GlazingUnknown, o.Glazing),
			Frame:   enumName(o.Frame != heatloss.FrameUnknown, o.Frame),
		})
	}
	return out
}

func enumName(ok bool, v fmt.Stringer) string {
	if !ok {
		return ""
	}
	return v.String()
}

// Model converts a single element, e.g. for a U-value suggestion.
func (e Element) Model() (heatloss.Element, error) {
	var errs []error
	m := e.toModel("element", &errs)
	return m, errors.Join(errs...)
}

func (o Opening) Model() (heatloss.Opening, error) {
	var errs []error
	m := openings("element", []Opening{o}, &errs)[0]
	return m, errors.Join(errs...)
}
