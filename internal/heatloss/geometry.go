package heatloss

import (
	"math"

	"github.com/samber/lo"
)

// Element is the shape shared by walls, floors and ceilings.
type Element struct {
	ID       string
	Name     string
	Adjacent Adjacency
	Width    float64
	Height   float64
	UValue   *float64
	Fabric   Fabric
}

// GrossArea is width×height with both sides coerced to finite non-negative values.
func (e Element) GrossArea() float64 {
	return area(e.Width, e.Height)
}

type Opening struct {
	ID      string
	Kind    OpeningKind
	Width   float64
	Height  float64
	UValue  *float64
	Glazing Glazing
	Frame   Frame
}

func (o Opening) Area() float64 {
	return area(o.Width, o.Height)
}

type Wall struct {
	Element
	Openings []Opening
}

func (w Wall) OpeningsArea() float64 { return openingsArea(w.Openings) }

// NetArea never exceeds GrossArea and is never negative.
func (w Wall) NetArea() float64 { return netArea(w.GrossArea(), w.Openings) }

type Floor struct {
	Element
}

type Ceiling struct {
	Element
	Openings []Opening
}

func (c Ceiling) OpeningsArea() float64 { return openingsArea(c.Openings) }

func (c Ceiling) NetArea() float64 { return netArea(c.GrossArea(), c.Openings) }

func (c Ceiling) Validate() error {
	if c.Adjacent == AdjacencyGround {
		return ErrCeilingOnGround
	}
	return nil
}

type VentDevice struct {
	ID           string
	Type         VentType
	OverrideFlow *float64 // L/s
	Notes        string
}

// RoomModel describes one room as handed over by the editor.
type RoomModel struct {
	Name           string
	Length         float64
	Width          float64
	Height         float64
	VolumeOverride *float64
	Walls          []Wall
	Floors         []Floor
	Ceilings       []Ceiling
	Ventilation    []VentDevice
}

// Volume returns the override when it is a finite number, else length×width×height.
func (r RoomModel) Volume() float64 {
	if r.VolumeOverride != nil && isFinite(*r.VolumeOverride) {
		return nonNeg(*r.VolumeOverride)
	}
	return finite(nonNeg(r.Length) * nonNeg(r.Width) * nonNeg(r.Height))
}

func (r RoomModel) Validate() error {
	for _, c := range r.Ceilings {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// area overflows to 0 like any other non-finite number.
func area(w, h float64) float64 {
	return finite(nonNeg(w) * nonNeg(h))
}

func openingsArea(os []Opening) float64 {
	return finite(lo.SumBy(os, func(o Opening) float64 { return o.Area() }))
}

func netArea(gross float64, os []Opening) float64 {
	return math.Max(0, gross-openingsArea(os))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// finite maps NaN and ±Inf to 0.
func finite(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}

func nonNeg(v float64) float64 {
	return math.Max(0, finite(v))
}
