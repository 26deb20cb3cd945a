package climate

import (
	"context"
	"errors"
	"fmt"
)

// State is shared by the steps of one resolution.
type State struct {
	Postcode string
	Override *LatLon

	Result Result
	Source map[string]string // field -> step that supplied it

	Location  *LatLon
	Normals   *Normals
	Elevation *float64
}

func (s *State) supply(step string, r Result) {
	if s.Source == nil {
		s.Source = make(map[string]string)
	}
	if s.Result.DesignTemp == nil && r.DesignTemp != nil {
		s.Source["design_temp"] = step
	}
	if s.Result.HDD == nil && r.HDD != nil {
		s.Source["hdd"] = step
	}
	s.Result.fill(r)
}

// Step is one independent stage of the resolver pipeline. A step returning
// ErrSkipped had nothing to do; any other error is a failure that the
// resolver logs before moving on.
type Step interface {
	Name() string
	Run(ctx context.Context, st *State) error
}

var ErrSkipped = errors.New("step skipped")

const (
	StepTable      = "table"
	StepGeocode    = "geocode"
	StepNormals    = "normals"
	StepElevation  = "elevation"
	StepDesignTemp = "design_temp"
	StepHDD        = "hdd"
)

// DefaultOrder is the standard pipeline.
var DefaultOrder = []string{StepTable, StepGeocode, StepNormals, StepElevation, StepDesignTemp, StepHDD}

type TableStep struct {
	Table *Table
}

func (TableStep) Name() string { return StepTable }

func (s TableStep) Run(_ context.Context, st *State) error {
	if s.Table == nil || st.Postcode == "" {
		return ErrSkipped
	}
	r, _, ok := s.Table.Lookup(CandidateKeys(st.Postcode))
	if !ok {
		return fmt.Errorf("table: %w", ErrNotFound)
	}
	st.supply(StepTable, r)
	return nil
}

// GeocodeStep uses an explicit override when given, else tries each geocoder
// in turn.
type GeocodeStep struct {
	Geocoders []Geocoder
}

func (GeocodeStep) Name() string { return StepGeocode }

func (s GeocodeStep) Run(ctx context.Context, st *State) error {
	if st.Location != nil {
		return ErrSkipped
	}
	if st.Override != nil {
		loc := *st.Override
		st.Location = &loc
		return nil
	}
	if st.Postcode == "" || len(s.Geocoders) == 0 {
		return ErrSkipped
	}
	var errs []error
	for _, g := range s.Geocoders {
		loc, err := g.Geocode(ctx, st.Postcode)
		if err == nil {
			st.Location = &loc
			return nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

type NormalsStep struct {
	Source NormalsSource
}

func (NormalsStep) Name() string { return StepNormals }

func (s NormalsStep) Run(ctx context.Context, st *State) error {
	if s.Source == nil || st.Normals != nil {
		return ErrSkipped
	}
	if st.Location == nil {
		return fmt.Errorf("normals: %w", ErrNoLocation)
	}
	n, err := s.Source.Normals(ctx, *st.Location)
	if err != nil {
		return err
	}
	st.Normals = &n
	if st.Elevation == nil && n.Elevation != nil {
		e := *n.Elevation
		st.Elevation = &e
	}
	return nil
}

// ElevationStep is only needed when the design temperature is still missing.
type ElevationStep struct {
	Source ElevationSource
}

func (ElevationStep) Name() string { return StepElevation }

func (s ElevationStep) Run(ctx context.Context, st *State) error {
	if s.Source == nil || st.Elevation != nil || st.Result.DesignTemp != nil {
		return ErrSkipped
	}
	if st.Location == nil {
		return fmt.Errorf("elevation: %w", ErrNoLocation)
	}
	e, err := s.Source.Elevation(ctx, *st.Location)
	if err != nil {
		return err
	}
	st.Elevation = &e
	return nil
}

// DesignTempStep derives the design temperature from winter minima. Without
// a known elevation no altitude correction is applied.
type DesignTempStep struct{}

func (DesignTempStep) Name() string { return StepDesignTemp }

func (DesignTempStep) Run(_ context.Context, st *State) error {
	if st.Result.DesignTemp != nil {
		return ErrSkipped
	}
	if st.Normals == nil {
		return fmt.Errorf("design temp: %w", ErrNoNormals)
	}
	var elev float64
	if st.Elevation != nil {
		elev = *st.Elevation
	}
	v := DesignTempFromNormals(*st.Normals, elev)
	st.supply(StepDesignTemp, Result{DesignTemp: &v})
	return nil
}

type HDDStep struct{}

func (HDDStep) Name() string { return StepHDD }

func (HDDStep) Run(_ context.Context, st *State) error {
	if st.Result.HDD != nil {
		return ErrSkipped
	}
	if st.Normals == nil {
		return fmt.Errorf("hdd: %w", ErrNoNormals)
	}
	v := HDDFromNormals(*st.Normals)
	st.supply(StepHDD, Result{HDD: &v})
	return nil
}
