// Package climate resolves a postcode to a design external temperature and
// heating degree days through an ordered pipeline of best-effort steps.
package climate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Observer is notified of each step outcome ("ok", "skipped", "failed").
type Observer interface {
	StepOutcome(step, outcome string)
}

// Query is one resolution request.
type Query struct {
	Postcode string
	LatLon   string // optional "<lat>,<lon>" override
}

// Resolution is the pipeline output with provenance for each field.
type Resolution struct {
	Postcode string            `json:"postcode"`
	Result   Result            `json:"result"`
	Source   map[string]string `json:"source,omitempty"`
	Location *LatLon           `json:"-"`
}

type Resolver struct {
	steps       []Step
	stepTimeout time.Duration
	logger      *zap.Logger
	obs         Observer
}

type Option func(*Resolver)

func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(r *Resolver) { r.obs = o }
}

// WithStepTimeout bounds each step; retries happen inside the HTTP clients.
func WithStepTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.stepTimeout = d }
}

func NewResolver(steps []Step, opts ...Option) *Resolver {
	r := &Resolver{steps: steps, stepTimeout: 10 * time.Second, logger: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve never fails: fields that cannot be determined are left nil.
func (r *Resolver) Resolve(ctx context.Context, q Query) Resolution {
	st := &State{Postcode: NormalizePostcode(q.Postcode)}
	log := r.logger.With(zap.String("postcode", st.Postcode))

	if q.LatLon != "" {
		ll, err := ParseLatLon(q.LatLon)
		if err != nil {
			log.Warn("ignoring lat,lon override", zap.Error(err))
		} else {
			st.Override = &ll
		}
	}

	for _, s := range r.steps {
		if st.Result.Complete() || ctx.Err() != nil {
			break
		}
		err := r.run(ctx, s, st)
		switch {
		case err == nil:
			r.outcome(s.Name(), "ok")
			log.Debug("climate step ok", zap.String("step", s.Name()))
		case errors.Is(err, ErrSkipped):
			r.outcome(s.Name(), "skipped")
		default:
			r.outcome(s.Name(), "failed")
			log.Warn("climate step failed", zap.String("step", s.Name()), zap.Error(err))
		}
	}

	return Resolution{
		Postcode: st.Postcode,
		Result:   st.Result,
		Source:   st.Source,
		Location: st.Location,
	}
}

func (r *Resolver) run(ctx context.Context, s Step, st *State) (err error) {
	if r.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.stepTimeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("step %s panicked: %v", s.Name(), p)
		}
	}()
	return s.Run(ctx, st)
}

func (r *Resolver) outcome(step, outcome string) {
	if r.obs != nil {
		r.obs.StepOutcome(step, outcome)
	}
}

// Sources are the collaborators available to BuildSteps.
type Sources struct {
	Table     *Table
	Geocoders []Geocoder
	Normals   NormalsSource
	Elevation ElevationSource
}

// BuildSteps assembles steps in the given order by name.
func BuildSteps(order []string, src Sources) ([]Step, error) {
	if len(order) == 0 {
		order = DefaultOrder
	}
	steps := make([]Step, 0, len(order))
	for _, name := range order {
		switch name {
		case StepTable:
			steps = append(steps, TableStep{Table: src.Table})
		case StepGeocode:
			steps = append(steps, GeocodeStep{Geocoders: src.Geocoders})
		case StepNormals:
			steps = append(steps, NormalsStep{Source: src.Normals})
		case StepElevation:
			steps = append(steps, ElevationStep{Source: src.Elevation})
		case StepDesignTemp:
			steps = append(steps, DesignTempStep{})
		case StepHDD:
			steps = append(steps, HDDStep{})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownStep, name)
		}
	}
	return steps, nil
}
