// Package survey keeps the working copy of one dwelling survey: shared design
// conditions and the rooms being edited.
package survey

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/heatlosscalc/internal/climate"
	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
)

// TemperatureLimit bounds accepted design temperatures in °C.
const TemperatureLimit = 60.0

// Source labels for the outdoor design temperature.
const (
	SourceConfig = "config"
	SourceManual = "manual"
)

type Conditions struct {
	IndoorC       float64
	OutdoorC      float64
	OutdoorSource string
	Policy        heatloss.Policy
	AgeBand       heatloss.AgeBand
	Postcode      string
	HDD           *float64
}

type Snapshot struct {
	Conditions
	Rooms []heatloss.RoomInput
}

// ClimateResolver is satisfied by *climate.Resolver.
type ClimateResolver interface {
	Resolve(ctx context.Context, q climate.Query) climate.Resolution
}

// Recorder receives computation events; *metrics.Metrics implements it.
type Recorder interface {
	RoomComputed()
	BuildingComputed(transmissionW, ventilationW, totalW float64)
}

type Survey struct {
	mu    sync.RWMutex
	c     Conditions
	rooms []heatloss.RoomInput

	resolver ClimateResolver
	rec      Recorder
	logger   *zap.Logger

	// postcode lookups: only the latest generation may apply its result
	gen    uint64
	cancel context.CancelFunc
}

type Option func(*Survey)

func WithResolver(r ClimateResolver) Option { return func(s *Survey) { s.resolver = r } }

func WithRecorder(r Recorder) Option { return func(s *Survey) { s.rec = r } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Survey) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(initial Conditions, opts ...Option) (*Survey, error) {
	if err := validateConditions(initial); err != nil {
		return nil, err
	}
	if initial.OutdoorSource == "" {
		initial.OutdoorSource = SourceConfig
	}
	initial.Postcode = climate.NormalizePostcode(initial.Postcode)
	initial.HDD = clonePtr(initial.HDD)
	s := &Survey{c: initial, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func validateConditions(c Conditions) error {
	if err := ValidateTemperature(c.IndoorC); err != nil {
		return fmt.Errorf("indoor: %w", err)
	}
	if err := ValidateTemperature(c.OutdoorC); err != nil {
		return fmt.Errorf("outdoor: %w", err)
	}
	if !c.Policy.Valid() {
		return heatloss.ErrInvalidPolicy
	}
	if !c.AgeBand.Valid() {
		return ErrInvalidAgeBand
	}
	return nil
}

// ValidateTemperature rejects non-finite values and anything beyond TemperatureLimit.
func ValidateTemperature(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > TemperatureLimit {
		return ErrInvalidTemperature
	}
	return nil
}

// Get returns a deep copy of the current state.
func (s *Survey) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.c
	c.HDD = clonePtr(c.HDD)
	return Snapshot{Conditions: c, Rooms: slices.Clone(s.rooms)}
}

func (s *Survey) SetIndoorTemperature(v float64) error {
	if err := ValidateTemperature(v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.IndoorC = v
	return nil
}

// SetOutdoorTemperature records a manual override of the design temperature.
func (s *Survey) SetOutdoorTemperature(v float64) error {
	if err := ValidateTemperature(v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.OutdoorC = v
	s.c.OutdoorSource = SourceManual
	return nil
}

func (s *Survey) SetPolicy(p heatloss.Policy) error {
	if !p.Valid() {
		return heatloss.ErrInvalidPolicy
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Policy = p
	return nil
}

func (s *Survey) SetAgeBand(b heatloss.AgeBand) error {
	if !b.Valid() {
		return ErrInvalidAgeBand
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.AgeBand = b
	return nil
}

// PutRoom inserts or replaces a room by name. Elements, openings and devices
// without an ID get a fresh one.
func (s *Survey) PutRoom(r heatloss.RoomInput) (heatloss.RoomInput, error) {
	r.Room.Name = strings.TrimSpace(r.Room.Name)
	if r.Room.Name == "" {
		return r, ErrEmptyRoomName
	}
	if err := r.Room.Validate(); err != nil {
		return r, err
	}
	r = withIDs(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, i, ok := lo.FindIndexOf(s.rooms, byName(r.Room.Name)); ok {
		s.rooms[i] = r
	} else {
		s.rooms = append(s.rooms, r)
	}
	return r, nil
}

func (s *Survey) DeleteRoom(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, i, ok := lo.FindIndexOf(s.rooms, byName(strings.TrimSpace(name)))
	if !ok {
		return ErrRoomNotFound
	}
	s.rooms = slices.Delete(s.rooms, i, i+1)
	return nil
}

func (s *Survey) Room(name string) (heatloss.RoomInput, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Find(s.rooms, byName(strings.TrimSpace(name)))
}

// RoomBreakdown computes one room under the current conditions.
func (s *Survey) RoomBreakdown(name string) (heatloss.RoomLossBreakdown, error) {
	snap := s.Get()
	r, ok := lo.Find(snap.Rooms, byName(strings.TrimSpace(name)))
	if !ok {
		return heatloss.RoomLossBreakdown{}, ErrRoomNotFound
	}
	b := heatloss.ComputeRoomLoss(r.Room, snap.inputs(r))
	if s.rec != nil {
		s.rec.RoomComputed()
	}
	return b, nil
}

// Breakdown computes every room under the current conditions.
func (s *Survey) Breakdown() heatloss.BuildingBreakdown {
	snap := s.Get()
	b := heatloss.ComputeBuildingLoss(snap.Rooms, snap.IndoorC, snap.OutdoorC, snap.AgeBand, snap.Policy)
	if s.rec != nil {
		for range b.Rooms {
			s.rec.RoomComputed()
		}
		s.rec.BuildingComputed(b.TransmissionW, b.VentilationW, b.TotalW)
	}
	return b
}

// SetPostcode resolves design conditions for the postcode and applies them.
// A call that is overtaken by a newer one has its context cancelled and its
// result discarded with ErrSuperseded. Fields the resolver could not
// determine leave the current values untouched.
func (s *Survey) SetPostcode(ctx context.Context, postcode string) (climate.Resolution, error) {
	if s.resolver == nil {
		return climate.Resolution{}, ErrNoResolver
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	res := s.resolver.Resolve(ctx, climate.Query{Postcode: postcode})

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.Debug("discarding superseded climate result", zap.String("postcode", res.Postcode))
		return res, ErrSuperseded
	}
	s.cancel = nil
	s.c.Postcode = res.Postcode
	if dt := res.Result.DesignTemp; dt != nil {
		s.c.OutdoorC = *dt
		s.c.OutdoorSource = res.Source["design_temp"]
	}
	if res.Result.HDD != nil {
		s.c.HDD = clonePtr(res.Result.HDD)
	}
	s.logger.Info("applied climate resolution",
		zap.String("postcode", res.Postcode),
		zap.Float64p("design_temp", res.Result.DesignTemp),
		zap.Float64p("hdd", res.Result.HDD),
	)
	return res, nil
}

func (snap Snapshot) inputs(r heatloss.RoomInput) heatloss.Inputs {
	return heatloss.Inputs{
		IndoorC:  snap.IndoorC,
		OutdoorC: snap.OutdoorC,
		VolumeM3: r.VolumeM3,
		AgeBand:  snap.AgeBand,
		RoomType: r.RoomType,
		Policy:   snap.Policy,
	}
}

func byName(name string) func(heatloss.RoomInput) bool {
	return func(r heatloss.RoomInput) bool { return r.Room.Name == name }
}

func withIDs(r heatloss.RoomInput) heatloss.RoomInput {
	m := r.Room
	m.Walls = slices.Clone(m.Walls)
	for i := range m.Walls {
		ensureID(&m.Walls[i].ID)
		m.Walls[i].Openings = openingIDs(m.Walls[i].Openings)
	}
	m.Floors = slices.Clone(m.Floors)
	for i := range m.Floors {
		ensureID(&m.Floors[i].ID)
	}
	m.Ceilings = slices.Clone(m.Ceilings)
	for i := range m.Ceilings {
		ensureID(&m.Ceilings[i].ID)
		m.Ceilings[i].Openings = openingIDs(m.Ceilings[i].Openings)
	}
	m.Ventilation = slices.Clone(m.Ventilation)
	for i := range m.Ventilation {
		ensureID(&m.Ventilation[i].ID)
	}
	r.Room = m
	return r
}

func openingIDs(os []heatloss.Opening) []heatloss.Opening {
	os = slices.Clone(os)
	for i := range os {
		ensureID(&os[i].ID)
	}
	return os
}

func ensureID(id *string) {
	if strings.TrimSpace(*id) == "" {
		*id = uuid.NewString()
	}
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
