package survey

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Agrid-Dev/heatlosscalc/internal/climate"
	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
)

func ptr(v float64) *float64 { return &v }

func defaultConditions() Conditions {
	return Conditions{IndoorC: 21, OutdoorC: -3, Policy: heatloss.PolicyMax, AgeBand: heatloss.AgeBandD}
}

func newSurvey(t *testing.T, opts ...Option) *Survey {
	t.Helper()
	s, err := New(defaultConditions(), append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)
	return s
}

func box(name string, u float64) heatloss.RoomInput {
	return heatloss.RoomInput{
		RoomType: heatloss.RoomBedroom,
		Room: heatloss.RoomModel{
			Name: name, Length: 3, Width: 3, Height: 2.5,
			Walls: []heatloss.Wall{{
				Element:  heatloss.Element{Adjacent: heatloss.AdjacencyExterior, Width: 3, Height: 2.5, UValue: &u},
				Openings: []heatloss.Opening{{Kind: heatloss.OpeningWindow, Width: 1, Height: 1}},
			}},
			Floors:      []heatloss.Floor{{Element: heatloss.Element{ID: "keep-me", Adjacent: heatloss.AdjacencyInteriorHeated}}},
			Ventilation: []heatloss.VentDevice{{Type: heatloss.VentTrickle}},
		},
	}
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Conditions)
		want error
	}{
		{"nan indoor", func(c *Conditions) { c.IndoorC = math.NaN() }, ErrInvalidTemperature},
		{"absurd outdoor", func(c *Conditions) { c.OutdoorC = -200 }, ErrInvalidTemperature},
		{"bad policy", func(c *Conditions) { c.Policy = heatloss.Policy(9) }, heatloss.ErrInvalidPolicy},
		{"no age band", func(c *Conditions) { c.AgeBand = heatloss.AgeBandUnknown }, ErrInvalidAgeBand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaultConditions()
			tt.mod(&c)
			_, err := New(c)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	s := newSurvey(t)
	assert.Equal(t, SourceConfig, s.Get().OutdoorSource)
}

func TestSetters(t *testing.T) {
	s := newSurvey(t)

	require.NoError(t, s.SetIndoorTemperature(19.5))
	require.NoError(t, s.SetOutdoorTemperature(-5))
	require.NoError(t, s.SetPolicy(heatloss.PolicySum))
	require.NoError(t, s.SetAgeBand(heatloss.AgeBandK))

	got := s.Get()
	assert.Equal(t, 19.5, got.IndoorC)
	assert.Equal(t, -5.0, got.OutdoorC)
	assert.Equal(t, SourceManual, got.OutdoorSource)
	assert.Equal(t, heatloss.PolicySum, got.Policy)
	assert.Equal(t, heatloss.AgeBandK, got.AgeBand)

	assert.ErrorIs(t, s.SetIndoorTemperature(math.Inf(1)), ErrInvalidTemperature)
	assert.ErrorIs(t, s.SetPolicy(heatloss.Policy(-1)), heatloss.ErrInvalidPolicy)
	assert.ErrorIs(t, s.SetAgeBand(heatloss.AgeBand(42)), ErrInvalidAgeBand)
	assert.Equal(t, 19.5, s.Get().IndoorC)
}

func TestPutRoomAssignsIDsAndReplacesByName(t *testing.T) {
	s := newSurvey(t)

	stored, err := s.PutRoom(box("  Bed 1 ", 1.6))
	require.NoError(t, err)
	assert.Equal(t, "Bed 1", stored.Room.Name)
	assert.NotEmpty(t, stored.Room.Walls[0].ID)
	assert.NotEmpty(t, stored.Room.Walls[0].Openings[0].ID)
	assert.NotEmpty(t, stored.Room.Ventilation[0].ID)
	assert.Equal(t, "keep-me", stored.Room.Floors[0].ID)

	_, err = s.PutRoom(box("Bed 2", 1.6))
	require.NoError(t, err)
	_, err = s.PutRoom(box("Bed 1", 0.3))
	require.NoError(t, err)

	rooms := s.Get().Rooms
	require.Len(t, rooms, 2)
	assert.Equal(t, "Bed 1", rooms[0].Room.Name, "replacement keeps position")
	assert.Equal(t, 0.3, *rooms[0].Room.Walls[0].UValue)
}

func TestPutRoomDoesNotMutateCaller(t *testing.T) {
	s := newSurvey(t)
	in := box("Bed", 1)
	_, err := s.PutRoom(in)
	require.NoError(t, err)
	assert.Empty(t, in.Room.Walls[0].ID)
}

func TestPutRoomRejects(t *testing.T) {
	s := newSurvey(t)

	_, err := s.PutRoom(box("   ", 1))
	assert.ErrorIs(t, err, ErrEmptyRoomName)

	r := box("Cellar", 1)
	r.Room.Ceilings = []heatloss.Ceiling{{Element: heatloss.Element{Adjacent: heatloss.AdjacencyGround}}}
	_, err = s.PutRoom(r)
	assert.ErrorIs(t, err, heatloss.ErrCeilingOnGround)
	assert.Empty(t, s.Get().Rooms)
}

func TestDeleteRoom(t *testing.T) {
	s := newSurvey(t)
	_, _ = s.PutRoom(box("A", 1))
	_, _ = s.PutRoom(box("B", 1))

	require.NoError(t, s.DeleteRoom("A"))
	assert.ErrorIs(t, s.DeleteRoom("A"), ErrRoomNotFound)

	_, ok := s.Room("B")
	assert.True(t, ok)
	assert.Len(t, s.Get().Rooms, 1)
}

type countingRecorder struct {
	rooms     int
	buildings int
	totalW    float64
}

func (c *countingRecorder) RoomComputed() { c.rooms++ }

func (c *countingRecorder) BuildingComputed(_, _, total float64) {
	c.buildings++
	c.totalW = total
}

func TestBreakdown(t *testing.T) {
	rec := &countingRecorder{}
	s := newSurvey(t, WithRecorder(rec))
	_, _ = s.PutRoom(box("A", 1))
	_, _ = s.PutRoom(box("B", 2))

	b := s.Breakdown()
	require.Len(t, b.Rooms, 2)
	// wall net area 6.5 m², ΔT 24: A is 156 W, B is 312 W, plus the windows
	assert.InDelta(t, 156.0, b.Rooms[0].WallsW, 1e-9)
	assert.InDelta(t, 312.0, b.Rooms[1].WallsW, 1e-9)
	assert.InDelta(t, b.Rooms[0].TotalW+b.Rooms[1].TotalW, b.TotalW, 1e-9)
	assert.Equal(t, 2, rec.rooms)
	assert.Equal(t, 1, rec.buildings)
	assert.Equal(t, b.TotalW, rec.totalW)

	one, err := s.RoomBreakdown("B")
	require.NoError(t, err)
	assert.Equal(t, b.Rooms[1], one)

	_, err = s.RoomBreakdown("nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

type stubResolver struct {
	mu      sync.Mutex
	results map[string]climate.Resolution
	started chan struct{}
}

func (r *stubResolver) Resolve(ctx context.Context, q climate.Query) climate.Resolution {
	if q.Postcode == "SLOW" {
		close(r.started)
		<-ctx.Done()
		return climate.Resolution{Postcode: "SLOW", Result: climate.Result{DesignTemp: ptr(-12)}}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[climate.NormalizePostcode(q.Postcode)]
}

func TestSetPostcodeApplies(t *testing.T) {
	res := &stubResolver{results: map[string]climate.Resolution{
		"EH11YZ": {
			Postcode: "EH11YZ",
			Result:   climate.Result{DesignTemp: ptr(-3.4), HDD: ptr(2550)},
			Source:   map[string]string{"design_temp": "table", "hdd": "table"},
		},
		"ZZ11ZZ": {Postcode: "ZZ11ZZ"},
	}}
	s := newSurvey(t, WithResolver(res))

	_, err := s.SetPostcode(context.Background(), "eh1 1yz")
	require.NoError(t, err)
	got := s.Get()
	assert.Equal(t, "EH11YZ", got.Postcode)
	assert.Equal(t, -3.4, got.OutdoorC)
	assert.Equal(t, "table", got.OutdoorSource)
	require.NotNil(t, got.HDD)
	assert.Equal(t, 2550.0, *got.HDD)

	_, err = s.SetPostcode(context.Background(), "ZZ1 1ZZ")
	require.NoError(t, err)
	got = s.Get()
	assert.Equal(t, "ZZ11ZZ", got.Postcode)
	assert.Equal(t, -3.4, got.OutdoorC, "unresolved fields keep their values")
	assert.Equal(t, 2550.0, *got.HDD)
}

func TestSetPostcodeWithoutResolver(t *testing.T) {
	s := newSurvey(t)
	_, err := s.SetPostcode(context.Background(), "EH1 1YZ")
	assert.ErrorIs(t, err, ErrNoResolver)
}

func TestSetPostcodeLatestWins(t *testing.T) {
	res := &stubResolver{
		started: make(chan struct{}),
		results: map[string]climate.Resolution{
			"M11AE": {Postcode: "M11AE", Result: climate.Result{DesignTemp: ptr(-2.2)}, Source: map[string]string{"design_temp": "table"}},
		},
	}
	s := newSurvey(t, WithResolver(res))

	slowErr := make(chan error, 1)
	go func() {
		_, err := s.SetPostcode(context.Background(), "SLOW")
		slowErr <- err
	}()
	<-res.started

	_, err := s.SetPostcode(context.Background(), "M1 1AE")
	require.NoError(t, err)

	assert.ErrorIs(t, <-slowErr, ErrSuperseded)
	got := s.Get()
	assert.Equal(t, "M11AE", got.Postcode)
	assert.Equal(t, -2.2, got.OutdoorC)
}

func TestGetReturnsCopy(t *testing.T) {
	s, err := New(Conditions{IndoorC: 20, AgeBand: heatloss.AgeBandA, HDD: ptr(2000)})
	require.NoError(t, err)
	_, _ = s.PutRoom(box("A", 1))

	snap := s.Get()
	*snap.HDD = 1
	snap.Rooms[0].RoomType = heatloss.RoomKitchen

	again := s.Get()
	assert.Equal(t, 2000.0, *again.HDD)
	assert.Equal(t, heatloss.RoomBedroom, again.Rooms[0].RoomType)
}
