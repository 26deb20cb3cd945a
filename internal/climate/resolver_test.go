package climate

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingObserver struct {
	mu   sync.Mutex
	seen map[string]string
}

func (o *recordingObserver) StepOutcome(step, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seen == nil {
		o.seen = make(map[string]string)
	}
	o.seen[step] = outcome
}

func defaultTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := DefaultTable()
	require.NoError(t, err)
	return tbl
}

func remoteSources(t *testing.T, api *fakeAPI, tbl *Table) Sources {
	t.Helper()
	return Sources{
		Table: tbl,
		Geocoders: []Geocoder{
			NewPostcodeLookup(api.srv.URL, testClient),
			NewAddressSearch(api.srv.URL, "gb", testClient),
		},
		Normals:   NewPowerClimatology(api.srv.URL, testClient),
		Elevation: NewOpenMeteoElevation(api.srv.URL, testClient),
	}
}

func newTestResolver(t *testing.T, src Sources, obs Observer) *Resolver {
	t.Helper()
	steps, err := BuildSteps(nil, src)
	require.NoError(t, err)
	return NewResolver(steps, WithLogger(zaptest.NewLogger(t)), WithObserver(obs))
}

func TestResolveFromTableOnly(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /postcodes/{pc}": postcodeOK(51.5, -0.14),
	})
	obs := &recordingObserver{}
	r := newTestResolver(t, remoteSources(t, api, defaultTable(t)), obs)

	res := r.Resolve(context.Background(), Query{Postcode: "sw1a 1aa"})

	assert.Equal(t, "SW1A1AA", res.Postcode)
	require.True(t, res.Result.Complete())
	assert.Equal(t, -1.8, *res.Result.DesignTemp)
	assert.Equal(t, 1950.0, *res.Result.HDD)
	assert.Equal(t, map[string]string{"design_temp": StepTable, "hdd": StepTable}, res.Source)
	assert.Zero(t, api.count("GET /postcodes/{pc}"), "no remote call once the table answers")
	assert.Equal(t, map[string]string{StepTable: "ok"}, obs.seen)
}

func TestResolvePartialTableFilledRemotely(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /postcodes/{pc}":                 postcodeOK(54.0, -1.6),
		"GET /api/temporal/climatology/point": powerOK(5.5, -1, -1.6, 54.0),
		"GET /v1/elevation":                   status(500),
	})
	r := newTestResolver(t, remoteSources(t, api, defaultTable(t)), nil)

	res := r.Resolve(context.Background(), Query{Postcode: "HG3 4AB"})

	require.True(t, res.Result.Complete())
	assert.Equal(t, -4.7, *res.Result.DesignTemp, "table value is kept")
	assert.Equal(t, 3650.0, *res.Result.HDD)
	assert.Equal(t, StepTable, res.Source["design_temp"])
	assert.Equal(t, StepHDD, res.Source["hdd"])
	assert.Zero(t, api.count("GET /v1/elevation"))
}

func TestResolveRemoteFallbackChain(t *testing.T) {
	search := func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, []map[string]string{{"lat": "57.1", "lon": "-2.1"}})
	}
	elevation := func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"elevation": []float64{120}})
	}
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /postcodes/{pc}":                 status(404),
		"GET /search":                         search,
		"GET /api/temporal/climatology/point": powerOK(20, 0, -2.1, 57.1),
		"GET /v1/elevation":                   elevation,
	})
	obs := &recordingObserver{}
	r := newTestResolver(t, remoteSources(t, api, defaultTable(t)), obs)

	res := r.Resolve(context.Background(), Query{Postcode: "ZZ1 1ZZ"})

	require.True(t, res.Result.Complete())
	// 0 - 2 - 0.78 = -2.78
	assert.Equal(t, -3.0, *res.Result.DesignTemp)
	assert.Equal(t, 0.0, *res.Result.HDD)
	require.NotNil(t, res.Location)
	assert.Equal(t, LatLon{Lat: 57.1, Lon: -2.1}, *res.Location)
	assert.Equal(t, int32(1), api.count("GET /postcodes/{pc}"))
	assert.Equal(t, "failed", obs.seen[StepTable])
	assert.Equal(t, "ok", obs.seen[StepElevation])
}

func TestResolveNormalsElevationSkipsElevationAPI(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /postcodes/{pc}":                 postcodeOK(53.25, -1.9),
		"GET /api/temporal/climatology/point": powerOK(6, -1, -1.9, 53.25, 300),
		"GET /v1/elevation":                   status(500),
	})
	r := newTestResolver(t, remoteSources(t, api, nil), nil)

	res := r.Resolve(context.Background(), Query{Postcode: "DE45 1AA"})

	// -1 - 2 - 1.95 = -4.95
	require.NotNil(t, res.Result.DesignTemp)
	assert.Equal(t, -5.0, *res.Result.DesignTemp)
	assert.Zero(t, api.count("GET /v1/elevation"))
}

func TestResolveAllFailuresLeaveFieldsAbsent(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /postcodes/{pc}":                 status(500),
		"GET /search":                         status(500),
		"GET /api/temporal/climatology/point": status(500),
		"GET /v1/elevation":                   status(500),
	})
	obs := &recordingObserver{}
	r := newTestResolver(t, remoteSources(t, api, NewTable(nil)), obs)

	res := r.Resolve(context.Background(), Query{Postcode: "ZZ1 1ZZ"})

	assert.Nil(t, res.Result.DesignTemp)
	assert.Nil(t, res.Result.HDD)
	assert.Nil(t, res.Location)
	assert.Equal(t, "failed", obs.seen[StepGeocode])
	assert.Equal(t, "failed", obs.seen[StepNormals])
	assert.Equal(t, "failed", obs.seen[StepHDD])
}

func TestResolveLatLonOverride(t *testing.T) {
	normals := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "52.0000", r.URL.Query().Get("latitude"))
		powerOK(10, 1, 1.0, 52.0, 0)(w, r)
	}
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /postcodes/{pc}":                 postcodeOK(0, 0),
		"GET /api/temporal/climatology/point": normals,
	})
	r := newTestResolver(t, remoteSources(t, api, nil), nil)

	res := r.Resolve(context.Background(), Query{Postcode: "ZZ1 1ZZ", LatLon: "52,1"})

	require.True(t, res.Result.Complete())
	assert.Zero(t, api.count("GET /postcodes/{pc}"))
	assert.Equal(t, LatLon{Lat: 52, Lon: 1}, *res.Location)
}

func TestResolveInvalidOverrideIsIgnored(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /postcodes/{pc}":                 postcodeOK(52, 1),
		"GET /api/temporal/climatology/point": powerOK(10, 1, 1.0, 52.0, 0),
	})
	r := newTestResolver(t, remoteSources(t, api, nil), nil)

	res := r.Resolve(context.Background(), Query{Postcode: "ZZ1 1ZZ", LatLon: "north,south"})

	require.True(t, res.Result.Complete())
	assert.Equal(t, int32(1), api.count("GET /postcodes/{pc}"))
}

type stepFunc struct {
	name string
	fn   func(context.Context, *State) error
}

func (s stepFunc) Name() string { return s.name }

func (s stepFunc) Run(ctx context.Context, st *State) error { return s.fn(ctx, st) }

func TestResolveRecoversPanickingStep(t *testing.T) {
	hdd := 2000.0
	obs := &recordingObserver{}
	r := NewResolver([]Step{
		stepFunc{"boom", func(context.Context, *State) error { panic("bad data") }},
		stepFunc{"fixed", func(_ context.Context, st *State) error {
			st.supply("fixed", Result{HDD: &hdd})
			return nil
		}},
	}, WithObserver(obs))

	res := r.Resolve(context.Background(), Query{Postcode: "AB1"})

	assert.Equal(t, "failed", obs.seen["boom"])
	require.NotNil(t, res.Result.HDD)
	assert.Equal(t, 2000.0, *res.Result.HDD)
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	ran := false
	r := NewResolver([]Step{stepFunc{"never", func(context.Context, *State) error {
		ran = true
		return nil
	}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.Resolve(ctx, Query{Postcode: "AB1"})

	assert.False(t, ran)
	assert.Nil(t, res.Result.DesignTemp)
}

func TestBuildSteps(t *testing.T) {
	steps, err := BuildSteps(nil, Sources{})
	require.NoError(t, err)
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name()
	}
	assert.Equal(t, DefaultOrder, names)

	_, err = BuildSteps([]string{StepTable, "crystal_ball"}, Sources{})
	assert.True(t, errors.Is(err, ErrUnknownStep))
}

func TestCustomOrderWithoutGeocodeCannotFetchNormals(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /api/temporal/climatology/point": powerOK(10, 1),
	})
	obs := &recordingObserver{}
	steps, err := BuildSteps([]string{StepNormals, StepDesignTemp}, remoteSources(t, api, nil))
	require.NoError(t, err)

	res := NewResolver(steps, WithObserver(obs)).Resolve(context.Background(), Query{Postcode: "ZZ11ZZ"})

	assert.Nil(t, res.Result.DesignTemp)
	assert.Equal(t, "failed", obs.seen[StepNormals])
	assert.Zero(t, api.count("GET /api/temporal/climatology/point"))
}
