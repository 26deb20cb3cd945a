package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/heatlosscalc/internal/climate"
	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
	"github.com/Agrid-Dev/heatlosscalc/internal/metrics"
	"github.com/Agrid-Dev/heatlosscalc/internal/ports"
	"github.com/Agrid-Dev/heatlosscalc/internal/survey"
	"github.com/Agrid-Dev/heatlosscalc/internal/wire"
)

const maxBody = 1 << 20

type Server struct {
	svc     ports.SurveyService
	climate ports.ClimateService
	metrics *metrics.Metrics
	logger  *zap.Logger
	srv     *http.Server
	siteID  string
}

type Option func(*Server)

func WithClimate(c ports.ClimateService) Option { return func(s *Server) { s.climate = c } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Server) { s.metrics = m } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a runnable server.
func New(svc ports.SurveyService, addr string, siteID string, opts ...Option) *Server {
	s := &Server{svc: svc, siteID: siteID, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	mux := http.NewServeMux()

	// Read
	s.handle(mux, "GET /v1", s.handleGet)
	s.handle(mux, "GET /v1/breakdown", s.handleBreakdown)

	// Write: one endpoint per design condition
	s.handle(mux, "POST /v1/indoor_temperature", s.handlePostIndoor)
	s.handle(mux, "POST /v1/outdoor_temperature", s.handlePostOutdoor)
	s.handle(mux, "POST /v1/policy", s.handlePostPolicy)
	s.handle(mux, "POST /v1/age_band", s.handlePostAgeBand)
	s.handle(mux, "POST /v1/postcode", s.handlePostPostcode)

	// Rooms
	s.handle(mux, "GET /v1/rooms", s.handleListRooms)
	s.handle(mux, "GET /v1/rooms/{name}", s.handleGetRoom)
	s.handle(mux, "PUT /v1/rooms/{name}", s.handlePutRoom)
	s.handle(mux, "DELETE /v1/rooms/{name}", s.handleDeleteRoom)
	s.handle(mux, "GET /v1/rooms/{name}/breakdown", s.handleRoomBreakdown)

	// Stateless helpers for editors
	s.handle(mux, "POST /v1/compute", s.handleCompute)
	s.handle(mux, "POST /v1/uvalue", s.handleUValue)
	s.handle(mux, "GET /v1/climate/{postcode}", s.handleClimate)
	s.handle(mux, "GET /v1/ventilation/defaults", s.handleVentDefaults)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	stdLog := zap.NewStdLog(s.logger)
	var h http.Handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(stdLog),
		handlers.PrintRecoveryStack(false),
	)(mux)
	h = handlers.CombinedLoggingHandler(stdLog.Writer(), h)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.Handle(pattern, s.metrics.WrapHandler(pattern, fn))
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type snapshotDTO struct {
	SiteID        string   `json:"site_id"`
	IndoorC       float64  `json:"indoor_temperature"`
	OutdoorC      float64  `json:"outdoor_temperature"`
	OutdoorSource string   `json:"outdoor_source"`
	Policy        string   `json:"policy"`
	AgeBand       string   `json:"age_band"`
	Postcode      string   `json:"postcode,omitempty"`
	HDD           *float64 `json:"hdd,omitempty"`
	Rooms         []string `json:"rooms"`
}

func toDTO(s survey.Snapshot) snapshotDTO {
	return snapshotDTO{
		IndoorC:       s.IndoorC,
		OutdoorC:      s.OutdoorC,
		OutdoorSource: s.OutdoorSource,
		Policy:        s.Policy.String(),
		AgeBand:       s.AgeBand.String(),
		Postcode:      s.Postcode,
		HDD:           s.HDD,
		Rooms:         lo.Map(s.Rooms, func(r heatloss.RoomInput, _ int) string { return r.Room.Name }),
	}
}

type computeReq struct {
	Room     wire.Room   `json:"room"`
	IndoorC  wire.Number `json:"indoor_temperature"`
	OutdoorC wire.Number `json:"outdoor_temperature"`
	AgeBand  string      `json:"age_band"`
	Policy   string      `json:"policy"`
	VolumeM3 wire.Number `json:"volume_m3"`
}

type uvalueReq struct {
	Class   string        `json:"class"`
	Element *wire.Element `json:"element"`
	Opening *wire.Opening `json:"opening"`
}

type uvalueResp struct {
	Class    string   `json:"class"`
	UValue   *float64 `json:"u_value"`
	Resolved bool     `json:"resolved"`
}

type ventDefaultDTO struct {
	Type    string  `json:"type"`
	FlowLps float64 `json:"flow_lps"`
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, wire.FromBuildingBreakdown(s.svc.Breakdown()))
}

func (s *Server) handlePostIndoor(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, s.svc.SetIndoorTemperature)
}

func (s *Server) handlePostOutdoor(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, s.svc.SetOutdoorTemperature)
}

func (s *Server) handlePostPolicy(w http.ResponseWriter, r *http.Request) {
	// body: {"value": "sum"}; anything unrecognised selects max
	postValue(s, w, r, func(v string) error {
		return s.svc.SetPolicy(heatloss.ParsePolicy(v))
	})
}

func (s *Server) handlePostAgeBand(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v string) error {
		b, err := heatloss.ParseAgeBand(v)
		if err != nil {
			return err
		}
		return s.svc.SetAgeBand(b)
	})
}

func (s *Server) handlePostPostcode(w http.ResponseWriter, r *http.Request) {
	v, ok := decodeValue[string](w, r)
	if !ok {
		return
	}
	if _, err := s.svc.SetPostcode(r.Context(), v); err != nil {
		switch {
		case errors.Is(err, survey.ErrSuperseded):
			writeErr(w, http.StatusConflict, err.Error())
		case errors.Is(err, survey.ErrNoResolver):
			writeErr(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeErr(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	s.respondSnapshot(w)
}

func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := lo.Map(s.svc.Get().Rooms, func(r heatloss.RoomInput, _ int) wire.Room {
		return wire.FromModel(r.Room, r.RoomType)
	})
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	room, ok := lo.Find(s.svc.Get().Rooms, func(ri heatloss.RoomInput) bool { return ri.Room.Name == name })
	if !ok {
		writeErr(w, http.StatusNotFound, survey.ErrRoomNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, wire.FromModel(room.Room, room.RoomType))
}

func (s *Server) handlePutRoom(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	dto, err := wire.DecodeRoomJSON(body)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	dto.Name = r.PathValue("name")
	m, rt, err := dto.ToModel()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	stored, err := s.svc.PutRoom(heatloss.RoomInput{Room: m, RoomType: rt})
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wire.FromModel(stored.Room, stored.RoomType))
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteRoom(r.PathValue("name")); err != nil {
		writeErr(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRoomBreakdown(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.RoomBreakdown(r.PathValue("name"))
	if err != nil {
		writeErr(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wire.FromRoomBreakdown(b))
}

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeReq
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	room, rt, err := req.Room.ToModel()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := room.Validate(); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	cur := s.svc.Get()
	in := heatloss.Inputs{
		IndoorC:  cur.IndoorC,
		OutdoorC: cur.OutdoorC,
		VolumeM3: req.VolumeM3.Ptr(),
		AgeBand:  cur.AgeBand,
		RoomType: rt,
		Policy:   cur.Policy,
	}
	if req.IndoorC.Set {
		in.IndoorC = req.IndoorC.V
	}
	if req.OutdoorC.Set {
		in.OutdoorC = req.OutdoorC.V
	}
	if req.AgeBand != "" {
		if in.AgeBand, err = heatloss.ParseAgeBand(req.AgeBand); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Policy != "" {
		in.Policy = heatloss.ParsePolicy(req.Policy)
	}
	for _, v := range []float64{in.IndoorC, in.OutdoorC} {
		if err := survey.ValidateTemperature(v); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	b := heatloss.ComputeRoomLoss(room, in)
	s.metrics.RoomComputed()
	writeJSON(w, http.StatusOK, wire.FromRoomBreakdown(b))
}

func (s *Server) handleUValue(w http.ResponseWriter, r *http.Request) {
	var req uvalueReq
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	class := strings.ToLower(strings.TrimSpace(req.Class))
	var (
		u   float64
		ok  bool
		err error
	)
	switch class {
	case "opening":
		if req.Opening == nil {
			writeErr(w, http.StatusBadRequest, "missing field 'opening'")
			return
		}
		var o heatloss.Opening
		if o, err = req.Opening.Model(); err == nil {
			u, ok = heatloss.ResolveOpeningU(o), true
		}
	case "wall", "floor", "ceiling":
		if req.Element == nil {
			writeErr(w, http.StatusBadRequest, "missing field 'element'")
			return
		}
		var e heatloss.Element
		if e, err = req.Element.Model(); err == nil {
			u, ok = resolveElementU(class, e)
		}
	default:
		writeErr(w, http.StatusBadRequest, "class must be wall, floor, ceiling or opening")
		return
	}
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := uvalueResp{Class: class, Resolved: ok}
	if ok {
		resp.UValue = &u
	}
	writeJSON(w, http.StatusOK, resp)
}

func resolveElementU(class string, e heatloss.Element) (float64, bool) {
	switch class {
	case "wall":
		return heatloss.ResolveWallU(heatloss.Wall{Element: e})
	case "floor":
		return heatloss.ResolveFloorU(heatloss.Floor{Element: e})
	default:
		return heatloss.ResolveCeilingU(heatloss.Ceiling{Element: e})
	}
}

func (s *Server) handleClimate(w http.ResponseWriter, r *http.Request) {
	if s.climate == nil {
		writeErr(w, http.StatusServiceUnavailable, survey.ErrNoResolver.Error())
		return
	}
	q := climate.Query{Postcode: r.PathValue("postcode"), LatLon: r.URL.Query().Get("latlon")}
	if q.LatLon != "" {
		if _, err := climate.ParseLatLon(q.LatLon); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, s.climate.Resolve(r.Context(), q))
}

func (s *Server) handleVentDefaults(w http.ResponseWriter, _ *http.Request) {
	types := []heatloss.VentType{
		heatloss.VentTrickle,
		heatloss.VentMVHRSupply,
		heatloss.VentMVHRExtract,
		heatloss.VentMechanicalExtract,
		heatloss.VentPassive,
	}
	out := make([]ventDefaultDTO, 0, len(types))
	for _, t := range types {
		if f, ok := heatloss.DefaultDeviceFlow(t); ok {
			out = append(out, ventDefaultDTO{Type: t.String(), FlowLps: f})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- generic helpers ----
func (s *Server) respondSnapshot(w http.ResponseWriter) {
	dto := toDTO(s.svc.Get())
	dto.SiteID = s.siteID
	writeJSON(w, http.StatusOK, dto)
}

func decodeValue[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var zero T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return zero, false
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return zero, false
	}
	return *req.Value, true
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	v, ok := decodeValue[T](w, r)
	if !ok {
		return
	}
	if err := apply(v); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondSnapshot(w)
}

func statusFor(err error) int {
	if errors.Is(err, survey.ErrRoomNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// writeJSON marshals before writing the header; a marshal failure becomes a 500.
func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		code = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(append(body, '\n'))
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
