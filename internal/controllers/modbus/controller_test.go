package modbusctrl

import (
	"encoding/binary"
	"math"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/goburrow/modbus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
	"github.com/Agrid-Dev/heatlosscalc/internal/metrics"
	"github.com/Agrid-Dev/heatlosscalc/internal/survey"
)

func findFreeTCPAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	a := l.Addr().String()
	_ = l.Close()
	return a
}

const startupDelay = 50 * time.Millisecond

func newSurvey(t *testing.T) *survey.Survey {
	t.Helper()
	s, err := survey.New(survey.Conditions{
		IndoorC:  21,
		OutdoorC: -3,
		Policy:   heatloss.PolicyMax,
		AgeBand:  heatloss.AgeBandD,
	})
	if err != nil {
		t.Fatalf("survey.New: %v", err)
	}
	u := 1.5
	_, err = s.PutRoom(heatloss.RoomInput{
		RoomType: heatloss.RoomBedroom,
		Room: heatloss.RoomModel{
			Name: "bed1", Length: 3, Width: 3, Height: 2.5,
			Walls: []heatloss.Wall{{
				Element: heatloss.Element{Adjacent: heatloss.AdjacencyExterior, Width: 3, Height: 2.5, UValue: &u},
			}},
			Ventilation: []heatloss.VentDevice{{Type: heatloss.VentTrickle}},
		},
	})
	if err != nil {
		t.Fatalf("PutRoom: %v", err)
	}
	return s
}

func startController(t *testing.T, svc *survey.Survey, opts ...Option) modbus.Client {
	t.Helper()
	addr := findFreeTCPAddr(t)
	ctrl, err := New(svc, Config{SiteID: "site", Addr: addr, UnitID: 1}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := t.Context()
	go func() {
		_ = ctrl.Run(ctx)
	}()
	time.Sleep(startupDelay)

	handler := modbus.NewTCPClientHandler(addr)
	handler.SlaveId = 1
	handler.Timeout = time.Second
	if err := handler.Connect(); err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = handler.Close() })
	return modbus.NewClient(handler)
}

func registers(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(b[i*2:])
	}
	return out
}

func decodeWatts(hi, lo uint16) int32 {
	return int32(uint32(hi)<<16 | uint32(lo))
}

func TestNewRequiresUnitID(t *testing.T) {
	if _, err := New(nil, Config{SiteID: "site"}); err == nil {
		t.Fatalf("expected error for zero UnitID")
	}
	c, err := New(nil, Config{SiteID: "site", UnitID: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.cfg.Addr != "127.0.0.1:1502" {
		t.Fatalf("default addr: got %q", c.cfg.Addr)
	}
}

func TestHoldingRegisters(t *testing.T) {
	svc := newSurvey(t)
	m := metrics.New()
	client := startController(t, svc, WithMetrics(m))

	res, err := client.ReadHoldingRegisters(0, hrCount)
	if err != nil {
		t.Fatalf("read holding: %v", err)
	}
	hr := registers(res)
	if hr[HRIndoor] != encodeTemp(21) || hr[HROutdoor] != encodeTemp(-3) {
		t.Fatalf("temperatures: got %v", hr)
	}
	if hr[HRPolicy] != uint16(heatloss.PolicyMax) || hr[HRAgeBand] != uint16(heatloss.AgeBandD) {
		t.Fatalf("policy/age band: got %v", hr)
	}

	if _, err := client.WriteSingleRegister(HROutdoor, encodeTemp(-5.25)); err != nil {
		t.Fatalf("write outdoor: %v", err)
	}
	got := svc.Get()
	if got.OutdoorC != -5.25 || got.OutdoorSource != survey.SourceManual {
		t.Fatalf("outdoor not applied: %+v", got.Conditions)
	}

	// policy=sum, age band=H in one request
	payload := []byte{0, byte(heatloss.PolicySum), 0, byte(heatloss.AgeBandH)}
	if _, err := client.WriteMultipleRegisters(HRPolicy, 2, payload); err != nil {
		t.Fatalf("write multiple: %v", err)
	}
	got = svc.Get()
	if got.Policy != heatloss.PolicySum || got.AgeBand != heatloss.AgeBandH {
		t.Fatalf("policy/age band not applied: %+v", got.Conditions)
	}

	want := `# HELP heatloss_modbus_writes_total Accepted Modbus register writes.
# TYPE heatloss_modbus_writes_total counter
heatloss_modbus_writes_total 3
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "heatloss_modbus_writes_total"); err != nil {
		t.Fatalf("modbus writes: %v", err)
	}
}

func TestRejectedWrites(t *testing.T) {
	svc := newSurvey(t)
	client := startController(t, svc)

	if _, err := client.WriteSingleRegister(HRAgeBand, 13); err == nil {
		t.Fatalf("expected exception for age band 13")
	}
	if _, err := client.WriteSingleRegister(HRIndoor, encodeTemp(90)); err == nil {
		t.Fatalf("expected exception for indoor 90")
	}
	if _, err := client.WriteSingleRegister(hrCount, 1); err == nil {
		t.Fatalf("expected exception for unknown register")
	}
	if got := svc.Get(); got.IndoorC != 21 || got.AgeBand != heatloss.AgeBandD {
		t.Fatalf("rejected writes changed state: %+v", got.Conditions)
	}
}

func TestUnknownPolicyFallsBackToMax(t *testing.T) {
	svc := newSurvey(t)
	if err := svc.SetPolicy(heatloss.PolicySum); err != nil {
		t.Fatalf("SetPolicy: %v", err)
	}
	client := startController(t, svc)

	if _, err := client.WriteSingleRegister(HRPolicy, 7); err != nil {
		t.Fatalf("write policy 7: %v", err)
	}
	if got := svc.Get().Policy; got != heatloss.PolicyMax {
		t.Fatalf("policy: got %v want max", got)
	}
}

func TestWriteMultipleIsAllOrNothing(t *testing.T) {
	svc := newSurvey(t)
	client := startController(t, svc)

	// indoor 19, outdoor -6, policy sum, age band 13 (invalid)
	payload := make([]byte, 8)
	binary.BigEndian.PutUint16(payload[0:], encodeTemp(19))
	binary.BigEndian.PutUint16(payload[2:], encodeTemp(-6))
	binary.BigEndian.PutUint16(payload[4:], uint16(heatloss.PolicySum))
	binary.BigEndian.PutUint16(payload[6:], 13)
	if _, err := client.WriteMultipleRegisters(HRIndoor, 4, payload); err == nil {
		t.Fatalf("expected exception for age band 13")
	}

	got := svc.Get()
	if got.IndoorC != 21 || got.OutdoorC != -3 || got.Policy != heatloss.PolicyMax || got.AgeBand != heatloss.AgeBandD {
		t.Fatalf("rejected batch changed state: %+v", got.Conditions)
	}
}

func TestInputRegisters(t *testing.T) {
	svc := newSurvey(t)
	client := startController(t, svc)

	res, err := client.ReadInputRegisters(0, irCount)
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	ir := registers(res)
	b := svc.Breakdown()

	check := func(name string, at int, w float64) {
		t.Helper()
		want := int32(math.Round(w))
		if got := decodeWatts(ir[at], ir[at+1]); got != want {
			t.Fatalf("%s: got %d want %d", name, got, want)
		}
	}
	check("total", IRTotalW, b.TotalW)
	check("transmission", IRTransmissionW, b.TransmissionW)
	check("ventilation", IRVentilationW, b.VentilationW)
	if ir[IRRoomCount] != 1 {
		t.Fatalf("room count: got %d", ir[IRRoomCount])
	}
	if ir[IRHDD] != 0 {
		t.Fatalf("hdd should be 0 when unknown, got %d", ir[IRHDD])
	}

	if _, err := client.ReadInputRegisters(6, 4); err == nil {
		t.Fatalf("expected exception reading past the input table")
	}
}

func TestWattsEncoding(t *testing.T) {
	regs := make([]uint16, 2)
	for _, w := range []float64{0, 1234.4, -87.6, 70000, math.Inf(1)} {
		putWatts(regs, w)
		want := int32(min(max(math.Round(w), math.MinInt32), math.MaxInt32))
		if got := decodeWatts(regs[0], regs[1]); got != want {
			t.Fatalf("putWatts(%v): got %d want %d", w, got, want)
		}
	}
}

func TestTemperatureEncoding(t *testing.T) {
	if decodeTemp(encodeTemp(-12.34)) != -12.34 {
		t.Fatalf("round trip -12.34")
	}
	if encodeTemp(1000) != math.MaxInt16 {
		t.Fatalf("encodeTemp should clamp")
	}
}
