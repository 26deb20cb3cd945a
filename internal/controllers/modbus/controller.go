package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	mbserver "github.com/tbrandon/mbserver"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
	"github.com/Agrid-Dev/heatlosscalc/internal/metrics"
	"github.com/Agrid-Dev/heatlosscalc/internal/ports"
	"github.com/Agrid-Dev/heatlosscalc/internal/survey"
)

// Holding registers (read/write).
const (
	HRIndoor  = 0 // °C ×100, int16
	HROutdoor = 1 // °C ×100, int16
	HRPolicy  = 2 // 0 max, 1 sum, other values read as max
	HRAgeBand = 3 // 1 (A) .. 12 (L)
	hrCount   = 4
)

// Input registers (read only). Watts are int32 split high word first.
const (
	IRTotalW        = 0
	IRTransmissionW = 2
	IRVentilationW  = 4
	IRRoomCount     = 6
	IRHDD           = 7 // 0 when unknown
	irCount         = 8
)

// Config for the Modbus controller.
type Config struct {
	SiteID string
	Addr   string
	UnitID byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
}

type Controller struct {
	svc     ports.SurveyService
	cfg     Config
	metrics *metrics.Metrics
	logger  *zap.Logger

	serv *mbserver.Server
}

type Option func(*Controller)

func WithMetrics(m *metrics.Metrics) Option { return func(c *Controller) { c.metrics = m } }

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(svc ports.SurveyService, cfg Config, opts ...Option) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	c := &Controller{svc: svc, cfg: cfg, logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Run starts the Modbus server. Reads are served from the survey service and
// writes are applied immediately. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers before listening; mbserver reads the table from its goroutines.
	serv.RegisterFunctionHandler(3, func(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		return readRange(frame.GetData(), hrCount, c.holdingRegisters)
	})
	serv.RegisterFunctionHandler(4, func(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		return readRange(frame.GetData(), irCount, c.inputRegisters)
	})

	// Write Single Register (function 6)
	serv.RegisterFunctionHandler(6, func(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])
		w, ex := c.prepareWrite(int(addr), value)
		if ex != nil {
			return []byte{}, ex
		}
		if ex := c.apply([]registerWrite{w}); ex != nil {
			return []byte{}, ex
		}
		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Write Multiple Registers (function 16)
	serv.RegisterFunctionHandler(16, func(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		d := frame.GetData()
		if len(d) < 5 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := binary.BigEndian.Uint16(d[0:2])
		quantity := binary.BigEndian.Uint16(d[2:4])
		byteCount := int(d[4])
		if byteCount != int(quantity)*2 || len(d) < 5+byteCount {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if int(start)+int(quantity) > hrCount {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		// All registers are checked before any is applied.
		writes := make([]registerWrite, 0, quantity)
		for i := 0; i < int(quantity); i++ {
			val := binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
			w, ex := c.prepareWrite(int(start)+i, val)
			if ex != nil {
				return []byte{}, ex
			}
			writes = append(writes, w)
		}
		if ex := c.apply(writes); ex != nil {
			return []byte{}, ex
		}
		resp := make([]byte, 4)
		binary.BigEndian.PutUint16(resp[0:2], start)
		binary.BigEndian.PutUint16(resp[2:4], quantity)
		return resp, &mbserver.Success
	})

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}
	c.logger.Info("modbus listening", zap.String("addr", c.cfg.Addr), zap.Uint8("unit_id", c.cfg.UnitID))

	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

func (c *Controller) holdingRegisters() []uint16 {
	s := c.svc.Get()
	return []uint16{
		HRIndoor:  encodeTemp(s.IndoorC),
		HROutdoor: encodeTemp(s.OutdoorC),
		HRPolicy:  uint16(s.Policy),
		HRAgeBand: uint16(s.AgeBand),
	}
}

func (c *Controller) inputRegisters() []uint16 {
	s := c.svc.Get()
	b := c.svc.Breakdown()
	regs := make([]uint16, irCount)
	putWatts(regs[IRTotalW:], b.TotalW)
	putWatts(regs[IRTransmissionW:], b.TransmissionW)
	putWatts(regs[IRVentilationW:], b.VentilationW)
	regs[IRRoomCount] = uint16(min(len(s.Rooms), math.MaxUint16))
	if s.HDD != nil {
		regs[IRHDD] = uint16(min(max(math.Round(*s.HDD), 0), math.MaxUint16))
	}
	return regs
}

// registerWrite is a validated holding register write.
type registerWrite struct {
	addr  int
	value uint16
	set   func() error
}

// prepareWrite checks a holding register write without touching the survey.
// Policy values other than sum fall back to max.
func (c *Controller) prepareWrite(addr int, value uint16) (registerWrite, *mbserver.Exception) {
	w := registerWrite{addr: addr, value: value}
	switch addr {
	case HRIndoor, HROutdoor:
		v := decodeTemp(value)
		if err := survey.ValidateTemperature(v); err != nil {
			c.logger.Warn("modbus write rejected", zap.Int("register", addr), zap.Uint16("value", value), zap.Error(err))
			return w, &mbserver.IllegalDataValue
		}
		if addr == HRIndoor {
			w.set = func() error { return c.svc.SetIndoorTemperature(v) }
		} else {
			w.set = func() error { return c.svc.SetOutdoorTemperature(v) }
		}
	case HRPolicy:
		p := heatloss.Policy(value)
		if !p.Valid() {
			p = heatloss.PolicyMax
		}
		w.set = func() error { return c.svc.SetPolicy(p) }
	case HRAgeBand:
		b := heatloss.AgeBand(value)
		if !b.Valid() {
			c.logger.Warn("modbus write rejected", zap.Int("register", addr), zap.Uint16("value", value))
			return w, &mbserver.IllegalDataValue
		}
		w.set = func() error { return c.svc.SetAgeBand(b) }
	default:
		return w, &mbserver.IllegalDataAddress
	}
	return w, nil
}

func (c *Controller) apply(writes []registerWrite) *mbserver.Exception {
	for _, w := range writes {
		if err := w.set(); err != nil {
			c.logger.Error("modbus write failed", zap.Int("register", w.addr), zap.Uint16("value", w.value), zap.Error(err))
			return &mbserver.SlaveDeviceFailure
		}
		c.metrics.ModbusWrite()
	}
	return nil
}

// readRange answers FC 3/4 requests for [start, start+qty) out of n registers.
func readRange(data []byte, n int, load func() []uint16) ([]byte, *mbserver.Exception) {
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := int(binary.BigEndian.Uint16(data[0:2]))
	qty := int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > 125 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	if start+qty > n {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	regs := load()[start : start+qty]
	resp := make([]byte, 1+len(regs)*2)
	resp[0] = byte(len(regs) * 2)
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[1+i*2:], r)
	}
	return resp, &mbserver.Success
}

const TemperatureScale int = 100

func encodeTemp(v float64) uint16 {
	r := min(max(int(math.Round(v*float64(TemperatureScale))), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decodeTemp(u uint16) float64 {
	return float64(int16(u)) / float64(TemperatureScale)
}

// putWatts stores whole watts as a big-endian int32 across two registers.
func putWatts(regs []uint16, w float64) {
	v := int32(min(max(math.Round(w), math.MinInt32), math.MaxInt32))
	regs[0] = uint16(uint32(v) >> 16)
	regs[1] = uint16(uint32(v))
}
