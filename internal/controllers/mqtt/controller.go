package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
	"github.com/Agrid-Dev/heatlosscalc/internal/metrics"
	"github.com/Agrid-Dev/heatlosscalc/internal/ports"
	"github.com/Agrid-Dev/heatlosscalc/internal/survey"
	"github.com/Agrid-Dev/heatlosscalc/internal/wire"
)

var errUnknownField = errors.New("unknown field")

type Config struct {
	// Identity
	SiteID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration
	CommandTimeout  time.Duration

	Username string
	Password string
}

type Controller struct {
	svc     ports.SurveyService
	cfg     Config
	metrics *metrics.Metrics
	logger  *zap.Logger

	client mqtt.Client
	ctx    context.Context
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
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.SiteID == "" {
		return nil, errors.New("mqtt: SiteID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "heatlosscalc/" + cfg.SiteID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "heatlosscalc-" + cfg.SiteID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	c := &Controller{
		svc:    svc,
		cfg:    cfg,
		logger: zap.NewNop(),
		ctx:    context.Background(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetOrderMatters(false)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		topic := c.topic("set/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			c.logger.Error("mqtt subscribe failed", zap.String("topic", topic), zap.Error(err))
			return
		}
		c.logger.Info("mqtt subscribed", zap.String("topic", topic))
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	// Publish loop: publish snapshot on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	last := c.svc.Get()
	c.publishSnapshot()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := c.svc.Get()
			if !reflect.DeepEqual(cur, last) {
				c.publishSnapshot()
				last = cur
			}
		}
	}
}

// publishSnapshot sends the design conditions with the building totals, and
// the full breakdown on its own topic.
func (c *Controller) publishSnapshot() {
	s := c.svc.Get()
	b := c.svc.Breakdown()
	dto := snapshotDTO{
		IndoorC:       s.IndoorC,
		OutdoorC:      s.OutdoorC,
		OutdoorSource: s.OutdoorSource,
		Policy:        s.Policy.String(),
		AgeBand:       s.AgeBand.String(),
		Postcode:      s.Postcode,
		HDD:           s.HDD,
		RoomCount:     len(s.Rooms),
		TransmissionW: b.TransmissionW,
		VentilationW:  b.VentilationW,
		TotalW:        b.TotalW,
	}
	c.publishJSON("snapshot", dto)
	c.publishJSON("breakdown", wire.FromBuildingBreakdown(b))
}

func (c *Controller) publishJSON(suffix string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("mqtt encode", zap.String("topic", suffix), zap.Error(err))
		return
	}
	c.client.Publish(c.topic(suffix), c.cfg.QoS, c.cfg.RetainSnapshot, b)
}

type snapshotDTO struct {
	IndoorC       float64  `json:"indoor_temperature"`
	OutdoorC      float64  `json:"outdoor_temperature"`
	OutdoorSource string   `json:"outdoor_source"`
	Policy        string   `json:"policy"`
	AgeBand       string   `json:"age_band"`
	Postcode      string   `json:"postcode,omitempty"`
	HDD           *float64 `json:"hdd,omitempty"`
	RoomCount     int      `json:"room_count"`
	TransmissionW float64  `json:"transmission_w"`
	VentilationW  float64  `json:"ventilation_w"`
	TotalW        float64  `json:"total_w"`
}

type errorDTO struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := strings.TrimRight(c.cfg.BaseTopic, "/") + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	err := c.apply(field, msg.Payload())
	c.metrics.MQTTCommand(field, err)
	if err != nil {
		c.logger.Warn("mqtt command rejected", zap.String("field", field), zap.Error(err))
		if c.client != nil {
			c.publishJSON("error", errorDTO{Field: field, Error: err.Error()})
		}
	}
}

func (c *Controller) apply(field string, payload []byte) error {
	switch field {
	case "indoor_temperature":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return err
		}
		return c.svc.SetIndoorTemperature(v)

	case "outdoor_temperature":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return err
		}
		return c.svc.SetOutdoorTemperature(v)

	case "policy":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return err
		}
		return c.svc.SetPolicy(heatloss.ParsePolicy(s))

	case "age_band":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return err
		}
		b, err := heatloss.ParseAgeBand(s)
		if err != nil {
			return err
		}
		return c.svc.SetAgeBand(b)

	case "postcode":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.CommandTimeout)
		defer cancel()
		_, err = c.svc.SetPostcode(ctx, s)
		if errors.Is(err, survey.ErrSuperseded) {
			return nil
		}
		return err

	case "room":
		r, err := decodeValueStrict[wire.Room](payload)
		if err != nil {
			return err
		}
		m, rt, err := r.ToModel()
		if err != nil {
			return err
		}
		_, err = c.svc.PutRoom(heatloss.RoomInput{Room: m, RoomType: rt})
		return err

	case "delete_room":
		name, err := decodeValueStrict[string](payload)
		if err != nil {
			return err
		}
		return c.svc.DeleteRoom(name)

	default:
		return fmt.Errorf("%w %q", errUnknownField, field)
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
