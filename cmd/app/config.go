package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Agrid-Dev/heatlosscalc/internal/climate"
	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
	"github.com/Agrid-Dev/heatlosscalc/internal/survey"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys, e.g. HEATLOSS_CONTROLLERS_HTTP_ADDR -> controllers.http.addr.
const EnvPrefix = "HEATLOSS_"

type Config struct {
	SiteID      string `koanf:"site_id"`
	LogLevel    string `koanf:"log_level"`
	Controllers struct {
		HTTP   HTTPConfig   `koanf:"http"`
		MQTT   MQTTConfig   `koanf:"mqtt"`
		Modbus ModbusConfig `koanf:"modbus"`
	} `koanf:"controllers"`

	Design  DesignConfig  `koanf:"design"`
	Climate ClimateConfig `koanf:"climate"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	CommandTimeout  time.Duration `koanf:"command_timeout"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	UnitID  byte   `koanf:"unit_id"`
}

// DesignConfig holds the initial survey conditions.
type DesignConfig struct {
	IndoorTemperature  float64 `koanf:"indoor_temperature"`
	OutdoorTemperature float64 `koanf:"outdoor_temperature"`
	Policy             string  `koanf:"policy"`   // "max" | "sum"
	AgeBand            string  `koanf:"age_band"` // "A".."L"
	Postcode           string  `koanf:"postcode"`
	RoomsFile          string  `koanf:"rooms_file"`
}

type ClimateConfig struct {
	Table        string        `koanf:"table"` // empty: embedded table
	Order        []string      `koanf:"order"`
	Timeout      time.Duration `koanf:"timeout"`
	StepTimeout  time.Duration `koanf:"step_timeout"`
	Retries      int           `koanf:"retries"` // 0 or 1, larger values are capped
	UserAgent    string        `koanf:"user_agent"`
	CountryCode  string        `koanf:"country_code"`
	PostcodeURL  string        `koanf:"postcode_url"`
	SearchURL    string        `koanf:"search_url"`
	NormalsURL   string        `koanf:"normals_url"`
	ElevationURL string        `koanf:"elevation_url"`
}

func Defaults() Config {
	var cfg Config
	cfg.SiteID = "default"
	cfg.LogLevel = "info"
	cfg.Controllers.HTTP.Enabled = true
	cfg.Controllers.HTTP.Addr = ":8080"
	cfg.Controllers.MQTT.PublishInterval = time.Second
	cfg.Controllers.MQTT.CommandTimeout = 30 * time.Second
	cfg.Controllers.Modbus.Addr = "127.0.0.1:1502"
	cfg.Controllers.Modbus.UnitID = 1
	cfg.Design = DesignConfig{
		IndoorTemperature:  21,
		OutdoorTemperature: -3,
		Policy:             "max",
		AgeBand:            "D",
	}
	cfg.Climate = ClimateConfig{
		Order:        climate.DefaultOrder,
		Timeout:      5 * time.Second,
		StepTimeout:  10 * time.Second,
		Retries:      1,
		UserAgent:    "heatlosscalc/1.0",
		CountryCode:  "gb",
		PostcodeURL:  "https://api.postcodes.io",
		SearchURL:    "https://nominatim.openstreetmap.org",
		NormalsURL:   "https://power.larc.nasa.gov",
		ElevationURL: "https://api.open-meteo.com",
	}
	return cfg
}

// LoadConfig layers defaults, the config file (if present) and HEATLOSS_*
// environment variables, in that order.
func LoadConfig(path string) (Config, error) {
	return load(path, os.Environ)
}

func load(path string, environ func() []string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			var parser koanf.Parser
			switch ext := strings.ToLower(filepath.Ext(path)); ext {
			case ".yaml", ".yml":
				parser = yaml.Parser()
			case ".json":
				parser = json.Parser()
			default:
				return Config{}, fmt.Errorf("unsupported config extension %q", ext)
			}
			if err := k.Load(file.Provider(path), parser); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config: %w", err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envTransform,
		EnvironFunc:   environ,
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	normalize(&cfg)
	return cfg, nil
}

func envTransform(k, v string) (string, any) {
	key := envKeyTransform(strings.TrimPrefix(k, EnvPrefix))
	if key == "climate.order" {
		return key, strings.Split(v, ",")
	}
	return key, v
}

// sections whose first underscore separates the section from the field.
var envSections = []string{"design", "climate"}

// envKeyTransform maps an upper-case, underscore separated variable name
// (prefix already stripped) to a dotted koanf key.
func envKeyTransform(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if strings.HasPrefix(k, "controllers_") {
		parts := strings.SplitN(k, "_", 3)
		if len(parts) < 3 {
			return k
		}
		return parts[0] + "." + parts[1] + "." + parts[2]
	}
	for _, s := range envSections {
		if rest, ok := strings.CutPrefix(k, s+"_"); ok {
			return s + "." + rest
		}
	}
	return k
}

func normalize(cfg *Config) {
	if cfg.SiteID == "" {
		cfg.SiteID = "default"
	}
	c := &cfg.Controllers
	if !c.HTTP.Enabled && !c.MQTT.Enabled && !c.Modbus.Enabled {
		c.HTTP.Enabled = true
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Modbus.UnitID == 0 {
		c.Modbus.UnitID = 1
	}
	cfg.Climate.Order = climateOrder(cfg.Climate.Order)
	cfg.Climate.Retries = min(max(cfg.Climate.Retries, 0), climate.MaxRetries)
}

func climateOrder(order []string) []string {
	out := make([]string, 0, len(order))
	for _, s := range order {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return climate.DefaultOrder
	}
	return out
}

// Conditions converts the design section into validated survey conditions.
func (c Config) Conditions() (survey.Conditions, error) {
	band, err := heatloss.ParseAgeBand(c.Design.AgeBand)
	if err != nil {
		return survey.Conditions{}, fmt.Errorf("design.age_band: %w", err)
	}
	return survey.Conditions{
		IndoorC:       c.Design.IndoorTemperature,
		OutdoorC:      c.Design.OutdoorTemperature,
		OutdoorSource: survey.SourceConfig,
		Policy:        heatloss.ParsePolicy(c.Design.Policy),
		AgeBand:       band,
	}, nil
}

func (c ClimateConfig) ClientOptions() climate.ClientOptions {
	return climate.ClientOptions{Timeout: c.Timeout, Retries: c.Retries, UserAgent: c.UserAgent}
}

// Sources wires the lookup table and remote providers for the resolver.
func (c ClimateConfig) Sources() (climate.Sources, error) {
	tbl, err := climate.LoadTable(c.Table)
	if err != nil {
		return climate.Sources{}, fmt.Errorf("climate table: %w", err)
	}
	opts := c.ClientOptions()
	return climate.Sources{
		Table: tbl,
		Geocoders: []climate.Geocoder{
			climate.NewPostcodeLookup(c.PostcodeURL, opts),
			climate.NewAddressSearch(c.SearchURL, c.CountryCode, opts),
		},
		Normals:   climate.NewPowerClimatology(c.NormalsURL, opts),
		Elevation: climate.NewOpenMeteoElevation(c.ElevationURL, opts),
	}, nil
}
