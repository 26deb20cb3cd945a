package ports

import (
	"context"

	"github.com/Agrid-Dev/heatlosscalc/internal/climate"
	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
	"github.com/Agrid-Dev/heatlosscalc/internal/survey"
)

// SurveyService is the control-plane port used by controllers (HTTP/MQTT/Modbus).
type SurveyService interface {
	Get() survey.Snapshot
	SetIndoorTemperature(float64) error
	SetOutdoorTemperature(float64) error
	SetPolicy(heatloss.Policy) error
	SetAgeBand(heatloss.AgeBand) error
	PutRoom(heatloss.RoomInput) (heatloss.RoomInput, error)
	DeleteRoom(name string) error
	RoomBreakdown(name string) (heatloss.RoomLossBreakdown, error)
	Breakdown() heatloss.BuildingBreakdown
	SetPostcode(ctx context.Context, postcode string) (climate.Resolution, error)
}

// ClimateService resolves design conditions without touching survey state.
type ClimateService interface {
	Resolve(ctx context.Context, q climate.Query) climate.Resolution
}
