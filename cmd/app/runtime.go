package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Agrid-Dev/heatlosscalc/internal/climate"
	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
	"github.com/Agrid-Dev/heatlosscalc/internal/survey"
	"github.com/Agrid-Dev/heatlosscalc/internal/wire"
)

// NewLogger builds a production zap logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

func NewResolver(c ClimateConfig, logger *zap.Logger, obs climate.Observer) (*climate.Resolver, error) {
	src, err := c.Sources()
	if err != nil {
		return nil, err
	}
	steps, err := climate.BuildSteps(c.Order, src)
	if err != nil {
		return nil, err
	}
	return climate.NewResolver(steps,
		climate.WithLogger(logger.Named("climate")),
		climate.WithObserver(obs),
		climate.WithStepTimeout(c.StepTimeout),
	), nil
}

// RoomInputs converts decoded rooms, reporting the first invalid one.
func RoomInputs(rooms []wire.Room) ([]heatloss.RoomInput, error) {
	out := make([]heatloss.RoomInput, 0, len(rooms))
	for i, r := range rooms {
		m, rt, err := r.ToModel()
		if err != nil {
			return nil, fmt.Errorf("rooms[%d] %q: %w", i, r.Name, err)
		}
		out = append(out, heatloss.RoomInput{Room: m, RoomType: rt})
	}
	return out, nil
}

// FileConditions overlays the conditions found in a room file on base.
// When the file names a postcode but no outdoor temperature, the resolver
// supplies the design temperature if it can.
func FileConditions(ctx context.Context, base survey.Conditions, f wire.RoomFile, r survey.ClimateResolver) (survey.Conditions, error) {
	c := base
	if f.IndoorC.Set {
		c.IndoorC = f.IndoorC.V
	}
	if f.Policy != "" {
		c.Policy = heatloss.ParsePolicy(f.Policy)
	}
	if f.AgeBand != "" {
		band, err := heatloss.ParseAgeBand(f.AgeBand)
		if err != nil {
			return c, err
		}
		c.AgeBand = band
	}
	if f.Postcode != "" {
		c.Postcode = climate.NormalizePostcode(f.Postcode)
	}
	switch {
	case f.OutdoorC.Set:
		c.OutdoorC = f.OutdoorC.V
		c.OutdoorSource = survey.SourceManual
	case c.Postcode != "" && r != nil:
		res := r.Resolve(ctx, climate.Query{Postcode: c.Postcode})
		if res.Result.DesignTemp != nil {
			c.OutdoorC = *res.Result.DesignTemp
			c.OutdoorSource = res.Source["design_temp"]
		}
		c.HDD = res.Result.HDD
	}
	return c, nil
}
