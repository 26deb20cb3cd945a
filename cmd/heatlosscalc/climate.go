package main

import (
	stdctx "context"
	"os"
	"time"

	"github.com/Agrid-Dev/heatlosscalc/cmd/app"
	"github.com/Agrid-Dev/heatlosscalc/internal/climate"
)

type ClimateCmd struct {
	Postcode string        `arg:"" help:"UK postcode, full or partial."`
	LatLon   string        `name:"latlon" help:"Skip geocoding and use \"<lat>,<lon>\"."`
	Timeout  time.Duration `default:"30s" help:"Overall timeout."`
	Format   string        `default:"json" enum:"json,yaml" help:"Output format (json, yaml)."`
}

func (c *ClimateCmd) Run(ctx *context) error {
	resolver, err := app.NewResolver(ctx.cfg.Climate, ctx.logger, nil)
	if err != nil {
		return err
	}
	rctx, cancel := stdctx.WithTimeout(stdctx.Background(), c.Timeout)
	defer cancel()

	res := resolver.Resolve(rctx, climate.Query{Postcode: c.Postcode, LatLon: c.LatLon})
	return writeOut(os.Stdout, c.Format, res)
}
