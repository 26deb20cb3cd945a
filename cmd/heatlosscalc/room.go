package main

import (
	stdctx "context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Agrid-Dev/heatlosscalc/cmd/app"
	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
	"github.com/Agrid-Dev/heatlosscalc/internal/wire"
)

type RoomCmd struct {
	File     string `arg:"" help:"Room file (.yaml/.yml/.json)." type:"existingfile"`
	Postcode string `help:"Postcode used to look up the outdoor design temperature when the file has none."`
	Format   string `default:"json" enum:"json,yaml" help:"Output format (json, yaml)."`
}

func (c *RoomCmd) Run(ctx *context) error {
	f, err := wire.LoadRoomFile(c.File)
	if err != nil {
		return err
	}
	if c.Postcode != "" {
		f.Postcode = c.Postcode
	}
	rooms, err := app.RoomInputs(f.Rooms)
	if err != nil {
		return err
	}

	base, err := ctx.cfg.Conditions()
	if err != nil {
		return err
	}
	resolver, err := app.NewResolver(ctx.cfg.Climate, ctx.logger, nil)
	if err != nil {
		return err
	}
	cond, err := app.FileConditions(stdctx.Background(), base, f, resolver)
	if err != nil {
		return err
	}

	b := heatloss.ComputeBuildingLoss(rooms, cond.IndoorC, cond.OutdoorC, cond.AgeBand, cond.Policy)
	return writeOut(os.Stdout, c.Format, wire.FromBuildingBreakdown(b))
}

func writeOut(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
