package main

import (
	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/heatlosscalc/cmd/app"
)

var cli struct {
	Config   string `short:"c" default:"config.yaml" help:"Path to config file (.yaml/.yml/.json). Missing files fall back to defaults." type:"path"`
	LogLevel string `help:"Override the configured log level."`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the survey service with the configured controllers."`
	Room    RoomCmd    `cmd:"" help:"Compute the heat loss of the rooms in a YAML or JSON file."`
	Climate ClimateCmd `cmd:"" help:"Resolve design temperature and degree days for a postcode."`
}

type context struct {
	cfg    app.Config
	logger *zap.Logger
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("heatlosscalc"),
		kong.Description("Room-by-room heat loss calculator."),
		kong.ShortUsageOnError(),
	)

	cfg, err := app.LoadConfig(cli.Config)
	ctx.FatalIfErrorf(err)
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}

	logger, err := app.NewLogger(cfg.LogLevel)
	ctx.FatalIfErrorf(err)
	defer func() { _ = logger.Sync() }()

	err = ctx.Run(&context{cfg: cfg, logger: logger})
	ctx.FatalIfErrorf(err)
}
