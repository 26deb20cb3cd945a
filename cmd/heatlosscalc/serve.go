package main

import (
	stdctx "context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Agrid-Dev/heatlosscalc/cmd/app"
	httpctrl "github.com/Agrid-Dev/heatlosscalc/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/heatlosscalc/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/heatlosscalc/internal/controllers/mqtt"
	"github.com/Agrid-Dev/heatlosscalc/internal/metrics"
	"github.com/Agrid-Dev/heatlosscalc/internal/survey"
	"github.com/Agrid-Dev/heatlosscalc/internal/wire"
)

type ServeCmd struct {
	Rooms string `help:"Room file to preload (overrides design.rooms_file)." type:"existingfile"`
}

type runner interface {
	Run(ctx stdctx.Context) error
}

func (c *ServeCmd) Run(ctx *context) error {
	cfg, log := ctx.cfg, ctx.logger

	m := metrics.New()
	resolver, err := app.NewResolver(cfg.Climate, log, m)
	if err != nil {
		return err
	}
	cond, err := cfg.Conditions()
	if err != nil {
		return err
	}
	svc, err := survey.New(cond,
		survey.WithResolver(resolver),
		survey.WithRecorder(m),
		survey.WithLogger(log.Named("survey")),
	)
	if err != nil {
		return err
	}

	roomsFile := cfg.Design.RoomsFile
	if c.Rooms != "" {
		roomsFile = c.Rooms
	}
	if roomsFile != "" {
		if err := preloadRooms(svc, roomsFile); err != nil {
			return err
		}
		log.Info("rooms loaded", zap.String("file", roomsFile), zap.Int("count", len(svc.Get().Rooms)))
	}

	sigCtx, cancel := signal.NotifyContext(stdctx.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Design.Postcode != "" {
		pcCtx, pcCancel := stdctx.WithTimeout(sigCtx, 30*time.Second)
		res, err := svc.SetPostcode(pcCtx, cfg.Design.Postcode)
		pcCancel()
		if err != nil {
			log.Warn("initial postcode not applied", zap.Error(err))
		} else if res.Result.DesignTemp == nil {
			log.Warn("no design temperature for postcode; keeping configured outdoor temperature",
				zap.String("postcode", res.Postcode))
		}
	}

	var runners []runner
	ctrl := cfg.Controllers
	if ctrl.HTTP.Enabled {
		runners = append(runners, httpctrl.New(svc, ctrl.HTTP.Addr, cfg.SiteID,
			httpctrl.WithClimate(resolver),
			httpctrl.WithMetrics(m),
			httpctrl.WithLogger(log.Named("http")),
		))
		log.Info("http controller enabled", zap.String("addr", ctrl.HTTP.Addr))
	}
	if ctrl.MQTT.Enabled {
		mc, err := mqttctrl.New(svc, mqttctrl.Config{
			SiteID:          cfg.SiteID,
			BrokerURL:       ctrl.MQTT.BrokerURL,
			ClientID:        ctrl.MQTT.ClientID,
			BaseTopic:       ctrl.MQTT.BaseTopic,
			QoS:             ctrl.MQTT.QoS,
			RetainSnapshot:  ctrl.MQTT.RetainSnapshot,
			PublishInterval: ctrl.MQTT.PublishInterval,
			CommandTimeout:  ctrl.MQTT.CommandTimeout,
			Username:        ctrl.MQTT.Username,
			Password:        ctrl.MQTT.Password,
		}, mqttctrl.WithMetrics(m), mqttctrl.WithLogger(log.Named("mqtt")))
		if err != nil {
			return err
		}
		runners = append(runners, mc)
	}
	if ctrl.Modbus.Enabled {
		mb, err := modbusctrl.New(svc, modbusctrl.Config{
			SiteID: cfg.SiteID,
			Addr:   ctrl.Modbus.Addr,
			UnitID: ctrl.Modbus.UnitID,
		}, modbusctrl.WithMetrics(m), modbusctrl.WithLogger(log.Named("modbus")))
		if err != nil {
			return err
		}
		runners = append(runners, mb)
	}

	g, gctx := errgroup.WithContext(sigCtx)
	for _, r := range runners {
		g.Go(func() error { return r.Run(gctx) })
	}
	err = g.Wait()
	if errors.Is(err, stdctx.Canceled) {
		log.Info("shutting down")
		return nil
	}
	return err
}

func preloadRooms(svc *survey.Survey, path string) error {
	f, err := wire.LoadRoomFile(path)
	if err != nil {
		return err
	}
	rooms, err := app.RoomInputs(f.Rooms)
	if err != nil {
		return err
	}
	for _, r := range rooms {
		if _, err := svc.PutRoom(r); err != nil {
			return err
		}
	}
	return nil
}
