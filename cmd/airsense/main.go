// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// airsense monitors indoor CO2 with an SCD30, and optionally particulate
// matter with an SPS30, raising a light and buzzer alarm above the configured
// thresholds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/conn/v3/uart"
	"periph.io/x/conn/v3/uart/uartreg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/airsense/alert"
	"github.com/GermanBionicSystems/airsense/button"
	"github.com/GermanBionicSystems/airsense/buzzer"
	"github.com/GermanBionicSystems/airsense/common"
	"github.com/GermanBionicSystems/airsense/config"
	"github.com/GermanBionicSystems/airsense/console"
	"github.com/GermanBionicSystems/airsense/consoleled"
	"github.com/GermanBionicSystems/airsense/epaper"
	"github.com/GermanBionicSystems/airsense/monitor"
	"github.com/GermanBionicSystems/airsense/panel"
	"github.com/GermanBionicSystems/airsense/rgbled"
	"github.com/GermanBionicSystems/airsense/scd30"
	"github.com/GermanBionicSystems/airsense/sps30"
	"github.com/GermanBionicSystems/airsense/videosink"
)

var version = "dev"

func main() {
	configFile := flag.String("config", "", "path to the YAML configuration; defaults are used when empty")
	interactive := flag.Bool("console", false, "run an interactive shell next to the monitor")
	evalOnly := flag.Bool("e", false, "boot, run the console command given as arguments and exit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("airsense %s\n", version)
		return
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	log, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *evalOnly && flag.NArg() == 0 {
		log.Fatal("-e needs a command, e.g. airsense -e status")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, log, *interactive, *evalOnly, flag.Args()); err != nil {
		log.WithError(err).Fatal("airsense failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger, interactive, evalOnly bool, args []string) error {
	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(cfg.Sensor.Bus)
	if err != nil {
		return err
	}
	defer bus.Close()

	sensor, err := scd30.NewI2C(bus, &scd30.Opts{Addr: cfg.Sensor.Address, Verify: cfg.Sensor.Verify})
	if err != nil {
		return err
	}
	defer sensor.Halt()

	opts := &monitor.Opts{
		Config: cfg,
		Sensor: sensor,
		Log:    log,
		Delay:  common.Sleep,
	}

	if cfg.Particulate.Enabled {
		pm, halt, err := particulate(bus, cfg.Particulate)
		if err != nil {
			return err
		}
		defer halt()
		opts.Particulate = pm
	}

	if opts.Indicator, err = indicator(cfg.Pins); err != nil {
		return err
	}
	defer alert.Apply(opts.Indicator, alert.ColourOff)

	if cfg.Pins.Buzzer != "" {
		pin, err := outPin(cfg.Pins.Buzzer)
		if err != nil {
			return err
		}
		bz, err := buzzer.New(pin, common.Sleep)
		if err != nil {
			return err
		}
		defer bz.Halt()
		opts.Sounder = bz
	}

	for i, name := range cfg.Pins.Buttons {
		p := gpioreg.ByName(name)
		if p == nil {
			return fmt.Errorf("no button pin %q", name)
		}
		if opts.Buttons[i], err = button.New(p); err != nil {
			return err
		}
	}

	if cfg.Display.Enabled {
		if opts.Drawer, err = drawer(ctx, cfg.Display, log); err != nil {
			return err
		}
		defer opts.Drawer.Halt()
		size := opts.Drawer.Bounds().Size()
		if opts.Panel, err = panel.New(size.X, size.Y); err != nil {
			return err
		}
	}

	if cfg.Metrics.Enabled {
		opts.Metrics = monitor.NewMetrics()
		mux := http.NewServeMux()
		mux.Handle("/metrics", opts.Metrics.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "OK")
		})
		go serve(ctx, log, cfg.Metrics.Addr, mux)
	}

	if cfg.MQTT.Broker != "" {
		pub, err := monitor.DialMQTT(cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer pub.Close()
		log.WithField("topic", pub.Topic()).Info("publishing readings")
		opts.Publisher = pub
	}

	m, err := monitor.New(opts)
	if err != nil {
		return err
	}
	log.WithField("version", version).Info("booting")
	if err := m.Boot(); err != nil {
		return err
	}

	if evalOnly {
		return console.Exec(m, os.Stdout, args...)
	}
	if interactive {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		sh := console.New(m)
		go func() {
			sh.Run()
			// Leaving the shell stops the monitor.
			cancel()
		}()
	}

	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopped")
	return nil
}

// drawer opens the e-paper display, or starts serving a videosink.
func drawer(ctx context.Context, cfg config.DisplayConfig, log logrus.FieldLogger) (display.Drawer, error) {
	if cfg.Driver != "epaper" {
		sink := videosink.New(cfg.Width, cfg.Height, log)
		go serve(ctx, log, cfg.Addr, sink)
		return sink, nil
	}
	port, err := spireg.Open(cfg.SPI)
	if err != nil {
		return nil, err
	}
	var pins [4]gpio.PinIO
	for i, name := range []string{cfg.DC, cfg.CS, cfg.RST, cfg.Busy} {
		if pins[i] = gpioreg.ByName(name); pins[i] == nil {
			return nil, fmt.Errorf("no display pin %q", name)
		}
	}
	dev, err := epaper.New(port, pins[0], pins[1], pins[2], pins[3], &epaper.EPD4in2)
	if err != nil {
		return nil, err
	}
	if err := dev.Init(); err != nil {
		return nil, err
	}
	log.WithField("display", dev).Info("e-paper ready")
	return dev, nil
}

// particulate starts the SPS30 on its serial port when one is configured, on
// the i2c bus otherwise. halt stops it and releases the port.
func particulate(bus i2c.Bus, cfg config.ParticulateConfig) (monitor.ParticulateSensor, func(), error) {
	if cfg.Port == "" {
		dev, err := sps30.NewI2C(bus, &sps30.Opts{Addr: cfg.Address, Verify: cfg.Verify})
		if err != nil {
			return nil, nil, err
		}
		if err := dev.Start(); err != nil {
			return nil, nil, err
		}
		return dev, func() { dev.Halt() }, nil
	}
	port, err := uartreg.Open(cfg.Port)
	if err != nil {
		return nil, nil, err
	}
	c, err := port.Connect(115200*physic.Hertz, uart.One, uart.NoParity, uart.NoFlow, 8)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	dev := sps30.NewUART(c)
	if err := dev.Start(); err != nil {
		port.Close()
		return nil, nil, err
	}
	return sps30.NewPoller(dev), func() {
		dev.Halt()
		port.Close()
	}, nil
}

func indicator(pins config.PinConfig) (monitor.Indicator, error) {
	if pins.Indicator == "console" {
		return consoleled.New(nil), nil
	}
	r, err := outPin(pins.Red)
	if err != nil {
		return nil, err
	}
	g, err := outPin(pins.Green)
	if err != nil {
		return nil, err
	}
	b, err := outPin(pins.Blue)
	if err != nil {
		return nil, err
	}
	return rgbled.New(r, g, b)
}

func outPin(name string) (gpio.PinOut, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no output pin %q", name)
	}
	return p, nil
}

// serve runs an HTTP server on addr until ctx is done.
func serve(ctx context.Context, log logrus.FieldLogger, addr string, h http.Handler) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	log.WithField("addr", addr).Info("http server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).WithField("addr", addr).Error("http server failed")
	}
}
