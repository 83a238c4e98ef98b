// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console provides an interactive shell running the same actions as
// the monitor buttons, for a device reached over ssh.
package console

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/GermanBionicSystems/airsense/monitor"
	"github.com/GermanBionicSystems/airsense/units"
)

// Controller is implemented by *monitor.Monitor.
type Controller interface {
	Snapshot() monitor.Status
	CycleUnit() error
	SetUnit(u units.Unit) error
	Stop() error
	Configure() error
	ResetAndCalibrate() error
	SetInterval(seconds uint16) error
}

type handler func(ctl Controller, w io.Writer, args []string) error

type command struct {
	name    string
	aliases []string
	help    string
	run     handler
}

var errUsage = errors.New("usage")

var commands = []command{
	{name: "status", aliases: []string{"s"}, help: "show the last reading", run: status},
	{name: "unit", aliases: []string{"u"}, help: "[celsius|fahrenheit|kelvin]: set the temperature unit, or cycle it", run: unit},
	{name: "stop", help: "stop continuous measurement", run: action(Controller.Stop, "OK")},
	{name: "start", help: "configure and start continuous measurement", run: action(Controller.Configure, "OK")},
	{name: "reset", help: "soft reset and enable auto self calibration", run: action(Controller.ResetAndCalibrate, "OK")},
	{name: "interval", aliases: []string{"i"}, help: "SECONDS: set the measurement interval", run: interval},
}

// Commands returns the shell commands bound to ctl.
func Commands(ctl Controller) []*ishell.Cmd {
	cmds := make([]*ishell.Cmd, 0, len(commands))
	for _, c := range commands {
		run := c.run
		cmds = append(cmds, &ishell.Cmd{
			Name:    c.name,
			Aliases: c.aliases,
			Help:    c.help,
			Func: func(ctx *ishell.Context) {
				var buf bytes.Buffer
				err := run(ctl, &buf, ctx.Args)
				ctx.Print(buf.String())
				if err != nil {
					ctx.Err(err)
				}
			},
		})
	}
	return cmds
}

// New returns an interactive shell bound to ctl.
func New(ctl Controller) *ishell.Shell {
	sh := ishell.New()
	sh.SetPrompt("airsense > ")
	for _, c := range Commands(ctl) {
		sh.AddCmd(c)
	}
	return sh
}

// Exec runs a single command line without a terminal, writing its output to
// w.
func Exec(ctl Controller, w io.Writer, args ...string) error {
	if len(args) == 0 {
		return errors.New("console: command expected")
	}
	for _, c := range commands {
		if c.name == args[0] || contains(c.aliases, args[0]) {
			if err := c.run(ctl, w, args[1:]); err != nil {
				if errors.Is(err, errUsage) {
					return fmt.Errorf("console: %s %s", c.name, c.help)
				}
				return fmt.Errorf("console: %s: %w", c.name, err)
			}
			return nil
		}
	}
	return fmt.Errorf("console: unknown command %q", args[0])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func action(fn func(Controller) error, ok string) handler {
	return func(ctl Controller, w io.Writer, args []string) error {
		if err := fn(ctl); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, ok)
		return err
	}
}

func status(ctl Controller, w io.Writer, args []string) error {
	s := ctl.Snapshot()
	r := s.Reading
	u := s.Unit
	_, err := fmt.Fprintf(w,
		"CO2:         %.2f ppm\nTemperature: %.2f %s\nHumidity:    %.2f %%\nPM2.5:       %.2f µg/m³\nLevel:       %s\nUpdates:     %d\nFirmware:    %s\n",
		r.CO2, u.Convert(r.Temperature), u.Symbol(), r.Humidity, r.PM2_5, s.Level, s.Updates, firmware(s.Firmware))
	return err
}

func firmware(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func unit(ctl Controller, w io.Writer, args []string) error {
	switch len(args) {
	case 0:
		if err := ctl.CycleUnit(); err != nil {
			return err
		}
	case 1:
		u, ok := units.Parse(args[0])
		if !ok {
			return errUsage
		}
		if err := ctl.SetUnit(u); err != nil {
			return err
		}
	default:
		return errUsage
	}
	_, err := fmt.Fprintf(w, "unit %s\n", ctl.Snapshot().Unit)
	return err
}

func interval(ctl Controller, w io.Writer, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	v, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return errUsage
	}
	if err := ctl.SetInterval(uint16(v)); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "interval %ds\n", v)
	return err
}

var _ Controller = (*monitor.Monitor)(nil)
