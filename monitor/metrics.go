// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GermanBionicSystems/airsense/alert"
	"github.com/GermanBionicSystems/airsense/scd30"
	"github.com/GermanBionicSystems/airsense/sps30"
)

// Metrics exports the readings to Prometheus. A nil *Metrics records
// nothing.
type Metrics struct {
	reg prometheus.Gatherer

	CO2         prometheus.Gauge
	Temperature prometheus.Gauge
	Humidity    prometheus.Gauge
	PM1_0       prometheus.Gauge
	PM2_5       prometheus.Gauge
	AlertLevel  prometheus.Gauge
	PollErrors  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on a fresh registry
// that also carries the process and Go runtime collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		CO2: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airsense_co2_ppm",
			Help: "Last retained CO2 concentration.",
		}),
		Temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airsense_temperature_celsius",
			Help: "Last retained temperature.",
		}),
		Humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airsense_humidity_percent",
			Help: "Last retained relative humidity.",
		}),
		PM1_0: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airsense_pm1_0",
			Help: "Last PM1.0 mass concentration in µg/m³.",
		}),
		PM2_5: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airsense_pm2_5",
			Help: "Last PM2.5 mass concentration in µg/m³.",
		}),
		AlertLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airsense_alert_level",
			Help: "CO2 alert level: 0 green, 1 blue, 2 yellow, 3 red.",
		}),
		PollErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airsense_poll_errors_total",
				Help: "Failed sensor polls.",
			},
			[]string{"sensor"},
		),
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		m.CO2,
		m.Temperature,
		m.Humidity,
		m.PM1_0,
		m.PM2_5,
		m.AlertLevel,
		m.PollErrors,
	)
	m.reg = reg
	return m
}

// Gatherer returns the registry holding the collectors.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) observeCO2(e scd30.Env) {
	if m == nil {
		return
	}
	m.CO2.Set(float64(e.CO2))
	m.Temperature.Set(float64(e.Temperature))
	m.Humidity.Set(float64(e.Humidity))
}

func (m *Metrics) observePM(e sps30.Env) {
	if m == nil {
		return
	}
	m.PM1_0.Set(float64(e.PM1_0))
	m.PM2_5.Set(float64(e.PM2_5))
}

func (m *Metrics) observeLevel(l alert.Level) {
	if m == nil {
		return
	}
	m.AlertLevel.Set(float64(l))
}

func (m *Metrics) pollError(sensor string) {
	if m == nil {
		return
	}
	m.PollErrors.WithLabelValues(sensor).Inc()
}
