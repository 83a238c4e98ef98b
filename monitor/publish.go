// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/GermanBionicSystems/airsense/config"
)

const (
	appID          = "airsense"
	publishTimeout = 5 * time.Second
)

var errPublishTimeout = errors.New("monitor: mqtt publish timed out")

// Topic returns the topic readings of the machine id are published to.
func Topic(prefix, id string) string {
	return prefix + "/" + id + "/reading"
}

// MQTTPublisher publishes readings as JSON.
type MQTTPublisher struct {
	client paho.Client
	topic  string
	qos    byte
}

// DialMQTT connects to the broker in cfg. Without a configured client id the
// machine id, hashed for this application, is used both as client id and in
// the topic.
func DialMQTT(cfg config.MQTTConfig, log logrus.FieldLogger) (*MQTTPublisher, error) {
	id := cfg.ClientID
	if id == "" {
		var err error
		if id, err = machineid.ProtectedID(appID); err != nil {
			return nil, fmt.Errorf("monitor: machine id: %w", err)
		}
	}
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker).
		SetClientID(id).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetOnConnectHandler(func(paho.Client) {
			log.WithField("broker", cfg.Broker).Info("mqtt connected")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		})
	c := paho.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("monitor: mqtt connect to %s timed out", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("monitor: mqtt connect: %w", err)
	}
	return NewMQTTPublisher(c, Topic(cfg.Prefix, id), cfg.QoS), nil
}

// NewMQTTPublisher publishes on topic through an already set up client.
func NewMQTTPublisher(c paho.Client, topic string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: c, topic: topic, qos: qos}
}

// Topic returns the topic readings are published to.
func (p *MQTTPublisher) Topic() string {
	return p.topic
}

// Publish implements Publisher.
func (p *MQTTPublisher) Publish(r Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	tok := p.client.Publish(p.topic, p.qos, false, payload)
	if !tok.WaitTimeout(publishTimeout) {
		return errPublishTimeout
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("monitor: mqtt publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker, letting pending work finish for up to
// 250ms.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
