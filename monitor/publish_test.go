// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	timeout bool
	err     error
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	c := make(chan struct{})
	if !t.timeout {
		close(c)
	}
	return c
}

type fakeClient struct {
	paho.Client

	token        *fakeToken
	topic        string
	qos          byte
	retained     bool
	payload      []byte
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.topic = topic
	c.qos = qos
	c.retained = retained
	c.payload = payload.([]byte)
	return c.token
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "airsense/abc123/reading", Topic("airsense", "abc123"))
}

func TestMQTTPublish(t *testing.T) {
	c := &fakeClient{token: &fakeToken{}}
	p := NewMQTTPublisher(c, Topic("office", "id"), 1)
	assert.Equal(t, "office/id/reading", p.Topic())
	when := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	require.NoError(t, p.Publish(Reading{CO2: 412.5, Temperature: 21.25, Humidity: 45, Level: "green", Time: when}))
	assert.Equal(t, "office/id/reading", c.topic)
	assert.Equal(t, byte(1), c.qos)
	assert.False(t, c.retained)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(c.payload, &got))
	assert.Equal(t, 412.5, got["co2"])
	assert.Equal(t, 21.25, got["temperature"])
	assert.Equal(t, "green", got["level"])
	assert.Equal(t, "2026-10-17T09:30:00Z", got["time"])
	assert.NotContains(t, got, "pm2_5")

	require.NoError(t, p.Close())
	assert.True(t, c.disconnected)
}

func TestMQTTPublishErrors(t *testing.T) {
	c := &fakeClient{token: &fakeToken{err: errors.New("not connected")}}
	p := NewMQTTPublisher(c, "t", 0)
	require.ErrorIs(t, p.Publish(Reading{}), c.token.err)

	c.token = &fakeToken{timeout: true}
	require.ErrorIs(t, p.Publish(Reading{}), errPublishTimeout)
}
