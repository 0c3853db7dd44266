// Poolkeeper
// Copyright (c) 2026 The Poolkeeper Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Poolkeeper.
//
// Poolkeeper is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Poolkeeper is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Poolkeeper.  If not, see <http://www.gnu.org/licenses/>.

// Package publishers forwards daemon notifications to external systems.
package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout  = 10 * time.Second
	publishTimeout  = 5 * time.Second
	disconnectQuiet = 250
)

// Message is the MQTT payload: the notification name plus its params.
type Message struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// MQTTPublisher publishes notifications to one topic on an MQTT broker.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient func(*mqtt.ClientOptions) mqtt.Client
	broker    string
	topic     string
	filter    []string
}

// NewMQTTPublisher creates a publisher for broker (host:port). An empty
// filter publishes every notification.
func NewMQTTPublisher(broker, topic string, filter []string) *MQTTPublisher {
	return &MQTTPublisher{
		broker:    broker,
		topic:     topic,
		filter:    filter,
		newClient: mqtt.NewClient,
	}
}

func (p *MQTTPublisher) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker("tcp://" + p.broker)
	opts.SetClientID("poolkeeper-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Str("broker", p.broker).Msg("mqtt publisher connected")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher connection lost")
	}
	return opts
}

// Run connects and publishes notifications until ctx is done or the channel
// closes. A broker that cannot be reached is logged, not returned, so the
// rest of the daemon keeps running.
func (p *MQTTPublisher) Run(ctx context.Context, notifications <-chan models.Notification) error {
	p.client = p.newClient(p.clientOptions())
	defer p.disconnect()

	token := p.client.Connect()
	select {
	case <-ctx.Done():
		return nil
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		log.Error().Err(err).Str("broker", p.broker).Msg("failed to connect to mqtt broker")
		return nil
	}

	log.Info().Str("broker", p.broker).Str("topic", p.topic).Msg("mqtt publisher started")
	p.publishNotifications(ctx, notifications)
	return nil
}

// disconnect also runs while a connect is still being retried, which stops
// the client's retry loop.
func (p *MQTTPublisher) disconnect() {
	if p.client == nil {
		return
	}
	log.Debug().Bool("connected", p.client.IsConnected()).Msg("mqtt publisher disconnecting")
	p.client.Disconnect(disconnectQuiet)
}

func (p *MQTTPublisher) publishNotifications(ctx context.Context, notifications <-chan models.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-notifications:
			if !ok {
				log.Debug().Msg("mqtt publisher notification channel closed")
				return
			}
			if !p.matchesFilter(notif.Method) {
				continue
			}
			if err := p.publish(notif); err != nil {
				log.Error().Err(err).Str("method", notif.Method).Msg("mqtt publish failed")
			}
		}
	}
}

func (p *MQTTPublisher) publish(notif models.Notification) error {
	params := notif.Params
	if len(params) == 0 {
		params = json.RawMessage("null")
	}
	payload, err := json.Marshal(Message{Method: notif.Method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *MQTTPublisher) matchesFilter(method string) bool {
	return len(p.filter) == 0 || slices.Contains(p.filter, method)
}
