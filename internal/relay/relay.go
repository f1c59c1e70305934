package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// sensorMessage is the local feed payload published by the edge device.
type sensorMessage struct {
	DistanceCM  *float64 `json:"distancia_cm"`
	Distance    *float64 `json:"distancia"`
	Temperature *float64 `json:"temperatura"`
	Humidity    *float64 `json:"umidade"`
	Alert       bool     `json:"alerta"`
}

// forwardPayload is what the relay posts to the ingestion endpoint. The
// relay stamps the observation time; the server falls back to its own
// clock when the stamp is absent or unparseable.
type forwardPayload struct {
	DistanceCM  *float64 `json:"distancia_cm,omitempty"`
	Temperature *float64 `json:"temperatura,omitempty"`
	Humidity    *float64 `json:"umidade,omitempty"`
	Alert       bool     `json:"alerta"`
	Timestamp   string   `json:"data_hora"`
}

// Relay subscribes to one device's local feed and forwards readings to the
// ingestion endpoint, rate-limited by a minimum interval. The interval
// filter drops intermediate messages instead of queueing them; the last
// forward time only advances on a confirmed success, so a failed forward
// never extends the window.
type Relay struct {
	cfg    Config
	http   *http.Client
	logger *log.Logger
	now    func() time.Time

	lastForward time.Time
}

// Option configures the relay.
type Option func(*Relay)

// WithClock overrides the relay clock.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

// WithHTTPClient overrides the forwarding HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Relay) {
		if client != nil {
			r.http = client
		}
	}
}

// New constructs a relay.
func New(cfg Config, logger *log.Logger, opts ...Option) (*Relay, error) {
	if cfg.ForwardURL == "" {
		return nil, errors.New("relay: forward url required")
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	relay := &Relay{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(relay)
	}
	return relay, nil
}

// Run connects to the local feed and relays messages until ctx ends.
// Paho serializes message callbacks, so HandleMessage runs as a single
// sequential loop per relay instance.
func (r *Relay) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(r.cfg.Broker)
	opts.SetClientID(r.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		r.logger.Printf("relay: connected, subscribing to %s", r.cfg.Topic)
		if token := client.Subscribe(r.cfg.Topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			r.HandleMessage(msg.Topic(), msg.Payload())
		}); token.Wait() && token.Error() != nil {
			r.logger.Printf("relay: subscribe error: %v", token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		r.logger.Printf("relay: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("relay: connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	<-ctx.Done()
	return ctx.Err()
}

// HandleMessage processes one feed message: decode, debounce, forward.
// A malformed message is logged and discarded; it never stops the loop.
func (r *Relay) HandleMessage(topic string, payload []byte) {
	var msg sensorMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.Printf("relay: discard malformed message on %s: %v", topic, err)
		return
	}

	distance := msg.DistanceCM
	if distance == nil {
		distance = msg.Distance
	}
	if distance == nil && msg.Temperature == nil {
		r.logger.Printf("relay: discard message without measurement on %s", topic)
		return
	}

	now := r.now()
	if now.Sub(r.lastForward) < r.cfg.MinInterval {
		return
	}

	body, err := json.Marshal(forwardPayload{
		DistanceCM:  distance,
		Temperature: msg.Temperature,
		Humidity:    msg.Humidity,
		Alert:       msg.Alert,
		Timestamp:   now.Format("2006-01-02T15:04:05"),
	})
	if err != nil {
		r.logger.Printf("relay: encode error: %v", err)
		return
	}

	resp, err := r.http.Post(r.cfg.ForwardURL, "application/json", bytes.NewReader(body))
	if err != nil {
		r.logger.Printf("relay: forward error: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		r.logger.Printf("relay: forward rejected: status %d", resp.StatusCode)
		return
	}

	r.lastForward = now
}
