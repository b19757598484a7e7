//go:build tinygo

// Package telemetry publishes roller-blind status frames over MQTT using
// an allocation-light client, in the spirit of the board's modem drivers
// in ch9120/comboat: a small framed protocol pushed over a UART-attached
// network device, serviced from a background goroutine.
package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"

	"github.com/faern/fyrtur-motor-board/internal/motion"
	"github.com/faern/fyrtur-motor-board/internal/quadrature"
)

// Config configures the firmware-side publisher.
type Config struct {
	ClientID string
	Topic    string
	QoS      mqtt.QoSLevel
	// RxBuffer sizes the decoder's fixed scratch buffer. natiu-mqtt's
	// no-alloc decoder needs one big enough for the largest expected
	// inbound packet (CONNACK/PUBACK); status payloads are tiny.
	RxBuffer int
}

// DefaultConfig returns sane defaults for the status topic.
func DefaultConfig() Config {
	return Config{
		ClientID: "fyrtur-board",
		Topic:    "fyrtur/status",
		QoS:      mqtt.QoS0,
		RxBuffer: 256,
	}
}

// Status is the JSON payload published on every tick.
type Status struct {
	PositionPercent uint8  `json:"position_percent"`
	Status          string `json:"status"`
	Direction       string `json:"direction"`
	RPM             uint32 `json:"rpm"`
}

// Publisher pushes Status snapshots to an MQTT broker reachable through
// a transport supplied by the caller (typically a board.NetConn wrapping
// the board's ch9120 or comboat network driver).
type Publisher struct {
	cfg    Config
	client *mqtt.Client
	mu     sync.Mutex
	connected bool
}

// New builds a Publisher. The transport is not dialed until Connect is
// called, mirroring comboat's deferred-connect NetConnect pattern.
func New(cfg Config) *Publisher {
	if cfg.RxBuffer == 0 {
		cfg.RxBuffer = 256
	}
	client := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, cfg.RxBuffer)},
	})
	return &Publisher{cfg: cfg, client: client}
}

// Connect performs the MQTT CONNECT handshake over transport.
func (p *Publisher) Connect(ctx context.Context, transport mqtt.Transport) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	varHeader := mqtt.VariablesConnect{
		ClientID:     []byte(p.cfg.ClientID),
		CleanSession: true,
		Protocol: mqtt.ProtocolConnect{
			Name:  "MQTT",
			Level: 4,
		},
		KeepAlive: 60,
	}
	if err := p.client.Connect(ctx, transport, &varHeader); err != nil {
		return err
	}
	p.connected = true
	return nil
}

// Publish encodes a Status as JSON and sends it on the configured topic.
// It is a no-op error if the client isn't connected.
func (p *Publisher) Publish(ctx context.Context, status Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return errNotConnected
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return p.client.PublishPayload(ctx, mqtt.Header{
		Qos:      p.cfg.QoS,
		PacketID: 0,
	}, p.cfg.Topic, payload)
}

// Snapshot builds a Status from the live controller/decoder pair. Meant
// to be called on a timer and fed straight into Publish.
func Snapshot(c *motion.Controller, d *quadrature.Decoder) Status {
	return Status{
		PositionPercent: c.PositionPercent(),
		Status:          c.Status().String(),
		Direction:       c.Direction().String(),
		RPM:             d.RPM(c.GearRatio()),
	}
}

// Run publishes a Status snapshot every interval until ctx is canceled.
// Errors are swallowed; a dropped status frame is not worth restarting
// the control loop over.
func (p *Publisher) Run(ctx context.Context, interval time.Duration, c *motion.Controller, d *quadrature.Decoder) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.Publish(ctx, Snapshot(c, d))
		}
	}
}

var errNotConnected = &notConnectedError{}

type notConnectedError struct{}

func (*notConnectedError) Error() string { return "telemetry: publisher not connected" }
