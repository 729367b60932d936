// Package thermostat talks to the thermostat through an MQTT bridge. The
// bridge publishes a JSON state document on <prefix>/state and accepts fan
// mode changes on <prefix>/fan/set.
package thermostat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"asthma_shield/internal/device"
	"asthma_shield/internal/logger"
	"asthma_shield/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	stateSuffix         = "/state"
	fanSetSuffix        = "/fan/set"
	qosAtLeastOnce byte = 1

	defaultTimeout    = 5 * time.Second
	defaultStaleAfter = 5 * time.Minute

	connectRetryInterval = 10 * time.Second
)

var errNoBroker = errors.New("thermostat broker not set")

// Config holds the MQTT connection settings.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	StaleAfter  time.Duration
	Timeout     time.Duration
}

// stateMessage is the bridge's state document.
type stateMessage struct {
	Temperature        *float64 `json:"temperature"`
	Humidity           *float64 `json:"humidity"`
	OutdoorTemperature *float64 `json:"outdoor_temperature"`
	HVACMode           string   `json:"hvac_mode"`
	HVACRunning        bool     `json:"hvac_running"`
	FanRunning         bool     `json:"fan_running"`
	Occupancy          *bool    `json:"occupancy"`
}

// Client is the MQTT thermostat collaborator.
type Client struct {
	cfg    Config
	client mqtt.Client
	log    *logger.Logger
	now    func() time.Time

	mu         sync.RWMutex
	latest     *stateMessage
	receivedAt time.Time
}

var (
	_ device.Thermostat    = (*Client)(nil)
	_ device.ClimateReader = (*Client)(nil)
	_ device.Reporter      = (*Client)(nil)
)

// New builds a client; it does not connect. A missing broker returns
// device.ErrNotConfigured.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, fmt.Errorf("%w: %w", device.ErrNotConfigured, errNoBroker)
	}
	c := newClient(cfg, log)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetConnectTimeout(c.cfg.Timeout).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.log.Warnw("thermostat_connection_lost", "err", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	c.client = mqtt.NewClient(opts)
	return c, nil
}

func newClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}
	cfg.TopicPrefix = strings.TrimSuffix(cfg.TopicPrefix, "/")
	if log == nil {
		log = logger.Nop()
	}
	return &Client{cfg: cfg, log: log, now: time.Now}
}

// Connect dials the broker. If ctx expires first the client keeps retrying
// in the background. Subscriptions are (re)established from the
// on-connect handler so they survive reconnects.
func (c *Client) Connect(ctx context.Context) error {
	tok := c.client.Connect()
	if err := c.wait(ctx, tok); err != nil {
		return fmt.Errorf("connect %s: %w", c.cfg.Broker, err)
	}
	return nil
}

// Close disconnects, giving in-flight publishes a moment to finish. It also
// stops a pending connect retry loop.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Disconnect(250)
	}
}

func (c *Client) onConnect(cl mqtt.Client) {
	topic := c.cfg.TopicPrefix + stateSuffix
	tok := cl.Subscribe(topic, qosAtLeastOnce, c.handleState)
	if !tok.WaitTimeout(c.cfg.Timeout) || tok.Error() != nil {
		c.log.Errorw("thermostat_subscribe_failed", "topic", topic, "err", tok.Error())
		return
	}
	c.log.Infow("thermostat_subscribed", "topic", topic)
}

func (c *Client) handleState(_ mqtt.Client, msg mqtt.Message) {
	var st stateMessage
	if err := json.Unmarshal(msg.Payload(), &st); err != nil {
		c.log.Warnw("thermostat_bad_state", "topic", msg.Topic(), "err", err)
		return
	}
	c.mu.Lock()
	c.latest = &st
	c.receivedAt = c.now()
	c.mu.Unlock()
}

// ReadClimate returns the last state document, or ErrDeviceUnavailable when
// none arrived within StaleAfter.
func (c *Client) ReadClimate(_ context.Context) (device.Climate, error) {
	c.mu.RLock()
	st, at := c.latest, c.receivedAt
	c.mu.RUnlock()

	if st == nil {
		return device.Climate{}, fmt.Errorf("thermostat: no state received: %w", device.ErrDeviceUnavailable)
	}
	if age := c.now().Sub(at); age > c.cfg.StaleAfter {
		return device.Climate{}, fmt.Errorf("thermostat: state is %s old: %w", age.Round(time.Second), device.ErrDeviceUnavailable)
	}

	mode, ok := models.ParseHVACMode(st.HVACMode)
	if !ok {
		mode = models.HVACOff
	}
	return device.Climate{
		IndoorTemp:     st.Temperature,
		IndoorHumidity: st.Humidity,
		OutdoorTemp:    st.OutdoorTemperature,
		Occupied:       st.Occupancy,
		HVACMode:       mode,
		HVACRunning:    st.HVACRunning,
		FanRunning:     st.FanRunning,
	}, nil
}

// SetFanMode publishes the fan mode and waits for the broker to accept it.
func (c *Client) SetFanMode(ctx context.Context, mode models.FanMode) error {
	if _, ok := models.ParseFanMode(string(mode)); !ok {
		return fmt.Errorf("thermostat: fan mode %q: %w", mode, device.ErrCommandRejected)
	}
	if !c.client.IsConnectionOpen() {
		return fmt.Errorf("thermostat: not connected: %w", device.ErrDeviceUnavailable)
	}
	tok := c.client.Publish(c.cfg.TopicPrefix+fanSetSuffix, qosAtLeastOnce, false, string(mode))
	if err := c.wait(ctx, tok); err != nil {
		return fmt.Errorf("thermostat: publish fan mode: %w", err)
	}
	return nil
}

// Status reports connectivity for the status endpoint.
func (c *Client) Status() models.CollaboratorStatus {
	st := models.CollaboratorStatus{Name: "thermostat", Enabled: true}
	if c.client == nil || !c.client.IsConnectionOpen() {
		st.Detail = "disconnected"
		return st
	}
	st.Detail = "connected"
	return st
}

// wait blocks on an MQTT token bounded by the configured timeout and ctx.
func (c *Client) wait(ctx context.Context, tok mqtt.Token) error {
	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("%w: %w", device.ErrDeviceUnavailable, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("timed out after %s: %w", c.cfg.Timeout, device.ErrDeviceUnavailable)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", device.ErrDeviceUnavailable, ctx.Err())
	}
}
