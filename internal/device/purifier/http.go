// Package purifier drives the air purifier through its HTTP bridge.
package purifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"asthma_shield/internal/device"
	"asthma_shield/internal/models"
)

const (
	statusPath = "/api/purifier/status"
	fanPath    = "/api/purifier/fan"
	ledPath    = "/api/purifier/led"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

var errNoBaseURL = errors.New("purifier base url not set")

// Config holds the bridge address and credentials.
type Config struct {
	BaseURL     string
	Username    string
	Password    string
	DeviceIndex int
	Timeout     time.Duration
}

type fanRequest struct {
	DeviceIndex int `json:"device_index"`
	Speed       int `json:"speed"`
}

type ledRequest struct {
	DeviceIndex int `json:"device_index"`
	Brightness  int `json:"brightness"`
}

type statusResponse struct {
	Connected bool `json:"connected"`
	Status    struct {
		FanSpeed      int      `json:"fan_speed"`
		LEDBrightness int      `json:"led_brightness"`
		PM25          *float64 `json:"pm25"`
		TVOC          *float64 `json:"tvoc"`
	} `json:"status"`
}

// Client is the HTTP purifier collaborator.
type Client struct {
	cfg  Config
	base *url.URL
	http *http.Client

	mu       sync.Mutex
	lastErr  error
	lastSeen time.Time
}

var (
	_ device.Purifier         = (*Client)(nil)
	_ device.AirQualityReader = (*Client)(nil)
	_ device.Reporter         = (*Client)(nil)
)

// New validates cfg and builds a client. A missing base URL returns
// device.ErrNotConfigured.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%w: %w", device.ErrNotConfigured, errNoBaseURL)
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse purifier base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, base: base, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

// SetSpeed sets the fan speed (0..3).
func (c *Client) SetSpeed(ctx context.Context, speed int) error {
	if speed < models.PurifierSpeedOff || speed > models.PurifierSpeedMax {
		return fmt.Errorf("purifier: speed %d: %w", speed, device.ErrCommandRejected)
	}
	return c.post(ctx, fanPath, fanRequest{DeviceIndex: c.cfg.DeviceIndex, Speed: speed})
}

// SetLED sets the LED brightness (0..100).
func (c *Client) SetLED(ctx context.Context, brightness int) error {
	if brightness < models.LEDOff || brightness > models.LEDMax {
		return fmt.Errorf("purifier: brightness %d: %w", brightness, device.ErrCommandRejected)
	}
	return c.post(ctx, ledPath, ledRequest{DeviceIndex: c.cfg.DeviceIndex, Brightness: brightness})
}

// ReadAirQuality fetches the purifier's particulate and VOC readings.
func (c *Client) ReadAirQuality(ctx context.Context) (device.AirQuality, error) {
	u := c.endpoint(statusPath)
	q := u.Query()
	q.Set("device_index", strconv.Itoa(c.cfg.DeviceIndex))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return device.AirQuality{}, fmt.Errorf("purifier: build request: %w", err)
	}
	var out statusResponse
	if err := c.do(req, &out); err != nil {
		return device.AirQuality{}, err
	}
	if !out.Connected {
		err := fmt.Errorf("purifier: bridge reports device offline: %w", device.ErrDeviceUnavailable)
		c.record(err)
		return device.AirQuality{}, err
	}
	return device.AirQuality{PM25: out.Status.PM25, TVOC: out.Status.TVOC}, nil
}

// Status reports the outcome of the most recent request.
func (c *Client) Status() models.CollaboratorStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := models.CollaboratorStatus{Name: "purifier", Enabled: true}
	switch {
	case c.lastErr != nil:
		st.Detail = c.lastErr.Error()
	case c.lastSeen.IsZero():
		st.Detail = "no requests yet"
	default:
		st.Detail = "ok"
	}
	return st
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("purifier: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path).String(), bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("purifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

// do sends req and maps the outcome onto the device error kinds: transport
// failures and 5xx are unavailable, 4xx is rejected.
func (c *Client) do(req *http.Request, out any) error {
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		err = fmt.Errorf("purifier: %s %s: %w: %w", req.Method, req.URL.Path, device.ErrDeviceUnavailable, err)
		c.record(err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		kind := device.ErrDeviceUnavailable
		if resp.StatusCode < http.StatusInternalServerError {
			kind = device.ErrCommandRejected
		}
		err := fmt.Errorf("purifier: %s %s: status %d %s: %w", req.Method, req.URL.Path,
			resp.StatusCode, strings.TrimSpace(string(msg)), kind)
		c.record(err)
		return err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			err = fmt.Errorf("purifier: decode %s: %w: %w", req.URL.Path, device.ErrDeviceUnavailable, err)
			c.record(err)
			return err
		}
	}
	c.record(nil)
	return nil
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return &u
}

func (c *Client) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	if err == nil {
		c.lastSeen = time.Now()
	}
}
