// Package relay drives the dehumidifier through a CH340 USB relay board
// speaking AT commands over a serial line.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"asthma_shield/internal/device"
	"asthma_shield/internal/models"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// CH340 USB identifiers.
const (
	ch340VID = "1a86"
	ch340PID = "7523"

	DefaultChannel  = 2
	DefaultBaudRate = 9600
)

var (
	// ErrNoBoard means auto-discovery found no CH340 port.
	ErrNoBoard = errors.New("no CH340 relay board found")
	errClosed  = errors.New("relay port closed")
)

// Config selects the port and channel. An empty Port triggers discovery.
type Config struct {
	Port     string
	Channel  int
	BaudRate int
}

// portLister lets tests replace the USB enumerator.
type portLister func() ([]*enumerator.PortDetails, error)

// Board is an open relay board.
type Board struct {
	port    string
	channel int

	mu sync.Mutex
	w  io.WriteCloser
	on *bool
}

var (
	_ device.Relay    = (*Board)(nil)
	_ device.Reporter = (*Board)(nil)
)

// Open discovers (if needed) and opens the relay port.
func Open(cfg Config) (*Board, error) {
	if cfg.Channel <= 0 {
		cfg.Channel = DefaultChannel
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	name := cfg.Port
	if name == "" {
		found, err := discover(enumerator.GetDetailedPortsList)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", device.ErrNotConfigured, err)
		}
		name = found
	}

	p, err := serial.Open(name, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open relay port %s: %w: %w", name, device.ErrDeviceUnavailable, err)
	}
	return newBoard(name, cfg.Channel, p), nil
}

func newBoard(port string, channel int, w io.WriteCloser) *Board {
	return &Board{port: port, channel: channel, w: w}
}

// discover returns the first CH340 serial port.
func discover(list portLister) (string, error) {
	ports, err := list()
	if err != nil {
		return "", fmt.Errorf("enumerate serial ports: %w", err)
	}
	for _, p := range ports {
		if p.IsUSB && strings.EqualFold(p.VID, ch340VID) && strings.EqualFold(p.PID, ch340PID) {
			return p.Name, nil
		}
	}
	return "", ErrNoBoard
}

// Command renders the AT command switching a channel.
func Command(channel int, on bool) string {
	if on {
		return fmt.Sprintf("AT+ON%d\r\n", channel)
	}
	return fmt.Sprintf("AT+OFF%d\r\n", channel)
}

// Set switches the dehumidifier channel. The board does not acknowledge,
// so a completed write counts as success.
func (b *Board) Set(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("relay: %w: %w", device.ErrDeviceUnavailable, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.w == nil {
		return fmt.Errorf("relay: %w: %w", device.ErrDeviceUnavailable, errClosed)
	}
	if _, err := io.WriteString(b.w, Command(b.channel, on)); err != nil {
		return fmt.Errorf("relay: write %s: %w: %w", b.port, device.ErrDeviceUnavailable, err)
	}
	b.on = &on
	return nil
}

// Close releases the serial port.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.w == nil {
		return nil
	}
	err := b.w.Close()
	b.w = nil
	return err
}

func (b *Board) Status() models.CollaboratorStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := models.CollaboratorStatus{Name: "relay", Enabled: b.w != nil}
	switch {
	case b.w == nil:
		st.Detail = "closed"
	case b.on == nil:
		st.Detail = fmt.Sprintf("%s channel %d", b.port, b.channel)
	default:
		st.Detail = fmt.Sprintf("%s channel %d on=%t", b.port, b.channel, *b.on)
	}
	return st
}
