package main

import (
	"context"
	"errors"

	"asthma_shield/internal/config"
	"asthma_shield/internal/device"
	"asthma_shield/internal/device/purifier"
	"asthma_shield/internal/device/relay"
	"asthma_shield/internal/device/thermostat"
	"asthma_shield/internal/logger"
)

// devices holds the collaborators used by the coordinator and the sensor
// reader. A collaborator that cannot be set up is replaced by
// device.Disabled for the process lifetime.
type devices struct {
	purifier   device.Purifier
	air        device.AirQualityReader
	thermostat device.Thermostat
	climate    device.ClimateReader
	relay      device.Relay
	reporters  []device.Reporter
	closers    []func()
}

func openDevices(ctx context.Context, cfg *config.Config, log *logger.Logger) *devices {
	d := &devices{}
	d.openPurifier(cfg.Purifier, log)
	d.openThermostat(ctx, cfg.Thermostat, log)
	d.openRelay(cfg.Relay, log)
	return d
}

func (d *devices) openPurifier(cfg config.PurifierConfig, log *logger.Logger) {
	c, err := purifier.New(purifier.Config{
		BaseURL:     cfg.BaseURL,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DeviceIndex: cfg.DeviceIndex,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		off := disabled("purifier", err, log)
		d.purifier, d.air = off, off
		d.reporters = append(d.reporters, off)
		return
	}
	d.purifier, d.air = c, c
	d.reporters = append(d.reporters, c)
}

func (d *devices) openThermostat(ctx context.Context, cfg config.ThermostatConfig, log *logger.Logger) {
	tlog := log.Named("thermostat")
	c, err := thermostat.New(thermostat.Config{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID,
		Username:    cfg.Username,
		Password:    cfg.Password,
		TopicPrefix: cfg.TopicPrefix,
		StaleAfter:  cfg.StaleAfter,
		Timeout:     cfg.Timeout,
	}, tlog)
	if err != nil {
		off := disabled("thermostat", err, log)
		d.thermostat, d.climate = off, off
		d.reporters = append(d.reporters, off)
		return
	}
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := c.Connect(connectCtx); err != nil {
		// paho keeps retrying; reads fail as unavailable until it connects
		tlog.Warnw("thermostat_connect_failed", "err", err)
	}
	d.thermostat, d.climate = c, c
	d.reporters = append(d.reporters, c)
	d.closers = append(d.closers, c.Close)
}

func (d *devices) openRelay(cfg config.RelayConfig, log *logger.Logger) {
	if !cfg.Enabled {
		off := device.Disabled{Name: "relay", Reason: "disabled in config"}
		log.Infow("collaborator_disabled", "name", off.Name, "reason", off.Reason)
		d.relay = off
		d.reporters = append(d.reporters, off)
		return
	}
	b, err := relay.Open(relay.Config{Port: cfg.Port, Channel: cfg.Channel, BaudRate: cfg.BaudRate})
	if err != nil {
		off := disabled("relay", err, log)
		d.relay = off
		d.reporters = append(d.reporters, off)
		return
	}
	log.Infow("relay_opened", "port", cfg.Port, "channel", cfg.Channel)
	d.relay = b
	d.reporters = append(d.reporters, b)
	d.closers = append(d.closers, func() {
		if err := b.Close(); err != nil {
			log.Warnw("failed to close relay", "err", err)
		}
	})
}

// close releases device handles in reverse order of opening.
func (d *devices) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// disabled logs once at startup and returns the stand-in collaborator.
func disabled(name string, err error, log *logger.Logger) device.Disabled {
	reason := err.Error()
	if errors.Is(err, device.ErrNotConfigured) {
		log.Infow("collaborator_disabled", "name", name, "reason", reason)
	} else {
		log.Warnw("collaborator_disabled", "name", name, "reason", reason)
	}
	return device.Disabled{Name: name, Reason: reason}
}
