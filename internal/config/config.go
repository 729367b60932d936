package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sensor sources for the periodic tick.
const (
	SourceDevices  = "devices"
	SourceExternal = "external"
)

const (
	envPrefix         = "SHIELD"
	defaultConfigDir  = "configs"
	defaultConfigName = "config"
)

// Config is the fully decoded service configuration.
type Config struct {
	Port        string            `mapstructure:"port"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Log         LogConfig         `mapstructure:"log"`
	DB          DBConfig          `mapstructure:"db"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Loop        LoopConfig        `mapstructure:"loop"`
	Thresholds  ThresholdsConfig  `mapstructure:"thresholds"`
	Circulation CirculationConfig `mapstructure:"circulation"`
	DustKicker  DustKickerConfig  `mapstructure:"dust_kicker"`
	Thermostat  ThermostatConfig  `mapstructure:"thermostat"`
	Purifier    PurifierConfig    `mapstructure:"purifier"`
	Relay       RelayConfig       `mapstructure:"relay"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
}

// HTTPConfig tunes the API server. WriteTimeout does not apply to /ws once
// the connection is upgraded.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console | json
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// LoopConfig controls the periodic control tick.
type LoopConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	SensorSource string        `mapstructure:"sensor_source"` // devices | external
}

// ThresholdsConfig holds the rule thresholds. PM in µg/m³, humidity in %RH,
// temperatures in °F.
type ThresholdsConfig struct {
	PM25High        float64 `mapstructure:"pm25_high"`
	PM25Medium      float64 `mapstructure:"pm25_medium"`
	HumidityHigh    float64 `mapstructure:"humidity_high"`
	HumidityLow     float64 `mapstructure:"humidity_low"`
	FreeDryOutdoor  float64 `mapstructure:"free_dry_outdoor"`
	OvercoolOutdoor float64 `mapstructure:"overcool_outdoor"`
}

type CirculationConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Dwell    time.Duration `mapstructure:"dwell"`
	PM25Max  float64       `mapstructure:"pm25_max"`
}

type DustKickerConfig struct {
	StirDelay   time.Duration `mapstructure:"stir_delay"`
	ScrubPeriod time.Duration `mapstructure:"scrub_period"`
}

// ThermostatConfig points at the MQTT bridge exposing the thermostat.
type ThermostatConfig struct {
	Broker      string        `mapstructure:"broker"`
	ClientID    string        `mapstructure:"client_id"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	TopicPrefix string        `mapstructure:"topic_prefix"`
	StaleAfter  time.Duration `mapstructure:"stale_after"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PurifierConfig points at the purifier's HTTP bridge.
type PurifierConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	DeviceIndex int           `mapstructure:"device_index"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RelayConfig describes the USB relay board driving the dehumidifier.
// An empty Port means auto-discovery.
type RelayConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Port     string `mapstructure:"port"`
	Channel  int    `mapstructure:"channel"`
	BaudRate int    `mapstructure:"baud_rate"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

var (
	errBadInterval = errors.New("loop.interval must be > 0")
	errBadSource   = errors.New("loop.sensor_source must be devices or external")
	errBadBand     = errors.New("thresholds.humidity_low must be <= thresholds.humidity_high")
	errBadPM       = errors.New("thresholds.pm25_medium must be <= thresholds.pm25_high")
	errBadChannel  = errors.New("relay.channel must be >= 1")
)

// SetDefaults registers a default for every key, so env overrides work for
// keys missing from the file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("http.read_header_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("db.path", "shield.db")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("loop.interval", 60*time.Second)
	v.SetDefault("loop.sensor_source", SourceDevices)

	v.SetDefault("thresholds.pm25_high", 10.0)
	v.SetDefault("thresholds.pm25_medium", 5.0)
	v.SetDefault("thresholds.humidity_high", 55.0)
	v.SetDefault("thresholds.humidity_low", 45.0)
	v.SetDefault("thresholds.free_dry_outdoor", 65.0)
	v.SetDefault("thresholds.overcool_outdoor", 80.0)

	v.SetDefault("circulation.enabled", true)
	v.SetDefault("circulation.interval", 60*time.Minute)
	v.SetDefault("circulation.dwell", 300*time.Second)
	v.SetDefault("circulation.pm25_max", 2.0)

	v.SetDefault("dust_kicker.stir_delay", 30*time.Second)
	v.SetDefault("dust_kicker.scrub_period", 600*time.Second)

	v.SetDefault("thermostat.broker", "")
	v.SetDefault("thermostat.client_id", "asthma-shield")
	v.SetDefault("thermostat.username", "")
	v.SetDefault("thermostat.password", "")
	v.SetDefault("thermostat.topic_prefix", "ecobee")
	v.SetDefault("thermostat.stale_after", 5*time.Minute)
	v.SetDefault("thermostat.timeout", 5*time.Second)

	v.SetDefault("purifier.base_url", "")
	v.SetDefault("purifier.username", "")
	v.SetDefault("purifier.password", "")
	v.SetDefault("purifier.device_index", 0)
	v.SetDefault("purifier.timeout", 10*time.Second)

	v.SetDefault("relay.enabled", true)
	v.SetDefault("relay.port", "")
	v.SetDefault("relay.channel", 2)
	v.SetDefault("relay.baud_rate", 9600)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "asthma-shield.events")
}

// Load reads configuration into a Config. An empty path searches
// configs/config.yml; a missing default file is not an error, a missing
// explicit file is.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(defaultConfigDir)
		v.SetConfigName(defaultConfigName)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints and normalizes a few values.
func Validate(cfg *Config) error {
	if cfg.Loop.Interval <= 0 {
		return errBadInterval
	}
	cfg.Loop.SensorSource = strings.ToLower(strings.TrimSpace(cfg.Loop.SensorSource))
	if cfg.Loop.SensorSource != SourceDevices && cfg.Loop.SensorSource != SourceExternal {
		return errBadSource
	}
	if cfg.Thresholds.HumidityLow > cfg.Thresholds.HumidityHigh {
		return errBadBand
	}
	if cfg.Thresholds.PM25Medium > cfg.Thresholds.PM25High {
		return errBadPM
	}
	if cfg.Relay.Channel < 1 {
		return errBadChannel
	}
	return nil
}
