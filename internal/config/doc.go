// Package config loads the service configuration from configs/config.yml,
// SHIELD_* environment variables and command line flags via viper.
package config
