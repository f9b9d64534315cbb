// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/forktilt/internal/orientation"
	"github.com/relabs-tech/forktilt/internal/sensors/mpu6050"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. FORKTILT_I2C_BUS.
const EnvPrefix = "FORKTILT"

// Config holds all application configuration values.
type Config struct {
	LogLevel log.Level

	// Sensor
	I2CBus string // periph.io bus name, "" for the first bus
	UseSim bool   // drive the simulated device instead of hardware
	Filter mpu6050.FilterPolicy
	Angle  orientation.AngleMode

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicTilt   string
	TopicIMURaw string

	// Timing
	SampleInterval     int // milliseconds
	ConsoleLogInterval int // milliseconds

	// Web Server
	WebServerPort            int
	RegisterDebugPort        int
	RegisterDebugAllowWrites bool

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Survey
	SurveyDuration int // seconds
}

// Keys lists every accepted key in file order.
var Keys = []string{
	"LOG_LEVEL",
	"I2C_BUS",
	"USE_SIM",
	"FILTER_POLICY",
	"ANGLE_MODE",
	"MQTT_BROKER",
	"MQTT_CLIENT_ID_PRODUCER",
	"MQTT_CLIENT_ID_CONSOLE",
	"MQTT_CLIENT_ID_WEB",
	"MQTT_CLIENT_ID_DISPLAY",
	"TOPIC_TILT",
	"TOPIC_IMU_RAW",
	"SAMPLE_INTERVAL",
	"CONSOLE_LOG_INTERVAL",
	"WEB_SERVER_PORT",
	"REGISTER_DEBUG_PORT",
	"REGISTER_DEBUG_ALLOW_WRITES",
	"DISPLAY_I2C_ADDR",
	"DISPLAY_UPDATE_INTERVAL",
	"SURVEY_DURATION",
}

// Package-level singleton: InitGlobal sets it once, Get reads it under a
// read lock, Override mutates it under the write lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration that works against a local broker with
// the device on the first I2C bus.
func Default() *Config {
	return &Config{
		LogLevel:              log.InfoLevel,
		Filter:                mpu6050.FilterRolling,
		Angle:                 orientation.ThreeAxis,
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDProducer:  "forktilt-producer",
		MQTTClientIDConsole:   "forktilt-console",
		MQTTClientIDWeb:       "forktilt-web",
		MQTTClientIDDisplay:   "forktilt-display",
		TopicTilt:             "forktilt/tilt",
		TopicIMURaw:           "forktilt/imu/raw",
		SampleInterval:        50,
		ConsoleLogInterval:    500,
		WebServerPort:         8080,
		RegisterDebugPort:     8081,
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 200,
		SurveyDuration:        30,
	}
}

// Load starts from Default, applies the KEY=VALUE file at configPath (if
// not empty) and then FORKTILT_<KEY> environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		for _, k := range v.AllKeys() {
			if !isKey(strings.ToUpper(k)) {
				return nil, fmt.Errorf("unknown config key: %q", strings.ToUpper(k))
			}
		}
	}

	cfg := Default()
	for _, key := range Keys {
		lk := strings.ToLower(key)
		if !v.IsSet(lk) {
			continue
		}
		if err := cfg.setValue(key, strings.TrimSpace(v.GetString(lk))); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	case "LOG_LEVEL":
		c.LogLevel, err = log.ParseLevel(value)
		if err != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", value, err)
		}

	// Sensor
	case "I2C_BUS":
		c.I2CBus = value
	case "USE_SIM":
		c.UseSim, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid USE_SIM %q: %w", value, err)
		}
	case "FILTER_POLICY":
		c.Filter, err = mpu6050.ParseFilterPolicy(value)
		if err != nil {
			return fmt.Errorf("invalid FILTER_POLICY: %w", err)
		}
	case "ANGLE_MODE":
		c.Angle, err = orientation.ParseAngleMode(value)
		if err != nil {
			return fmt.Errorf("invalid ANGLE_MODE: %w", err)
		}

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_TILT":
		c.TopicTilt = value
	case "TOPIC_IMU_RAW":
		c.TopicIMURaw = value

	// Timing
	case "SAMPLE_INTERVAL":
		c.SampleInterval, err = parseInt(key, value)
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseInt(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)
	case "REGISTER_DEBUG_PORT":
		c.RegisterDebugPort, err = parseInt(key, value)
	case "REGISTER_DEBUG_ALLOW_WRITES":
		c.RegisterDebugAllowWrites, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid REGISTER_DEBUG_ALLOW_WRITES %q: %w", value, err)
		}

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 7)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)

	// Survey
	case "SURVEY_DURATION":
		c.SurveyDuration, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// value renders one key the way setValue accepts it.
func (c *Config) value(key string) string {
	switch key {
	case "LOG_LEVEL":
		return c.LogLevel.String()
	case "I2C_BUS":
		return c.I2CBus
	case "USE_SIM":
		return strconv.FormatBool(c.UseSim)
	case "FILTER_POLICY":
		return c.Filter.String()
	case "ANGLE_MODE":
		return c.Angle.String()
	case "MQTT_BROKER":
		return c.MQTTBroker
	case "MQTT_CLIENT_ID_PRODUCER":
		return c.MQTTClientIDProducer
	case "MQTT_CLIENT_ID_CONSOLE":
		return c.MQTTClientIDConsole
	case "MQTT_CLIENT_ID_WEB":
		return c.MQTTClientIDWeb
	case "MQTT_CLIENT_ID_DISPLAY":
		return c.MQTTClientIDDisplay
	case "TOPIC_TILT":
		return c.TopicTilt
	case "TOPIC_IMU_RAW":
		return c.TopicIMURaw
	case "SAMPLE_INTERVAL":
		return strconv.Itoa(c.SampleInterval)
	case "CONSOLE_LOG_INTERVAL":
		return strconv.Itoa(c.ConsoleLogInterval)
	case "WEB_SERVER_PORT":
		return strconv.Itoa(c.WebServerPort)
	case "REGISTER_DEBUG_PORT":
		return strconv.Itoa(c.RegisterDebugPort)
	case "REGISTER_DEBUG_ALLOW_WRITES":
		return strconv.FormatBool(c.RegisterDebugAllowWrites)
	case "DISPLAY_I2C_ADDR":
		return fmt.Sprintf("0x%02X", c.DisplayI2CAddr)
	case "DISPLAY_UPDATE_INTERVAL":
		return strconv.Itoa(c.DisplayUpdateInterval)
	case "SURVEY_DURATION":
		return strconv.Itoa(c.SurveyDuration)
	}
	return ""
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicTilt == "" {
		return fmt.Errorf("TOPIC_TILT is required")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive, got %d", c.SampleInterval)
	}
	if c.ConsoleLogInterval <= 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL must be positive, got %d", c.ConsoleLogInterval)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	if c.SurveyDuration <= 0 {
		return fmt.Errorf("SURVEY_DURATION must be positive, got %d", c.SurveyDuration)
	}
	for key, port := range map[string]int{
		"WEB_SERVER_PORT":     c.WebServerPort,
		"REGISTER_DEBUG_PORT": c.RegisterDebugPort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s must be 1-65535, got %d", key, port)
		}
	}
	return nil
}

// Env renders the configuration in the KEY=VALUE file format Load reads.
func (c *Config) Env() string {
	var b strings.Builder
	b.WriteString("# forktilt configuration\n")
	for _, key := range Keys {
		fmt.Fprintf(&b, "%s=%s\n", key, c.value(key))
	}
	return b.String()
}

// Dump renders the effective configuration as YAML.
func (c *Config) Dump() ([]byte, error) {
	m := make(map[string]string, len(Keys))
	for _, key := range Keys {
		m[key] = c.value(key)
	}
	return yaml.Marshal(m)
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Override applies fn to the global configuration under the write lock.
// Command-line flags use it after InitGlobal.
func Override(fn func(*Config)) {
	configMu.Lock()
	defer configMu.Unlock()
	if globalConfig == nil {
		globalConfig = Default()
	}
	fn(globalConfig)
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
