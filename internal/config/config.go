package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Sensor      SensorConfig      `yaml:"sensor"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Feedback    FeedbackConfig    `yaml:"feedback"`
	Web         WebConfig         `yaml:"web"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	BLE         BLEConfig         `yaml:"ble"`
	Log         LogConfig         `yaml:"log"`
}

type SensorConfig struct {
	// Source selects the sample producer: auto probes the IMU and falls
	// back to demo when absent.
	Source      string  `yaml:"source"` // auto | demo | imu | spi | nmea | replay
	I2CBus      string  `yaml:"i2c_bus"`
	I2CAddr     uint16  `yaml:"i2c_addr"`
	SPIPort     string  `yaml:"spi_port"`
	SPICSPin    string  `yaml:"spi_cs_pin"`
	NMEADevice  string  `yaml:"nmea_device"` // empty auto-detects
	NMEABaud    uint    `yaml:"nmea_baud"`
	ReplayPath  string  `yaml:"replay_path"`
	ReplaySpeed float64 `yaml:"replay_speed"`
	ReplayLoop  bool    `yaml:"replay_loop"`
	Mount       string  `yaml:"mount"` // flat | upright
}

type CalibrationConfig struct {
	Path string `yaml:"path"`
}

type FeedbackConfig struct {
	Sound     bool       `yaml:"sound"`
	Mode      string     `yaml:"mode"`   // bubble | surface
	Buzzer    string     `yaml:"buzzer"` // none | pwm | pcm
	PWM       PWMConfig  `yaml:"pwm"`
	PCMDevice string     `yaml:"pcm_device"`
	Haptic    string     `yaml:"haptic"` // none | gpio
	GPIO      GPIOConfig `yaml:"gpio"`
}

type PWMConfig struct {
	Chip    int `yaml:"chip"`
	Channel int `yaml:"channel"`
}

type GPIOConfig struct {
	Chip string `yaml:"chip"` // empty probes gpiochips
	Line int    `yaml:"line"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

type MQTTConfig struct {
	Enable      bool   `yaml:"enable"`
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type BLEConfig struct {
	Enable bool   `yaml:"enable"`
	Name   string `yaml:"name"`
}

type LogConfig struct {
	BufferLines int `yaml:"buffer_lines"`
}

// Default returns the configuration the daemon runs with when no file
// overrides it. Every key has a default, so a missing config file is a
// runnable state.
func Default() Config {
	return Config{
		Sensor: SensorConfig{
			Source: "auto",
			Mount:  "flat",
		},
		Feedback: FeedbackConfig{
			Sound:  true,
			Mode:   "bubble",
			Buzzer: "none",
			Haptic: "none",
		},
	}
}

// Load reads a YAML config file over the defaults and validates the
// result. A missing file is returned as the os.ReadFile error so the
// caller can decide whether defaults are acceptable.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills remaining defaults in place and rejects
// values no component can act on.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	switch cfg.Sensor.Source {
	case "":
		cfg.Sensor.Source = "auto"
	case "auto", "demo", "imu", "spi", "nmea", "replay":
	default:
		return fmt.Errorf("sensor.source must be one of auto, demo, imu, spi, nmea, replay")
	}
	if cfg.Sensor.I2CBus == "" {
		cfg.Sensor.I2CBus = "/dev/i2c-1"
	}
	if cfg.Sensor.I2CAddr == 0 {
		cfg.Sensor.I2CAddr = 0x69
	}
	if cfg.Sensor.I2CAddr > 0x7F {
		return fmt.Errorf("sensor.i2c_addr must be a 7-bit address")
	}
	if cfg.Sensor.SPIPort == "" {
		cfg.Sensor.SPIPort = "/dev/spidev0.0"
	}
	if cfg.Sensor.SPICSPin == "" {
		cfg.Sensor.SPICSPin = "GPIO25"
	}
	if cfg.Sensor.NMEABaud == 0 {
		cfg.Sensor.NMEABaud = 4800
	}
	if cfg.Sensor.Source == "replay" && cfg.Sensor.ReplayPath == "" {
		return fmt.Errorf("sensor.replay_path is required when sensor.source is replay")
	}
	if cfg.Sensor.ReplaySpeed == 0 {
		cfg.Sensor.ReplaySpeed = 1
	}
	if cfg.Sensor.ReplaySpeed < 0 {
		return fmt.Errorf("sensor.replay_speed must be > 0")
	}
	switch cfg.Sensor.Mount {
	case "":
		cfg.Sensor.Mount = "flat"
	case "flat", "upright":
	default:
		return fmt.Errorf("sensor.mount must be flat or upright")
	}

	if cfg.Calibration.Path == "" {
		cfg.Calibration.Path = "calibration.yaml"
	}

	switch cfg.Feedback.Mode {
	case "":
		cfg.Feedback.Mode = "bubble"
	case "bubble", "surface":
	default:
		return fmt.Errorf("feedback.mode must be bubble or surface")
	}
	switch cfg.Feedback.Buzzer {
	case "":
		cfg.Feedback.Buzzer = "none"
	case "none", "pwm", "pcm":
	default:
		return fmt.Errorf("feedback.buzzer must be one of none, pwm, pcm")
	}
	if cfg.Feedback.Buzzer == "pcm" && cfg.Feedback.PCMDevice == "" {
		return fmt.Errorf("feedback.pcm_device is required when feedback.buzzer is pcm")
	}
	if cfg.Feedback.PWM.Chip < 0 || cfg.Feedback.PWM.Channel < 0 {
		return fmt.Errorf("feedback.pwm.chip and feedback.pwm.channel must be >= 0")
	}
	switch cfg.Feedback.Haptic {
	case "":
		cfg.Feedback.Haptic = "none"
	case "none", "gpio":
	default:
		return fmt.Errorf("feedback.haptic must be none or gpio")
	}
	if cfg.Feedback.Haptic == "gpio" && cfg.Feedback.GPIO.Line <= 0 {
		return fmt.Errorf("feedback.gpio.line is required when feedback.haptic is gpio")
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8111"
	}

	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "levelsense"
	}

	if cfg.BLE.Name == "" {
		cfg.BLE.Name = "levelsense"
	}

	if cfg.Log.BufferLines < 0 {
		return fmt.Errorf("log.buffer_lines must be >= 0")
	}
	if cfg.Log.BufferLines == 0 {
		cfg.Log.BufferLines = 2000
	}

	return nil
}
