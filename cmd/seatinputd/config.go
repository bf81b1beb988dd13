package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/sizeofvoid/libopeninput-sub000/devconfig"
)

// AppConfig is seatinputd's on-disk configuration shape. It is
// deliberately separate from devconfig.Options: the library stays
// viper-free, and this struct's string enums get translated to the
// library's typed enums in optionsFromDeviceConfig.
type AppConfig struct {
	Seat       string         `mapstructure:"seat"`
	QuirksFile string         `mapstructure:"quirks_file"`
	LogLevel   string         `mapstructure:"log_level"`
	Devices    []DeviceConfig `mapstructure:"devices"`
}

// DeviceConfig configures one device, selected by its Path or by a
// NameMatch substring of its name; an entry with both empty matches no
// device.
type DeviceConfig struct {
	Path      string `mapstructure:"path"`
	NameMatch string `mapstructure:"name_match"`
	Kind      string `mapstructure:"kind"` // auto, touchpad, mouse, trackpoint, keyboard

	DPI int `mapstructure:"dpi"`

	// Axis geometry overrides for touchpads; zero means "use the
	// common clickpad defaults" (see defaultWidthUnits & co).
	WidthUnits       float64 `mapstructure:"width_units"`
	HeightUnits      float64 `mapstructure:"height_units"`
	ResolutionXPerMM float64 `mapstructure:"resolution_x_per_mm"`
	ResolutionYPerMM float64 `mapstructure:"resolution_y_per_mm"`
	FuzzX            float64 `mapstructure:"fuzz_x"`
	FuzzY            float64 `mapstructure:"fuzz_y"`

	AccelSpeed   float64 `mapstructure:"accel_speed"`
	AccelProfile string  `mapstructure:"accel_profile"` // adaptive, flat, device-speed-curve

	DWT            bool   `mapstructure:"dwt"`
	ScrollMethod   string `mapstructure:"scroll_method"` // none, two-finger, edge, button-down
	ScrollNatural  bool   `mapstructure:"scroll_natural"`
	ClickMethod    string `mapstructure:"click_method"` // clickfinger, button-areas
	SendEventsMode string `mapstructure:"send_events_mode"`

	LeftHanded       bool `mapstructure:"left_handed"`
	MiddleEmulation  bool `mapstructure:"middle_emulation"`
	RotationAngleDeg int  `mapstructure:"rotation_angle"`

	WheelClickAngleDeg float64 `mapstructure:"wheel_click_angle"`
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Seat:     "seat0",
		LogLevel: "info",
	}
}

func loadConfig() (AppConfig, error) {
	cfg := defaultAppConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Seat == "" {
		cfg.Seat = "seat0"
	}
	if quirksPath != "" {
		cfg.QuirksFile = quirksPath
	}
	return cfg, nil
}

func accelProfileFromString(s string) devconfig.AccelProfileKind {
	switch s {
	case "flat":
		return devconfig.AccelFlat
	case "device-speed-curve":
		return devconfig.AccelDeviceSpeedCurve
	default:
		return devconfig.AccelAdaptive
	}
}

func scrollMethodFromString(s string) devconfig.ScrollMethod {
	switch s {
	case "edge":
		return devconfig.ScrollEdge
	case "button-down":
		return devconfig.ScrollButtonDown
	case "none":
		return devconfig.ScrollNone
	default:
		return devconfig.ScrollTwoFinger
	}
}

func clickMethodFromString(s string) devconfig.ClickMethod {
	if s == "button-areas" {
		return devconfig.ClickButtonAreas
	}
	return devconfig.ClickFinger
}

func sendEventsModeFromString(s string) devconfig.SendEventsMode {
	switch s {
	case "disabled":
		return devconfig.SendEventsDisabled
	case "disabled-on-external-mouse":
		return devconfig.SendEventsDisabledOnExternalMouse
	default:
		return devconfig.SendEventsEnabled
	}
}

// optionsFromDeviceConfig builds a devconfig.Options from the on-disk
// shape, validating every enumerated field: an unrecognised or invalid
// value is not reported, and the documented default is kept rather than
// propagated into dispatch construction.
func optionsFromDeviceConfig(dc DeviceConfig) devconfig.Options {
	opts := devconfig.Default()
	opts.AccelProfile = accelProfileFromString(dc.AccelProfile)
	opts.ScrollMethod = scrollMethodFromString(dc.ScrollMethod)
	opts.ScrollNatural = dc.ScrollNatural
	opts.ClickMethod = clickMethodFromString(dc.ClickMethod)
	opts.DWT = dc.DWT
	opts.LeftHanded = dc.LeftHanded
	opts.MiddleEmulation = dc.MiddleEmulation
	opts.SendEventsMode = sendEventsModeFromString(dc.SendEventsMode)
	if st := opts.SetAccelSpeed(dc.AccelSpeed); st != devconfig.StatusSuccess {
		opts.AccelSpeed = 0
	}
	if st := opts.SetRotationAngle(dc.RotationAngleDeg); st != devconfig.StatusSuccess {
		opts.RotationAngleDeg = 0
	}
	return opts
}
