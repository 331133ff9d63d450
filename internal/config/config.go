package config

import (
	"os"
	"strconv"
)

// Config holds the booking platform's policy and transport settings. All
// values come from the environment; a .env file is loaded at startup.
type Config struct {
	Port string

	// AllowRoleSwitching permits re-selecting an already-set role. Off in
	// production; the role switcher in the UI is debug tooling.
	AllowRoleSwitching bool

	// PositionSource selects simulated or device-relayed LOCATION_UPDATE
	// samples.
	PositionSource string
}

func Load() Config {
	cfg := Config{
		Port:               os.Getenv("PORT"),
		PositionSource:     os.Getenv("POSITION_SOURCE"),
		AllowRoleSwitching: parseBool(os.Getenv("ALLOW_ROLE_SWITCHING")),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	return cfg
}

func parseBool(s string) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return v
}
