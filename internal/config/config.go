package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Defaults mirror spec.md §6's transport parameters.
const (
	DefaultHost      = "localhost"
	DefaultPort      = 8989
	DefaultTimeoutMS = 5000
)

type DeviceConfig struct {
	Host      string
	Port      int
	TimeoutMS int
}

var (
	deviceConfig *DeviceConfig
	configLoaded bool
)

func LoadDeviceConfig() (*DeviceConfig, error) {
	if deviceConfig != nil && configLoaded {
		return deviceConfig, nil
	}

	cfg := &DeviceConfig{Host: DefaultHost, Port: DefaultPort, TimeoutMS: DefaultTimeoutMS}

	// Try to load from .env file in project root
	projectRoot := findProjectRoot()
	envPath := filepath.Join(projectRoot, ".env")

	data, err := os.ReadFile(envPath)
	if err == nil {
		parseEnvFile(string(data), cfg)
	}

	// Override with environment variables if set
	if host := os.Getenv("DEVICE_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DEVICE_PORT"); port != "" {
		if v, perr := strconv.Atoi(port); perr == nil {
			cfg.Port = v
		}
	}
	if timeout := os.Getenv("DEVICE_TIMEOUT_MS"); timeout != "" {
		if v, perr := strconv.Atoi(timeout); perr == nil {
			cfg.TimeoutMS = v
		}
	}

	deviceConfig = cfg
	configLoaded = true
	return cfg, nil
}

func parseEnvFile(content string, cfg *DeviceConfig) {
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "DEVICE_HOST":
			cfg.Host = value
		case "DEVICE_PORT":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.Port = v
			}
		case "DEVICE_TIMEOUT_MS":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.TimeoutMS = v
			}
		}
	}
}

func findProjectRoot() string {
	cwd, _ := os.Getwd()
	// First check CWD for .env file
	if _, err := os.Stat(filepath.Join(cwd, ".env")); err == nil {
		return cwd
	}
	// Then walk up looking for go.mod
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return cwd
		}
		cwd = parent
	}
}

