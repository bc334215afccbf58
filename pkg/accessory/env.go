package accessory

import (
	"flag"
	"os"
	"strconv"
)

var (
	configFile string
	flagPort   string
	flagBaud   int
)

func init() {
	configFile = os.Getenv("ATSBT_CONFIG")
	flagPort = os.Getenv("ATSBT_PORT")
	if val := os.Getenv("ATSBT_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			flagBaud = baud
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "Config file (YAML).")
	flag.StringVar(&flagPort, "port", flagPort, "Serial port. Empty for autodetect.")
	flag.IntVar(&flagBaud, "baud", flagBaud, "Serial baud rate.")
}

// ConfigFromFlags builds a Config from the config file, if any, with
// command line flags applied on top.
func ConfigFromFlags() (*Config, error) {
	cfg := DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = LoadConfig(configFile); err != nil {
			return nil, err
		}
	}
	if flagPort != "" {
		cfg.Port = flagPort
	}
	if flagBaud != 0 {
		cfg.Baud = flagBaud
	}
	return cfg, nil
}
