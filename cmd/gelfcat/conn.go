package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/nicwaller/gelf/config"
	"github.com/spf13/cobra"
)

// connFlags are the destination flags shared by every command that sends.
type connFlags struct {
	configPath string
	transport  string
	host       string
	port       int
	compress   bool
	overflow   string
	static     []string
}

func (c *connFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&c.configPath, "config", "c", "", "YAML configuration file")
	f.StringVarP(&c.transport, "transport", "t", "", "udp, tcp, tls, http, https, redis or stdout")
	f.StringVarP(&c.host, "host", "H", "", "destination host")
	f.IntVarP(&c.port, "port", "p", 0, "destination port")
	f.BoolVar(&c.compress, "compress", false, "zlib-compress payloads")
	f.StringVar(&c.overflow, "overflow", "", "policy for oversized UDP messages: drop, warn or truncate")
	f.StringSliceVar(&c.static, "field", nil, "static field as key=value, repeatable")
}

// load reads the config file, or the defaults plus environment, and lets
// explicitly set flags win.
func (c *connFlags) load(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return cfg, err
		}
	} else {
		cfg = config.Default()
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Transport = strings.ToLower(c.transport)
	}
	if flags.Changed("host") {
		cfg.Host = c.host
	}
	if flags.Changed("port") {
		cfg.Port = c.port
	}
	if flags.Changed("compress") {
		cfg.Compress = &c.compress
	}
	if flags.Changed("overflow") {
		cfg.Overflow = c.overflow
	}
	for _, kv := range c.static {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return cfg, fmt.Errorf("--field %q: expected key=value", kv)
		}
		if cfg.StaticFields == nil {
			cfg.StaticFields = make(map[string]any)
		}
		cfg.StaticFields[k] = v
	}
	return cfg, cfg.Validate()
}
