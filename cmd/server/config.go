package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

type serverConfig struct {
	Addr       string
	ConfigDir  string
	DataDir    string
	TuningPath string
	DisableDB  bool
	AdminHTTP  bool
	PprofHTTP  bool
}

// envOverrides is read after flag parsing; set variables win over flags.
type envOverrides struct {
	Addr       string `env:"HOMECRAFT_ADDR"`
	ConfigDir  string `env:"HOMECRAFT_CONFIG_DIR"`
	DataDir    string `env:"HOMECRAFT_DATA_DIR"`
	TuningPath string `env:"HOMECRAFT_TUNING"`
	DisableDB  *bool  `env:"HOMECRAFT_DISABLE_DB"`
	AdminHTTP  *bool  `env:"HOMECRAFT_ENABLE_ADMIN_HTTP"`
	PprofHTTP  bool   `env:"HOMECRAFT_ENABLE_PPROF_HTTP"`
}

func applyEnv(cfg *serverConfig) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Addr != "" {
		cfg.Addr = o.Addr
	}
	if o.ConfigDir != "" {
		cfg.ConfigDir = o.ConfigDir
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.TuningPath != "" {
		cfg.TuningPath = o.TuningPath
	}
	if o.DisableDB != nil {
		cfg.DisableDB = *o.DisableDB
	}
	cfg.AdminHTTP = defaultEnableAdminHTTP()
	if o.AdminHTTP != nil {
		cfg.AdminHTTP = *o.AdminHTTP
	}
	cfg.PprofHTTP = o.PprofHTTP
	return nil
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
