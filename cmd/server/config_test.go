package main

import "testing"

func TestApplyEnv_OverridesFlags(t *testing.T) {
	t.Setenv("HOMECRAFT_ADDR", ":9999")
	t.Setenv("HOMECRAFT_DISABLE_DB", "true")
	t.Setenv("HOMECRAFT_ENABLE_ADMIN_HTTP", "false")
	t.Setenv("DEPLOY_ENV", "")

	cfg := serverConfig{Addr: ":8080", DataDir: "./data"}
	if err := applyEnv(&cfg); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Addr != ":9999" || !cfg.DisableDB || cfg.AdminHTTP {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.DataDir != "./data" {
		t.Fatalf("unset variable changed DataDir: %q", cfg.DataDir)
	}
}

func TestApplyEnv_AdminDefaultsByDeployEnv(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "production")
	cfg := serverConfig{}
	if err := applyEnv(&cfg); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.AdminHTTP {
		t.Fatalf("admin http should be off in production")
	}
}

func TestApplyEnv_BadBool(t *testing.T) {
	t.Setenv("HOMECRAFT_DISABLE_DB", "maybe")
	cfg := serverConfig{}
	if err := applyEnv(&cfg); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:5000":     true,
		"10.0.0.2:5000":  false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", addr, got, want)
		}
	}
}
