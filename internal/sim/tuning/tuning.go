package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	BlockSize         int `yaml:"block_size"`
	KickGraceMs       int `yaml:"kick_grace_ms"`
	LiftableFinishMs  int `yaml:"liftable_finish_ms"`
	MaxLayoutSlots    int `yaml:"max_layout_slots"`
	InboxSize         int `yaml:"inbox_size"`
	SessionQueueSize  int `yaml:"session_queue_size"`
	PersistDebounceMs int `yaml:"persist_debounce_ms"`

	RateLimits RateLimits `yaml:"rate_limits"`

	// StartingBalance is credited to an account the first time it logs in.
	StartingBalance Balance `yaml:"starting_balance"`
}

type Balance struct {
	Mesos  int64 `yaml:"mesos"`
	Merets int64 `yaml:"merets"`
}

// RateLimits bounds inbound requests per session.
type RateLimits struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:   "1.0",
		BlockSize:         150,
		KickGraceMs:       10_000,
		LiftableFinishMs:  5_000,
		MaxLayoutSlots:    5,
		InboxSize:         256,
		SessionQueueSize:  256,
		PersistDebounceMs: 1_000,
		RateLimits:        RateLimits{RequestsPerSecond: 20, Burst: 40},
		StartingBalance:   Balance{Mesos: 50_000, Merets: 500},
	}
}

// Load reads path over Defaults. Zero or missing fields keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	var in Tuning
	if err := yaml.Unmarshal(raw, &in); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.merge(in)
	// a starting_balance block replaces the default as a whole, zeros included
	var sb struct {
		StartingBalance *Balance `yaml:"starting_balance"`
	}
	if err := yaml.Unmarshal(raw, &sb); err == nil && sb.StartingBalance != nil {
		t.StartingBalance = *sb.StartingBalance
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) merge(in Tuning) {
	if in.ProtocolVersion != "" {
		t.ProtocolVersion = in.ProtocolVersion
	}
	setInt(&t.BlockSize, in.BlockSize)
	setInt(&t.KickGraceMs, in.KickGraceMs)
	setInt(&t.LiftableFinishMs, in.LiftableFinishMs)
	setInt(&t.MaxLayoutSlots, in.MaxLayoutSlots)
	setInt(&t.InboxSize, in.InboxSize)
	setInt(&t.SessionQueueSize, in.SessionQueueSize)
	setInt(&t.PersistDebounceMs, in.PersistDebounceMs)
	if in.RateLimits.RequestsPerSecond != 0 {
		t.RateLimits.RequestsPerSecond = in.RateLimits.RequestsPerSecond
	}
	setInt(&t.RateLimits.Burst, in.RateLimits.Burst)
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func (t Tuning) Validate() error {
	switch {
	case t.BlockSize <= 0:
		return fmt.Errorf("block_size must be > 0")
	case t.KickGraceMs < 0, t.LiftableFinishMs < 0, t.PersistDebounceMs < 0:
		return fmt.Errorf("durations must be >= 0")
	case t.MaxLayoutSlots <= 0:
		return fmt.Errorf("max_layout_slots must be > 0")
	case t.InboxSize <= 0, t.SessionQueueSize <= 0:
		return fmt.Errorf("queue sizes must be > 0")
	case t.RateLimits.RequestsPerSecond < 0, t.RateLimits.Burst < 0:
		return fmt.Errorf("rate_limits must be >= 0")
	case t.StartingBalance.Mesos < 0, t.StartingBalance.Merets < 0:
		return fmt.Errorf("starting_balance must be >= 0")
	}
	return nil
}

func (t Tuning) KickGrace() time.Duration { return time.Duration(t.KickGraceMs) * time.Millisecond }
func (t Tuning) LiftableFinish() time.Duration {
	return time.Duration(t.LiftableFinishMs) * time.Millisecond
}
func (t Tuning) PersistDebounce() time.Duration {
	return time.Duration(t.PersistDebounceMs) * time.Millisecond
}
