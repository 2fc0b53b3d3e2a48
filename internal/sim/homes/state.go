package homes

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const stateVersion = 1

type persistedState struct {
	Version      int           `json:"version"`
	AccountToMap map[int64]int `json:"account_to_map"`
}

func (m *Manager) loadState() {
	if strings.TrimSpace(m.cfg.StateFile) == "" {
		return
	}
	b, err := os.ReadFile(m.cfg.StateFile)
	if err != nil {
		return
	}
	var st persistedState
	if err := json.Unmarshal(b, &st); err != nil {
		m.log.Printf("state file %s: %v", m.cfg.StateFile, err)
		return
	}
	for account, mapID := range st.AccountToMap {
		if account > 0 && mapID > 0 {
			m.lastMap[account] = mapID
		}
	}
}

func (m *Manager) schedulePersistLocked() {
	if m.cfg.StateFile == "" || m.persistCh == nil {
		return
	}
	select {
	case m.persistCh <- struct{}{}:
	default:
	}
}

func (m *Manager) persistLoop() {
	defer m.persistWG.Done()
	var timer *time.Timer
	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer = nil
	}
	for {
		var timerCh <-chan time.Time
		if timer != nil {
			timerCh = timer.C
		}
		select {
		case <-m.persistStop:
			stopTimer()
			m.persistNow()
			return
		case <-m.persistCh:
			if timer == nil {
				timer = time.NewTimer(m.persistDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(m.persistDebounce)
			}
		case ack := <-m.persistFlush:
			stopTimer()
			m.persistNow()
			if ack != nil {
				close(ack)
			}
		case <-timerCh:
			stopTimer()
			m.persistNow()
		}
	}
}

// FlushState writes the residency file now.
func (m *Manager) FlushState(ctx context.Context) error {
	if m.cfg.StateFile == "" {
		return nil
	}
	ack := make(chan struct{})
	select {
	case m.persistFlush <- ack:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) persistNow() {
	if m.cfg.StateFile == "" {
		return
	}
	m.mu.RLock()
	st := persistedState{Version: stateVersion, AccountToMap: make(map[int64]int, len(m.lastMap))}
	for k, v := range m.lastMap {
		st.AccountToMap[k] = v
	}
	m.mu.RUnlock()
	m.writeState(st)
}

func (m *Manager) writeState(st persistedState) {
	b, _ := json.MarshalIndent(st, "", "  ")
	_ = os.MkdirAll(filepath.Dir(m.cfg.StateFile), 0o755)
	tmp := m.cfg.StateFile + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		m.log.Printf("state file %s: %v", m.cfg.StateFile, err)
		return
	}
	_ = os.Rename(tmp, m.cfg.StateFile)
}
