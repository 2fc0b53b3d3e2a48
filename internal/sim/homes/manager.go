package homes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"homecraft.ai/internal/sim/home"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

var (
	ErrMapUnknown = errors.New("unknown map")
	ErrNoHome     = errors.New("account has no home")
	ErrNoSession  = errors.New("session is not in any instance")
)

const (
	requestTimeout = 3 * time.Second
	leaveTimeout   = 300 * time.Millisecond
)

type Config struct {
	ResidenceMapID int
	// PlotMaps are the shared maps that carry plots. A session can only enter these
	// or a residence.
	PlotMaps []int
	// ReturnMapID is where kicked visitors are sent.
	ReturnMapID int
	// StateFile keeps the last map of every account across restarts. Empty disables it.
	StateFile string
	// PersistDebounce coalesces state file writes. Zero means 200ms.
	PersistDebounce time.Duration

	// Instance is the template every instance is configured from; Key, MapID and Home
	// are filled per instance.
	Instance home.Config
	Logger   *log.Logger
}

type plotKey struct {
	mapID int
	plot  int
}

type placement struct {
	ref home.PlayerRef
	key string
}

// Manager owns every home and every running instance. It implements home.HomeLookup
// and home.Warper for the instances it starts.
type Manager struct {
	mu sync.RWMutex

	cfg  Config
	deps home.Deps
	log  *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	homes     map[int64]*home.Home
	byAccount map[int64]int64
	plots     map[plotKey]int64
	nextID    int64
	plotMaps  map[int]bool
	instances map[string]*home.Instance
	sessions  map[string]*placement
	lastMap   map[int64]int

	persistDebounce time.Duration
	persistCh       chan struct{}
	persistFlush    chan chan struct{}
	persistStop     chan struct{}
	persistWG       sync.WaitGroup
	closeOnce       sync.Once
}

func NewManager(cfg Config, deps home.Deps) (*Manager, error) {
	if cfg.ResidenceMapID == 0 {
		return nil, fmt.Errorf("missing residence map id")
	}
	if cfg.ReturnMapID == 0 && len(cfg.PlotMaps) > 0 {
		cfg.ReturnMapID = cfg.PlotMaps[0]
	}
	if cfg.PersistDebounce <= 0 {
		cfg.PersistDebounce = 200 * time.Millisecond
	}
	lg := cfg.Logger
	if lg == nil {
		lg = log.New(io.Discard, "", 0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:             cfg,
		deps:            deps,
		log:             lg,
		ctx:             ctx,
		cancel:          cancel,
		homes:           map[int64]*home.Home{},
		byAccount:       map[int64]int64{},
		plots:           map[plotKey]int64{},
		nextID:          1,
		plotMaps:        map[int]bool{},
		instances:       map[string]*home.Instance{},
		sessions:        map[string]*placement{},
		lastMap:         map[int64]int{},
		persistDebounce: cfg.PersistDebounce,
		persistCh:       make(chan struct{}, 1),
		persistFlush:    make(chan chan struct{}, 8),
		persistStop:     make(chan struct{}),
	}
	m.deps.Homes = m
	m.deps.Warper = m
	for _, id := range cfg.PlotMaps {
		m.plotMaps[id] = true
	}
	m.loadState()
	m.persistWG.Add(1)
	go m.persistLoop()
	return m, nil
}

// LoadHomes registers stored homes and rebuilds the plot index. It is meant to run
// once, before any session enters.
func (m *Manager) LoadHomes(rows []home.Persisted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		rec := row.Record
		if rec.ID <= 0 || rec.AccountID <= 0 {
			return fmt.Errorf("home row with id %d account %d", rec.ID, rec.AccountID)
		}
		if _, dup := m.byAccount[rec.AccountID]; dup {
			return fmt.Errorf("account %d owns more than one home", rec.AccountID)
		}
		if rec.HasPlot() {
			k := plotKey{rec.PlotMapID, rec.PlotNumber}
			if other, taken := m.plots[k]; taken {
				return fmt.Errorf("plot %d/%d claimed by homes %d and %d", k.mapID, k.plot, other, rec.ID)
			}
			m.plots[k] = rec.ID
		}
		m.homes[rec.ID] = home.Restore(rec, row.Cubes, row.Items, row.Layouts)
		m.byAccount[rec.AccountID] = rec.ID
		if rec.ID >= m.nextID {
			m.nextID = rec.ID + 1
		}
	}
	return nil
}

// Run keeps the manager alive until ctx is done and then shuts every instance down.
func (m *Manager) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-m.ctx.Done():
	}
	m.Close()
	return nil
}

func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		insts := make([]*home.Instance, 0, len(m.instances))
		for _, inst := range m.instances {
			insts = append(insts, inst)
		}
		m.mu.Unlock()
		for _, inst := range insts {
			inst.Close()
		}
		m.cancel()
		close(m.persistStop)
		m.persistWG.Wait()
	})
}

func (m *Manager) HomeByAccount(account int64) (*home.Home, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byAccount[account]
	if !ok {
		return nil, false
	}
	return m.homes[id], true
}

func (m *Manager) HomeByID(id int64) (*home.Home, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.homes[id]
	return h, ok
}

// EnsureHome returns the home of account, creating an empty one on first use.
func (m *Manager) EnsureHome(account int64, ownerName string) *home.Home {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byAccount[account]; ok {
		return m.homes[id]
	}
	h := home.NewHome(modelpkg.HomeRecord{ID: m.nextID, AccountID: account, OwnerName: ownerName})
	m.nextID++
	m.homes[h.ID()] = h
	m.byAccount[account] = h.ID()
	m.log.Printf("home %d created for account %d", h.ID(), account)
	return h
}

// HomesOnMap lists the homes with a plot on mapID, ordered by plot number.
func (m *Manager) HomesOnMap(mapID int) []*home.Home {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]plotKey, 0)
	for k := range m.plots {
		if k.mapID == mapID {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].plot < keys[j].plot })
	out := make([]*home.Home, 0, len(keys))
	for _, k := range keys {
		if h := m.homes[m.plots[k]]; h != nil {
			out = append(out, h)
		}
	}
	return out
}

func (m *Manager) PlotOwner(mapID, plot int) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.plots[plotKey{mapID, plot}]
	return id, ok
}

func (m *Manager) ClaimPlot(mapID, plot int, homeID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := plotKey{mapID, plot}
	if _, taken := m.plots[k]; taken {
		return false
	}
	for prev, id := range m.plots {
		if id == homeID {
			delete(m.plots, prev)
		}
	}
	m.plots[k] = homeID
	return true
}

func (m *Manager) ReleasePlot(mapID, plot int, homeID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := plotKey{mapID, plot}
	if m.plots[k] == homeID {
		delete(m.plots, k)
	}
}

// EnterMap moves a session into the shared instance of a plot map.
func (m *Manager) EnterMap(ctx context.Context, ref home.PlayerRef, mapID int) (*home.Instance, error) {
	if !m.isPlotMap(mapID) {
		return nil, fmt.Errorf("%w: %d", ErrMapUnknown, mapID)
	}
	inst := m.instance(fmt.Sprintf("map:%d", mapID), mapID, nil)
	return inst, m.enter(ctx, ref, inst)
}

// EnterHome moves a session into the residence of ownerAccount.
func (m *Manager) EnterHome(ctx context.Context, ref home.PlayerRef, ownerAccount int64) (*home.Instance, error) {
	h, ok := m.HomeByAccount(ownerAccount)
	if !ok {
		return nil, ErrNoHome
	}
	inst := m.instance(fmt.Sprintf("home:%d", h.ID()), m.cfg.ResidenceMapID, h)
	return inst, m.enter(ctx, ref, inst)
}

// Resume puts a reconnecting session back on the map it was last on. mapID overrides
// the remembered map when it is set.
func (m *Manager) Resume(ctx context.Context, ref home.PlayerRef, mapID int) (*home.Instance, error) {
	if mapID == 0 {
		mapID = m.LastMap(ref.AccountID)
	}
	if mapID == m.cfg.ResidenceMapID {
		if inst, err := m.EnterHome(ctx, ref, ref.AccountID); err == nil {
			return inst, nil
		}
		mapID = 0
	}
	if mapID == 0 || !m.isPlotMap(mapID) {
		mapID = m.cfg.ReturnMapID
	}
	return m.EnterMap(ctx, ref, mapID)
}

// Instance is the instance a session is currently in.
func (m *Manager) Instance(sessionID string) (*home.Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.sessions[sessionID]
	if p == nil {
		return nil, false
	}
	inst, ok := m.instances[p.key]
	return inst, ok
}

// Leave takes a disconnected session out of its instance.
func (m *Manager) Leave(sessionID string) {
	m.mu.Lock()
	p := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	var inst *home.Instance
	if p != nil {
		inst = m.instances[p.key]
	}
	m.mu.Unlock()
	if inst == nil {
		return
	}
	ctx, cancel := context.WithTimeout(m.ctx, leaveTimeout)
	defer cancel()
	if err := inst.Leave(ctx, sessionID); err != nil {
		m.log.Printf("leave %s from %s: %v", sessionID, inst.Key(), err)
	}
}

// Warp is called by an instance that already removed p. The move runs on its own
// goroutine so the calling instance never waits on another one.
func (m *Manager) Warp(p home.PlayerRef, mapID int) {
	go func() {
		m.mu.RLock()
		_, tracked := m.sessions[p.SessionID]
		m.mu.RUnlock()
		if !tracked {
			return
		}
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		if _, err := m.EnterMap(ctx, p, mapID); err != nil {
			m.log.Printf("warp %s to %d: %v", p.SessionID, mapID, err)
		}
	}()
}

func (m *Manager) ResidenceMapID() int { return m.cfg.ResidenceMapID }

func (m *Manager) LastMap(account int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastMap[account]
}

// Stats reports registry sizes for health output.
func (m *Manager) Stats() (homes, instances, sessions int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.homes), len(m.instances), len(m.sessions)
}

func (m *Manager) isPlotMap(mapID int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.plotMaps[mapID]
}

// instance returns the running instance for key, starting it on first use.
func (m *Manager) instance(key string, mapID int, h *home.Home) *home.Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst := m.instances[key]; inst != nil {
		return inst
	}
	cfg := m.cfg.Instance
	cfg.Key = key
	cfg.MapID = mapID
	cfg.Home = h
	if cfg.ReturnMapID == 0 {
		cfg.ReturnMapID = m.cfg.ReturnMapID
	}
	if cfg.Logger == nil {
		cfg.Logger = m.log
	}
	inst := home.New(cfg, m.deps)
	m.instances[key] = inst
	go func() {
		if err := inst.Run(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.log.Printf("instance %s stopped: %v", key, err)
		}
	}()
	return inst
}

// enter leaves the current instance of the session, if any, and joins inst.
func (m *Manager) enter(ctx context.Context, ref home.PlayerRef, inst *home.Instance) error {
	m.mu.RLock()
	var prev *home.Instance
	if p := m.sessions[ref.SessionID]; p != nil && p.key != inst.Key() {
		prev = m.instances[p.key]
	}
	m.mu.RUnlock()
	if prev != nil {
		if err := prev.Leave(ctx, ref.SessionID); err != nil {
			return err
		}
	}
	if err := inst.Join(ctx, ref); err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[ref.SessionID] = &placement{ref: ref, key: inst.Key()}
	if m.lastMap[ref.AccountID] != inst.MapID() {
		m.lastMap[ref.AccountID] = inst.MapID()
		m.schedulePersistLocked()
	}
	m.mu.Unlock()
	return nil
}
