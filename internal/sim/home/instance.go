package home

import (
	"context"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	schedulepkg "homecraft.ai/internal/sim/home/feature/schedule"
	spatialpkg "homecraft.ai/internal/sim/home/feature/spatial"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

type Config struct {
	// Key names the instance in logs and in the manager, e.g. "home:12" or "map:2000062".
	Key   string
	MapID int
	// Home is set for a residence instance and nil for a shared plot map.
	Home        *Home
	ReturnMapID int

	BlockSize      int
	KickDelay      time.Duration
	LiftableFinish time.Duration
	MaxLayoutSlots int
	InboxSize      int

	Now    func() time.Time
	Logger *log.Logger
	Audit  AuditLogger
}

type Deps struct {
	Store     Store
	Notifier  Notifier
	Economy   Economy
	Maps      MapMetadata
	Items     ItemCatalog
	Directory Directory
	Homes     HomeLookup
	Warper    Warper
}

// Player is a session inside an instance. Pos is in world units.
type Player struct {
	PlayerRef
	Pos      modelpkg.Vec3i
	Planner  bool
	Carrying *carried
}

// Instance is the single writer for one map instance. Every operation runs on the
// Run goroutine in arrival order; state below is only touched from there.
type Instance struct {
	cfg  Config
	deps Deps
	log  *log.Logger

	inbox    chan func()
	stop     chan struct{}
	stopOnce sync.Once
	sched    *schedulepkg.Scheduler

	players   map[string]*Player
	liftables map[modelpkg.Vec3i]*liftable
	liftGen   uint64
}

func New(cfg Config, deps Deps) *Instance {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 150
	}
	if cfg.KickDelay <= 0 {
		cfg.KickDelay = 10 * time.Second
	}
	if cfg.LiftableFinish <= 0 {
		cfg.LiftableFinish = 5 * time.Second
	}
	if cfg.MaxLayoutSlots <= 0 {
		cfg.MaxLayoutSlots = 5
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 256
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	lg := cfg.Logger
	if lg == nil {
		lg = log.New(io.Discard, "", 0)
	}
	i := &Instance{
		cfg:       cfg,
		deps:      deps,
		log:       lg,
		inbox:     make(chan func(), cfg.InboxSize),
		stop:      make(chan struct{}),
		sched:     schedulepkg.New(),
		players:   map[string]*Player{},
		liftables: map[modelpkg.Vec3i]*liftable{},
	}
	if deps.Maps != nil {
		for _, s := range deps.Maps.Liftables(cfg.MapID) {
			i.liftGen++
			i.liftables[s.Pos] = &liftable{itemID: s.ItemID, state: liftActive, gen: i.liftGen, finish: finishOf(s, cfg.LiftableFinish)}
		}
	}
	return i
}

func (i *Instance) Key() string { return i.cfg.Key }
func (i *Instance) MapID() int  { return i.cfg.MapID }
func (i *Instance) Home() *Home { return i.cfg.Home }

func (i *Instance) residence() bool { return i.cfg.Home != nil }

func (i *Instance) Run(ctx context.Context) error {
	defer i.sched.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-i.stop:
			return nil
		case fn := <-i.inbox:
			fn()
		}
	}
}

// Close stops the loop and cancels every pending delayed task.
func (i *Instance) Close() {
	i.stopOnce.Do(func() {
		close(i.stop)
		i.sched.Stop()
	})
}

// call runs fn on the instance goroutine and waits for it.
func (i *Instance) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}
	select {
	case i.inbox <- task:
	case <-i.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-i.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exec runs a request of sessionID on the instance goroutine. A failed request is
// reported to the requester before exec returns.
func (i *Instance) exec(ctx context.Context, sessionID string, fn func(p *Player) error) error {
	var err error
	if cerr := i.call(ctx, func() {
		p := i.players[sessionID]
		if p == nil {
			err = ErrNotInInstance
		} else {
			err = fn(p)
		}
		if err != nil {
			i.replyError(sessionID, err)
		}
	}); cerr != nil {
		return cerr
	}
	return err
}

// post queues fn from a timer goroutine. It gives up once the instance is stopped.
func (i *Instance) post(fn func()) {
	select {
	case i.inbox <- fn:
	case <-i.stop:
	}
}

func (i *Instance) sessionIDs() []string {
	ids := make([]string, 0, len(i.players))
	for id := range i.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (i *Instance) terrain(pos modelpkg.Vec3i) bool {
	return i.deps.Maps.HasBlock(i.cfg.MapID, pos)
}

func (i *Instance) plannerActive(p *Player) bool {
	return p.Planner && i.residence()
}

// targetHome is the visited home in a residence and the player's own home on a plot map.
func (i *Instance) targetHome(p *Player) (*Home, error) {
	if i.cfg.Home != nil {
		return i.cfg.Home, nil
	}
	h, ok := i.deps.Homes.HomeByAccount(p.AccountID)
	if !ok {
		return nil, ErrInvalidCoordinate
	}
	return h, nil
}

// withHome locks the target home of p for the duration of fn.
func (i *Instance) withHome(p *Player, fn func(h *Home) error) error {
	h, err := i.targetHome(p)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h)
}

// withOwnHome is withHome restricted to the home owner.
func (i *Instance) withOwnHome(p *Player, fn func(h *Home) error) error {
	return i.withHome(p, func(h *Home) error {
		if p.AccountID != h.account {
			return ErrPermissionDenied
		}
		return fn(h)
	})
}

// relocateAll moves every occupant to a position that stays inside a home of size.
func (i *Instance) relocateAll(size int) {
	pos := spatialpkg.SafeCoord(size, i.cfg.BlockSize)
	for _, id := range i.sessionIDs() {
		i.players[id].Pos = pos
		i.send(id, positionMsg(pos))
	}
}
