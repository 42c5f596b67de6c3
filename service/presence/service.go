package presence

import (
	"sync"
	"time"

	"TeamSync/service/auth"
	"TeamSync/service/storage"

	"github.com/nats-io/nats.go"
)

// Conf is the presence service configuration. Zero values are filled by
// norm with the source constants (cap 5, 12h idle, 12h reap).
type Conf struct {
	NodeID string

	MaxPerUser  int
	IdleTimeout time.Duration
	ReapEvery   time.Duration

	SendQueueSize int
	WriteDeadline time.Duration

	Clock func() time.Time // injectable for tests; nil => time.Now
}

func (c *Conf) norm() {
	if c.MaxPerUser <= 0 {
		c.MaxPerUser = 5
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 12 * time.Hour
	}
	if c.ReapEvery <= 0 {
		c.ReapEvery = 12 * time.Hour
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.WriteDeadline <= 0 {
		c.WriteDeadline = 5 * time.Second
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Service owns the whole presence core for one gateway process:
// connection table, durable registries, admission, router, drain and
// reaper, with an explicit start/stop lifecycle. Construct one instance
// at process start; tests build isolated instances freely.
type Service struct {
	conf Conf

	table *ConnTable
	seen  *lastSeen

	reg        *storage.ConnRegistry
	membership *storage.Membership
	pending    *storage.PendingQueue

	admission *Admission
	router    *Router
	drain     *Drain
	reaper    *Reaper
	disp      *Dispatcher
	relay     *Relay

	ident auth.Provider

	stopOnce sync.Once
}

// NewService wires the service over a Store. nc is optional; non-nil
// enables the cross-instance relay.
func NewService(conf Conf, store storage.Store, ident auth.Provider, nc *nats.Conn) *Service {
	conf.norm()

	s := &Service{
		conf:       conf,
		table:      NewConnTable(),
		seen:       newLastSeen(),
		reg:        storage.NewConnRegistry(store),
		membership: storage.NewMembership(store),
		pending:    storage.NewPendingQueue(store),
		ident:      ident,
	}

	s.admission = NewAdmission(AdmissionConf{
		MaxPerUser:  conf.MaxPerUser,
		IdleTimeout: conf.IdleTimeout,
		Clock:       conf.Clock,
	}, s.reg, s.table, s.seen)

	if nc != nil {
		s.relay = NewRelay(nc, s.table)
	}
	s.router = NewRouter(s.membership, s.reg, s.pending, s.table, s.relay)
	s.drain = NewDrain(s.membership, s.pending)
	s.reaper = NewReaper(conf.ReapEvery, s.reg, s.table, s.seen)

	s.disp = NewDispatcher()
	s.disp.Register(&pingHandler{s})
	s.disp.Register(&joinHandler{s})
	s.disp.Register(&inviteHandler{s})
	s.disp.Register(&quitHandler{s})
	s.disp.Register(&messageHandler{s})
	s.disp.Register(&deleteHandler{s})
	s.disp.Register(&notificationHandler{s})

	return s
}

// Start launches the background pieces: the reaper loop and, when
// configured, the relay subscription.
func (s *Service) Start() error {
	if s.relay != nil {
		if err := s.relay.Start(); err != nil {
			return err
		}
	}
	s.reaper.Start()
	return nil
}

// Stop halts background work and closes every local connection.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.reaper.Stop()
		if s.relay != nil {
			s.relay.Stop()
		}
		s.table.CloseAll()
	})
}

// Router exposes the fan-out path for in-process producers (e.g. an API
// layer emitting notifications without a socket).
func (s *Service) Router() *Router { return s.router }
