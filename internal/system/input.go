package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lootgo/server/internal/core/event"
	coresys "github.com/lootgo/server/internal/core/system"
	"github.com/lootgo/server/internal/net"
	"github.com/lootgo/server/internal/net/packet"
	"github.com/lootgo/server/internal/world"
)

// OnlineMarker flips the account's online flag.
type OnlineMarker interface {
	SetOnline(ctx context.Context, name string, online bool) error
}

// InputSystem drains packet queues from all sessions and dispatches them
// through the packet registry. Phase 0 (Input).
type InputSystem struct {
	netServer  *net.Server
	registry   *packet.Registry
	store      *net.SessionStore
	maxPerTick int
	world      *world.State
	bus        *event.Bus
	saver      *PersistenceSystem
	accounts   OnlineMarker
	log        *zap.Logger
}

func NewInputSystem(
	netServer *net.Server,
	registry *packet.Registry,
	store *net.SessionStore,
	maxPerTick int,
	ws *world.State,
	bus *event.Bus,
	saver *PersistenceSystem,
	accounts OnlineMarker,
	log *zap.Logger,
) *InputSystem {
	return &InputSystem{
		netServer:  netServer,
		registry:   registry,
		store:      store,
		maxPerTick: maxPerTick,
		world:      ws,
		bus:        bus,
		saver:      saver,
		accounts:   accounts,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.netServer.NewSessions():
			s.store.Add(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	// Process dead sessions
	for {
		select {
		case id := <-s.netServer.DeadSessions():
			s.store.Remove(id)
		default:
			goto doneDead
		}
	}
doneDead:

	for id, sess := range s.store.Raw() {
		if sess.IsClosed() {
			sess.FlushOutput()
			s.handleDisconnect(sess)
			s.netServer.NotifyDead(id)
			s.store.Remove(id)
			continue
		}
		s.drain(sess)
	}

	// Early flush so Phase 0 replies (hello, login, position corrections)
	// reach the writer while the rest of the tick runs.
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

func (s *InputSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
				s.log.Debug("封包分派錯誤",
					zap.Uint64("session", sess.ID),
					zap.Error(err),
				)
			}
		default:
			return
		}
	}
}

// handleDisconnect removes the player from the world, saves it and marks
// the account offline.
func (s *InputSystem) handleDisconnect(sess *net.Session) {
	if p := s.world.RemovePlayer(sess.ID); p != nil {
		if s.saver != nil {
			s.saver.SavePlayer(p)
		}
		event.Emit(s.bus, event.PlayerDisconnected{SessionID: sess.ID})
	}
	if sess.AccountName != "" && s.accounts != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.accounts.SetOnline(ctx, sess.AccountName, false); err != nil {
			s.log.Error("設定離線狀態失敗", zap.String("account", sess.AccountName), zap.Error(err))
		}
		cancel()
	}
}

// SessionCount returns the current number of active sessions.
func (s *InputSystem) SessionCount() int {
	return s.store.Count()
}
