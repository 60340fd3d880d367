package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/lootgo/server/internal/config"
	"github.com/lootgo/server/internal/core/event"
	"github.com/lootgo/server/internal/data"
	"github.com/lootgo/server/internal/loot"
	"github.com/lootgo/server/internal/net"
	"github.com/lootgo/server/internal/net/packet"
	"github.com/lootgo/server/internal/persist"
	"github.com/lootgo/server/internal/protocol"
	"github.com/lootgo/server/internal/world"
)

// AccountStore is the subset of persist.AccountRepo the login flow needs.
type AccountStore interface {
	Load(ctx context.Context, name string) (*persist.AccountRow, error)
	Create(ctx context.Context, name, rawPassword, ip string, spawn loot.Vec3) (*persist.AccountRow, error)
	UpdateLastActive(ctx context.Context, name, ip string) error
	SetOnline(ctx context.Context, name string, online bool) error
}

// InventoryLoader reads stored inventory slots.
type InventoryLoader interface {
	Load(ctx context.Context, accountID int64) ([]persist.InventoryRow, error)
}

// PickupQueue accepts pickup requests for execution later in the tick.
type PickupQueue interface {
	Submit(sessionID uint64, req protocol.PickupRequest)
}

// ViewRefresher sends a player the loot currently in view.
type ViewRefresher interface {
	Refresh(p *world.Player)
}

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Config      *config.Config
	Log         *zap.Logger
	World       *world.State
	Bus         *event.Bus
	Items       *data.ItemTable
	Accounts    AccountStore
	Inventories InventoryLoader
	Pickups     PickupQueue
	View        ViewRefresher
	Spawn       loot.Vec3 // position of newly created accounts

	logins *loginLimiter
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	if deps.logins == nil {
		deps.logins = newLoginLimiter(deps.Config.RateLimit)
	}

	// Handshake phase
	reg.Register(packet.C_OPCODE_HELLO,
		[]packet.SessionState{packet.StateHandshake},
		func(sess any, r *packet.Reader) {
			HandleHello(sess.(*net.Session), r, deps)
		},
	)

	// Login phase
	reg.Register(packet.C_OPCODE_LOGIN,
		[]packet.SessionState{packet.StateVersionOK},
		func(sess any, r *packet.Reader) {
			HandleLogin(sess.(*net.Session), r, deps)
		},
	)

	// In-world phase
	inWorldStates := []packet.SessionState{packet.StateInWorld}

	reg.Register(packet.C_OPCODE_MOVE, inWorldStates,
		func(sess any, r *packet.Reader) {
			HandleMove(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_BATCH_PICKUP, inWorldStates,
		func(sess any, r *packet.Reader) {
			HandleBatchPickup(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_PICKUP_ITEM, inWorldStates,
		func(sess any, r *packet.Reader) {
			HandlePickupItem(sess.(*net.Session), r, deps)
		},
	)

	// Quit is accepted in every live state.
	reg.Register(packet.C_OPCODE_QUIT,
		[]packet.SessionState{packet.StateHandshake, packet.StateVersionOK, packet.StateInWorld},
		func(sess any, r *packet.Reader) {
			HandleQuit(sess.(*net.Session), r, deps)
		},
	)
}
