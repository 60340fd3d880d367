package world

import (
	"sync/atomic"

	"github.com/lootgo/server/internal/core/ecs"
	"github.com/lootgo/server/internal/loot"
	"github.com/lootgo/server/internal/net"
)

// Player collision box.
const (
	PlayerHalfWidth = 0.3
	PlayerHeight    = 1.8
)

// playerIDCounter generates runtime object ids for players. Players live in
// a separate id space above the 24-bit loot entity range.
var playerIDCounter atomic.Uint32

func init() {
	playerIDCounter.Store(0x7F000000)
}

func NextPlayerID() uint32 {
	return playerIDCounter.Add(1)
}

// Player holds in-memory data for a player currently in-world.
// Accessed only from the game loop goroutine; no locks needed.
type Player struct {
	SessionID uint64
	Session   *net.Session
	ID        uint32
	AccountID int64
	Account   string
	Lang      string

	Pos   loot.Vec3
	Yaw   float32
	Pitch float32

	Inv *Inventory

	// Loot entities this client has been sent a spawn for.
	Known map[ecs.EntityID]struct{}

	// Set when the inventory changes; PersistenceSystem saves dirty players.
	Dirty bool
}

func NewPlayer(sess *net.Session, account string, accountID int64, slots int) *Player {
	p := &Player{
		ID:        NextPlayerID(),
		Account:   account,
		AccountID: accountID,
		Inv:       NewInventory(slots),
		Known:     make(map[ecs.EntityID]struct{}),
	}
	if sess != nil {
		p.SessionID = sess.ID
		p.Session = sess
		p.Lang = sess.Lang
	}
	return p
}

func (p *Player) Bounds() loot.AABB {
	return loot.BoxAround(p.Pos, PlayerHalfWidth, PlayerHeight)
}

// Send forwards to the session; players created without one (tests, bots
// driven in-process) drop packets.
func (p *Player) Send(data []byte) {
	if p.Session != nil {
		p.Session.Send(data)
	}
}
