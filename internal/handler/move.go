package handler

import (
	"math"

	"go.uber.org/zap"

	"github.com/lootgo/server/internal/loot"
	"github.com/lootgo/server/internal/net"
	"github.com/lootgo/server/internal/net/packet"
	"github.com/lootgo/server/internal/protocol"
)

// maxMoveDistSq bounds how far one C_MOVE may carry a player. Larger jumps
// are answered with S_PLAYER_POS and ignored.
const maxMoveDistSq = 10 * 10

// HandleMove processes C_MOVE. The client owns its movement; the server
// only rejects non-finite positions and teleport-sized jumps, because the
// pickup range check trusts this position.
func HandleMove(sess *net.Session, r *packet.Reader, deps *Deps) {
	msg, err := protocol.DecodeMove(r)
	if err != nil {
		deps.Log.Debug("移動封包格式錯誤", zap.Uint64("session", sess.ID), zap.Error(err))
		return
	}
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}
	if !finite(msg.Pos) || msg.Pos.DistanceSq(p.Pos) > maxMoveDistSq {
		deps.Log.Debug("拒絕異常移動",
			zap.String("account", p.Account),
			zap.Float64("x", msg.Pos.X), zap.Float64("y", msg.Pos.Y), zap.Float64("z", msg.Pos.Z),
		)
		sess.Send(protocol.EncodePlayerPos(p.Pos))
		return
	}
	deps.World.UpdatePosition(sess.ID, msg.Pos)
	p.Yaw = msg.Yaw
	p.Pitch = msg.Pitch
}

func finite(v loot.Vec3) bool {
	for _, f := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
