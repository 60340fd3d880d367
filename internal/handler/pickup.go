package handler

import (
	"go.uber.org/zap"

	"github.com/lootgo/server/internal/net"
	"github.com/lootgo/server/internal/net/packet"
	"github.com/lootgo/server/internal/protocol"
)

// HandleBatchPickup processes C_BATCH_PICKUP. The request is only decoded
// here; PickupSystem validates and applies it later in the same tick.
func HandleBatchPickup(sess *net.Session, r *packet.Reader, deps *Deps) {
	req, err := protocol.DecodePickupRequest(r, deps.Config.Pickup.MaxBatchTargets)
	if err != nil {
		deps.Log.Debug("批次拾取封包格式錯誤", zap.Uint64("session", sess.ID), zap.Error(err))
		return
	}
	deps.Pickups.Submit(sess.ID, req)
}

// HandlePickupItem processes the single-target C_PICKUP_ITEM as a manual,
// unlimited request.
func HandlePickupItem(sess *net.Session, r *packet.Reader, deps *Deps) {
	req, err := protocol.DecodePickupItem(r)
	if err != nil {
		deps.Log.Debug("拾取封包格式錯誤", zap.Uint64("session", sess.ID), zap.Error(err))
		return
	}
	deps.Pickups.Submit(sess.ID, req)
}
