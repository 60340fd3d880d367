package handler

import (
	"go.uber.org/zap"

	"github.com/lootgo/server/internal/net"
	"github.com/lootgo/server/internal/net/packet"
	"github.com/lootgo/server/internal/protocol"
)

// HandleHello processes C_HELLO. A matching compatibility token moves the
// session to VersionOK; anything else sends S_DISCONNECT and closes the session once it is written.
func HandleHello(sess *net.Session, r *packet.Reader, deps *Deps) {
	msg, err := protocol.DecodeHello(r)
	if err != nil || msg.Token != deps.Config.Server.ProtocolToken {
		deps.Log.Warn("協定版本不符，中斷連線",
			zap.Uint64("session", sess.ID),
			zap.String("token", msg.Token),
		)
		sess.Send(protocol.EncodeReason(packet.S_OPCODE_DISCONNECT, "incompatible protocol"))
		sess.FlushOutput()
		sess.CloseAfterFlush()
		return
	}
	sess.Send([]byte{packet.S_OPCODE_HELLO_OK})
	sess.SetState(packet.StateVersionOK)
}
