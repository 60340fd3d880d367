package handler

import (
	"fmt"

	"github.com/lootgo/server/internal/net"
	"github.com/lootgo/server/internal/net/packet"
)

// HandleQuit processes C_QUIT. InputSystem does the cleanup once it sees
// the closed session.
func HandleQuit(sess *net.Session, _ *packet.Reader, deps *Deps) {
	deps.Log.Info(fmt.Sprintf("玩家登出  session=%d  帳號=%s", sess.ID, sess.AccountName))
	sess.Close()
}
