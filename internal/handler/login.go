package handler

import (
	"context"
	"fmt"
	stdnet "net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lootgo/server/internal/config"
	"github.com/lootgo/server/internal/core/event"
	"github.com/lootgo/server/internal/i18n"
	"github.com/lootgo/server/internal/net"
	"github.com/lootgo/server/internal/net/packet"
	"github.com/lootgo/server/internal/persist"
	"github.com/lootgo/server/internal/protocol"
	"github.com/lootgo/server/internal/world"
)

// Login failure reasons sent in S_LOGIN_FAIL.
const (
	loginBadName      = "invalid_name"
	loginWrongPass    = "wrong_password"
	loginNoAccount    = "no_account"
	loginBanned       = "banned"
	loginInUse        = "already_online"
	loginRateLimited  = "too_many_attempts"
	loginServerError  = "server_error"
	maxAccountNameLen = 32
)

// HandleLogin processes C_LOGIN: authenticate, load the inventory and put
// the player into the world.
func HandleLogin(sess *net.Session, r *packet.Reader, deps *Deps) {
	msg, err := protocol.DecodeLogin(r)
	if err != nil {
		deps.Log.Debug("登入封包格式錯誤", zap.Uint64("session", sess.ID), zap.Error(err))
		return
	}
	name := strings.ToLower(strings.TrimSpace(msg.Account))
	ip := sess.IP

	if deps.logins != nil && !deps.logins.Allow(ip, time.Now()) {
		sendLoginFail(sess, loginRateLimited)
		return
	}
	if name == "" || len(name) > maxAccountNameLen {
		sendLoginFail(sess, loginBadName)
		return
	}
	if deps.World.GetByName(name) != nil {
		sendLoginFail(sess, loginInUse)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	account, err := deps.Accounts.Load(ctx, name)
	if err != nil {
		deps.Log.Error("載入帳號資料庫錯誤", zap.Error(err))
		sendLoginFail(sess, loginServerError)
		return
	}
	if account == nil {
		if !deps.Config.Character.AutoCreateAccounts {
			sendLoginFail(sess, loginNoAccount)
			return
		}
		account, err = deps.Accounts.Create(ctx, name, msg.Password, ip, deps.Spawn)
		if err != nil {
			deps.Log.Error("建立帳號資料庫錯誤", zap.Error(err))
			sendLoginFail(sess, loginServerError)
			return
		}
		deps.Log.Info(fmt.Sprintf("自動建立帳號  帳號=%s", name))
	} else if !persist.ValidatePassword(account.PasswordHash, msg.Password) {
		sendLoginFail(sess, loginWrongPass)
		return
	}
	if account.Banned {
		deps.Log.Info(fmt.Sprintf("被封鎖帳號嘗試登入  帳號=%s", name))
		sendLoginFail(sess, loginBanned)
		return
	}

	sess.AccountName = name
	sess.Lang = i18n.Match(msg.Lang, deps.Config.Server.Language).String()

	p := world.NewPlayer(sess, name, account.ID, deps.Config.Character.InventorySlots)
	p.Pos = account.Pos
	if deps.Inventories != nil {
		rows, err := deps.Inventories.Load(ctx, account.ID)
		if err != nil {
			deps.Log.Error("載入背包資料庫錯誤", zap.String("account", name), zap.Error(err))
			sendLoginFail(sess, loginServerError)
			return
		}
		for _, row := range rows {
			if !p.Inv.Set(row.Slot, deps.Items.Stack(row.Type, row.Count, row.Meta)) {
				deps.Log.Warn("背包格位超出範圍，略過", zap.String("account", name), zap.Int("slot", row.Slot))
			}
		}
	}

	if err := deps.Accounts.SetOnline(ctx, name, true); err != nil {
		deps.Log.Error("設定上線狀態資料庫錯誤", zap.Error(err))
	}
	if err := deps.Accounts.UpdateLastActive(ctx, name, ip); err != nil {
		deps.Log.Error("更新最後活動時間資料庫錯誤", zap.Error(err))
	}

	deps.World.AddPlayer(p)
	sess.SetState(packet.StateInWorld)
	sess.Send(protocol.LoginOK{PlayerID: p.ID, Pos: p.Pos}.Encode())
	sendFullInventory(p)
	if deps.View != nil {
		deps.View.Refresh(p)
	}
	if deps.Bus != nil {
		event.Emit(deps.Bus, event.PlayerLoggedIn{SessionID: sess.ID, AccountName: name})
	}
	deps.Log.Info(fmt.Sprintf("登入成功  帳號=%s  ip=%s", name, ip))
}

func sendLoginFail(sess *net.Session, reason string) {
	sess.Send(protocol.EncodeReason(packet.S_OPCODE_LOGIN_FAIL, reason))
}

// sendFullInventory sends every slot, empty ones included, and clears the
// change set so the first pickup only reports what it touched.
func sendFullInventory(p *world.Player) {
	updates := make([]protocol.SlotUpdate, len(p.Inv.Slots))
	for i, s := range p.Inv.Slots {
		updates[i] = protocol.SlotUpdate{Slot: i}
		if !s.Empty() {
			updates[i].Type = s.Type
			updates[i].Count = s.Count
		}
	}
	p.Inv.TakeChanges()
	p.Send(protocol.EncodeInventory(updates))
}

// loginLimiter caps login attempts per IP in fixed one-minute windows.
// Game loop only.
type loginLimiter struct {
	max     int
	window  int64
	perAddr map[string]int
}

func newLoginLimiter(cfg config.RateLimitConfig) *loginLimiter {
	if !cfg.Enabled || cfg.LoginAttemptsPerMinute <= 0 {
		return nil
	}
	return &loginLimiter{max: cfg.LoginAttemptsPerMinute, perAddr: make(map[string]int)}
}

func (l *loginLimiter) Allow(addr string, now time.Time) bool {
	if host, _, err := stdnet.SplitHostPort(addr); err == nil {
		addr = host
	}
	minute := now.Unix() / 60
	if minute != l.window {
		l.window = minute
		clear(l.perAddr)
	}
	l.perAddr[addr]++
	return l.perAddr[addr] <= l.max
}
