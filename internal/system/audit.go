package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/lootgo/server/internal/core/event"
	"github.com/lootgo/server/internal/persist"
)

// AuditLog receives one entry per transaction.
type AuditLog interface {
	Write(v any) error
}

// AuditSink turns PickupApplied events into audit lines and ledger rows.
// Subscribed to the event bus, so it runs in PreUpdate of the tick after
// the transaction.
type AuditSink struct {
	out    AuditLog
	ledger *PersistenceSystem
	tick   func() uint64
	log    *zap.Logger
}

func NewAuditSink(out AuditLog, ledger *PersistenceSystem, tick func() uint64, log *zap.Logger) *AuditSink {
	return &AuditSink{out: out, ledger: ledger, tick: tick, log: log}
}

func (a *AuditSink) OnPickup(ev event.PickupApplied) {
	if a.ledger != nil {
		for _, t := range ev.Taken {
			a.ledger.Record(persist.LedgerEntry{
				AccountID: ev.AccountID,
				LootID:    uint32(t.ID),
				ItemType:  t.Type,
				Meta:      t.Meta,
				Amount:    t.Amount,
				IsAuto:    ev.IsAuto,
			})
		}
	}
	if a.out == nil {
		return
	}
	entry := persist.AuditEntry{
		Time:      time.Now().UTC(),
		Account:   ev.Account,
		IsAuto:    ev.IsAuto,
		Limited:   ev.Limited,
		Requested: ev.Requested,
		Accepted:  ev.Accepted,
		Overflow:  ev.Overflow,
	}
	if a.tick != nil {
		entry.Tick = a.tick()
	}
	for _, t := range ev.Taken {
		entry.Taken = append(entry.Taken, persist.AuditTaken{LootID: uint32(t.ID), Type: t.Type, Amount: t.Amount})
	}
	if err := a.out.Write(entry); err != nil {
		a.log.Error("寫入稽核紀錄失敗", zap.String("account", ev.Account), zap.Error(err))
	}
}
