package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conti/internal/core"
)

// LedgerSyncedMessage is published after every successful balance sync.
// It carries the full snapshot so consumers never read the store.
type LedgerSyncedMessage struct {
	ID        uuid.UUID          `json:"id"`
	Totals    core.ExpenseTotals `json:"totals"`
	Balance   float64            `json:"balance"`
	Debt      core.DebtBalance   `json:"debt"`
	Month     string             `json:"month"`
	Year      int                `json:"year"`
	Timestamp time.Time          `json:"timestamp"`
}

func NewLedgerSyncedMessage(snap core.LedgerSnapshot) *LedgerSyncedMessage {
	ts := snap.SyncedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerSyncedMessage{
		ID:        uuid.New(),
		Totals:    snap.Totals,
		Balance:   snap.Balance,
		Debt:      snap.Debt,
		Month:     snap.Month,
		Year:      snap.Year,
		Timestamp: ts.UTC(),
	}
}

// Snapshot returns the ledger state carried by the message.
func (m *LedgerSyncedMessage) Snapshot() core.LedgerSnapshot {
	return core.LedgerSnapshot{
		Totals:   m.Totals,
		Balance:  m.Balance,
		Debt:     m.Debt,
		Month:    m.Month,
		Year:     m.Year,
		SyncedAt: m.Timestamp,
	}
}

func (m *LedgerSyncedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerSyncedMessageFromJSON(data []byte) (*LedgerSyncedMessage, error) {
	var msg LedgerSyncedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, fmt.Errorf("ledger message without id")
	}
	return &msg, nil
}
