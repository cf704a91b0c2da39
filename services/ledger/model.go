package ledger

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// LedgerEntry is an immutable point delta applied to one member. Rows
// are only ever inserted; the unique ref_key is the idempotency guard
// for every write path.
type LedgerEntry struct {
	ID              string         `gorm:"column:id;primaryKey"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
	MemberID        string         `gorm:"column:member_id;index;not null"`
	Delta           int64          `gorm:"column:delta;not null"`
	Reason          string         `gorm:"column:reason"`
	OrderID         string         `gorm:"column:order_id;index"`
	RefKey          string         `gorm:"column:ref_key;uniqueIndex;not null"`
	TransactionCode string         `gorm:"column:transaction_code"`
	Metadata        datatypes.JSON `gorm:"column:metadata"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// MemberBalance is the cached projection of sum(delta) per member. It
// is never authoritative; the ledger fold wins on any discrepancy.
type MemberBalance struct {
	MemberID  string    `gorm:"column:member_id;primaryKey"`
	Balance   int64     `gorm:"column:balance;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (MemberBalance) TableName() string { return "member_balances" }

type ReviewKind string

const (
	ReviewGood    ReviewKind = "good"
	ReviewSuggest ReviewKind = "suggest"
	ReviewScore   ReviewKind = "score"
)

func (k ReviewKind) Valid() bool {
	switch k {
	case ReviewGood, ReviewSuggest, ReviewScore:
		return true
	}
	return false
}

// Dedup token builders. Keys are deterministic functions of the
// operation identity so a retried call always collides with its first
// attempt. Never derive them from random values.

func UsedRefKey(orderID string) string {
	return fmt.Sprintf("order_points_used_%s", orderID)
}

func RefundRefKey(orderID string) string {
	return fmt.Sprintf("order_points_refund_%s", orderID)
}

func PendingClaimRefKey(pendingID string) string {
	return fmt.Sprintf("pending_claim_%s", pendingID)
}

func ReviewBonusRefKey(orderID, memberID string, kind ReviewKind) string {
	return fmt.Sprintf("review_bonus_%s_%s_%s", orderID, memberID, kind)
}
