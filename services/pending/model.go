package pending

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusClaimed   Status = "claimed"
	StatusCancelled Status = "cancelled"
)

// PendingAward is a deferred point grant. It carries no balance weight
// until claimed; the claim writes the ledger entry that actually moves
// points.
type PendingAward struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	MemberID  string     `gorm:"column:member_id;index:idx_pending_member_order" json:"member_id"`
	OrderID   string     `gorm:"column:order_id;index:idx_pending_member_order" json:"order_id"`
	Points    int64      `gorm:"column:points" json:"points"`
	Reason    string     `gorm:"column:reason" json:"reason"`
	Status    Status     `gorm:"column:status;index" json:"status"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	ClaimedAt *time.Time `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
}

func (PendingAward) TableName() string {
	return "pending_awards"
}
