package notification

import "time"

// Notification is a member-facing message row. Writes are best-effort;
// the loyalty workflows never fail because one could not be stored.
type Notification struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	MemberID  string    `gorm:"column:member_id;index" json:"member_id"`
	Kind      string    `gorm:"column:kind" json:"kind"`
	Title     string    `gorm:"column:title" json:"title"`
	Body      string    `gorm:"column:body" json:"body"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
