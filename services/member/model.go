package member

import "time"

// Member is owned by the CRM subsystem. The loyalty core only resolves
// identifiers through it and mirrors the denormalized points field for
// display; the ledger remains the source of truth.
type Member struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Code      string    `gorm:"column:code;uniqueIndex"`
	Name      string    `gorm:"column:name"`
	Email     string    `gorm:"column:email;index"`
	Phone     string    `gorm:"column:phone;index"`
	Points    int64     `gorm:"column:points"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Member) TableName() string { return "members" }

// Identifier carries whichever handle the caller supplied. Resolution
// precedes every ledger mutation; an unresolved member is a hard error.
type Identifier struct {
	MemberID string `json:"memberId" form:"memberId"`
	Email    string `json:"memberEmail" form:"memberEmail"`
	Code     string `json:"memberCode" form:"memberCode"`
	Phone    string `json:"phone" form:"phone"`
}

func (id Identifier) Empty() bool {
	return id.MemberID == "" && id.Email == "" && id.Code == "" && id.Phone == ""
}
