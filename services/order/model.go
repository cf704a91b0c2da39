package order

import "time"

const (
	StatusCreated   = "created"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Order is the points-relevant projection of the order subsystem. The
// loyalty core reads and writes only the fields below; order lifecycle
// is owned elsewhere.
type Order struct {
	ID                 string      `gorm:"column:id;primaryKey" json:"id"`
	OrderCode          string      `gorm:"column:order_code;uniqueIndex" json:"order_code"`
	MemberID           string      `gorm:"column:member_id;index" json:"member_id"`
	CustomerEmail      string      `gorm:"column:customer_email" json:"customer_email"`
	Status             string      `gorm:"column:status" json:"status"`
	PointsUsed         int64       `gorm:"column:points_used" json:"points_used"`
	PointsDeductAmount int64       `gorm:"column:points_deduct_amount" json:"points_deduct_amount"`
	TotalAmount        int64       `gorm:"column:total_amount" json:"total_amount"`
	CreatedAt          time.Time   `gorm:"column:created_at" json:"created_at"`
	Items              []OrderItem `gorm:"foreignKey:OrderID;references:ID" json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID        string `gorm:"column:id;primaryKey" json:"id"`
	OrderID   string `gorm:"column:order_id;index" json:"order_id"`
	Name      string `gorm:"column:name" json:"name"`
	UnitPrice int64  `gorm:"column:unit_price" json:"unit_price"`
	Quantity  int64  `gorm:"column:quantity" json:"quantity"`
}

func (OrderItem) TableName() string { return "order_items" }
