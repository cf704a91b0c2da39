package order

import (
	"encoding/json"

	"github.com/spf13/cast"
)

// ItemSnapshot is one cart line as the loyalty core sees it.
type ItemSnapshot struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

// OrderSnapshot is the canonical typed view of an order. Everything
// downstream of the intake boundary works with this struct; the legacy
// payload shapes stop here.
type OrderSnapshot struct {
	OrderID            string         `json:"order_id"`
	MemberID           string         `json:"member_id"`
	CustomerEmail      string         `json:"customer_email"`
	Status             string         `json:"status"`
	PointsUsed         int64          `json:"points_used"`
	PointsDeductAmount int64          `json:"points_deduct_amount"`
	Items              []ItemSnapshot `json:"items"`
}

// The storefront and the admin backend were built at different times
// and disagree on field naming. The adapter below absorbs every
// spelling that appears in real payloads so the rest of the system can
// pretend only one exists.

func pickString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s := cast.ToString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func pickInt(raw map[string]any, keys ...string) int64 {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return cast.ToInt64(v)
		}
	}
	return 0
}

// SnapshotFromPayload maps a loosely shaped JSON order payload onto the
// canonical snapshot.
func SnapshotFromPayload(raw map[string]any) OrderSnapshot {
	snap := OrderSnapshot{
		OrderID:            pickString(raw, "orderId", "order_id", "id"),
		MemberID:           pickString(raw, "memberId", "member_id"),
		CustomerEmail:      pickString(raw, "memberEmail", "customerEmail", "customer_email", "email"),
		Status:             pickString(raw, "status", "order_status"),
		PointsUsed:         pickInt(raw, "pointsUsed", "points_used"),
		PointsDeductAmount: pickInt(raw, "pointsDeductAmount", "points_deduct_amount", "pointsDeduct"),
	}

	items, ok := raw["items"]
	if !ok {
		items = raw["order_items"]
	}
	if list, ok := items.([]any); ok {
		for _, it := range list {
			entry, ok := it.(map[string]any)
			if !ok {
				continue
			}
			snap.Items = append(snap.Items, ItemSnapshot{
				Name:      pickString(entry, "name", "title", "product_name"),
				UnitPrice: pickInt(entry, "unitPrice", "unit_price", "price"),
				Quantity:  pickInt(entry, "quantity", "qty", "count"),
			})
		}
	}

	return snap
}

// SnapshotFromJSON is SnapshotFromPayload over raw bytes.
func SnapshotFromJSON(data []byte) (OrderSnapshot, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return OrderSnapshot{}, err
	}
	return SnapshotFromPayload(raw), nil
}

// Snapshot projects a stored order row onto the canonical DTO.
func Snapshot(o *Order) OrderSnapshot {
	snap := OrderSnapshot{
		OrderID:            o.ID,
		MemberID:           o.MemberID,
		CustomerEmail:      o.CustomerEmail,
		Status:             o.Status,
		PointsUsed:         o.PointsUsed,
		PointsDeductAmount: o.PointsDeductAmount,
	}
	for _, it := range o.Items {
		snap.Items = append(snap.Items, ItemSnapshot{
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return snap
}
