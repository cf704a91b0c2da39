package option

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a gorm query before it executes.
type QueryOption func(tx *gorm.DB) *gorm.DB

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		column := sort.SortBy
		if column == "" {
			column = "created_at"
		}
		if sort.Allow != nil && !sort.Allow[column] {
			return tx
		}
		order := "ASC"
		if sort.OrderBy == "desc" || sort.OrderBy == "DESC" {
			order = "DESC"
		}
		return tx.Order(column + " " + order)
	}
}

func WithLimit(limit int) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return tx
		}
		return tx.Limit(limit)
	}
}

// WithLockingUpdate adds FOR UPDATE to the select. Inside a transaction
// the lock holds to commit; a standalone read uses it to wait out an
// in-flight writer before reading. SQLite serializes writers already
// and rejects FOR UPDATE, so the clause is skipped there.
func WithLockingUpdate() QueryOption {
	return LockingUpdate
}

func LockingUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// WithCursorBefore filters to rows strictly before the cursor position
// in (created_at, id) descending order. The id tie-break keeps rows
// that share a timestamp from straddling a page boundary on dialects
// with second-granularity time columns.
func WithCursorBefore(createdAt, id any) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		if id == nil || id == "" {
			return tx.Where("created_at < ?", createdAt)
		}
		return tx.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	}
}
