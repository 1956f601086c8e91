package persistence

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sortColumns whitelists the columns a list endpoint may order by. The
// requested column is matched exactly, so anything else falls back to the
// default and never reaches the SQL text.
type sortColumns struct {
	fallback string
	allowed  map[string]struct{}
}

func newSortColumns(fallback string, columns ...string) sortColumns {
	allowed := make(map[string]struct{}, len(columns)+1)
	allowed[fallback] = struct{}{}
	for _, c := range columns {
		allowed[c] = struct{}{}
	}
	return sortColumns{fallback: fallback, allowed: allowed}
}

var (
	saleSort = newSortColumns("sale_date",
		"id", "created_at", "updated_at", "reference", "invoice_number",
		"buyer_name", "brand", "status", "amount_inc_tax", "gross_margin",
		"commissionable_margin", "commission_amount", "paid_date",
	)
	errorLogSort = newSortColumns("created_at",
		"id", "severity", "source", "resolved", "resolved_at",
	)
)

// column returns the requested column when whitelisted, else the fallback
func (s sortColumns) column(requested string) string {
	requested = strings.TrimSpace(requested)
	if _, ok := s.allowed[requested]; ok {
		return requested
	}
	return s.fallback
}

// descending is true unless dir is "asc" in any case. Lists default to newest first.
func descending(dir string) bool {
	return !strings.EqualFold(strings.TrimSpace(dir), "asc")
}

// orderBy returns a scope ordering by the validated column then id, so
// pages stay stable when the primary column ties.
func (s sortColumns) orderBy(requested, dir string) func(*gorm.DB) *gorm.DB {
	col := s.column(requested)
	return func(db *gorm.DB) *gorm.DB {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: descending(dir)})
		if col != "id" {
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
		}
		return db
	}
}
