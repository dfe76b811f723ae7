package repository

import (
	"strings"
	"time"
)

// filter accumulates AND-ed conditions for a list query.
type filter struct {
	conds []string
	args  []any
}

func (f *filter) where(cond string, arg any) {
	f.conds = append(f.conds, cond)
	f.args = append(f.args, arg)
}

// within restricts col to [from, to]. A zero bound is open.
func (f *filter) within(col string, from, to time.Time) {
	if !from.IsZero() {
		f.where(col+" >= ?", from.UTC())
	}
	if !to.IsZero() {
		f.where(col+" <= ?", to.UTC())
	}
}

// clause is "" or " WHERE a AND b".
func (f *filter) clause() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}
