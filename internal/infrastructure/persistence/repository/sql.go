package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/garyjia/kyc-review/internal/domain/workflow"
)

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// stateFilter renders "column IN (?, ?, ...)" for states; an empty set matches everything
func stateFilter(column string, states []workflow.State) (string, []interface{}) {
	if len(states) == 0 {
		return "1 = 1", nil
	}
	args := make([]interface{}, len(states))
	for i, s := range states {
		args[i] = string(s)
	}
	return column + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(states)), ", ") + ")", args
}
