package database

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// PgVector adapts a proposal embedding to a PostgreSQL VECTOR column. pgvector
// speaks a bracketed text literal ("[0.1,0.2]") on the wire; Scan and Value
// translate between that literal and a float64 slice.
type PgVector struct {
	elems []float64
}

// NewPgVector copies floats into a PgVector. The copy keeps later mutation of
// the caller's slice from leaking into a pending write.
func NewPgVector(floats []float64) PgVector {
	cp := make([]float64, len(floats))
	copy(cp, floats)
	return PgVector{elems: cp}
}

// Floats returns the vector elements as a fresh slice, or nil for a vector
// scanned from SQL NULL.
func (v PgVector) Floats() []float64 {
	if v.elems == nil {
		return nil
	}
	cp := make([]float64, len(v.elems))
	copy(cp, v.elems)
	return cp
}

// Dimension returns the element count.
func (v PgVector) Dimension() int {
	return len(v.elems)
}

// Scan implements sql.Scanner for the pgvector text literal. The driver may
// hand the literal over as string or []byte.
func (v *PgVector) Scan(value any) error {
	var lit string
	switch src := value.(type) {
	case nil:
		v.elems = nil
		return nil
	case string:
		lit = src
	case []byte:
		lit = string(src)
	default:
		return fmt.Errorf("cannot scan %T into PgVector", value)
	}

	lit = strings.TrimSpace(lit)
	lit = strings.TrimPrefix(lit, "[")
	lit = strings.TrimSuffix(lit, "]")
	if lit == "" {
		v.elems = []float64{}
		return nil
	}

	elems := make([]float64, 0, strings.Count(lit, ",")+1)
	for len(lit) > 0 {
		part, rest, _ := strings.Cut(lit, ",")
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("parse vector element %d: %w", len(elems), err)
		}
		elems = append(elems, f)
		lit = rest
	}

	v.elems = elems
	return nil
}

// Value implements driver.Valuer.
func (v PgVector) Value() (driver.Value, error) {
	return v.String(), nil
}

// String renders the pgvector literal.
func (v PgVector) String() string {
	parts := make([]string, len(v.elems))
	for i, f := range v.elems {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
