package money

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// ToNumeric encodes an Amount as a pgtype.Numeric for storage in a NUMERIC
// column, the way the reference platform's services store every monetary
// field (pgtype.Numeric, never float64).
func (a Amount) ToNumeric() pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(a.v.Dec()); err != nil {
		// Dec() always yields a valid base-10 integer string, so Scan cannot
		// fail here; this would indicate a pgtype regression.
		panic(fmt.Sprintf("money: numeric scan of %q failed: %v", a.v.Dec(), err))
	}
	return n
}

// AmountFromNumeric decodes a pgtype.Numeric column value back into an Amount.
func AmountFromNumeric(n pgtype.Numeric) (Amount, error) {
	if !n.Valid {
		return Amount{}, fmt.Errorf("money: numeric value is NULL")
	}
	s, err := n.Value()
	if err != nil {
		return Amount{}, err
	}
	str, ok := s.(string)
	if !ok {
		return Amount{}, fmt.Errorf("money: unexpected numeric representation %T", s)
	}
	return NewFromString(str)
}
