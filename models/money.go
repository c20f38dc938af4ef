package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// GapEpsilon is the single resolution threshold shared by the gap calculator,
// the closure validator and the adjustment creator. A gap is resolved iff
// abs(gap_amount) < GapEpsilon. Do not redefine this anywhere else.
var GapEpsilon = decimal.NewFromFloat(0.01)

// IsGapResolved reports whether amount is within rounding noise of zero.
func IsGapResolved(amount decimal.Decimal) bool {
	return amount.Abs().LessThan(GapEpsilon)
}

// TimestampLayoutMs is the wire format for checkpoint timestamps:
// ISO-8601 with millisecond precision.
const TimestampLayoutMs = "2006-01-02T15:04:05.000Z07:00"

// MilliTime is a timestamp truncated to millisecond precision that
// round-trips exactly through JSON. Checkpoint created_at uses it so the
// stored and serialized values never drift by sub-millisecond noise.
type MilliTime struct {
	time.Time
}

func NewMilliTime(t time.Time) MilliTime {
	return MilliTime{t.Truncate(time.Millisecond)}
}

func (t MilliTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.Time.Format(TimestampLayoutMs))), nil
}

func (t *MilliTime) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	parsed, err := time.Parse(TimestampLayoutMs, str)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t MilliTime) Value() (driver.Value, error) {
	return t.Time, nil
}

func (t *MilliTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.Truncate(time.Millisecond)
		return nil
	case []byte:
		parsed, err := time.Parse("2006-01-02 15:04:05.999999", string(v))
		if err != nil {
			return err
		}
		t.Time = parsed.Truncate(time.Millisecond)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into MilliTime", src)
	}
}
