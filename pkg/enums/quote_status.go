package enums

// QuoteStatus tracks where a saved quote sits in its lifecycle. Pending and
// expired are derived from the expiry timestamp at read time; converted is
// terminal and recorded explicitly.
type QuoteStatus string

const (
	QuoteStatusPending   QuoteStatus = "pending"
	QuoteStatusConverted QuoteStatus = "converted"
	QuoteStatusExpired   QuoteStatus = "expired"
)

// String implements fmt.Stringer.
func (q QuoteStatus) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteStatus.
func (q QuoteStatus) IsValid() bool {
	switch q {
	case QuoteStatusPending, QuoteStatusConverted, QuoteStatusExpired:
		return true
	}
	return false
}
