package enums

// CheckoutState names the stations of the checkout workflow.
type CheckoutState string

const (
	CheckoutStateBuilding        CheckoutState = "building"
	CheckoutStateMethodSelection CheckoutState = "method_selection"
	CheckoutStateCashTender      CheckoutState = "cash_tender"
	CheckoutStateFinalizing      CheckoutState = "finalizing"
	CheckoutStateCompleted       CheckoutState = "completed"
	CheckoutStateFailed          CheckoutState = "failed"
)

// String implements fmt.Stringer.
func (c CheckoutState) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutState.
func (c CheckoutState) IsValid() bool {
	switch c {
	case CheckoutStateBuilding, CheckoutStateMethodSelection, CheckoutStateCashTender,
		CheckoutStateFinalizing, CheckoutStateCompleted, CheckoutStateFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the state ends a checkout attempt.
func (c CheckoutState) IsTerminal() bool {
	return c == CheckoutStateCompleted || c == CheckoutStateFailed
}
