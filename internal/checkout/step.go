package checkout

// Step is the checkout flow position. The set is closed; transition logic
// switches exhaustively over it.
type Step string

const (
	StepCart         Step = "cart"
	StepShipping     Step = "shipping"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

func (s Step) IsValid() bool {
	switch s {
	case StepCart, StepShipping, StepPayment, StepConfirmation:
		return true
	default:
		return false
	}
}

func (s Step) String() string {
	return string(s)
}
