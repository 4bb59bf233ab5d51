package model

// SignClass categorizes a transaction amount as positive, negative, or zero.
type SignClass int

// Sign classes for transaction amounts.
const (
	SignNegative SignClass = -1
	SignZero     SignClass = 0
	SignPositive SignClass = 1
)

// String returns a human-readable name for the sign class.
func (s SignClass) String() string {
	switch s {
	case SignNegative:
		return "negative"
	case SignPositive:
		return "positive"
	default:
		return "zero"
	}
}

// ClassifyAmount maps a signed amount to its sign class.
func ClassifyAmount(amount float64) SignClass {
	switch {
	case amount > 0:
		return SignPositive
	case amount < 0:
		return SignNegative
	default:
		return SignZero
	}
}

// SignVerdict is the result of a sign-consistency check over a set of
// transactions selected for merging.
type SignVerdict struct {
	// Classes maps each transaction ID to its sign class. Empty when the
	// check could not complete.
	Classes map[int64]SignClass

	// Consistent is true when every checked amount shares the same sign
	// class. A check that could not complete is also reported consistent:
	// the check is advisory and fails open rather than blocking a merge.
	Consistent bool

	// Advisory is true when the check actually ran to completion. When
	// false, Consistent carries no information.
	Advisory bool
}

// MergeReceipt is the narrowed result of a successful merge submission.
// The remote API's id field is loosely typed; anything that does not parse
// as an integer is treated as absent.
type MergeReceipt struct {
	NewID    int64
	HasNewID bool
}
