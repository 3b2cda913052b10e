package valueobjects

import "strings"

type SubscriptionStatus string

const (
	StatusActive            SubscriptionStatus = "ACTIVE"
	StatusTrialing          SubscriptionStatus = "TRIALING"
	StatusPastDue           SubscriptionStatus = "PAST_DUE"
	StatusCanceled          SubscriptionStatus = "CANCELED"
	StatusUnpaid            SubscriptionStatus = "UNPAID"
	StatusIncomplete        SubscriptionStatus = "INCOMPLETE"
	StatusIncompleteExpired SubscriptionStatus = "INCOMPLETE_EXPIRED"
	StatusPaused            SubscriptionStatus = "PAUSED"
)

var ValidStatuses = map[SubscriptionStatus]bool{
	StatusActive:            true,
	StatusTrialing:          true,
	StatusPastDue:           true,
	StatusCanceled:          true,
	StatusUnpaid:            true,
	StatusIncomplete:        true,
	StatusIncompleteExpired: true,
	StatusPaused:            true,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) IsValid() bool {
	return ValidStatuses[s]
}

// GrantsAccess reports whether the paid plan applies. PAST_DUE is a grace
// period and keeps access.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == StatusActive || s == StatusTrialing || s == StatusPastDue
}

// IsTerminal reports whether the subscription can only be revived by a new checkout.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCanceled || s == StatusIncompleteExpired
}

// ParseStatus accepts the stored form in any case.
func ParseStatus(s string) (SubscriptionStatus, bool) {
	st := SubscriptionStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.IsValid()
}
