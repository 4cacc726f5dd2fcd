package db

import "fmt"

var intentTransitions = map[IntentStatus][]IntentStatus{
	IntentStatusRequiresPaymentMethod: {
		IntentStatusRequiresConfirmation,
		IntentStatusProcessing,
		IntentStatusCancelled,
		IntentStatusFailed,
	},
	IntentStatusRequiresConfirmation: {
		IntentStatusProcessing,
		IntentStatusRequiresCapture,
		IntentStatusSucceeded,
		IntentStatusFailed,
		IntentStatusCancelled,
	},
	IntentStatusRequiresCapture: {
		IntentStatusProcessing,
		IntentStatusSucceeded,
		IntentStatusFailed,
		IntentStatusCancelled,
	},
	IntentStatusProcessing: {
		IntentStatusRequiresCapture,
		IntentStatusSucceeded,
		IntentStatusFailed,
		IntentStatusCancelled,
	},
}

var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptStatusStarted: {
		AttemptStatusPending,
		AttemptStatusFailure,
		AttemptStatusVoided,
	},
	AttemptStatusPending: {
		AttemptStatusAuthorized,
		AttemptStatusCharged,
		AttemptStatusAuthenticationFailed,
		AttemptStatusFailure,
		AttemptStatusVoided,
	},
	AttemptStatusAuthorized: {
		AttemptStatusCaptureInitiated,
		AttemptStatusCharged,
		AttemptStatusVoidInitiated,
		AttemptStatusVoided,
		AttemptStatusFailure,
	},
	AttemptStatusCaptureInitiated: {
		AttemptStatusCharged,
		AttemptStatusFailure,
	},
	AttemptStatusVoidInitiated: {
		AttemptStatusVoided,
		AttemptStatusFailure,
	},
}

var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusPending: {
		RefundStatusSucceeded,
		RefundStatusFailed,
		RefundStatusReview,
	},
	RefundStatusReview: {
		RefundStatusSucceeded,
		RefundStatusFailed,
	},
}

// IsTerminal reports whether no further status change is allowed.
func (s IntentStatus) IsTerminal() bool {
	_, ok := intentTransitions[s]
	return !ok
}

func (s AttemptStatus) IsTerminal() bool {
	_, ok := attemptTransitions[s]
	return !ok
}

func (s RefundStatus) IsTerminal() bool {
	_, ok := refundTransitions[s]
	return !ok
}

func (s AttemptStatus) IsFailure() bool {
	return s == AttemptStatusFailure || s == AttemptStatusAuthenticationFailed
}

// TransitionError reports an edge that is not part of an entity's FSM.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal %s status transition from %s to %s", e.Entity, e.From, e.To)
}

func checkTransition[S comparable](entity string, table map[S][]S, from, to S) error {
	if from == to {
		return nil
	}

	for _, next := range table[from] {
		if next == to {
			return nil
		}
	}

	return &TransitionError{Entity: entity, From: fmt.Sprint(from), To: fmt.Sprint(to)}
}

func CheckIntentTransition(from, to IntentStatus) error {
	return checkTransition("payment_intent", intentTransitions, from, to)
}

func CheckAttemptTransition(from, to AttemptStatus) error {
	return checkTransition("payment_attempt", attemptTransitions, from, to)
}

func CheckRefundTransition(from, to RefundStatus) error {
	return checkTransition("refund", refundTransitions, from, to)
}

// IntentStatusFSM picks the initial status of an intent from what the request carries.
func IntentStatusFSM(hasPaymentMethod bool, confirm bool) IntentStatus {
	switch {
	case hasPaymentMethod && confirm:
		return IntentStatusProcessing
	case hasPaymentMethod:
		return IntentStatusRequiresConfirmation
	case confirm:
		return IntentStatusRequiresConfirmation
	default:
		return IntentStatusRequiresPaymentMethod
	}
}

// AttemptToIntentStatus maps a connector-driven attempt status onto the owning intent.
func AttemptToIntentStatus(status AttemptStatus) IntentStatus {
	switch status {
	case AttemptStatusCharged:
		return IntentStatusSucceeded
	case AttemptStatusAuthorized:
		return IntentStatusRequiresCapture
	case AttemptStatusVoided:
		return IntentStatusCancelled
	case AttemptStatusFailure, AttemptStatusAuthenticationFailed:
		return IntentStatusFailed
	default:
		return IntentStatusProcessing
	}
}
