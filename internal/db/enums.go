package db

type (
	IntentStatus  string
	AttemptStatus string
	RefundStatus  string
	RefundType    string
	StorageScheme string
)

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentStatusRequiresCapture       IntentStatus = "requires_capture"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusFailed                IntentStatus = "failed"
	IntentStatusCancelled             IntentStatus = "cancelled"
)

const (
	AttemptStatusStarted              AttemptStatus = "started"
	AttemptStatusPending              AttemptStatus = "pending"
	AttemptStatusAuthorized           AttemptStatus = "authorized"
	AttemptStatusCaptureInitiated     AttemptStatus = "capture_initiated"
	AttemptStatusVoidInitiated        AttemptStatus = "void_initiated"
	AttemptStatusCharged              AttemptStatus = "charged"
	AttemptStatusAuthenticationFailed AttemptStatus = "authentication_failed"
	AttemptStatusFailure              AttemptStatus = "failure"
	AttemptStatusVoided               AttemptStatus = "voided"
)

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
	RefundStatusReview    RefundStatus = "review"
)

const (
	RefundTypeInstant   RefundType = "instant"
	RefundTypeScheduled RefundType = "scheduled"
)

const (
	// StorageSchemeStrict routes every call to the relational store.
	StorageSchemeStrict StorageScheme = "postgres_only"
	// StorageSchemeCached writes to the cache first and replicates through the drainer stream.
	StorageSchemeCached StorageScheme = "redis_kv"
)

func (s StorageScheme) Valid() bool {
	return s == StorageSchemeStrict || s == StorageSchemeCached
}
