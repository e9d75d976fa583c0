package db

// Invoice statuses (§3).
const (
	InvoiceStatusPaymentAwaited = "payment_awaited"
	InvoiceStatusPaid           = "paid"
)

// Order states, the closed PaymentState set (§4.1). Transitions are enforced
// by the invoice service, never by a DB constraint.
const (
	OrderStateInitial              = "initial"
	OrderStateCaptured             = "captured"
	OrderStateDeclined             = "declined"
	OrderStateRefundNeeded         = "refund_needed"
	OrderStateRefunded             = "refunded"
	OrderStatePaymentToSellerNeeded = "payment_to_seller_needed"
	OrderStatePaidToSeller         = "paid_to_seller"
)

// Exchange rate statuses (§3).
const (
	ExchangeRateStatusActive  = "active"
	ExchangeRateStatusExpired = "expired"
)

// PaymentIntent statuses, mirroring the card processor's own intent lifecycle.
const (
	PaymentIntentStatusRequiresSource    = "requires_source"
	PaymentIntentStatusRequiresCapture   = "requires_capture"
	PaymentIntentStatusProcessing        = "processing"
	PaymentIntentStatusCanceled          = "canceled"
	PaymentIntentStatusSucceeded         = "succeeded"
)

// Fee statuses (§3).
const (
	FeeStatusNotPaid = "not_paid"
	FeeStatusPaid    = "paid"
	FeeStatusFail    = "fail"
)

// Payout statuses (§3).
const (
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
)

// Event store statuses (§4.2).
const (
	EventStatusPending    = "pending"
	EventStatusInProgress = "in_progress"
	EventStatusCompleted  = "completed"
	EventStatusFailed     = "failed"
)

// Roles (§4.3).
const (
	RoleSuperuser    = "superuser"
	RoleUser         = "user"
	RoleStoreManager = "store_manager"
)

// Store subscription statuses (§3).
const (
	StoreSubscriptionStatusTrial = "trial"
	StoreSubscriptionStatusPaid  = "paid"
	StoreSubscriptionStatusFree  = "free"
)

// Subscription payment statuses (§3).
const (
	SubscriptionPaymentStatusPaid   = "paid"
	SubscriptionPaymentStatusFailed = "failed"
)
