package audithook

// Action constants for audit events.
const (
	// Pool actions
	ActionPoolCreated   = "pool.created"
	ActionQuotaChanged  = "quota.changed"
	ActionCycleAdvanced = "cycle.advanced"

	// Funds actions
	ActionFundsReceived   = "funds.received"
	ActionPayoutRequested = "payout.requested"
	ActionPayoutMade      = "payout.made"
	ActionTransferFailed  = "transfer.failed"

	// Journal actions
	ActionJournalFlushed = "journal.flushed"
)

// Resource constants for audit events.
const (
	ResourcePool    = "pool"
	ResourceRequest = "payout_request"
	ResourcePayout  = "payout"
	ResourceJournal = "journal"
)

// Category constants for audit events.
const (
	CategoryGovernance   = "governance"
	CategoryContribution = "contribution"
	CategoryPayment      = "payment"
	CategoryOperations   = "operations"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
