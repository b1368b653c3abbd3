package observability

// Metric name prefixes
const (
	MetricPrefix = "earnify"
)

// Metric names
const (
	// Ledger metrics
	LedgerEntriesTotal    = MetricPrefix + ".ledger.entries_total"
	LedgerAmountTotal     = MetricPrefix + ".ledger.amount_total"
	LedgerRejectionsTotal = MetricPrefix + ".ledger.rejections_total"
	LedgerRetriesTotal    = MetricPrefix + ".ledger.retries_total"

	// Upstream metrics
	PostbacksTotal       = MetricPrefix + ".cpa.postbacks_total"
	ReferralBonusesTotal = MetricPrefix + ".referrals.bonuses_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelCategory  = "category"
	LabelField     = "field"
	LabelCode      = "code"
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"
	LabelResult    = "result"
)
