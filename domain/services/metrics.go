package services

import "context"

// Metrics receives business measurements from the services
type Metrics interface {
	RecordLedgerEntry(ctx context.Context, category, field string, signedAmount int64)
	RecordLedgerRejection(ctx context.Context, code string)
	RecordLedgerRetry(ctx context.Context)
	RecordPostback(ctx context.Context, outcome string)
	RecordReferralBonus(ctx context.Context, outcome string)
}

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) RecordLedgerEntry(context.Context, string, string, int64) {}
func (NoopMetrics) RecordLedgerRejection(context.Context, string)            {}
func (NoopMetrics) RecordLedgerRetry(context.Context)                        {}
func (NoopMetrics) RecordPostback(context.Context, string)                   {}
func (NoopMetrics) RecordReferralBonus(context.Context, string)              {}
