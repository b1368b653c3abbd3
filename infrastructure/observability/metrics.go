package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"earnify/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider records ledger, upstream and NATS metrics through OpenTelemetry
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	ledgerEntriesCounter    metric.Int64Counter
	ledgerAmountCounter     metric.Int64UpDownCounter
	ledgerRejectionsCounter metric.Int64Counter
	ledgerRetriesCounter    metric.Int64Counter
	postbacksCounter        metric.Int64Counter
	referralBonusesCounter  metric.Int64Counter
	natsPublishedCounter    metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the exporter configured in cfg
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		return mp.markInitialized(nil)
	}

	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		return mp.markInitialized(nil)

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	return mp.InitializeWithReader(reader)
}

// InitializeWithReader builds the meter provider around reader. Tests pass a ManualReader.
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(provider)

	return mp.markInitialized(provider)
}

func (mp *MetricsProvider) markInitialized(provider *sdkmetric.MeterProvider) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}
	if provider != nil {
		mp.meterProvider = provider
		mp.meter = provider.Meter("earnify")
		if err := mp.createInstruments(); err != nil {
			return fmt.Errorf("failed to create instruments: %w", err)
		}
		mp.enabled = true
	}
	mp.initialized = true
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.ledgerEntriesCounter, err = mp.meter.Int64Counter(
		LedgerEntriesTotal,
		metric.WithDescription("Committed ledger entries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger entries counter: %w", err)
	}

	// Signed so that debits net against credits
	mp.ledgerAmountCounter, err = mp.meter.Int64UpDownCounter(
		LedgerAmountTotal,
		metric.WithDescription("Net points moved by committed ledger entries"),
		metric.WithUnit("{point}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger amount counter: %w", err)
	}

	mp.ledgerRejectionsCounter, err = mp.meter.Int64Counter(
		LedgerRejectionsTotal,
		metric.WithDescription("Ledger operations refused or failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger rejections counter: %w", err)
	}

	mp.ledgerRetriesCounter, err = mp.meter.Int64Counter(
		LedgerRetriesTotal,
		metric.WithDescription("Ledger units re-executed after a serialization failure"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger retries counter: %w", err)
	}

	mp.postbacksCounter, err = mp.meter.Int64Counter(
		PostbacksTotal,
		metric.WithDescription("CPA postbacks by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create postbacks counter: %w", err)
	}

	mp.referralBonusesCounter, err = mp.meter.Int64Counter(
		ReferralBonusesTotal,
		metric.WithDescription("Referral bonus settlements by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create referral bonuses counter: %w", err)
	}

	mp.natsPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Events handed to NATS"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS published counter: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the exporter
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordLedgerEntry records a committed entry and its signed amount
func (mp *MetricsProvider) RecordLedgerEntry(ctx context.Context, category, field string, signedAmount int64) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelCategory, category),
		attribute.String(LabelField, field),
	)
	mp.ledgerEntriesCounter.Add(ctx, 1, attrs)
	mp.ledgerAmountCounter.Add(ctx, signedAmount, attrs)
}

// RecordLedgerRejection records a refused or failed ledger operation
func (mp *MetricsProvider) RecordLedgerRejection(ctx context.Context, code string) {
	if !mp.isEnabled() {
		return
	}
	mp.ledgerRejectionsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelCode, code)))
}

// RecordLedgerRetry records one re-execution of a ledger unit
func (mp *MetricsProvider) RecordLedgerRetry(ctx context.Context) {
	if !mp.isEnabled() {
		return
	}
	mp.ledgerRetriesCounter.Add(ctx, 1)
}

// RecordPostback records a CPA postback outcome
func (mp *MetricsProvider) RecordPostback(ctx context.Context, outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.postbacksCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelOutcome, outcome)))
}

// RecordReferralBonus records a referral bonus settlement outcome
func (mp *MetricsProvider) RecordReferralBonus(ctx context.Context, outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.referralBonusesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelOutcome, outcome)))
}

// RecordEventPublished records an event handed to NATS
func (mp *MetricsProvider) RecordEventPublished(ctx context.Context, eventType string, err error) {
	if !mp.isEnabled() {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	mp.natsPublishedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(LabelEventType, eventType),
		attribute.String(LabelResult, result),
	))
}

func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}
