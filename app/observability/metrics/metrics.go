package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	SessionsSubmittedTotal    metric.Int64Counter
	SessionsCompletedTotal    metric.Int64Counter
	SessionsFailedTotal       metric.Int64Counter
	ProcessingDurationSeconds metric.Float64Histogram
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("meetspot-api")
		var err error
		m := &AppMetrics{}

		m.SessionsSubmittedTotal, err = meter.Int64Counter(
			"sessions_submitted_total",
			metric.WithDescription("Total number of meeting sessions submitted"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create sessions_submitted_total: %v", err)
		}

		m.SessionsCompletedTotal, err = meter.Int64Counter(
			"sessions_completed_total",
			metric.WithDescription("Total number of meeting sessions completed"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create sessions_completed_total: %v", err)
		}

		m.SessionsFailedTotal, err = meter.Int64Counter(
			"sessions_failed_total",
			metric.WithDescription("Total number of meeting sessions that ended in error"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create sessions_failed_total: %v", err)
		}

		m.ProcessingDurationSeconds, err = meter.Float64Histogram(
			"processing_duration_seconds",
			metric.WithDescription("Duration of meeting session processing in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create processing_duration_seconds: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance, or nil when
// InitAppMetrics was not called; callers treat nil as metrics disabled,
// which keeps unit tests free of the global provider.
func Get() *AppMetrics {
	return appMetrics
}
