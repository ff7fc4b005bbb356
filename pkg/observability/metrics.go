package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes application metrics to CloudWatch. A nil client turns
// every method into a no-op, which keeps local development quiet.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
}

// NewMetrics creates a new metrics instance
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
	}
}

// RecordGroupingRun records the outcome of one grouping run
func (m *Metrics) RecordGroupingRun(ctx context.Context, groupCount, territoryCount int, duration time.Duration, err error) {
	if m.client == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}

	dims := []types.Dimension{
		{
			Name:  aws.String("Status"),
			Value: aws.String(status),
		},
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("GroupingRunDuration"),
			Dimensions: dims,
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("GroupCount"),
			Dimensions: dims,
			Value:      aws.Float64(float64(groupCount)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("TerritoryCount"),
			Dimensions: dims,
			Value:      aws.Float64(float64(territoryCount)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	}

	m.put(ctx, metricData)
}

// RecordLatency records latency for any operation
func (m *Metrics) RecordLatency(ctx context.Context, operation string, latency time.Duration) {
	if m.client == nil {
		return
	}

	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("OperationLatency"),
			Dimensions: []types.Dimension{
				{
					Name:  aws.String("Operation"),
					Value: aws.String(operation),
				},
			},
			Value:     aws.Float64(float64(latency.Milliseconds())),
			Unit:      types.StandardUnitMilliseconds,
			Timestamp: aws.Time(time.Now()),
		},
	})
}

// RecordError records error occurrences
func (m *Metrics) RecordError(ctx context.Context, errorType string, errorCode string) {
	if m.client == nil {
		return
	}

	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("Errors"),
			Dimensions: []types.Dimension{
				{
					Name:  aws.String("ErrorType"),
					Value: aws.String(errorType),
				},
				{
					Name:  aws.String("ErrorCode"),
					Value: aws.String(errorCode),
				},
			},
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	})
}

func (m *Metrics) put(ctx context.Context, data []types.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	// Metric delivery never fails the operation being measured.
	m.client.PutMetricData(ctx, input)
}

// Increment bumps a labelled counter. Satisfies the query bus metrics
// interface.
func (m *Metrics) Increment(metric, label string) {
	if m.client == nil {
		return
	}

	m.put(context.Background(), []types.MetricDatum{
		{
			MetricName: aws.String(metric),
			Dimensions: []types.Dimension{
				{
					Name:  aws.String("Label"),
					Value: aws.String(label),
				},
			},
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	})
}

// StartTimer starts a labelled duration measurement
func (m *Metrics) StartTimer(metric, label string) Timer {
	return &metricTimer{
		metrics: m,
		metric:  metric,
		label:   label,
		start:   time.Now(),
	}
}

// Timer measures one duration
type Timer interface {
	Stop()
}

type metricTimer struct {
	metrics *Metrics
	metric  string
	label   string
	start   time.Time
}

// Stop emits the elapsed time
func (t *metricTimer) Stop() {
	if t.metrics.client == nil {
		return
	}

	t.metrics.put(context.Background(), []types.MetricDatum{
		{
			MetricName: aws.String(t.metric),
			Dimensions: []types.Dimension{
				{
					Name:  aws.String("Label"),
					Value: aws.String(t.label),
				},
			},
			Value:     aws.Float64(float64(time.Since(t.start).Milliseconds())),
			Unit:      types.StandardUnitMilliseconds,
			Timestamp: aws.Time(time.Now()),
		},
	})
}
