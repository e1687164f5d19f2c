package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestConfig_Sampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Config{}.sampler().Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Config{SampleRatio: 1}.sampler().Description())
	assert.Contains(t, Config{SampleRatio: 0.25}.sampler().Description(), "TraceIDRatioBased{0.25}")
}

func TestConfig_MetricInterval(t *testing.T) {
	assert.Equal(t, DefaultMetricInterval, Config{}.metricInterval())
	assert.Equal(t, time.Minute, Config{MetricInterval: time.Minute}.metricInterval())
}
