package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/promorag/internal/config"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "disabled defaults", mutate: func(*Config) {}},
		{name: "enabled defaults", mutate: func(c *Config) { c.Enabled = true }},
		{name: "disabled ignores bad values", mutate: func(c *Config) { c.Endpoint = ""; c.SampleRate = 7 }},
		{name: "missing endpoint", mutate: func(c *Config) { c.Enabled = true; c.Endpoint = "" }, wantErr: true},
		{name: "missing service", mutate: func(c *Config) { c.Enabled = true; c.ServiceName = "" }, wantErr: true},
		{name: "bad protocol", mutate: func(c *Config) { c.Enabled = true; c.Protocol = "udp" }, wantErr: true},
		{name: "insecure remote", mutate: func(c *Config) { c.Enabled = true; c.Endpoint = "otel.example.com:4317" }, wantErr: true},
		{name: "secure remote", mutate: func(c *Config) { c.Enabled = true; c.Endpoint = "otel.example.com:4317"; c.Insecure = false }},
		{name: "sample rate above one", mutate: func(c *Config) { c.Enabled = true; c.SampleRate = 1.5 }, wantErr: true},
		{name: "zero export interval", mutate: func(c *Config) { c.Enabled = true; c.ExportInterval = 0 }, wantErr: true},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.Enabled = true; c.ShutdownTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	tests := map[string]bool{
		"localhost:4317":        true,
		"127.0.0.1:4317":        true,
		"127.0.0.2":             true,
		"[::1]:4317":            true,
		"http://localhost:4318": true,
		"otel.example.com:4317": false,
		"10.0.0.5:4317":         false,
	}
	for endpoint, want := range tests {
		cfg := &Config{Endpoint: endpoint}
		assert.Equal(t, want, cfg.isLocalEndpoint(), endpoint)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.Default().Telemetry, "1.2.3")
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "promorag", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.NoError(t, cfg.Validate())

	cfg = FromConfig(config.TelemetryConfig{Enabled: true, Endpoint: "https://otel.example.com", SampleRate: 0.5}, "")
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.InDelta(t, 0.5, cfg.SampleRate, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	assert.False(t, tel.IsEnabled())
	assert.NotNil(t, tel.Tracer("promorag.test"))
	assert.NotNil(t, tel.Meter("promorag.test"))
	assert.NotNil(t, tel.LoggerProvider())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_Invalid(t *testing.T) {
	tel, err := New(context.Background(), &Config{Enabled: true})
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestNew_Enabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.MetricsEnabled = false
	cfg.ShutdownTimeout = time.Second

	tel, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())
	assert.Empty(t, tel.Degraded())
	assert.NotNil(t, tel.tracerProvider)
	assert.Nil(t, tel.meterProvider)
}

func TestSampler(t *testing.T) {
	for _, rate := range []float64{-1, 0, 0.25, 1, 2} {
		s := sampler(rate)
		require.NotNil(t, s)
		assert.Contains(t, s.Description(), "ParentBased")
	}
}

func TestNilTelemetry(t *testing.T) {
	var tel *Telemetry
	assert.False(t, tel.IsEnabled())
	assert.NotNil(t, tel.Tracer("x"))
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
}

func TestTestTelemetry(t *testing.T) {
	tel := NewTestTelemetry()
	ctx := context.Background()

	_, span := tel.Tracer("promorag.pipeline").Start(ctx, "Retriever.Ask")
	span.SetAttributes(attribute.String("query_type", "sla"), attribute.Int("hits", 3))
	span.End()

	require.NotNil(t, tel.SpanByName("Retriever.Ask"))
	tel.AssertSpanAttribute(t, "Retriever.Ask", "query_type", "sla")
	tel.AssertSpanAttribute(t, "Retriever.Ask", "hits", int64(3))

	counter, err := tel.Meter("promorag.embeddings").Int64Counter("embeddings.requests")
	require.NoError(t, err)
	counter.Add(ctx, 2)

	rm, err := tel.Collect(ctx)
	require.NoError(t, err)
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, "embeddings.requests", rm.ScopeMetrics[0].Metrics[0].Name)
}
