package telemetry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/n3/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type exportedLog struct {
	body     string
	severity otellog.Severity
}

type recordingExporter struct {
	mu   sync.Mutex
	logs []exportedLog
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.logs = append(e.logs, exportedLog{body: r.Body().AsString(), severity: r.Severity()})
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.logs))
	for _, l := range e.logs {
		out = append(out, l.body)
	}
	return out
}

func TestLoggerProvider_Disabled(t *testing.T) {
	base := zap.NewNop()
	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.Config{Enabled: true}, base)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestBridgeLogger(t *testing.T) {
	exporter := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	core, observed := observer.New(zapcore.DebugLevel)
	logger := telemetry.BridgeLogger(zap.New(core), provider, "n3-test", zapcore.InfoLevel)

	logger.Debug("queue depth sampled")
	logger.Info("decision recorded", zap.String("platform", "EBAY"))
	logger.With(zap.String("job", "execute")).Warn("listing retried")

	assert.Equal(t, 3, observed.Len(), "base core keeps every entry")
	assert.Equal(t, []string{"decision recorded", "listing retried"}, exporter.bodies())
	assert.Equal(t, otellog.SeverityWarn, exporter.logs[1].severity)
}
