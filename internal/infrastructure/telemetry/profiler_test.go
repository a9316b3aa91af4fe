package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/n3/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes([]string{"cpu", " Mutex ", "cpu", ""})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileMutexCount,
		pyroscope.ProfileMutexDuration,
	}, types)

	_, err = ParseProfileTypes([]string{"heap"})
	assert.ErrorContains(t, err, "heap")
}

func TestNewProfiler_Disabled(t *testing.T) {
	cfg := ProfilerFromAppConfig(config.ProfilingConfig{ApplicationName: "n3"})
	p, err := NewProfiler(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_Validation(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "n3"}, zap.NewNop())
	assert.ErrorContains(t, err, "server address")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, zap.NewNop())
	assert.ErrorContains(t, err, "application name")

	_, err = NewProfiler(ProfilerConfig{
		Enabled:         true,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "n3",
		ProfileTypes:    []string{"bogus"},
	}, zap.NewNop())
	assert.ErrorContains(t, err, "bogus")
}

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"Route":      "/api/v1/price/calculate",
		"job name":   "execute",
		"request_id": "abc",
		"method":     "",
		"controller": strings.Repeat("x", 200),
	})
	assert.Equal(t, []string{
		"controller", strings.Repeat("x", MaxLabelValueLength),
		"job_name", "execute",
		"route", "/api/v1/price/calculate",
	}, pairs)
	assert.Nil(t, sanitizeLabels(nil))
}

func TestWithProfilingLabels(t *testing.T) {
	var job string
	var ok bool
	WithProfilingLabels(context.Background(), map[string]string{ProfilingLabelJob: "sweep"}, func(ctx context.Context) {
		job, ok = pprof.Label(ctx, "job")
	})
	assert.True(t, ok)
	assert.Equal(t, "sweep", job)

	called := false
	WithProfilingLabels(context.Background(), map[string]string{"trace_id": "t"}, func(ctx context.Context) {
		called = true
		_, ok = pprof.Label(ctx, "trace_id")
	})
	assert.True(t, called)
	assert.False(t, ok)
}
