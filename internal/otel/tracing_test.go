package otel

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposearch/internal/logging"
)

func TestGetSampler(t *testing.T) {
	tests := []struct {
		sampler string
		arg     string
		prefix  string
	}{
		{sampler: "always_on", prefix: "AlwaysOnSampler"},
		{sampler: "always_off", prefix: "AlwaysOffSampler"},
		{sampler: "traceidratio", arg: "0.25", prefix: "TraceIDRatioBased{0.25}"},
		{sampler: "parentbased_always_off", prefix: "ParentBased{root:AlwaysOffSampler"},
		{sampler: "parentbased_traceidratio", arg: "0.5", prefix: "ParentBased{root:TraceIDRatioBased{0.5}"},
		{sampler: "", prefix: "ParentBased{root:AlwaysOnSampler"},
	}
	for _, tt := range tests {
		t.Run(tt.sampler, func(t *testing.T) {
			t.Setenv("OTEL_TRACES_SAMPLER", tt.sampler)
			t.Setenv("OTEL_TRACES_SAMPLER_ARG", tt.arg)
			desc := getSampler().Description()
			assert.True(t, strings.HasPrefix(desc, tt.prefix), desc)
		})
	}
}

func TestSamplerRatio(t *testing.T) {
	assert.Equal(t, 0.1, samplerRatio("0.1"))
	assert.Equal(t, 0.0, samplerRatio("0"))
	assert.Equal(t, 1.0, samplerRatio(""))
	assert.Equal(t, 1.0, samplerRatio("abc"))
	assert.Equal(t, 1.0, samplerRatio("7"))
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInit_Disabled(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")
	var buf bytes.Buffer

	shutdown, err := Init(context.Background(), logging.New(&buf, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	entry := lastLine(t, &buf)
	assert.Equal(t, "tracing_configured", entry["msg"])
	assert.Equal(t, false, entry["tracing_enabled"])
}

func TestInit_UnsupportedProtocol(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "carrier-pigeon")
	var buf bytes.Buffer

	shutdown, err := Init(context.Background(), logging.New(&buf, time.UTC))
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	entry := lastLine(t, &buf)
	assert.Equal(t, "tracing_init_failed", entry["msg"])
	assert.Equal(t, "error", entry["level"])
	assert.Contains(t, entry["error"], "carrier-pigeon")
}
