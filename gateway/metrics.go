package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "clinical_gateway"

// Metrics counts JSON-RPC requests and tool calls.
type Metrics struct {
	rpcRequests  *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rpcRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rpc_requests_total",
				Help:      "JSON-RPC requests by method and result code.",
			},
			[]string{"method", "code"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "tool_calls_total",
				Help:      "Tool calls by tool and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Tool call latency.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"tool"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.rpcRequests, m.toolCalls, m.toolDuration)
	}
	return m
}

func (m *Metrics) observeRPC(method string, code int) {
	if m == nil {
		return
	}
	label := "ok"
	if code != 0 {
		label = codeLabel(code)
	}
	m.rpcRequests.WithLabelValues(methodLabel(method), label).Inc()
}

// methodLabel bounds the method label to the methods the server implements.
func methodLabel(method string) string {
	switch method {
	case MethodInitialize, MethodInitialized, MethodPing, MethodToolsList, MethodToolsCall:
		return method
	case "":
		return "none"
	default:
		return "unknown"
	}
}

func (m *Metrics) observeTool(tool string, failed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func codeLabel(code int) string {
	switch code {
	case CodeParseError:
		return "parse_error"
	case CodeInvalidRequest:
		return "invalid_request"
	case CodeMethodNotFound:
		return "method_not_found"
	case CodeInvalidParams:
		return "invalid_params"
	default:
		return "internal_error"
	}
}
