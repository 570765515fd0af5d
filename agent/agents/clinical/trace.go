package clinical

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultProviderID = "healthcare-provider@clinical-assistant.local"

var DefaultTraceTags = []string{
	"Clinical-Assistant",
	"Healthcare-AI",
	"Patient-Analysis",
	"Medical-Records",
	"MCP-Healthcare-Server",
}

// TraceConfig is read without a prefix.
type TraceConfig struct {
	SessionID  string `envconfig:"CLINICAL_SESSION_ID"`
	ProviderID string `envconfig:"HEALTHCARE_PROVIDER_ID"`
}

type TraceAttributes struct {
	SessionID string
	UserID    string
	Tags      []string
}

// Resolve picks the configured ids first, then the request's, then defaults.
func (c TraceConfig) Resolve(sessionID, providerID string) TraceAttributes {
	return TraceAttributes{
		SessionID: firstNonEmpty(c.SessionID, sessionID, fmt.Sprintf("clinical-session-%d", os.Getpid())),
		UserID:    firstNonEmpty(c.ProviderID, providerID, DefaultProviderID),
		Tags:      append([]string(nil), DefaultTraceTags...),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

type startedAtKey struct{}

// newTraceHandler logs component start/end/error events with the trace
// attributes attached.
func newTraceHandler(attrs TraceAttributes) callbacks.Handler {
	logger := log.Logger.With().
		Str("session.id", attrs.SessionID).
		Str("user.id", attrs.UserID).
		Strs("tags", attrs.Tags).
		Logger()

	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
			logEvent(logger.Debug(), info).Msg("clinical trace start")
			return context.WithValue(ctx, startedAtKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			logEvent(logger.Debug(), info).Dur("elapsed", elapsed(ctx)).Msg("clinical trace end")
			return ctx
		}).
		OnEndWithStreamOutputFn(func(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
			output.Close()
			logEvent(logger.Debug(), info).Dur("elapsed", elapsed(ctx)).Msg("clinical trace stream")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			logEvent(logger.Warn(), info).Err(err).Msg("clinical trace error")
			return ctx
		}).
		Build()
}

func logEvent(ev *zerolog.Event, info *callbacks.RunInfo) *zerolog.Event {
	if info == nil {
		return ev
	}
	return ev.Str("name", info.Name).Str("type", info.Type).Str("component", string(info.Component))
}

func elapsed(ctx context.Context) time.Duration {
	started, ok := ctx.Value(startedAtKey{}).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(started)
}
