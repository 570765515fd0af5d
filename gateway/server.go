package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	toolx "github.com/tanpawarit/clinical-assistant/agent/tool"
	logx "github.com/tanpawarit/clinical-assistant/pkg/logger"
)

type Config struct {
	Addr            string        `default:":8000"`
	Path            string        `default:"/mcp"`
	BodyLimit       string        `split_words:"true" default:"1M"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// Server exposes the tool catalog over JSON-RPC.
type Server struct {
	echo     *echo.Echo
	specs    []contractx.ToolSpec
	byName   map[string]struct{}
	exec     toolx.Executor
	metrics  *Metrics
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
	conf     Config
}

type Option func(*Server)

// WithRegistry registers gateway metrics on reg and serves it on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg == nil {
			return
		}
		s.metrics = NewMetrics(reg)
		s.gatherer = reg
	}
}

func NewServer(specs []contractx.ToolSpec, exec toolx.Executor, conf Config, opts ...Option) *Server {
	if conf.Path == "" {
		conf.Path = "/mcp"
	}
	if conf.BodyLimit == "" {
		conf.BodyLimit = "1M"
	}
	if exec == nil {
		exec = toolx.DefaultExecutor()
	}

	s := &Server{
		echo:   echo.New(),
		specs:  specs,
		byName: make(map[string]struct{}, len(specs)),
		exec:   exec,
		logger: logx.Component("gateway"),
		conf:   conf,
	}
	for _, spec := range specs {
		s.byName[spec.Name] = struct{}{}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.metrics == nil {
		reg := prometheus.NewRegistry()
		s.metrics = NewMetrics(reg)
		s.gatherer = reg
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID())
	e.Use(recovery(s.logger))
	e.Use(requestLogger(s.logger))
	e.Use(middleware.BodyLimit(conf.BodyLimit))

	e.POST(conf.Path, s.handleRPC)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.conf.Addr).Str("path", s.conf.Path).Int("tools", len(s.specs)).Msg("tool gateway listening")
		if err := s.echo.Start(s.conf.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.conf.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info().Msg("tool gateway shutting down")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"tools":  len(s.specs),
	})
}

func (s *Server) handleRPC(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return s.handleBatch(c, trimmed)
	}

	resp, ok := s.handleOne(c.Request().Context(), trimmed)
	if !ok {
		return c.NoContent(http.StatusAccepted)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleBatch(c echo.Context, body []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return c.JSON(http.StatusOK, errorResponse(nil, CodeParseError, "Parse error"))
	}
	if len(raws) == 0 {
		return c.JSON(http.StatusOK, errorResponse(nil, CodeInvalidRequest, "Invalid Request"))
	}

	out := make([]rpcResponse, 0, len(raws))
	for _, raw := range raws {
		if resp, ok := s.handleOne(c.Request().Context(), raw); ok {
			out = append(out, resp)
		}
	}
	if len(out) == 0 {
		return c.NoContent(http.StatusAccepted)
	}
	return c.JSON(http.StatusOK, out)
}

// handleOne returns false for notifications, which get no response.
func (s *Server) handleOne(ctx context.Context, raw []byte) (rpcResponse, bool) {
	var req rpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.metrics.observeRPC("", CodeParseError)
		return errorResponse(nil, CodeParseError, "Parse error"), true
	}
	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		s.metrics.observeRPC(req.Method, CodeInvalidRequest)
		return errorResponse(req.ID, CodeInvalidRequest, "Invalid Request"), true
	}

	result, rpcErr := s.dispatch(ctx, req)
	if rpcErr != nil {
		s.metrics.observeRPC(req.Method, rpcErr.Code)
		s.logger.Debug().Str("method", req.Method).Int("code", rpcErr.Code).Msg(rpcErr.Message)
	} else {
		s.metrics.observeRPC(req.Method, 0)
	}

	if req.isNotification() {
		return rpcResponse{}, false
	}
	if rpcErr != nil {
		return errorResponse(req.ID, rpcErr.Code, rpcErr.Message), true
	}
	return rpcResponse{JSONRPC: jsonRPCVersion, ID: req.ID, Result: result}, true
}

func (s *Server) dispatch(ctx context.Context, req rpcRequest) (any, *RPCError) {
	switch req.Method {
	case MethodInitialize:
		return initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{"listChanged": false}},
			ServerInfo:      serverInfo{Name: serverName, Version: serverVersion},
		}, nil
	case MethodInitialized:
		return nil, nil
	case MethodPing:
		return struct{}{}, nil
	case MethodToolsList:
		return s.listTools(), nil
	case MethodToolsCall:
		return s.callTool(ctx, req.Params)
	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: "Method not found: " + req.Method}
	}
}

func (s *Server) listTools() toolsListResult {
	tools := make([]toolDescriptor, 0, len(s.specs))
	for _, spec := range s.specs {
		tools = append(tools, toolDescriptor{
			Name:        spec.Name,
			Description: spec.Desc,
			InputSchema: toolx.InputSchema(spec),
		})
	}
	return toolsListResult{Tools: tools}
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, *RPCError) {
	var params callToolParams
	if len(raw) == 0 {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params: missing tool name"}
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params: " + err.Error()}
	}
	if params.Name == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params: missing tool name"}
	}
	if _, ok := s.byName[params.Name]; !ok {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "Unknown tool: " + params.Name}
	}

	start := time.Now()
	res, err := s.exec(ctx, params.Name, params.Arguments)
	if err != nil {
		s.metrics.observeTool(params.Name, true, time.Since(start))
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	s.metrics.observeTool(params.Name, res.Failed(), time.Since(start))

	text, err := json.Marshal(res.Payload())
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: "marshal tool result: " + err.Error()}
	}
	return callToolResult{
		Content: []textContent{{Type: "text", Text: string(text)}},
		IsError: res.Failed(),
	}, nil
}

func errorResponse(id json.RawMessage, code int, msg string) rpcResponse {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return rpcResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: msg},
	}
}
