package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	toolx "github.com/tanpawarit/clinical-assistant/agent/tool"
)

var _ contractx.ToolGateway = (*Client)(nil)

// ClientConfig is read with the MCP prefix. Host is the full endpoint URL,
// e.g. http://localhost:8000/mcp.
type ClientConfig struct {
	Host    string
	Timeout time.Duration `default:"30s"`
}

func (c ClientConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

// Client talks to a Server over HTTP.
type Client struct {
	url  string
	http *http.Client
	seq  atomic.Int64
}

func NewClient(conf ClientConfig, httpClient *http.Client) (*Client, error) {
	url := strings.TrimSpace(conf.Host)
	if url == "" {
		return nil, fmt.Errorf("%w: mcp host is empty", contractx.ErrToolUnavailable)
	}
	if httpClient == nil {
		timeout := conf.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{url: url, http: httpClient}, nil
}

func (c *Client) URL() string {
	return c.url
}

// Initialize performs the protocol handshake and returns the server name.
func (c *Client) Initialize(ctx context.Context) (string, error) {
	var out initializeResult
	if err := c.call(ctx, MethodInitialize, map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "clinical-assistant", "version": serverVersion},
	}, &out); err != nil {
		return "", err
	}
	if err := c.notify(ctx, MethodInitialized); err != nil {
		return "", err
	}
	return out.ServerInfo.Name, nil
}

func (c *Client) ListTools(ctx context.Context) ([]contractx.ToolSpec, error) {
	var out toolsListResult
	if err := c.call(ctx, MethodToolsList, nil, &out); err != nil {
		return nil, err
	}
	specs := make([]contractx.ToolSpec, 0, len(out.Tools))
	for _, t := range out.Tools {
		specs = append(specs, toolx.SpecFromSchema(t.Name, t.Description, t.InputSchema))
	}
	return specs, nil
}

func (c *Client) Execute(ctx context.Context, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	results := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		args := req.Args
		if args == nil {
			args = map[string]any{}
		}
		var out callToolResult
		if err := c.call(ctx, MethodToolsCall, callToolParams{Name: req.Tool, Arguments: args}, &out); err != nil {
			return nil, err
		}
		results = append(results, toToolResult(req, out))
	}
	return results, nil
}

func toToolResult(req contractx.ToolRequest, out callToolResult) contractx.ToolResult {
	var text string
	for _, c := range out.Content {
		if c.Type == "text" {
			text = c.Text
			break
		}
	}

	res := contractx.ToolResult{ID: req.ID, Tool: req.Tool}
	if out.IsError {
		res.Error = text
		if msg := gjson.Get(text, "error"); msg.Exists() {
			res.Error = msg.String()
		}
		return res
	}
	if gjson.Valid(text) {
		res.Result = json.RawMessage(text)
	} else {
		res.Result = text
	}
	return res
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	id := c.seq.Add(1)
	body, err := c.post(ctx, rpcRequestBody{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: params})
	if err != nil {
		return err
	}

	var resp struct {
		ID     json.RawMessage `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", contractx.ErrToolUnavailable, method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s: rpc error %d: %w", contractx.ErrToolUnavailable, method, resp.Error.Code, resp.Error)
	}
	if string(resp.ID) != strconv.FormatInt(id, 10) {
		return fmt.Errorf("%w: %s: response id %s does not match %d", contractx.ErrToolUnavailable, method, resp.ID, id)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%w: decode %s result: %v", contractx.ErrToolUnavailable, method, err)
	}
	return nil
}

func (c *Client) notify(ctx context.Context, method string) error {
	_, err := c.post(ctx, rpcRequestBody{JSONRPC: jsonRPCVersion, Method: method})
	return err
}

type rpcRequestBody struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

func (c *Client) post(ctx context.Context, payload rpcRequestBody) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", contractx.ErrToolUnavailable, payload.Method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrToolUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", contractx.ErrToolUnavailable, payload.Method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", contractx.ErrToolUnavailable, payload.Method, err)
	}
	switch {
	case resp.StatusCode == http.StatusAccepted:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s: unexpected status %d", contractx.ErrToolUnavailable, payload.Method, resp.StatusCode)
	}
	return body, nil
}
