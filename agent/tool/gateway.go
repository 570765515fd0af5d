package tool

import (
	"context"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	patientx "github.com/tanpawarit/clinical-assistant/patient"
)

var _ contractx.ToolGateway = (*LocalGateway)(nil)

// LocalGateway serves the catalog in-process.
type LocalGateway struct {
	specs    []contractx.ToolSpec
	executor Executor
}

func NewLocalGateway(svc *patientx.Service) *LocalGateway {
	return &LocalGateway{
		specs:    Specs(),
		executor: NewExecutor(svc),
	}
}

func (g *LocalGateway) ListTools(ctx context.Context) ([]contractx.ToolSpec, error) {
	return append([]contractx.ToolSpec(nil), g.specs...), nil
}

func (g *LocalGateway) Execute(ctx context.Context, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	return ExecuteAll(ctx, g.executor, reqs)
}

// ExecuteAll runs requests in order and keeps request ids on the results.
func ExecuteAll(ctx context.Context, exec Executor, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	results := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := exec(ctx, req.Tool, req.Args)
		if err != nil {
			return nil, err
		}
		res.ID = req.ID
		res.Tool = req.Tool
		results = append(results, res)
	}
	return results, nil
}
