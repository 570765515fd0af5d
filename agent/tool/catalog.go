package tool

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	patientx "github.com/tanpawarit/clinical-assistant/patient"
)

const (
	ToolPatientInfo    = "get_patient_info"
	ToolPatientHistory = "get_patient_history"
	ToolLabResults     = "get_lab_results"
	ToolSearchPatients = "search_patients"
	ToolPatientSummary = "get_patient_summary"
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// Specs describes every patient-data tool in a stable order.
func Specs() []contractx.ToolSpec {
	patientID := contractx.ToolParam{Name: "patient_id", Type: contractx.ParamString, Desc: "Patient identifier, e.g. PAT001", Required: true}
	return []contractx.ToolSpec{
		{
			Name:   ToolPatientInfo,
			Desc:   "Get patient demographic information by patient ID",
			Params: []contractx.ToolParam{patientID},
		},
		{
			Name:   ToolPatientHistory,
			Desc:   "Get complete medical history for a patient",
			Params: []contractx.ToolParam{patientID},
		},
		{
			Name: ToolLabResults,
			Desc: "Get lab results for a patient within specified timeframe",
			Params: []contractx.ToolParam{
				patientID,
				{Name: "days_back", Type: contractx.ParamInteger, Desc: "Only include results collected in the last N days", Default: patientx.DefaultDaysBack},
			},
		},
		{
			Name: ToolSearchPatients,
			Desc: "Search for patients by name or ID",
			Params: []contractx.ToolParam{
				{Name: "query", Type: contractx.ParamString, Desc: "Case-insensitive fragment of a patient name or ID", Required: true},
			},
		},
		{
			Name: ToolPatientSummary,
			Desc: "Get comprehensive patient summary including demographics, history, and recent labs",
			Params: []contractx.ToolParam{
				patientID,
				{Name: "include_labs_days", Type: contractx.ParamInteger, Desc: "Window in days for recent lab results", Default: patientx.DefaultDaysBack},
			},
		},
	}
}

func BuildForService(svc *patientx.Service) ([]*schema.ToolInfo, Executor) {
	return ToolInfos(Specs()), NewExecutor(svc)
}

func NewExecutor(svc *patientx.Service) Executor {
	fallback := DefaultExecutor()
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		if err := ctx.Err(); err != nil {
			return contractx.ToolResult{}, err
		}

		var (
			out any
			err error
		)
		switch tool {
		case ToolPatientInfo:
			out, err = runPatientInfo(svc, args)
		case ToolPatientHistory:
			out, err = runPatientHistory(svc, args)
		case ToolLabResults:
			out, err = runLabResults(svc, args)
		case ToolSearchPatients:
			out, err = runSearchPatients(svc, args)
		case ToolPatientSummary:
			out, err = runPatientSummary(svc, args)
		default:
			return fallback(ctx, tool, args)
		}

		if err != nil {
			log.Debug().Str("tool", tool).Err(err).Msg("tool call rejected")
			return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
		}
		return contractx.ToolResult{Tool: tool, Result: out}, nil
	}
}

func DefaultExecutor() Executor {
	return func(ctx context.Context, tool string, _ map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("tool=%s is unavailable", tool),
		}, nil
	}
}

func runPatientInfo(svc *patientx.Service, args map[string]any) (any, error) {
	id, err := stringArg(args, "patient_id", true)
	if err != nil {
		return nil, err
	}
	return svc.PatientInfo(id)
}

func runPatientHistory(svc *patientx.Service, args map[string]any) (any, error) {
	id, err := stringArg(args, "patient_id", true)
	if err != nil {
		return nil, err
	}
	return svc.PatientHistory(id)
}

func runLabResults(svc *patientx.Service, args map[string]any) (any, error) {
	id, err := stringArg(args, "patient_id", true)
	if err != nil {
		return nil, err
	}
	days, err := intArg(args, "days_back", patientx.DefaultDaysBack)
	if err != nil {
		return nil, err
	}
	return svc.LabResults(id, days)
}

func runSearchPatients(svc *patientx.Service, args map[string]any) (any, error) {
	query, err := stringArg(args, "query", false)
	if err != nil {
		return nil, err
	}
	return svc.SearchPatients(query), nil
}

func runPatientSummary(svc *patientx.Service, args map[string]any) (any, error) {
	id, err := stringArg(args, "patient_id", true)
	if err != nil {
		return nil, err
	}
	days, err := intArg(args, "include_labs_days", patientx.DefaultDaysBack)
	if err != nil {
		return nil, err
	}
	return svc.PatientSummary(id, days)
}
