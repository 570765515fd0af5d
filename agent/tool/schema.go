package tool

import (
	"fmt"
	"sort"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
)

// ToolInfos converts specs into the eino tool descriptions bound to a chat model.
func ToolInfos(specs []contractx.ToolSpec) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(specs))
	for _, spec := range specs {
		params := make(map[string]*schema.ParameterInfo, len(spec.Params))
		for _, p := range spec.Params {
			desc := p.Desc
			if p.Default != nil {
				desc = fmt.Sprintf("%s (default %v)", desc, p.Default)
			}
			params[p.Name] = &schema.ParameterInfo{
				Type:     dataType(p.Type),
				Desc:     desc,
				Required: p.Required,
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        spec.Name,
			Desc:        spec.Desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

func dataType(t contractx.ParamType) schema.DataType {
	switch t {
	case contractx.ParamInteger:
		return schema.Integer
	default:
		return schema.String
	}
}

// InputSchema renders a spec as a JSON Schema object for the wire protocol.
func InputSchema(spec contractx.ToolSpec) map[string]any {
	props := make(map[string]any, len(spec.Params))
	required := make([]string, 0, len(spec.Params))
	for _, p := range spec.Params {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Desc,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// SpecFromSchema is the inverse of InputSchema. Parameters come back sorted by name.
func SpecFromSchema(name, desc string, input map[string]any) contractx.ToolSpec {
	spec := contractx.ToolSpec{Name: name, Desc: desc}

	required := map[string]bool{}
	if list, ok := input["required"].([]any); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	props, _ := input["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, k := range names {
		prop, _ := props[k].(map[string]any)
		p := contractx.ToolParam{Name: k, Type: contractx.ParamString, Required: required[k]}
		if t, _ := prop["type"].(string); t == string(contractx.ParamInteger) || t == "number" {
			p.Type = contractx.ParamInteger
		}
		p.Desc, _ = prop["description"].(string)
		if def, ok := prop["default"]; ok {
			p.Default = def
		}
		spec.Params = append(spec.Params, p)
	}
	return spec
}
