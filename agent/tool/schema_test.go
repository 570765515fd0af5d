package tool

import (
	"encoding/json"
	"testing"
)

func TestInputSchemaRoundTrip(t *testing.T) {
	t.Parallel()

	for _, spec := range Specs() {
		raw, err := json.Marshal(InputSchema(spec))
		if err != nil {
			t.Fatalf("marshal schema: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("unmarshal schema: %v", err)
		}

		got := SpecFromSchema(spec.Name, spec.Desc, decoded)
		if len(got.Params) != len(spec.Params) {
			t.Fatalf("%s: params = %#v, want %#v", spec.Name, got.Params, spec.Params)
		}
		byName := map[string]bool{}
		for _, p := range got.Params {
			byName[p.Name] = p.Required
		}
		for _, p := range spec.Params {
			required, ok := byName[p.Name]
			if !ok || required != p.Required {
				t.Fatalf("%s: param %s lost or changed requiredness", spec.Name, p.Name)
			}
		}
	}
}

func TestToolInfosCarryParams(t *testing.T) {
	t.Parallel()

	infos := ToolInfos(Specs())
	for _, info := range infos {
		if info.ParamsOneOf == nil {
			t.Fatalf("tool %s has no params", info.Name)
		}
	}
}
