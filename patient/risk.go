package patient

import "strings"

const (
	RiskDiabetes       = "Diabetes - requires ongoing monitoring"
	RiskHypertension   = "Hypertension - cardiovascular risk factor"
	RiskCardiovascular = "Cardiovascular disease - high risk"
	RiskGlucose        = "Elevated glucose levels"
	RiskCholesterol    = "High cholesterol levels"
	RiskDiabetesPoor   = "Poor diabetes control"
)

// RiskFactors derives risk statements from active conditions and lab results.
// The result has no duplicates and keeps first-occurrence order: condition
// rules first, then labs in the order given.
//
// The HbA1c rule matches the literal substring "hba1c"; a test named
// "Hemoglobin A1c" does not trigger it.
func RiskFactors(conditions []Condition, labs []LabResult) []string {
	out := make([]string, 0, 4)
	seen := make(map[string]struct{}, 6)
	add := func(r string) {
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}

	names := make([]string, 0, len(conditions))
	for _, c := range conditions {
		names = append(names, strings.ToLower(c.Name))
	}
	if anyContains(names, "diabetes") {
		add(RiskDiabetes)
	}
	if anyContains(names, "hypertension") {
		add(RiskHypertension)
	}
	if anyContains(names, "coronary", "heart") {
		add(RiskCardiovascular)
	}

	for _, l := range labs {
		if !l.IsHigh() {
			continue
		}
		test := strings.ToLower(l.TestName)
		switch {
		case strings.Contains(test, "glucose"):
			add(RiskGlucose)
		case strings.Contains(test, "cholesterol"):
			add(RiskCholesterol)
		case strings.Contains(test, "hba1c"):
			add(RiskDiabetesPoor)
		}
	}
	return out
}

func anyContains(values []string, needles ...string) bool {
	for _, v := range values {
		for _, n := range needles {
			if strings.Contains(v, n) {
				return true
			}
		}
	}
	return false
}
