package patient

import "time"

// SampleSnapshot returns the demo dataset of three patients.
func SampleSnapshot(now time.Time) *Snapshot {
	s, err := NewSnapshot(samplePatients(), sampleConditions(), sampleLabs(), now)
	if err != nil {
		panic(err)
	}
	return s
}

func samplePatients() []Patient {
	return []Patient{
		{ID: "PAT001", Name: "John Doe", DateOfBirth: MustDate("1975-03-15"), Gender: "Male"},
		{ID: "PAT002", Name: "Jane Smith", DateOfBirth: MustDate("1982-07-22"), Gender: "Female"},
		{ID: "PAT003", Name: "Robert Johnson", DateOfBirth: MustDate("1965-11-08"), Gender: "Male"},
	}
}

func sampleConditions() []Condition {
	return []Condition{
		{
			PatientID:     "PAT001",
			Name:          "Type 2 Diabetes Mellitus",
			DiagnosisDate: MustDate("2020-01-15"),
			Status:        StatusActive,
			Severity:      "moderate",
			Notes:         "Well controlled with medication",
			Provider:      "Dr. Smith",
		},
		{
			PatientID:     "PAT001",
			Name:          "Hypertension",
			DiagnosisDate: MustDate("2018-06-01"),
			Status:        StatusActive,
			Severity:      "mild",
			Notes:         "Controlled with ACE inhibitor",
			Provider:      "Dr. Smith",
		},
		{
			PatientID:     "PAT002",
			Name:          "Hypothyroidism",
			DiagnosisDate: MustDate("2019-03-10"),
			Status:        StatusActive,
			Severity:      "mild",
			Notes:         "On levothyroxine replacement",
			Provider:      "Dr. Jones",
		},
		{
			PatientID:     "PAT003",
			Name:          "Coronary Artery Disease",
			DiagnosisDate: MustDate("2021-09-15"),
			Status:        StatusActive,
			Severity:      "high",
			Notes:         "Post-MI, on dual antiplatelet therapy",
			Provider:      "Dr. Brown",
		},
	}
}

func sampleLabs() []LabResult {
	return []LabResult{
		{
			PatientID:        "PAT001",
			TestName:         "Glucose, Fasting",
			Value:            "145",
			Unit:             "mg/dL",
			ReferenceRange:   "70-100",
			Status:           "final",
			AbnormalFlag:     FlagHigh,
			CollectionDate:   MustDate("2025-01-15"),
			ResultDate:       MustDate("2025-01-15"),
			OrderingProvider: "Dr. Smith",
			Notes:            "Elevated - diabetes monitoring",
		},
		{
			PatientID:        "PAT001",
			TestName:         "Hemoglobin A1c",
			Value:            "7.2",
			Unit:             "%",
			ReferenceRange:   "<5.7",
			Status:           "final",
			AbnormalFlag:     FlagHigh,
			CollectionDate:   MustDate("2025-01-15"),
			ResultDate:       MustDate("2025-01-15"),
			OrderingProvider: "Dr. Smith",
			Notes:            "Above target for diabetes",
		},
		{
			PatientID:        "PAT001",
			TestName:         "Total Cholesterol",
			Value:            "185",
			Unit:             "mg/dL",
			ReferenceRange:   "<200",
			Status:           "final",
			AbnormalFlag:     FlagNormal,
			CollectionDate:   MustDate("2025-01-15"),
			ResultDate:       MustDate("2025-01-15"),
			OrderingProvider: "Dr. Smith",
			Notes:            "Within normal limits",
		},
		{
			PatientID:        "PAT002",
			TestName:         "TSH",
			Value:            "2.5",
			Unit:             "mIU/L",
			ReferenceRange:   "0.4-4.0",
			Status:           "final",
			AbnormalFlag:     FlagNormal,
			CollectionDate:   MustDate("2025-01-10"),
			ResultDate:       MustDate("2025-01-10"),
			OrderingProvider: "Dr. Jones",
			Notes:            "Normal thyroid function",
		},
		{
			PatientID:        "PAT003",
			TestName:         "Troponin I",
			Value:            "0.02",
			Unit:             "ng/mL",
			ReferenceRange:   "<0.04",
			Status:           "final",
			AbnormalFlag:     FlagNormal,
			CollectionDate:   MustDate("2025-01-20"),
			ResultDate:       MustDate("2025-01-20"),
			OrderingProvider: "Dr. Brown",
			Notes:            "Normal cardiac enzymes",
		},
	}
}
