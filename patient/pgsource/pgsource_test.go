package pgsource

import (
	"errors"
	"testing"
	"time"

	patientx "github.com/tanpawarit/clinical-assistant/patient"
)

func TestBuildSnapshotFromRows(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	dob := time.Date(1980, 2, 10, 15, 0, 0, 0, time.FixedZone("EST", -5*3600))

	snap, err := buildSnapshot(
		[]patientRow{{ID: " PAT100 ", Name: "Ada Row", DateOfBirth: dob, Gender: "Female"}},
		[]conditionRow{{ID: 1, PatientID: "PAT100", Name: "Asthma", Status: "active"}},
		[]labRow{{ID: 1, PatientID: "PAT100", TestName: "Glucose", AbnormalFlag: " h ", CollectionDate: now}},
		now,
	)
	if err != nil {
		t.Fatalf("buildSnapshot() error = %v", err)
	}

	p, ok := snap.Patient("PAT100")
	if !ok {
		t.Fatal("expected PAT100 in snapshot")
	}
	if p.DateOfBirth.String() != "1980-02-10" {
		t.Fatalf("date_of_birth = %s", p.DateOfBirth)
	}
	if p.Age != 45 {
		t.Fatalf("age = %d, want 45", p.Age)
	}

	labs := snap.Labs("PAT100")
	if len(labs) != 1 || labs[0].AbnormalFlag != patientx.FlagHigh {
		t.Fatalf("unexpected labs: %#v", labs)
	}
}

func TestBuildSnapshotRejectsOrphans(t *testing.T) {
	t.Parallel()

	_, err := buildSnapshot(
		[]patientRow{{ID: "PAT100"}},
		[]conditionRow{{ID: 1, PatientID: "PAT404", Name: "Asthma"}},
		nil,
		time.Now(),
	)
	if !errors.Is(err, patientx.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestConfigEnabled(t *testing.T) {
	t.Parallel()

	if (Config{}).Enabled() {
		t.Fatal("empty config must be disabled")
	}
	if !(Config{DatabaseURL: "postgres://localhost/ehr"}).Enabled() {
		t.Fatal("config with url must be enabled")
	}
	if _, err := Open(Config{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}
