// Package pgsource loads a read-only patient snapshot from Postgres.
// Tables are read once at start-up; nothing is written back.
package pgsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	patientx "github.com/tanpawarit/clinical-assistant/patient"
)

type Config struct {
	DatabaseURL string        `split_words:"true"`
	Timeout     time.Duration `default:"10s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

type patientRow struct {
	bun.BaseModel `bun:"table:patients"`

	ID          string    `bun:"patient_id,pk"`
	Name        string    `bun:"name"`
	DateOfBirth time.Time `bun:"date_of_birth,type:date"`
	Gender      string    `bun:"gender"`
}

type conditionRow struct {
	bun.BaseModel `bun:"table:conditions"`

	ID            int64     `bun:"id,pk,autoincrement"`
	PatientID     string    `bun:"patient_id"`
	Name          string    `bun:"condition"`
	DiagnosisDate time.Time `bun:"diagnosis_date,type:date"`
	Status        string    `bun:"status"`
	Severity      string    `bun:"severity"`
	Notes         string    `bun:"notes"`
	Provider      string    `bun:"provider"`
}

type labRow struct {
	bun.BaseModel `bun:"table:lab_results"`

	ID               int64     `bun:"id,pk,autoincrement"`
	PatientID        string    `bun:"patient_id"`
	TestName         string    `bun:"test_name"`
	Value            string    `bun:"value"`
	Unit             string    `bun:"unit"`
	ReferenceRange   string    `bun:"reference_range"`
	Status           string    `bun:"status"`
	AbnormalFlag     string    `bun:"abnormal_flag"`
	CollectionDate   time.Time `bun:"collection_date,type:date"`
	ResultDate       time.Time `bun:"result_date,type:date"`
	OrderingProvider string    `bun:"ordering_provider"`
	Notes            string    `bun:"notes"`
}

// Open returns a bun handle backed by the pgdriver connector.
func Open(cfg Config) (*bun.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("patient database url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// Load reads every patient, condition and lab row and builds a snapshot.
func Load(ctx context.Context, db bun.IDB, now time.Time) (*patientx.Snapshot, error) {
	var patients []patientRow
	if err := db.NewSelect().Model(&patients).Order("patient_id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select patients: %w", err)
	}

	var conditions []conditionRow
	if err := db.NewSelect().Model(&conditions).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select conditions: %w", err)
	}

	var labs []labRow
	if err := db.NewSelect().Model(&labs).Order("collection_date ASC", "id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select lab results: %w", err)
	}

	snap, err := buildSnapshot(patients, conditions, labs, now)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("patients", len(patients)).
		Int("conditions", len(conditions)).
		Int("lab_results", len(labs)).
		Msg("patient snapshot loaded from database")

	return snap, nil
}

func buildSnapshot(patients []patientRow, conditions []conditionRow, labs []labRow, now time.Time) (*patientx.Snapshot, error) {
	ps := make([]patientx.Patient, 0, len(patients))
	for _, r := range patients {
		ps = append(ps, patientx.Patient{
			ID:          strings.TrimSpace(r.ID),
			Name:        r.Name,
			DateOfBirth: toDate(r.DateOfBirth),
			Gender:      r.Gender,
		})
	}

	cs := make([]patientx.Condition, 0, len(conditions))
	for _, r := range conditions {
		cs = append(cs, patientx.Condition{
			PatientID:     strings.TrimSpace(r.PatientID),
			Name:          r.Name,
			DiagnosisDate: toDate(r.DiagnosisDate),
			Status:        r.Status,
			Severity:      r.Severity,
			Notes:         r.Notes,
			Provider:      r.Provider,
		})
	}

	ls := make([]patientx.LabResult, 0, len(labs))
	for _, r := range labs {
		ls = append(ls, patientx.LabResult{
			PatientID:        strings.TrimSpace(r.PatientID),
			TestName:         r.TestName,
			Value:            r.Value,
			Unit:             r.Unit,
			ReferenceRange:   r.ReferenceRange,
			Status:           r.Status,
			AbnormalFlag:     strings.ToUpper(strings.TrimSpace(r.AbnormalFlag)),
			CollectionDate:   toDate(r.CollectionDate),
			ResultDate:       toDate(r.ResultDate),
			OrderingProvider: r.OrderingProvider,
			Notes:            r.Notes,
		})
	}

	snap, err := patientx.NewSnapshot(ps, cs, ls, now)
	if err != nil {
		return nil, fmt.Errorf("build patient snapshot: %w", err)
	}
	return snap, nil
}

func toDate(t time.Time) patientx.Date {
	if t.IsZero() {
		return patientx.Date{}
	}
	y, m, d := t.Date()
	return patientx.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}
