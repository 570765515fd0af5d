package patient

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("patient not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// NotFoundError reports an unknown patient id. It matches ErrNotFound.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return NotFoundMessage(e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NotFoundMessage(id string) string {
	return fmt.Sprintf("Patient %s not found", id)
}

// Abnormal flags carried by lab results.
const (
	FlagHigh   = "H"
	FlagLow    = "L"
	FlagNormal = ""
)

const (
	StatusActive   = "active"
	StatusResolved = "resolved"
)

type Patient struct {
	ID          string `json:"patient_id"`
	Name        string `json:"name"`
	DateOfBirth Date   `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Age         int    `json:"age"`
}

type Condition struct {
	PatientID     string `json:"-"`
	Name          string `json:"condition"`
	DiagnosisDate Date   `json:"diagnosis_date"`
	Status        string `json:"status"`
	Severity      string `json:"severity"`
	Notes         string `json:"notes"`
	Provider      string `json:"provider"`
}

// IsActive reports whether the condition status is "active", ignoring case.
func (c Condition) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(c.Status), StatusActive)
}

type LabResult struct {
	PatientID        string `json:"-"`
	TestName         string `json:"test_name"`
	Value            string `json:"value"`
	Unit             string `json:"unit"`
	ReferenceRange   string `json:"reference_range"`
	Status           string `json:"status"`
	AbnormalFlag     string `json:"abnormal_flag"`
	CollectionDate   Date   `json:"collection_date"`
	ResultDate       Date   `json:"result_date"`
	OrderingProvider string `json:"ordering_provider"`
	Notes            string `json:"notes"`
}

func (l LabResult) IsHigh() bool {
	return l.AbnormalFlag == FlagHigh
}

// AgeAt returns completed years between dob and at.
func AgeAt(dob Date, at time.Time) int {
	if dob.IsZero() {
		return 0
	}
	at = at.UTC()
	years := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
