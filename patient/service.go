package patient

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DefaultDaysBack = 365

// Windows at or beyond this many days cover every stored result.
const maxDaysBack = 1_000_000

type History struct {
	PatientID       string      `json:"patient_id"`
	MedicalHistory  []Condition `json:"medical_history"`
	TotalConditions int         `json:"total_conditions"`
}

type Labs struct {
	PatientID    string      `json:"patient_id"`
	LabResults   []LabResult `json:"lab_results"`
	TotalResults int         `json:"total_results"`
	DateRange    string      `json:"date_range"`
}

type SearchHit struct {
	PatientID   string `json:"patient_id"`
	Name        string `json:"name"`
	DateOfBirth Date   `json:"date_of_birth"`
	Gender      string `json:"gender"`
}

type SearchResult struct {
	Query      string      `json:"query"`
	Results    []SearchHit `json:"results"`
	TotalFound int         `json:"total_found"`
}

type SummaryStats struct {
	TotalConditions  int `json:"total_conditions"`
	ActiveConditions int `json:"active_conditions"`
	RecentLabCount   int `json:"recent_lab_count"`
}

type Summary struct {
	PatientInfo      Patient      `json:"patient_info"`
	ActiveConditions []Condition  `json:"active_conditions"`
	RecentLabResults []LabResult  `json:"recent_lab_results"`
	SummaryStats     SummaryStats `json:"summary_stats"`
	RiskFactors      []string     `json:"risk_factors"`
	Generated        time.Time    `json:"summary_generated"`
}

// Service answers read-only queries over a Snapshot.
type Service struct {
	snapshot *Snapshot
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(snapshot *Snapshot, opts ...Option) (*Service, error) {
	if snapshot == nil {
		return nil, errors.New("patient snapshot is required")
	}
	s := &Service{
		snapshot: snapshot,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Service) PatientInfo(id string) (Patient, error) {
	p, ok := s.snapshot.Patient(id)
	if !ok {
		return Patient{}, notFound(id)
	}
	return p, nil
}

func (s *Service) PatientHistory(id string) (History, error) {
	if _, ok := s.snapshot.Patient(id); !ok {
		return History{}, notFound(id)
	}
	conditions := s.snapshot.Conditions(id)
	return History{
		PatientID:       id,
		MedicalHistory:  conditions,
		TotalConditions: len(conditions),
	}, nil
}

func (s *Service) LabResults(id string, daysBack int) (Labs, error) {
	if err := validateDays("days_back", daysBack); err != nil {
		return Labs{}, err
	}
	if _, ok := s.snapshot.Patient(id); !ok {
		return Labs{}, notFound(id)
	}
	results := s.labsSince(id, daysBack)
	return Labs{
		PatientID:    id,
		LabResults:   results,
		TotalResults: len(results),
		DateRange:    fmt.Sprintf("Last %d days", daysBack),
	}, nil
}

func (s *Service) SearchPatients(query string) SearchResult {
	needle := strings.ToLower(query)
	hits := make([]SearchHit, 0)
	for _, p := range s.snapshot.Patients() {
		if strings.Contains(strings.ToLower(p.ID), needle) || strings.Contains(strings.ToLower(p.Name), needle) {
			hits = append(hits, SearchHit{
				PatientID:   p.ID,
				Name:        p.Name,
				DateOfBirth: p.DateOfBirth,
				Gender:      p.Gender,
			})
		}
	}
	return SearchResult{
		Query:      query,
		Results:    hits,
		TotalFound: len(hits),
	}
}

func (s *Service) PatientSummary(id string, includeLabsDays int) (Summary, error) {
	if err := validateDays("include_labs_days", includeLabsDays); err != nil {
		return Summary{}, err
	}
	p, ok := s.snapshot.Patient(id)
	if !ok {
		return Summary{}, notFound(id)
	}

	history := s.snapshot.Conditions(id)
	active := make([]Condition, 0, len(history))
	for _, c := range history {
		if c.IsActive() {
			active = append(active, c)
		}
	}
	recent := s.labsSince(id, includeLabsDays)

	return Summary{
		PatientInfo:      p,
		ActiveConditions: active,
		RecentLabResults: recent,
		SummaryStats: SummaryStats{
			TotalConditions:  len(history),
			ActiveConditions: len(active),
			RecentLabCount:   len(recent),
		},
		RiskFactors: RiskFactors(active, recent),
		Generated:   s.now().UTC(),
	}, nil
}

// labsSince keeps results collected on or after now minus daysBack days.
func (s *Service) labsSince(id string, daysBack int) []LabResult {
	all := s.snapshot.Labs(id)
	if daysBack >= maxDaysBack {
		return all
	}
	cutoff := s.now().UTC().AddDate(0, 0, -daysBack)
	out := make([]LabResult, 0, len(all))
	for _, l := range all {
		if !l.CollectionDate.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out
}

func validateDays(name string, days int) error {
	if days < 0 {
		return fmt.Errorf("%w: %s must be a non-negative integer, got %d", ErrInvalidArgument, name, days)
	}
	return nil
}

func notFound(id string) error {
	return &NotFoundError{ID: id}
}
