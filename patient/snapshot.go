package patient

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Snapshot is an immutable view of patients with their condition and lab records.
// It is safe for concurrent use; accessors return copies.
type Snapshot struct {
	order      []string
	patients   map[string]Patient
	conditions map[string][]Condition
	labs       map[string][]LabResult
	loadedAt   time.Time
}

// NewSnapshot indexes the given records by patient id. Ages are derived from the
// date of birth at loadedAt. Every condition and lab must reference a known patient.
// Lab results are kept ordered by collection date.
func NewSnapshot(patients []Patient, conditions []Condition, labs []LabResult, loadedAt time.Time) (*Snapshot, error) {
	s := &Snapshot{
		order:      make([]string, 0, len(patients)),
		patients:   make(map[string]Patient, len(patients)),
		conditions: make(map[string][]Condition, len(patients)),
		labs:       make(map[string][]LabResult, len(patients)),
		loadedAt:   loadedAt.UTC(),
	}

	for _, p := range patients {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: patient id is empty", ErrInvalidArgument)
		}
		if _, dup := s.patients[id]; dup {
			return nil, fmt.Errorf("%w: duplicate patient id %s", ErrInvalidArgument, id)
		}
		p.ID = id
		p.Age = AgeAt(p.DateOfBirth, s.loadedAt)
		s.patients[id] = p
		s.order = append(s.order, id)
	}

	for _, c := range conditions {
		if _, ok := s.patients[c.PatientID]; !ok {
			return nil, fmt.Errorf("%w: condition %q references unknown patient %s", ErrInvalidArgument, c.Name, c.PatientID)
		}
		s.conditions[c.PatientID] = append(s.conditions[c.PatientID], c)
	}

	for _, l := range labs {
		if _, ok := s.patients[l.PatientID]; !ok {
			return nil, fmt.Errorf("%w: lab %q references unknown patient %s", ErrInvalidArgument, l.TestName, l.PatientID)
		}
		s.labs[l.PatientID] = append(s.labs[l.PatientID], l)
	}
	for id := range s.labs {
		results := s.labs[id]
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].CollectionDate.Before(results[j].CollectionDate.Time)
		})
	}

	return s, nil
}

func (s *Snapshot) Patient(id string) (Patient, bool) {
	p, ok := s.patients[id]
	return p, ok
}

// Patients returns all patients in load order.
func (s *Snapshot) Patients() []Patient {
	out := make([]Patient, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.patients[id])
	}
	return out
}

func (s *Snapshot) Conditions(id string) []Condition {
	return append([]Condition{}, s.conditions[id]...)
}

func (s *Snapshot) Labs(id string) []LabResult {
	return append([]LabResult{}, s.labs[id]...)
}

func (s *Snapshot) Len() int {
	return len(s.order)
}

func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}
