package scheduling

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return a, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.appts, id)
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByRange(_ context.Context, from, to time.Time) ([]*Appointment, error) {
	window := &Appointment{StartTime: from, EndTime: to}
	var result []*Appointment
	for _, a := range m.appts {
		if a.Overlaps(window) {
			result = append(result, a)
		}
	}
	return result, nil
}

func mustCreate(t *testing.T, svc *Service, a *Appointment) *Appointment {
	t.Helper()
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("create: %v", err)
	}
	return a
}

func at(hour int) time.Time {
	return time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC)
}

// -- Tests --

func TestCreateAppointment_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	pid := uuid.New()

	cases := []struct {
		name string
		a    Appointment
	}{
		{"missing patient", Appointment{StartTime: at(9), EndTime: at(10)}},
		{"missing times", Appointment{PatientID: pid}},
		{"end before start", Appointment{PatientID: pid, StartTime: at(10), EndTime: at(9)}},
		{"bad status", Appointment{PatientID: pid, StartTime: at(9), EndTime: at(10), Status: "maybe"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Create(context.Background(), &tc.a); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateAppointment_DefaultsToBooked(t *testing.T) {
	svc := NewService(newMockRepo())

	a := mustCreate(t, svc, &Appointment{PatientID: uuid.New(), StartTime: at(9), EndTime: at(10)})
	if a.Status != "booked" {
		t.Errorf("expected booked, got %q", a.Status)
	}
}

func TestDay_ReturnsOverlapping(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	pid := uuid.New()

	mustCreate(t, svc, &Appointment{PatientID: pid, StartTime: at(9), EndTime: at(10)})
	mustCreate(t, svc, &Appointment{PatientID: pid, StartTime: at(14), EndTime: at(15)})
	mustCreate(t, svc, &Appointment{
		PatientID: pid,
		StartTime: at(9).AddDate(0, 0, 1),
		EndTime:   at(10).AddDate(0, 0, 1),
	})

	items, err := svc.Day(context.Background(), at(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 appointments on the day, got %d", len(items))
	}
}

func TestRange_RejectsInvertedWindow(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.Range(context.Background(), at(10), at(9)); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestOverlaps(t *testing.T) {
	a := &Appointment{StartTime: at(9), EndTime: at(10)}
	cases := []struct {
		name  string
		other Appointment
		want  bool
	}{
		{"identical", Appointment{StartTime: at(9), EndTime: at(10)}, true},
		{"partial", Appointment{StartTime: at(9).Add(30 * time.Minute), EndTime: at(11)}, true},
		{"adjacent", Appointment{StartTime: at(10), EndTime: at(11)}, false},
		{"disjoint", Appointment{StartTime: at(12), EndTime: at(13)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.Overlaps(&tc.other); got != tc.want {
				t.Errorf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestUpdate_ValidatesStatus(t *testing.T) {
	svc := NewService(newMockRepo())
	a := mustCreate(t, svc, &Appointment{PatientID: uuid.New(), StartTime: at(9), EndTime: at(10)})

	a.Status = "cancelled"
	if err := svc.Update(context.Background(), a); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	a.Status = "teleported"
	if err := svc.Update(context.Background(), a); err == nil {
		t.Error("expected error for invalid status")
	}
}
