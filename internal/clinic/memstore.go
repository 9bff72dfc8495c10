package clinic

import (
	"context"
	"sync"
	"time"
)

// MemStore is the in-memory Store implementation. Records live for the
// process lifetime only; ids are per-entity counters and are never reused.
type MemStore struct {
	mu             sync.RWMutex
	doctors        map[int]Doctor
	appointments   map[int]Appointment
	availability   map[int]Availability
	staff          map[int]StaffUser
	nextDoctor     int
	nextAppt       int
	nextAvail      int
	nextStaff      int
	apptOrder      []int // insertion order for listings
}

func NewMemStore() *MemStore {
	return &MemStore{
		doctors:      make(map[int]Doctor),
		appointments: make(map[int]Appointment),
		availability: make(map[int]Availability),
		staff:        make(map[int]StaffUser),
		nextDoctor:   1,
		nextAppt:     1,
		nextAvail:    1,
		nextStaff:    1,
	}
}

// NewSeededMemStore returns a MemStore pre-loaded with the sample doctor and
// the default slot template for the next `days` days.
func NewSeededMemStore(days int) *MemStore {
	s := NewMemStore()
	ctx := context.Background()

	image := "/assets/dr-alhamou.jpg"
	doc, _ := s.CreateDoctor(ctx, Doctor{
		Name:       "Dr. Anas Alhamou",
		Specialty:  "DDS & General Dentistry",
		Bio:        "Dr. Anas Alhamou is a highly experienced General Dentist with a passion for providing quality dental care, skilled in diagnosing and treating a wide variety of dental conditions for children, adolescents and adults.",
		Education:  "Elrazi University - Doctor of Dental Surgery (DDS), Master Endo Professional Program, Cosmetic Dentistry Professional Program",
		Experience: 15,
		Image:      &image,
	})

	today := time.Now()
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i).Format(DateLayout)
		_, _ = s.CreateAvailability(ctx, Availability{
			DoctorID:  doc.ID,
			Date:      date,
			TimeSlots: DefaultTimeSlots(),
		})
	}

	return s
}

func (s *MemStore) GetDoctor(_ context.Context, id int) (*Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (s *MemStore) ListDoctors(_ context.Context) ([]Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Doctor, 0, len(s.doctors))
	for i := 1; i < s.nextDoctor; i++ {
		if d, ok := s.doctors[i]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *MemStore) CreateDoctor(_ context.Context, d Doctor) (*Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.nextDoctor
	s.nextDoctor++
	s.doctors[d.ID] = d
	return &d, nil
}

func (s *MemStore) GetAppointment(_ context.Context, id int) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (s *MemStore) ListAppointments(_ context.Context) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, 0, len(s.appointments))
	for _, id := range s.apptOrder {
		if a, ok := s.appointments[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemStore) ListAppointmentsByDoctor(_ context.Context, doctorID int) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, id := range s.apptOrder {
		if a, ok := s.appointments[id]; ok && a.DoctorID == doctorID {
			out = append(out, a)
		}
	}
	return out, nil
}

// statusBlocksSlot reports whether an appointment in this status keeps its
// slot unavailable to others.
func statusBlocksSlot(st AppointmentStatus) bool {
	return st != StatusCancelled && st != StatusCompleted
}

// slotTakenLocked must be called with s.mu held.
func (s *MemStore) slotTakenLocked(doctorID int, date, slot string, excludeID int) bool {
	for _, a := range s.appointments {
		if a.ID == excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.Date == date && a.Time == slot && statusBlocksSlot(a.Status) {
			return true
		}
	}
	return false
}

func (s *MemStore) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The conflict re-check happens under the same lock as the write, so two
	// concurrent bookings cannot both pass it.
	if s.slotTakenLocked(a.DoctorID, a.Date, a.Time, 0) {
		return nil, ErrSlotTaken
	}

	a.ID = s.nextAppt
	s.nextAppt++
	if a.Status == "" {
		a.Status = StatusConfirmed
	}
	a.CreatedAt = time.Now()
	s.appointments[a.ID] = a
	s.apptOrder = append(s.apptOrder, a.ID)
	return &a, nil
}

func (s *MemStore) UpdateAppointment(_ context.Context, id int, upd AppointmentUpdate) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	merged := a
	if upd.PatientName != nil {
		merged.PatientName = *upd.PatientName
	}
	if upd.PatientEmail != nil {
		merged.PatientEmail = *upd.PatientEmail
	}
	if upd.PatientPhone != nil {
		merged.PatientPhone = *upd.PatientPhone
	}
	if upd.DoctorID != nil {
		merged.DoctorID = *upd.DoctorID
	}
	if upd.Date != nil {
		merged.Date = *upd.Date
	}
	if upd.Time != nil {
		merged.Time = *upd.Time
	}
	if upd.Reason != nil {
		merged.Reason = *upd.Reason
	}
	if upd.Notes != nil {
		merged.Notes = upd.Notes
	}
	if upd.Status != nil {
		merged.Status = *upd.Status
	}

	movedSlot := merged.DoctorID != a.DoctorID || merged.Date != a.Date || merged.Time != a.Time
	if movedSlot && statusBlocksSlot(merged.Status) &&
		s.slotTakenLocked(merged.DoctorID, merged.Date, merged.Time, id) {
		return nil, ErrSlotTaken
	}

	s.appointments[id] = merged
	return &merged, nil
}

func (s *MemStore) DeleteAppointment(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.appointments, id)
	return nil
}

func (s *MemStore) GetAvailability(_ context.Context, doctorID int, date string) (*Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, av := range s.availability {
		if av.DoctorID == doctorID && av.Date == date {
			out := av
			out.TimeSlots = append([]string(nil), av.TimeSlots...)
			return &out, nil
		}
	}
	return nil, ErrAvailabilityNotFound
}

func (s *MemStore) ListAvailabilityByDoctor(_ context.Context, doctorID int) ([]Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Availability
	for i := 1; i < s.nextAvail; i++ {
		av, ok := s.availability[i]
		if !ok || av.DoctorID != doctorID {
			continue
		}
		cp := av
		cp.TimeSlots = append([]string(nil), av.TimeSlots...)
		out = append(out, cp)
	}
	return out, nil
}

func (s *MemStore) CreateAvailability(_ context.Context, av Availability) (*Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	av.ID = s.nextAvail
	s.nextAvail++
	av.TimeSlots = append([]string(nil), av.TimeSlots...)
	s.availability[av.ID] = av
	return &av, nil
}

func (s *MemStore) GetStaffByUsername(_ context.Context, username string) (*StaffUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.staff {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, ErrStaffNotFound
}

func (s *MemStore) CreateStaff(_ context.Context, u StaffUser) (*StaffUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextStaff
	s.nextStaff++
	s.staff[u.ID] = u
	return &u, nil
}
