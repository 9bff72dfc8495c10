package clinic

import (
	"context"
	"errors"
)

var (
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrAvailabilityNotFound = errors.New("availability not found")
	ErrStaffNotFound        = errors.New("staff user not found")

	// ErrSlotTaken is returned by CreateAppointment (and by updates that move
	// an appointment) when a non-cancelled, non-completed appointment already
	// occupies the same (doctor, date, time) slot.
	ErrSlotTaken = errors.New("slot already booked")
)

// Store is the sole owner of doctor, appointment, availability and staff
// records. Implementations must make the slot-conflict check in
// CreateAppointment atomic with the write.
type Store interface {
	GetDoctor(ctx context.Context, id int) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error)

	GetAppointment(ctx context.Context, id int) (*Appointment, error)
	ListAppointments(ctx context.Context) ([]Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID int) ([]Appointment, error)
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, id int, upd AppointmentUpdate) (*Appointment, error)
	// DeleteAppointment removes the record entirely. Deleting an unknown id
	// is a no-op, not an error.
	DeleteAppointment(ctx context.Context, id int) error

	GetAvailability(ctx context.Context, doctorID int, date string) (*Availability, error)
	ListAvailabilityByDoctor(ctx context.Context, doctorID int) ([]Availability, error)
	CreateAvailability(ctx context.Context, av Availability) (*Availability, error)

	GetStaffByUsername(ctx context.Context, username string) (*StaffUser, error)
	CreateStaff(ctx context.Context, u StaffUser) (*StaffUser, error)
}
