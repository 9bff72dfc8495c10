package clinic

import (
	"fmt"
	"time"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Valid reports whether s is one of the known lifecycle statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// DateLayout is the calendar-date format used throughout the system.
const DateLayout = "2006-01-02"

// slotLayout parses a date plus a display time like "9:00 AM".
const slotLayout = "2006-01-02 3:04 PM"

type Doctor struct {
	ID         int
	Name       string
	Specialty  string
	Bio        string
	Education  string
	Experience int
	Image      *string
}

type Appointment struct {
	ID           int
	PatientName  string
	PatientEmail string
	PatientPhone string
	DoctorID     int
	Date         string // YYYY-MM-DD
	Time         string // display string, e.g. "9:00 AM"
	Reason       string
	Notes        *string
	Status       AppointmentStatus
	CreatedAt    time.Time
}

// StartTime resolves the appointment's calendar date and display time into an
// instant in the given location.
func (a *Appointment) StartTime(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(slotLayout, a.Date+" "+a.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse appointment start %q %q: %w", a.Date, a.Time, err)
	}
	return t, nil
}

// Availability is the configured slot template for one (doctor, date) pair.
// Bookings are subtracted at read time, never written back into this record.
type Availability struct {
	ID        int
	DoctorID  int
	Date      string
	TimeSlots []string
}

type StaffUser struct {
	ID           int
	Username     string
	PasswordHash string
}

// AppointmentUpdate is a partial update; nil fields are left unchanged.
type AppointmentUpdate struct {
	PatientName  *string
	PatientEmail *string
	PatientPhone *string
	DoctorID     *int
	Date         *string
	Time         *string
	Reason       *string
	Notes        *string
	Status       *AppointmentStatus
}

// DefaultTimeSlots returns the standard 8-slot day template, hourly from
// 9 AM to 5 PM minus the noon lunch hour.
func DefaultTimeSlots() []string {
	return []string{
		"9:00 AM",
		"10:00 AM",
		"11:00 AM",
		"1:00 PM",
		"2:00 PM",
		"3:00 PM",
		"4:00 PM",
		"5:00 PM",
	}
}
