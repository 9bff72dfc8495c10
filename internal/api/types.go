package api

import (
	"time"

	"github.com/elitedental/clinic-server/internal/clinic"
)

type DoctorResponse struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Specialty  string  `json:"specialty"`
	Bio        string  `json:"bio"`
	Education  string  `json:"education"`
	Experience int     `json:"experience"`
	Image      *string `json:"image,omitempty"`
}

func newDoctorResponse(d *clinic.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:         d.ID,
		Name:       d.Name,
		Specialty:  d.Specialty,
		Bio:        d.Bio,
		Education:  d.Education,
		Experience: d.Experience,
		Image:      d.Image,
	}
}

type AppointmentResponse struct {
	ID           int       `json:"id"`
	PatientName  string    `json:"patientName"`
	PatientEmail string    `json:"patientEmail"`
	PatientPhone string    `json:"patientPhone"`
	DoctorID     int       `json:"doctorId"`
	Date         string    `json:"appointmentDate"`
	Time         string    `json:"appointmentTime"`
	Reason       string    `json:"reasonForVisit"`
	Notes        *string   `json:"notes,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newAppointmentResponse(a *clinic.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		PatientName:  a.PatientName,
		PatientEmail: a.PatientEmail,
		PatientPhone: a.PatientPhone,
		DoctorID:     a.DoctorID,
		Date:         a.Date,
		Time:         a.Time,
		Reason:       a.Reason,
		Notes:        a.Notes,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
	}
}

// SlotsResponse is the resolved bookable slot list for one (doctor, date).
type SlotsResponse struct {
	TimeSlots []string `json:"timeSlots"`
}

type AvailabilityResponse struct {
	ID        int      `json:"id"`
	DoctorID  int      `json:"doctorId"`
	Date      string   `json:"date"`
	TimeSlots []string `json:"timeSlots"`
}

// UpdateAppointmentRequest carries a partial edit; absent fields are left
// unchanged.
type UpdateAppointmentRequest struct {
	PatientName  *string `json:"patientName"`
	PatientEmail *string `json:"patientEmail"`
	PatientPhone *string `json:"patientPhone"`
	DoctorID     *int    `json:"doctorId"`
	Date         *string `json:"appointmentDate"`
	Time         *string `json:"appointmentTime"`
	Reason       *string `json:"reasonForVisit"`
	Notes        *string `json:"notes"`
	Status       *string `json:"status"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
