package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/elitedental/clinic-server/internal/clinic"
)

// Handler serves the public booking API and the staff dashboard endpoints.
type Handler struct {
	svc *clinic.Service
	log zerolog.Logger
}

func NewHandler(svc *clinic.Service, log zerolog.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log.With().Str("component", "api").Logger(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps service/store sentinels onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, clinic.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, clinic.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", "doctor not found")
	case errors.Is(err, clinic.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "appointment not found")
	case errors.Is(err, clinic.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", "this time slot is already booked")
	case errors.Is(err, clinic.ErrSlotBusy):
		writeError(w, http.StatusConflict, "slot_busy", "slot is being booked by someone else, please retry")
	default:
		h.log.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", GetRequestID(r.Context())).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

func pathID(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}

func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.svc.ListDoctors(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]DoctorResponse, 0, len(doctors))
	for i := range doctors {
		out = append(out, newDoctorResponse(&doctors[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be an integer")
		return
	}

	doctor, err := h.svc.GetDoctor(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDoctorResponse(doctor))
}

// ListDoctorAvailability returns the configured slot templates for a doctor,
// before any bookings are subtracted.
func (h *Handler) ListDoctorAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be an integer")
		return
	}

	entries, err := h.svc.ListAvailabilityByDoctor(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]AvailabilityResponse, 0, len(entries))
	for _, av := range entries {
		out = append(out, AvailabilityResponse{
			ID:        av.ID,
			DoctorID:  av.DoctorID,
			Date:      av.Date,
			TimeSlots: av.TimeSlots,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetAvailableSlots resolves the bookable slots for one (doctor, date): the
// template minus active bookings.
func (h *Handler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := pathID(r, "doctorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be an integer")
		return
	}
	date := chi.URLParam(r, "date")

	slots, err := h.svc.ResolveAvailability(r.Context(), doctorID, date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SlotsResponse{TimeSlots: slots})
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var in clinic.BookingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := h.svc.Book(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAppointmentResponse(appt))
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be an integer")
		return
	}

	appt, err := h.svc.GetAppointment(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAppointmentResponse(appt))
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	var (
		appointments []clinic.Appointment
		err          error
	)
	if raw := r.URL.Query().Get("doctorId"); raw != "" {
		doctorID, convErr := strconv.Atoi(raw)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorId must be an integer")
			return
		}
		appointments, err = h.svc.ListAppointmentsByDoctor(r.Context(), doctorID)
	} else {
		appointments, err = h.svc.ListAppointments(r.Context())
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]AppointmentResponse, 0, len(appointments))
	for i := range appointments {
		out = append(out, newAppointmentResponse(&appointments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be an integer")
		return
	}

	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	upd := clinic.AppointmentUpdate{
		PatientName:  req.PatientName,
		PatientEmail: req.PatientEmail,
		PatientPhone: req.PatientPhone,
		DoctorID:     req.DoctorID,
		Date:         req.Date,
		Time:         req.Time,
		Reason:       req.Reason,
		Notes:        req.Notes,
	}
	if req.Status != nil {
		status := clinic.AppointmentStatus(*req.Status)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be pending, confirmed, cancelled or completed")
			return
		}
		upd.Status = &status
	}

	appt, err := h.svc.Update(r.Context(), id, upd)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAppointmentResponse(appt))
}

func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be an integer")
		return
	}

	appt, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAppointmentResponse(appt))
}

func (h *Handler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be an integer")
		return
	}

	appt, err := h.svc.Complete(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAppointmentResponse(appt))
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be an integer")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	var form clinic.ContactInput
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	if err := h.svc.Contact(r.Context(), form); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "message received, we will get back to you shortly"})
}
