package clinic

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/elitedental/clinic-server/internal/lock"
)

var (
	// ErrInvalidInput wraps shape-validation failures (email format, minimum
	// lengths, malformed dates).
	ErrInvalidInput = errors.New("invalid input")

	// ErrSlotBusy means another booking for the same slot holds the lock
	// right now; the client should retry.
	ErrSlotBusy = errors.New("slot is currently being booked, please retry")
)

// NotificationKind identifies which email an appointment event produces.
type NotificationKind string

const (
	NotifyConfirmation NotificationKind = "confirmation"
	NotifyReminder     NotificationKind = "reminder"
	NotifyCancellation NotificationKind = "cancellation"
	NotifyUpdate       NotificationKind = "update"
)

// Notifier is the outbound notification capability the service consumes.
// Delivery is best effort: the service logs failures and never lets them fail
// a booking operation.
type Notifier interface {
	Notify(ctx context.Context, appt *Appointment, doctor *Doctor, kind NotificationKind) error
	ContactMessage(ctx context.Context, form ContactInput) error
}

// Reminders is the reminder-scheduling capability the service consumes.
type Reminders interface {
	Schedule(appt *Appointment)
	Cancel(appointmentID int)
	Rearm(appt *Appointment)
}

// BookingInput is a patient booking request. Shape constraints mirror the
// public booking form.
type BookingInput struct {
	PatientName  string `json:"patientName" validate:"required,min=2"`
	PatientEmail string `json:"patientEmail" validate:"required,email"`
	PatientPhone string `json:"patientPhone" validate:"required,min=10"`
	DoctorID     int    `json:"doctorId" validate:"required,min=1"`
	Date         string `json:"appointmentDate" validate:"required,datetime=2006-01-02"`
	Time         string `json:"appointmentTime" validate:"required"`
	Reason       string `json:"reasonForVisit" validate:"required"`
	Notes        string `json:"notes"`
}

// ContactInput is a website contact-form submission.
type ContactInput struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Subject   string `json:"subject" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

// Service is the booking core: validation, availability resolution, the
// appointment lifecycle, and the side effects (emails, reminder timers) each
// transition triggers.
type Service struct {
	store     Store
	locker    lock.Locker
	notifier  Notifier
	reminders Reminders
	validate  *validator.Validate
	loc       *time.Location
	log       zerolog.Logger
}

func NewService(store Store, locker lock.Locker, notifier Notifier, reminders Reminders, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		locker:    locker,
		notifier:  notifier,
		reminders: reminders,
		validate:  validator.New(),
		loc:       time.Local,
		log:       log.With().Str("component", "clinic").Logger(),
	}
}

func slotKey(doctorID int, date, slot string) string {
	return strconv.Itoa(doctorID) + ":" + date + ":" + slot
}

// Book validates the request, reserves the slot under the per-slot lock and
// creates the appointment. On success it sends the confirmation email and
// arms the reminder; neither side effect can fail the booking.
func (s *Service) Book(ctx context.Context, in BookingInput) (*Appointment, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	appt := Appointment{
		PatientName:  in.PatientName,
		PatientEmail: in.PatientEmail,
		PatientPhone: in.PatientPhone,
		DoctorID:     in.DoctorID,
		Date:         in.Date,
		Time:         in.Time,
		Reason:       in.Reason,
		Status:       StatusConfirmed,
	}
	if in.Notes != "" {
		notes := in.Notes
		appt.Notes = &notes
	}
	if _, err := appt.StartTime(s.loc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	doctor, err := s.store.GetDoctor(ctx, in.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	var created *Appointment
	err = s.locker.WithLock(ctx, slotKey(in.DoctorID, in.Date, in.Time), func(lockCtx context.Context) error {
		a, err := s.store.CreateAppointment(lockCtx, appt)
		if err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	s.log.Info().
		Int("appointment_id", created.ID).
		Int("doctor_id", created.DoctorID).
		Str("date", created.Date).
		Str("time", created.Time).
		Msg("appointment booked")

	s.sendNotification(ctx, created, doctor, NotifyConfirmation)
	s.reminders.Schedule(created)

	return created, nil
}

func (s *Service) GetAppointment(ctx context.Context, id int) (*Appointment, error) {
	return s.store.GetAppointment(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.store.ListAppointments(ctx)
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID int) ([]Appointment, error) {
	return s.store.ListAppointmentsByDoctor(ctx, doctorID)
}

func (s *Service) GetDoctor(ctx context.Context, id int) (*Doctor, error) {
	return s.store.GetDoctor(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.store.ListDoctors(ctx)
}

func (s *Service) ListAvailabilityByDoctor(ctx context.Context, doctorID int) ([]Availability, error) {
	return s.store.ListAvailabilityByDoctor(ctx, doctorID)
}

// Update merges a partial edit into the appointment. A date/time/doctor move
// re-checks the target slot, re-arms the reminder for the new instant and
// sends an update email.
func (s *Service) Update(ctx context.Context, id int, upd AppointmentUpdate) (*Appointment, error) {
	if upd.PatientEmail != nil {
		if err := s.validate.Var(*upd.PatientEmail, "required,email"); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if upd.Date != nil {
		if _, err := time.Parse(DateLayout, *upd.Date); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	// The merged date+time must still resolve to an instant, or the reminder
	// engine and the completion sweep could never act on the record.
	if upd.Date != nil || upd.Time != nil {
		next := *current
		if upd.Date != nil {
			next.Date = *upd.Date
		}
		if upd.Time != nil {
			next.Time = *upd.Time
		}
		if _, err := next.StartTime(s.loc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if upd.DoctorID != nil && *upd.DoctorID != current.DoctorID {
		if _, err := s.store.GetDoctor(ctx, *upd.DoctorID); err != nil {
			if errors.Is(err, ErrDoctorNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("load doctor: %w", err)
		}
	}

	updated, err := s.store.UpdateAppointment(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	moved := updated.Date != current.Date || updated.Time != current.Time ||
		updated.DoctorID != current.DoctorID
	statusChanged := updated.Status != current.Status

	if moved || statusChanged {
		s.reminders.Rearm(updated)
	}
	if moved {
		if doctor, derr := s.store.GetDoctor(ctx, updated.DoctorID); derr == nil {
			s.sendNotification(ctx, updated, doctor, NotifyUpdate)
		}
	}

	s.log.Info().Int("appointment_id", id).Bool("rescheduled", moved).Msg("appointment updated")
	return updated, nil
}

// Cancel soft-cancels: the record is retained with status cancelled, the
// reminder timer is dropped, and a cancellation email goes out.
func (s *Service) Cancel(ctx context.Context, id int) (*Appointment, error) {
	status := StatusCancelled
	updated, err := s.store.UpdateAppointment(ctx, id, AppointmentUpdate{Status: &status})
	if err != nil {
		return nil, err
	}

	s.reminders.Cancel(id)

	if doctor, derr := s.store.GetDoctor(ctx, updated.DoctorID); derr == nil {
		s.sendNotification(ctx, updated, doctor, NotifyCancellation)
	}

	s.log.Info().Int("appointment_id", id).Msg("appointment cancelled")
	return updated, nil
}

// Complete marks the appointment completed and drops any reminder.
func (s *Service) Complete(ctx context.Context, id int) (*Appointment, error) {
	status := StatusCompleted
	updated, err := s.store.UpdateAppointment(ctx, id, AppointmentUpdate{Status: &status})
	if err != nil {
		return nil, err
	}
	s.reminders.Cancel(id)
	return updated, nil
}

// Delete removes the record entirely (staff purge, not the cancellation
// flow). Unknown ids are a no-op.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.store.DeleteAppointment(ctx, id); err != nil {
		return err
	}
	s.reminders.Cancel(id)
	s.log.Info().Int("appointment_id", id).Msg("appointment deleted")
	return nil
}

// CompletePastAppointments moves confirmed appointments whose start has
// passed to completed. Called periodically by the sweep worker.
func (s *Service) CompletePastAppointments(ctx context.Context) error {
	appointments, err := s.store.ListAppointments(ctx)
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}

	now := time.Now()
	for i := range appointments {
		appt := &appointments[i]
		if appt.Status != StatusConfirmed {
			continue
		}
		start, err := appt.StartTime(s.loc)
		if err != nil || start.After(now) {
			continue
		}

		status := StatusCompleted
		if _, err := s.store.UpdateAppointment(ctx, appt.ID, AppointmentUpdate{Status: &status}); err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.log.Error().Err(err).Int("appointment_id", appt.ID).Msg("failed to complete past appointment")
			}
			continue
		}
		s.reminders.Cancel(appt.ID)
		s.log.Info().Int("appointment_id", appt.ID).Msg("past appointment marked completed")
	}

	return nil
}

// Contact validates and forwards a contact-form submission. Per policy the
// operation succeeds even when delivery fails; the failure is only logged.
func (s *Service) Contact(ctx context.Context, form ContactInput) error {
	if err := s.validate.Struct(form); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.notifier.ContactMessage(ctx, form); err != nil {
		s.log.Error().Err(err).Str("from", form.Email).Msg("contact message delivery failed")
	}
	return nil
}

// SendReminder dispatches the reminder email for an appointment; wired into
// the reminder engine's fire path.
func (s *Service) SendReminder(ctx context.Context, appt *Appointment) error {
	doctor, err := s.store.GetDoctor(ctx, appt.DoctorID)
	if err != nil {
		return fmt.Errorf("load doctor for reminder: %w", err)
	}
	return s.notifier.Notify(ctx, appt, doctor, NotifyReminder)
}

func (s *Service) sendNotification(ctx context.Context, appt *Appointment, doctor *Doctor, kind NotificationKind) {
	if err := s.notifier.Notify(ctx, appt, doctor, kind); err != nil {
		s.log.Error().Err(err).
			Int("appointment_id", appt.ID).
			Str("kind", string(kind)).
			Msg("notification failed")
	}
}
