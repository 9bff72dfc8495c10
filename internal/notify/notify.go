// Package notify is the outbound email capability. One Service with a
// pluggable Mailer transport replaces the pile of per-provider sender modules
// a clinic site tends to accumulate; it implements clinic.Notifier.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/elitedental/clinic-server/internal/clinic"
)

// Message is a rendered email ready for a transport.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
}

// Mailer delivers a rendered message. Implementations wrap one provider.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ClinicInfo fills the clinic placeholders in every template.
type ClinicInfo struct {
	Name             string
	Phone            string
	Address          string
	From             string
	ContactRecipient string
}

var kindTemplates = map[clinic.NotificationKind]string{
	clinic.NotifyConfirmation: "appointment-confirmation",
	clinic.NotifyReminder:     "appointment-reminder",
	clinic.NotifyCancellation: "appointment-cancellation",
	clinic.NotifyUpdate:       "appointment-update",
}

// Service renders templates and hands the result to the configured Mailer.
type Service struct {
	mailer    Mailer
	templates *TemplateEngine
	info      ClinicInfo
	log       zerolog.Logger
}

func NewService(mailer Mailer, info ClinicInfo, log zerolog.Logger) *Service {
	return &Service{
		mailer:    mailer,
		templates: NewTemplateEngine(),
		info:      info,
		log:       log.With().Str("component", "notify").Logger(),
	}
}

func (s *Service) Notify(ctx context.Context, appt *clinic.Appointment, doctor *clinic.Doctor, kind clinic.NotificationKind) error {
	templateID, ok := kindTemplates[kind]
	if !ok {
		return fmt.Errorf("unsupported notification kind: %s", kind)
	}

	data := map[string]string{
		"patient_name":   appt.PatientName,
		"date":           appt.Date,
		"time":           appt.Time,
		"doctor":         doctor.Name,
		"reason":         appt.Reason,
		"clinic_name":    s.info.Name,
		"clinic_phone":   s.info.Phone,
		"clinic_address": s.info.Address,
	}

	subject, body, err := s.templates.Render(templateID, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", templateID, err)
	}

	msg := Message{
		From:    s.info.From,
		To:      appt.PatientEmail,
		Subject: subject,
		Text:    body,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s for appointment %d: %w", kind, appt.ID, err)
	}

	s.log.Info().
		Int("appointment_id", appt.ID).
		Str("kind", string(kind)).
		Str("recipient", appt.PatientEmail).
		Msg("notification sent")
	return nil
}

func (s *Service) ContactMessage(ctx context.Context, m clinic.ContactInput) error {
	subject, body, err := s.templates.Render("contact-message", map[string]string{
		"first_name":  m.FirstName,
		"last_name":   m.LastName,
		"email":       m.Email,
		"phone":       m.Phone,
		"subject":     m.Subject,
		"message":     m.Message,
		"clinic_name": s.info.Name,
	})
	if err != nil {
		return fmt.Errorf("render contact-message: %w", err)
	}

	msg := Message{
		From:    s.info.From,
		To:      s.info.ContactRecipient,
		Subject: subject,
		Text:    body,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send contact message from %s: %w", m.Email, err)
	}

	s.log.Info().Str("from", m.Email).Msg("contact message forwarded")
	return nil
}
