package notify

import (
	"fmt"
	"strings"
	"sync"
)

// Template is a reusable notification template. Placeholders use {{key}}.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine stores templates and renders them with a data map.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      "appointment-confirmation",
			Subject: "Appointment Confirmation - {{clinic_name}}",
			Body: "Dear {{patient_name}},\n\n" +
				"Your appointment has been successfully scheduled:\n\n" +
				"Date: {{date}}\n" +
				"Time: {{time}}\n" +
				"Doctor: {{doctor}}\n" +
				"Type: {{reason}}\n" +
				"Location: {{clinic_name}}, {{clinic_address}}\n\n" +
				"Please arrive 15 minutes early and bring your insurance card and valid ID. " +
				"You will receive a reminder 24 hours before your appointment.\n\n" +
				"If you need to reschedule or cancel, please call us at {{clinic_phone}}.\n\n" +
				"Thank you for choosing {{clinic_name}}!",
		},
		{
			ID:      "appointment-reminder",
			Subject: "Appointment Reminder - {{clinic_name}}",
			Body: "Dear {{patient_name}},\n\n" +
				"This is a friendly reminder about your upcoming appointment tomorrow:\n\n" +
				"Date: {{date}}\n" +
				"Time: {{time}}\n" +
				"Doctor: {{doctor}}\n" +
				"Type: {{reason}}\n\n" +
				"Please arrive 15 minutes early and bring your insurance card and valid ID.\n\n" +
				"If you need to reschedule or cancel, please call us at {{clinic_phone}}.\n\n" +
				"We look forward to seeing you!",
		},
		{
			ID:      "appointment-cancellation",
			Subject: "Appointment Cancelled - {{clinic_name}}",
			Body: "Dear {{patient_name}},\n\n" +
				"Your appointment on {{date}} at {{time}} with {{doctor}} has been cancelled.\n\n" +
				"If this was a mistake or you would like to book a new appointment, " +
				"please call us at {{clinic_phone}} or book online.\n\n" +
				"{{clinic_name}}",
		},
		{
			ID:      "appointment-update",
			Subject: "Appointment Updated - {{clinic_name}}",
			Body: "Dear {{patient_name}},\n\n" +
				"Your appointment details have changed. Here is the updated schedule:\n\n" +
				"Date: {{date}}\n" +
				"Time: {{time}}\n" +
				"Doctor: {{doctor}}\n" +
				"Type: {{reason}}\n\n" +
				"If you did not request this change or have questions, " +
				"please call us at {{clinic_phone}}.\n\n" +
				"{{clinic_name}}",
		},
		{
			ID:      "contact-message",
			Subject: "Website contact: {{subject}}",
			Body: "New message from the {{clinic_name}} website contact form.\n\n" +
				"Name: {{first_name}} {{last_name}}\n" +
				"Email: {{email}}\n" +
				"Phone: {{phone}}\n\n" +
				"{{message}}",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement with the
// supplied data. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}
