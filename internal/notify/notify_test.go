package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/elitedental/clinic-server/internal/clinic"
)

var testInfo = ClinicInfo{
	Name:             "Elite Dental Care",
	Phone:            "(555) 123-4567",
	Address:          "123 Dental Street",
	From:             "appointments@elitedentalcare.com",
	ContactRecipient: "info@elitedentalcare.com",
}

func testAppointment() (*clinic.Appointment, *clinic.Doctor) {
	return &clinic.Appointment{
			ID:           7,
			PatientName:  "Jordan Smith",
			PatientEmail: "jordan@example.com",
			DoctorID:     1,
			Date:         "2026-09-10",
			Time:         "10:00 AM",
			Reason:       "Cleaning",
			Status:       clinic.StatusConfirmed,
		}, &clinic.Doctor{
			ID:   1,
			Name: "Dr. Anas Alhamou",
		}
}

func TestNotifyConfirmation(t *testing.T) {
	mock := &MockMailer{}
	svc := NewService(mock, testInfo, zerolog.Nop())
	appt, doctor := testAppointment()

	if err := svc.Notify(context.Background(), appt, doctor, clinic.NotifyConfirmation); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("sends = %d, want 1", len(calls))
	}
	msg := calls[0]

	if msg.To != "jordan@example.com" {
		t.Errorf("to = %q", msg.To)
	}
	if msg.From != testInfo.From {
		t.Errorf("from = %q", msg.From)
	}
	if !strings.Contains(msg.Subject, "Elite Dental Care") {
		t.Errorf("subject = %q, clinic name missing", msg.Subject)
	}
	for _, want := range []string{"Jordan Smith", "2026-09-10", "10:00 AM", "Dr. Anas Alhamou", "(555) 123-4567"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(msg.Text, "{{") {
		t.Errorf("unrendered placeholder in body:\n%s", msg.Text)
	}
}

func TestNotifyKinds(t *testing.T) {
	appt, doctor := testAppointment()

	for _, kind := range []clinic.NotificationKind{
		clinic.NotifyConfirmation,
		clinic.NotifyReminder,
		clinic.NotifyCancellation,
		clinic.NotifyUpdate,
	} {
		mock := &MockMailer{}
		svc := NewService(mock, testInfo, zerolog.Nop())
		if err := svc.Notify(context.Background(), appt, doctor, kind); err != nil {
			t.Errorf("Notify(%s): %v", kind, err)
		}
		if len(mock.Calls()) != 1 {
			t.Errorf("Notify(%s): no send recorded", kind)
		}
	}
}

func TestNotifyUnknownKind(t *testing.T) {
	svc := NewService(&MockMailer{}, testInfo, zerolog.Nop())
	appt, doctor := testAppointment()

	if err := svc.Notify(context.Background(), appt, doctor, clinic.NotificationKind("carrier-pigeon")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestNotifyTransportFailure(t *testing.T) {
	mock := &MockMailer{ShouldFail: true, FailError: "provider down"}
	svc := NewService(mock, testInfo, zerolog.Nop())
	appt, doctor := testAppointment()

	err := svc.Notify(context.Background(), appt, doctor, clinic.NotifyConfirmation)
	if err == nil || !strings.Contains(err.Error(), "provider down") {
		t.Fatalf("err = %v, want transport failure", err)
	}
}

func TestContactMessage(t *testing.T) {
	mock := &MockMailer{}
	svc := NewService(mock, testInfo, zerolog.Nop())

	form := clinic.ContactInput{
		FirstName: "Sam",
		LastName:  "Lee",
		Email:     "sam@example.com",
		Phone:     "5559876543",
		Subject:   "Insurance question",
		Message:   "Do you accept my plan?",
	}
	if err := svc.ContactMessage(context.Background(), form); err != nil {
		t.Fatalf("ContactMessage: %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("sends = %d, want 1", len(calls))
	}
	msg := calls[0]

	if msg.To != testInfo.ContactRecipient {
		t.Errorf("to = %q, want the clinic inbox", msg.To)
	}
	if !strings.Contains(msg.Subject, "Insurance question") {
		t.Errorf("subject = %q", msg.Subject)
	}
	for _, want := range []string{"Sam Lee", "sam@example.com", "Do you accept my plan?"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestTemplateEngineRender(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{
		ID:      "custom",
		Subject: "Hi {{name}}",
		Body:    "{{greeting}}, {{name}}! {{missing}} stays.",
	})

	subject, body, err := e.Render("custom", map[string]string{
		"name":     "Jordan",
		"greeting": "Hello",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if subject != "Hi Jordan" {
		t.Errorf("subject = %q", subject)
	}
	if body != "Hello, Jordan! {{missing}} stays." {
		t.Errorf("body = %q", body)
	}

	if _, _, err := e.Render("nope", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}
