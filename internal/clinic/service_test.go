package clinic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/elitedental/clinic-server/internal/lock"
)

type sentNotice struct {
	apptID int
	kind   NotificationKind
}

type fakeNotifier struct {
	mu       sync.Mutex
	notices  []sentNotice
	contacts []ContactInput
	fail     error
}

func (f *fakeNotifier) Notify(_ context.Context, appt *Appointment, _ *Doctor, kind NotificationKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, sentNotice{apptID: appt.ID, kind: kind})
	return f.fail
}

func (f *fakeNotifier) ContactMessage(_ context.Context, form ContactInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = append(f.contacts, form)
	return f.fail
}

func (f *fakeNotifier) sent() []sentNotice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentNotice(nil), f.notices...)
}

type fakeReminders struct {
	mu        sync.Mutex
	scheduled []int
	cancelled []int
	rearmed   []int
}

func (f *fakeReminders) Schedule(appt *Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, appt.ID)
}

func (f *fakeReminders) Cancel(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
}

func (f *fakeReminders) Rearm(appt *Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rearmed = append(f.rearmed, appt.ID)
}

func newTestService(t *testing.T) (*Service, *MemStore, *fakeNotifier, *fakeReminders) {
	t.Helper()
	store := NewSeededMemStore(14)
	notifier := &fakeNotifier{}
	reminders := &fakeReminders{}
	svc := NewService(store, lock.NewLocal(), notifier, reminders, zerolog.Nop())
	return svc, store, notifier, reminders
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(DateLayout)
}

func validBooking(date string) BookingInput {
	return BookingInput{
		PatientName:  "Jordan Smith",
		PatientEmail: "jordan@example.com",
		PatientPhone: "5551234567",
		DoctorID:     1,
		Date:         date,
		Time:         "10:00 AM",
		Reason:       "Cleaning",
	}
}

func TestBook(t *testing.T) {
	svc, _, notifier, reminders := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, validBooking(futureDate(3)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appt.Status != StatusConfirmed {
		t.Errorf("status = %q, want %q", appt.Status, StatusConfirmed)
	}

	sent := notifier.sent()
	if len(sent) != 1 || sent[0].kind != NotifyConfirmation {
		t.Errorf("notifications = %+v, want one confirmation", sent)
	}
	if len(reminders.scheduled) != 1 || reminders.scheduled[0] != appt.ID {
		t.Errorf("scheduled = %v, want [%d]", reminders.scheduled, appt.ID)
	}
}

func TestBookValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*BookingInput)
	}{
		{"bad email", func(in *BookingInput) { in.PatientEmail = "not-an-email" }},
		{"short name", func(in *BookingInput) { in.PatientName = "J" }},
		{"short phone", func(in *BookingInput) { in.PatientPhone = "123" }},
		{"bad date", func(in *BookingInput) { in.Date = "10-09-2026" }},
		{"missing reason", func(in *BookingInput) { in.Reason = "" }},
		{"bad time", func(in *BookingInput) { in.Time = "sometime" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validBooking(futureDate(3))
			tc.mutate(&in)
			if _, err := svc.Book(ctx, in); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestBookUnknownDoctor(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	in := validBooking(futureDate(3))
	in.DoctorID = 42
	if _, err := svc.Book(context.Background(), in); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("err = %v, want ErrDoctorNotFound", err)
	}
}

func TestBookSlotTakenTwice(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Book(ctx, validBooking(futureDate(3))); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := svc.Book(ctx, validBooking(futureDate(3))); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("second booking err = %v, want ErrSlotTaken", err)
	}

	// No notification goes out for the failed attempt.
	if got := len(notifier.sent()); got != 1 {
		t.Errorf("notifications = %d, want 1", got)
	}
}

func TestCancel(t *testing.T) {
	svc, _, notifier, reminders := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, validBooking(futureDate(3)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, appt.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %q, want %q", cancelled.Status, StatusCancelled)
	}
	if len(reminders.cancelled) != 1 || reminders.cancelled[0] != appt.ID {
		t.Errorf("cancelled reminders = %v", reminders.cancelled)
	}

	sent := notifier.sent()
	if len(sent) != 2 || sent[1].kind != NotifyCancellation {
		t.Errorf("notifications = %+v, want confirmation then cancellation", sent)
	}

	if _, err := svc.Cancel(ctx, 999); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("unknown id err = %v, want ErrAppointmentNotFound", err)
	}
}

func TestUpdateReschedule(t *testing.T) {
	svc, _, notifier, reminders := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, validBooking(futureDate(3)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	newTime := "2:00 PM"
	updated, err := svc.Update(ctx, appt.ID, AppointmentUpdate{Time: &newTime})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Time != newTime {
		t.Errorf("time = %q, want %q", updated.Time, newTime)
	}
	if len(reminders.rearmed) != 1 {
		t.Errorf("rearmed = %v, want one entry", reminders.rearmed)
	}

	sent := notifier.sent()
	if len(sent) != 2 || sent[1].kind != NotifyUpdate {
		t.Errorf("notifications = %+v, want confirmation then update", sent)
	}
}

func TestUpdateNonMoveDoesNotNotify(t *testing.T) {
	svc, _, notifier, reminders := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, validBooking(futureDate(3)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	name := "Jordan B. Smith"
	if _, err := svc.Update(ctx, appt.ID, AppointmentUpdate{PatientName: &name}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := len(notifier.sent()); got != 1 {
		t.Errorf("notifications = %d, want only the confirmation", got)
	}
	if len(reminders.rearmed) != 0 {
		t.Errorf("rearmed = %v, want none", reminders.rearmed)
	}
}

func TestUpdateValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, validBooking(futureDate(3)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	badEmail := "nope"
	if _, err := svc.Update(ctx, appt.ID, AppointmentUpdate{PatientEmail: &badEmail}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad email err = %v, want ErrInvalidInput", err)
	}
	badDate := "tomorrow"
	if _, err := svc.Update(ctx, appt.ID, AppointmentUpdate{Date: &badDate}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad date err = %v, want ErrInvalidInput", err)
	}

	// A rescheduled time must still resolve to an instant; otherwise the
	// stored record would be invisible to reminders and the sweep.
	badTime := "sometime after lunch"
	if _, err := svc.Update(ctx, appt.ID, AppointmentUpdate{Time: &badTime}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad time err = %v, want ErrInvalidInput", err)
	}
	got, _ := svc.GetAppointment(ctx, appt.ID)
	if got.Time != "10:00 AM" {
		t.Errorf("time after rejected update = %q, want 10:00 AM", got.Time)
	}

	// Moving to a doctor that does not exist is rejected.
	unknownDoctor := 42
	if _, err := svc.Update(ctx, appt.ID, AppointmentUpdate{DoctorID: &unknownDoctor}); !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("unknown doctor err = %v, want ErrDoctorNotFound", err)
	}
}

func TestComplete(t *testing.T) {
	svc, _, _, reminders := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, validBooking(futureDate(3)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	done, err := svc.Complete(ctx, appt.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("status = %q, want %q", done.Status, StatusCompleted)
	}
	if len(reminders.cancelled) != 1 {
		t.Errorf("cancelled reminders = %v", reminders.cancelled)
	}
}

func TestDelete(t *testing.T) {
	svc, store, _, reminders := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, validBooking(futureDate(3)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if err := svc.Delete(ctx, appt.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetAppointment(ctx, appt.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("after delete err = %v", err)
	}
	if len(reminders.cancelled) != 1 {
		t.Errorf("cancelled reminders = %v", reminders.cancelled)
	}

	// Unknown ids are a no-op.
	if err := svc.Delete(ctx, 999); err != nil {
		t.Errorf("delete unknown: %v", err)
	}
}

func TestCompletePastAppointments(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	past, err := store.CreateAppointment(ctx, Appointment{
		PatientName:  "Jordan Smith",
		PatientEmail: "jordan@example.com",
		PatientPhone: "5551234567",
		DoctorID:     1,
		Date:         time.Now().AddDate(0, 0, -1).Format(DateLayout),
		Time:         "9:00 AM",
		Reason:       "Checkup",
	})
	if err != nil {
		t.Fatalf("create past: %v", err)
	}
	future, err := svc.Book(ctx, validBooking(futureDate(3)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if err := svc.CompletePastAppointments(ctx); err != nil {
		t.Fatalf("CompletePastAppointments: %v", err)
	}

	got, _ := store.GetAppointment(ctx, past.ID)
	if got.Status != StatusCompleted {
		t.Errorf("past status = %q, want %q", got.Status, StatusCompleted)
	}
	got, _ = store.GetAppointment(ctx, future.ID)
	if got.Status != StatusConfirmed {
		t.Errorf("future status = %q, want %q", got.Status, StatusConfirmed)
	}
}

func TestContact(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()

	form := ContactInput{
		FirstName: "Sam",
		LastName:  "Lee",
		Email:     "sam@example.com",
		Subject:   "Insurance question",
		Message:   "Do you accept my plan?",
	}
	if err := svc.Contact(ctx, form); err != nil {
		t.Fatalf("Contact: %v", err)
	}
	if len(notifier.contacts) != 1 {
		t.Fatalf("contacts forwarded = %d, want 1", len(notifier.contacts))
	}

	// Delivery failure is logged, not surfaced.
	notifier.fail = errors.New("provider down")
	if err := svc.Contact(ctx, form); err != nil {
		t.Errorf("Contact with failing delivery: %v", err)
	}

	// Validation failure is surfaced.
	form.Email = "nope"
	if err := svc.Contact(ctx, form); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("invalid form err = %v, want ErrInvalidInput", err)
	}
}
