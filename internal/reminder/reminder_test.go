package reminder

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/elitedental/clinic-server/internal/clinic"
)

const testLayout = "2006-01-02 3:04 PM"

// apptAt builds a confirmed appointment starting at the given instant.
func apptAt(id int, start time.Time) *clinic.Appointment {
	return &clinic.Appointment{
		ID:           id,
		PatientName:  "Jordan Smith",
		PatientEmail: "jordan@example.com",
		DoctorID:     1,
		Date:         start.Format("2006-01-02"),
		Time:         start.Format("3:04 PM"),
		Status:       clinic.StatusConfirmed,
	}
}

func TestScheduleFires(t *testing.T) {
	fired := make(chan int, 1)
	engine := NewEngine(time.Hour, func(_ context.Context, appt *clinic.Appointment) error {
		fired <- appt.ID
		return nil
	}, zerolog.Nop())
	defer engine.Stop()

	// Start one hour and a few ms out, so the reminder is due almost
	// immediately. The display time only carries minute precision, so pin
	// "now" to the parsed value.
	start := time.Now().Add(time.Hour).Truncate(time.Minute)
	parsed, err := time.ParseInLocation(testLayout, start.Format(testLayout), time.Local)
	if err != nil {
		t.Fatal(err)
	}
	engine.now = func() time.Time { return parsed.Add(-time.Hour - 30*time.Millisecond) }

	engine.Schedule(apptAt(1, start))
	if !engine.Armed(1) {
		t.Fatal("timer not armed")
	}

	select {
	case id := <-fired:
		if id != 1 {
			t.Errorf("fired for id %d, want 1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reminder did not fire")
	}

	if engine.Armed(1) {
		t.Error("timer still armed after firing")
	}
}

func TestSchedulePastInstantNotArmed(t *testing.T) {
	engine := NewEngine(24*time.Hour, func(context.Context, *clinic.Appointment) error {
		t.Error("notify should not run")
		return nil
	}, zerolog.Nop())
	defer engine.Stop()

	// Appointment is one hour out, but the 24h-before instant is long past.
	engine.Schedule(apptAt(1, time.Now().Add(time.Hour)))
	if engine.Armed(1) {
		t.Error("past reminder instant was armed")
	}
}

func TestScheduleReplacesExistingTimer(t *testing.T) {
	var fires int32
	engine := NewEngine(time.Hour, func(context.Context, *clinic.Appointment) error {
		atomic.AddInt32(&fires, 1)
		return nil
	}, zerolog.Nop())
	defer engine.Stop()

	start := time.Now().Add(48 * time.Hour)
	engine.Schedule(apptAt(1, start))
	engine.Schedule(apptAt(1, start))

	engine.mu.Lock()
	timers := len(engine.timers)
	engine.mu.Unlock()
	if timers != 1 {
		t.Errorf("timers = %d, want 1", timers)
	}
}

func TestScheduleNonConfirmedCancels(t *testing.T) {
	engine := NewEngine(time.Hour, func(context.Context, *clinic.Appointment) error {
		return nil
	}, zerolog.Nop())
	defer engine.Stop()

	appt := apptAt(1, time.Now().Add(48*time.Hour))
	engine.Schedule(appt)
	if !engine.Armed(1) {
		t.Fatal("timer not armed")
	}

	appt.Status = clinic.StatusCancelled
	engine.Schedule(appt)
	if engine.Armed(1) {
		t.Error("cancelled appointment kept its timer")
	}
}

func TestCancelIdempotent(t *testing.T) {
	engine := NewEngine(time.Hour, func(context.Context, *clinic.Appointment) error {
		return nil
	}, zerolog.Nop())
	defer engine.Stop()

	engine.Schedule(apptAt(1, time.Now().Add(48*time.Hour)))
	engine.Cancel(1)
	if engine.Armed(1) {
		t.Error("timer still armed after cancel")
	}
	engine.Cancel(1) // no-op
	engine.Cancel(99)
}

func TestRearm(t *testing.T) {
	engine := NewEngine(time.Hour, func(context.Context, *clinic.Appointment) error {
		return nil
	}, zerolog.Nop())
	defer engine.Stop()

	appt := apptAt(1, time.Now().Add(48*time.Hour))
	engine.Schedule(appt)

	moved := apptAt(1, time.Now().Add(72*time.Hour))
	engine.Rearm(moved)
	if !engine.Armed(1) {
		t.Error("timer not armed after rearm")
	}

	moved.Status = clinic.StatusCompleted
	engine.Rearm(moved)
	if engine.Armed(1) {
		t.Error("completed appointment kept its timer after rearm")
	}
}

type listerFunc func(ctx context.Context) ([]clinic.Appointment, error)

func (f listerFunc) ListAppointments(ctx context.Context) ([]clinic.Appointment, error) {
	return f(ctx)
}

func TestScheduleAllPending(t *testing.T) {
	engine := NewEngine(time.Hour, func(context.Context, *clinic.Appointment) error {
		return nil
	}, zerolog.Nop())
	defer engine.Stop()

	future := *apptAt(1, time.Now().Add(48*time.Hour))
	past := *apptAt(2, time.Now().Add(-48*time.Hour))
	cancelled := *apptAt(3, time.Now().Add(48*time.Hour))
	cancelled.Status = clinic.StatusCancelled

	store := listerFunc(func(context.Context) ([]clinic.Appointment, error) {
		return []clinic.Appointment{future, past, cancelled}, nil
	})

	if err := engine.ScheduleAllPending(context.Background(), store); err != nil {
		t.Fatalf("ScheduleAllPending: %v", err)
	}

	if !engine.Armed(1) {
		t.Error("future confirmed appointment not armed")
	}
	if engine.Armed(2) {
		t.Error("past appointment armed")
	}
	if engine.Armed(3) {
		t.Error("cancelled appointment armed")
	}
}

func TestStop(t *testing.T) {
	engine := NewEngine(time.Hour, func(context.Context, *clinic.Appointment) error {
		return nil
	}, zerolog.Nop())

	engine.Schedule(apptAt(1, time.Now().Add(48*time.Hour)))
	engine.Schedule(apptAt(2, time.Now().Add(72*time.Hour)))
	engine.Stop()

	if engine.Armed(1) || engine.Armed(2) {
		t.Error("timers survived Stop")
	}
}
