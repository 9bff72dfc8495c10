// Package reminder arms one-shot timers that fire a reminder notification a
// configurable lead time before each confirmed appointment. Timers are
// in-process only; ScheduleAllPending replays them after a restart.
package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/elitedental/clinic-server/internal/clinic"
)

// NotifyFunc dispatches the reminder notification for one appointment.
type NotifyFunc func(ctx context.Context, appt *clinic.Appointment) error

// Lister is the slice of the store the engine needs at startup.
type Lister interface {
	ListAppointments(ctx context.Context) ([]clinic.Appointment, error)
}

type Engine struct {
	mu     sync.Mutex
	timers map[int]*time.Timer

	lead   time.Duration
	notify NotifyFunc
	loc    *time.Location
	log    zerolog.Logger
	now    func() time.Time
}

func NewEngine(lead time.Duration, notify NotifyFunc, log zerolog.Logger) *Engine {
	return &Engine{
		timers: make(map[int]*time.Timer),
		lead:   lead,
		notify: notify,
		loc:    time.Local,
		log:    log.With().Str("component", "reminder").Logger(),
		now:    time.Now,
	}
}

// Schedule arms the reminder timer for a confirmed appointment. Scheduling an
// id that already has a timer replaces it, so at most one timer per
// appointment exists. Appointments whose reminder instant has already passed
// are skipped, not retried.
func (e *Engine) Schedule(appt *clinic.Appointment) {
	if appt.Status != clinic.StatusConfirmed {
		e.Cancel(appt.ID)
		return
	}

	start, err := appt.StartTime(e.loc)
	if err != nil {
		e.log.Error().Err(err).Int("appointment_id", appt.ID).Msg("unparseable appointment time, reminder not armed")
		return
	}

	at := start.Add(-e.lead)
	delay := at.Sub(e.now())
	if delay <= 0 {
		e.log.Info().
			Int("appointment_id", appt.ID).
			Time("reminder_at", at).
			Msg("reminder instant already passed, not arming")
		return
	}

	a := *appt

	e.mu.Lock()
	if old, ok := e.timers[a.ID]; ok {
		old.Stop()
	}
	e.timers[a.ID] = time.AfterFunc(delay, func() { e.fire(&a) })
	e.mu.Unlock()

	e.log.Info().
		Int("appointment_id", a.ID).
		Time("reminder_at", at).
		Msg("reminder armed")
}

func (e *Engine) fire(appt *clinic.Appointment) {
	e.mu.Lock()
	delete(e.timers, appt.ID)
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Best effort: a failed send is logged, never retried.
	if err := e.notify(ctx, appt); err != nil {
		e.log.Error().Err(err).Int("appointment_id", appt.ID).Msg("reminder notification failed")
		return
	}
	e.log.Info().Int("appointment_id", appt.ID).Msg("reminder sent")
}

// Cancel stops and forgets the timer for an appointment. Cancelling an id
// with no armed timer is a no-op.
func (e *Engine) Cancel(appointmentID int) {
	e.mu.Lock()
	t, ok := e.timers[appointmentID]
	if ok {
		t.Stop()
		delete(e.timers, appointmentID)
	}
	e.mu.Unlock()

	if ok {
		e.log.Info().Int("appointment_id", appointmentID).Msg("reminder cancelled")
	}
}

// Rearm replaces whatever timer exists with one for the appointment's current
// date, time and status.
func (e *Engine) Rearm(appt *clinic.Appointment) {
	e.Cancel(appt.ID)
	e.Schedule(appt)
}

// Armed reports whether a timer is currently armed for the appointment.
func (e *Engine) Armed(appointmentID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.timers[appointmentID]
	return ok
}

// ScheduleAllPending arms reminders for every stored confirmed appointment
// whose start is still in the future. This is the sole recovery path for
// timers lost on restart.
func (e *Engine) ScheduleAllPending(ctx context.Context, store Lister) error {
	appointments, err := store.ListAppointments(ctx)
	if err != nil {
		return err
	}

	armed := 0
	for i := range appointments {
		appt := &appointments[i]
		if appt.Status != clinic.StatusConfirmed {
			continue
		}
		start, err := appt.StartTime(e.loc)
		if err != nil || !start.After(e.now()) {
			continue
		}
		e.Schedule(appt)
		armed++
	}

	e.log.Info().Int("armed", armed).Int("total", len(appointments)).Msg("startup reminder scan complete")
	return nil
}

// Stop cancels every armed timer; used on shutdown.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
}
