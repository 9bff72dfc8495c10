package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the Postgres Store implementation. Ids come from the tables'
// sequences, so they are unique and never reused.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const appointmentColumns = `id, patient_name, patient_email, patient_phone, doctor_id,
	appointment_date, appointment_time, reason_for_visit, notes, status, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientName,
		&a.PatientEmail,
		&a.PatientPhone,
		&a.DoctorID,
		&a.Date,
		&a.Time,
		&a.Reason,
		&a.Notes,
		&a.Status,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.Bio,
		&d.Education,
		&d.Experience,
		&d.Image,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanAvailability(row pgx.Row) (*Availability, error) {
	var av Availability
	err := row.Scan(
		&av.ID,
		&av.DoctorID,
		&av.Date,
		&av.TimeSlots,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}
	return &av, nil
}

func (s *PgStore) GetDoctor(ctx context.Context, id int) (*Doctor, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, specialty, bio, education, experience, image
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (s *PgStore) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, specialty, bio, education, experience, image
		FROM doctors
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *PgStore) CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO doctors (name, specialty, bio, education, experience, image)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, specialty, bio, education, experience, image
	`, d.Name, d.Specialty, d.Bio, d.Education, d.Experience, d.Image)
	return scanDoctor(row)
}

func (s *PgStore) GetAppointment(ctx context.Context, id int) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.listAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY id
	`)
}

func (s *PgStore) ListAppointmentsByDoctor(ctx context.Context, doctorID int) ([]Appointment, error) {
	return s.listAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY id
	`, doctorID)
}

func (s *PgStore) listAppointments(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// isSlotConflict reports whether err is a unique violation on the partial
// active-slot index. Under READ COMMITTED two concurrent transactions can both
// pass the NOT EXISTS guard; the index turns the loser's commit into 23505.
func isSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateAppointment inserts the booking and performs the slot-conflict check
// in the same statement, with the active-slot unique index backstopping
// concurrent inserts.
func (s *PgStore) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.Status == "" {
		a.Status = StatusConfirmed
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(patient_name, patient_email, patient_phone, doctor_id,
			 appointment_date, appointment_time, reason_for_visit, notes, status)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $4
			  AND appointment_date = $5
			  AND appointment_time = $6
			  AND status NOT IN ('cancelled', 'completed')
		)
		RETURNING `+appointmentColumns+`
	`, a.PatientName, a.PatientEmail, a.PatientPhone, a.DoctorID,
		a.Date, a.Time, a.Reason, a.Notes, a.Status)

	created, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		// The insert produced no row: the guard subquery found an occupant.
		return nil, ErrSlotTaken
	}
	if err != nil {
		if isSlotConflict(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return created, nil
}

func (s *PgStore) UpdateAppointment(ctx context.Context, id int, upd AppointmentUpdate) (*Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	current, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	merged := *current
	if upd.PatientName != nil {
		merged.PatientName = *upd.PatientName
	}
	if upd.PatientEmail != nil {
		merged.PatientEmail = *upd.PatientEmail
	}
	if upd.PatientPhone != nil {
		merged.PatientPhone = *upd.PatientPhone
	}
	if upd.DoctorID != nil {
		merged.DoctorID = *upd.DoctorID
	}
	if upd.Date != nil {
		merged.Date = *upd.Date
	}
	if upd.Time != nil {
		merged.Time = *upd.Time
	}
	if upd.Reason != nil {
		merged.Reason = *upd.Reason
	}
	if upd.Notes != nil {
		merged.Notes = upd.Notes
	}
	if upd.Status != nil {
		merged.Status = *upd.Status
	}

	movedSlot := merged.DoctorID != current.DoctorID ||
		merged.Date != current.Date || merged.Time != current.Time
	if movedSlot && statusBlocksSlot(merged.Status) {
		var occupied bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM appointments
				WHERE doctor_id = $1
				  AND appointment_date = $2
				  AND appointment_time = $3
				  AND status NOT IN ('cancelled', 'completed')
				  AND id <> $4
			)
		`, merged.DoctorID, merged.Date, merged.Time, id).Scan(&occupied)
		if err != nil {
			return nil, fmt.Errorf("check target slot: %w", err)
		}
		if occupied {
			return nil, ErrSlotTaken
		}
	}

	row = tx.QueryRow(ctx, `
		UPDATE appointments
		SET patient_name = $2,
		    patient_email = $3,
		    patient_phone = $4,
		    doctor_id = $5,
		    appointment_date = $6,
		    appointment_time = $7,
		    reason_for_visit = $8,
		    notes = $9,
		    status = $10
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, merged.PatientName, merged.PatientEmail, merged.PatientPhone,
		merged.DoctorID, merged.Date, merged.Time, merged.Reason, merged.Notes, merged.Status)

	updated, err := scanAppointment(row)
	if err != nil {
		if isSlotConflict(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isSlotConflict(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return updated, nil
}

func (s *PgStore) DeleteAppointment(ctx context.Context, id int) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	return err
}

func (s *PgStore) GetAvailability(ctx context.Context, doctorID int, date string) (*Availability, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, doctor_id, date, time_slots
		FROM availability
		WHERE doctor_id = $1 AND date = $2
	`, doctorID, date)
	return scanAvailability(row)
}

func (s *PgStore) ListAvailabilityByDoctor(ctx context.Context, doctorID int) ([]Availability, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, date, time_slots
		FROM availability
		WHERE doctor_id = $1
		ORDER BY date
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Availability
	for rows.Next() {
		av, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *av)
	}
	return out, rows.Err()
}

func (s *PgStore) CreateAvailability(ctx context.Context, av Availability) (*Availability, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO availability (doctor_id, date, time_slots)
		VALUES ($1, $2, $3)
		RETURNING id, doctor_id, date, time_slots
	`, av.DoctorID, av.Date, av.TimeSlots)
	return scanAvailability(row)
}

func (s *PgStore) GetStaffByUsername(ctx context.Context, username string) (*StaffUser, error) {
	var u StaffUser
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password
		FROM users
		WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PgStore) CreateStaff(ctx context.Context, u StaffUser) (*StaffUser, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password)
		VALUES ($1, $2)
		RETURNING id
	`, u.Username, u.PasswordHash).Scan(&u.ID)
	if err != nil {
		return nil, fmt.Errorf("create staff user: %w", err)
	}
	return &u, nil
}
