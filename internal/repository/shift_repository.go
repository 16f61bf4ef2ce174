package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/brigada-mx/backend-sub000/internal/database"
	"github.com/brigada-mx/backend-sub000/internal/models"
)

const shiftColumns = `id, reservation_id, nurse_id, schedule_id, day, month, status, checkin, checkout`

// ShiftRepository covers shifts, their incidents and care log entries, and
// the recurring schedules the expander materializes shifts from.
type ShiftRepository struct {
	db *sqlx.DB
}

func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

func (r *ShiftRepository) GetShift(ctx context.Context, id int64) (*models.Shift, error) {
	var shift models.Shift
	query := fmt.Sprintf(`SELECT %s FROM shifts WHERE id = $1`, shiftColumns)
	err := r.db.GetContext(ctx, &shift, query, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting shift: %w", err)
	}
	return &shift, nil
}

// ListShifts returns the role-scoped shift list, optionally narrowed to one
// month (YYYY-MM). Nurses see their own shifts plus unassigned ones they can
// claim; clients see their reservation's shifts; staff sees all. Any other
// role is refused.
func (r *ShiftRepository) ListShifts(ctx context.Context, identity *models.Identity, month string) ([]models.Shift, error) {
	query := fmt.Sprintf(`SELECT %s FROM shifts`, shiftColumns)
	conds := []string{}
	args := []interface{}{}

	switch identity.Role {
	case models.RoleStaff, models.RoleInternal:
	case models.RoleNurse:
		args = append(args, identity.UserID)
		conds = append(conds, fmt.Sprintf("(nurse_id = $%d OR nurse_id IS NULL)", len(args)))
	case models.RoleClient:
		args = append(args, identity.ReservationID)
		conds = append(conds, fmt.Sprintf("reservation_id = $%d", len(args)))
	default:
		return nil, models.ErrPermissionDenied
	}
	if month != "" {
		args = append(args, month)
		conds = append(conds, fmt.Sprintf("month = $%d", len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY day, id"

	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, args...); err != nil {
		return nil, fmt.Errorf("error listing shifts: %w", err)
	}
	return shifts, nil
}

func (r *ShiftRepository) UpdateShiftStatus(ctx context.Context, id int64, status models.ShiftStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE shifts SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("error updating shift status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClaimShift assigns the nurse to a shift only if no nurse holds it yet. The
// conditional update makes concurrent claims safe: exactly one wins, the rest
// get ErrShiftAlreadyTaken.
func (r *ShiftRepository) ClaimShift(ctx context.Context, shiftID, nurseID int64) (*models.Shift, error) {
	var shift models.Shift
	query := fmt.Sprintf(`
		UPDATE shifts SET nurse_id = $1
		WHERE id = $2 AND nurse_id IS NULL
		RETURNING %s`, shiftColumns)
	err := r.db.GetContext(ctx, &shift, query, nurseID, shiftID)
	if err == sql.ErrNoRows {
		if _, getErr := r.GetShift(ctx, shiftID); getErr != nil {
			return nil, getErr
		}
		return nil, models.ErrShiftAlreadyTaken
	}
	if err != nil {
		return nil, fmt.Errorf("error claiming shift: %w", err)
	}
	return &shift, nil
}

// SetCheckin stamps the checkin only if none exists. The conditional update
// makes concurrent stamps safe the same way ClaimShift is: exactly one wins,
// the first timestamp is never overwritten.
func (r *ShiftRepository) SetCheckin(ctx context.Context, shiftID int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shifts SET checkin = $1 WHERE id = $2 AND checkin IS NULL`, at, shiftID)
	if err != nil {
		return fmt.Errorf("error setting checkin: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.GetShift(ctx, shiftID); getErr != nil {
			return getErr
		}
		return models.ErrAlreadyCheckedIn
	}
	return nil
}

// SetCheckout stamps the checkout once, and only after a checkin exists.
func (r *ShiftRepository) SetCheckout(ctx context.Context, shiftID int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shifts SET checkout = $1 WHERE id = $2 AND checkin IS NOT NULL AND checkout IS NULL`,
		at, shiftID)
	if err != nil {
		return fmt.Errorf("error setting checkout: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		shift, getErr := r.GetShift(ctx, shiftID)
		if getErr != nil {
			return getErr
		}
		if shift.Checkin == nil {
			return models.ErrShiftNotCheckedIn
		}
		return models.ErrAlreadyCheckedOut
	}
	return nil
}

const incidentColumns = `i.id, i.shift_id, i.category, i.description,
		s.nurse_id AS shift_nurse_id, s.reservation_id AS shift_reservation_id`

// GetIncident joins the owning shift so the caller has the nurse and
// reservation for permission checks without a second query.
func (r *ShiftRepository) GetIncident(ctx context.Context, id int64) (*models.ShiftIncident, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM shift_incidents i
		JOIN shifts s ON s.id = i.shift_id
		WHERE i.id = $1`, incidentColumns)

	var incident models.ShiftIncident
	err := r.db.GetContext(ctx, &incident, query, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting incident: %w", err)
	}
	return &incident, nil
}

func (r *ShiftRepository) CreateIncident(ctx context.Context, incident *models.ShiftIncident) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO shift_incidents (shift_id, category, description)
		VALUES ($1, $2, $3)
		RETURNING id`,
		incident.ShiftID, incident.Category, incident.Description,
	).Scan(&incident.ID)
	if err != nil {
		return fmt.Errorf("error creating incident: %w", err)
	}
	return nil
}

// ListIncidents scopes by shift ownership: a nurse sees incidents on its own
// shifts, a client sees incidents on its reservation's shifts, staff sees all.
// Any other role is refused.
func (r *ShiftRepository) ListIncidents(ctx context.Context, identity *models.Identity) ([]models.ShiftIncident, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM shift_incidents i
		JOIN shifts s ON s.id = i.shift_id`, incidentColumns)
	args := []interface{}{}

	switch identity.Role {
	case models.RoleStaff, models.RoleInternal:
	case models.RoleNurse:
		query += ` WHERE s.nurse_id = $1`
		args = append(args, identity.UserID)
	case models.RoleClient:
		query += ` WHERE s.reservation_id = $1`
		args = append(args, identity.ReservationID)
	default:
		return nil, models.ErrPermissionDenied
	}
	query += ` ORDER BY i.id`

	var incidents []models.ShiftIncident
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, fmt.Errorf("error listing incidents: %w", err)
	}
	return incidents, nil
}

const careLogColumns = `e.id, e.shift_id, e.task, e.status, e.observations, e.created_by_nurse,
		s.nurse_id AS shift_nurse_id, s.reservation_id AS shift_reservation_id`

func (r *ShiftRepository) GetCareLogEntry(ctx context.Context, id int64) (*models.CareLogEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM care_log_entries e
		JOIN shifts s ON s.id = e.shift_id
		WHERE e.id = $1`, careLogColumns)

	var entry models.CareLogEntry
	err := r.db.GetContext(ctx, &entry, query, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting care log entry: %w", err)
	}
	return &entry, nil
}

func (r *ShiftRepository) CreateCareLogEntry(ctx context.Context, entry *models.CareLogEntry) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO care_log_entries (shift_id, task, status, observations, created_by_nurse)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		entry.ShiftID, entry.Task, entry.Status, entry.Observations, entry.CreatedByNurse,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("error creating care log entry: %w", err)
	}
	return nil
}

func (r *ShiftRepository) UpdateCareLogEntry(ctx context.Context, entry *models.CareLogEntry) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE care_log_entries SET status = $1, observations = $2 WHERE id = $3`,
		entry.Status, entry.Observations, entry.ID)
	if err != nil {
		return fmt.Errorf("error updating care log entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *ShiftRepository) ListCareLogEntries(ctx context.Context, identity *models.Identity, shiftID int64) ([]models.CareLogEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM care_log_entries e
		JOIN shifts s ON s.id = e.shift_id
		WHERE e.shift_id = $1`, careLogColumns)
	args := []interface{}{shiftID}

	switch identity.Role {
	case models.RoleStaff, models.RoleInternal:
	case models.RoleNurse:
		args = append(args, identity.UserID)
		query += fmt.Sprintf(" AND s.nurse_id = $%d", len(args))
	case models.RoleClient:
		args = append(args, identity.ReservationID)
		query += fmt.Sprintf(" AND s.reservation_id = $%d", len(args))
	default:
		return nil, models.ErrPermissionDenied
	}
	query += " ORDER BY e.id"

	var entries []models.CareLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("error listing care log entries: %w", err)
	}
	return entries, nil
}

func (r *ShiftRepository) GetSchedule(ctx context.Context, id int64) (*models.ShiftSchedule, error) {
	var schedule models.ShiftSchedule
	err := r.db.GetContext(ctx, &schedule,
		`SELECT id, reservation_id, rrule, start_date, active FROM shift_schedules WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting schedule: %w", err)
	}
	return &schedule, nil
}

// ListActiveSchedules feeds the expander.
func (r *ShiftRepository) ListActiveSchedules(ctx context.Context) ([]models.ShiftSchedule, error) {
	var schedules []models.ShiftSchedule
	err := r.db.SelectContext(ctx, &schedules,
		`SELECT id, reservation_id, rrule, start_date, active FROM shift_schedules WHERE active = true ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing active schedules: %w", err)
	}
	return schedules, nil
}

func (r *ShiftRepository) ScheduleDays(ctx context.Context, scheduleID int64) ([]models.ShiftScheduleDay, error) {
	var days []models.ShiftScheduleDay
	err := r.db.SelectContext(ctx, &days,
		`SELECT id, schedule_id, weekday, nurse_id FROM shift_schedule_days WHERE schedule_id = $1 ORDER BY weekday`,
		scheduleID)
	if err != nil {
		return nil, fmt.Errorf("error listing schedule days: %w", err)
	}
	return days, nil
}

// ReplaceScheduleDays swaps the full weekday assignment set in one
// transaction. Partial day sets never become visible.
func (r *ShiftRepository) ReplaceScheduleDays(ctx context.Context, scheduleID int64, days []models.ShiftScheduleDay) error {
	return database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM shift_schedule_days WHERE schedule_id = $1`, scheduleID); err != nil {
			return fmt.Errorf("error clearing schedule days: %w", err)
		}
		for i := range days {
			days[i].ScheduleID = scheduleID
			err := tx.QueryRowContext(ctx, `
				INSERT INTO shift_schedule_days (schedule_id, weekday, nurse_id)
				VALUES ($1, $2, $3)
				RETURNING id`,
				scheduleID, days[i].Weekday, days[i].NurseID,
			).Scan(&days[i].ID)
			if err != nil {
				return fmt.Errorf("error inserting schedule day: %w", err)
			}
		}
		return nil
	})
}

// CreateShiftForSchedule inserts one expanded occurrence. The unique
// constraint on (schedule_id, day) makes re-expansion idempotent.
func (r *ShiftRepository) CreateShiftForSchedule(ctx context.Context, shift *models.Shift) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO shifts (reservation_id, nurse_id, schedule_id, day, month, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (schedule_id, day) DO NOTHING
		RETURNING %s`, shiftColumns)

	err := r.db.GetContext(ctx, shift, query,
		shift.ReservationID, shift.NurseID, shift.ScheduleID, shift.Day, shift.Month, shift.Status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error creating shift: %w", err)
	}
	return true, nil
}
