package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brigada-mx/backend-sub000/internal/models"
	"github.com/brigada-mx/backend-sub000/internal/testutils"
)

func createTestReservation(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(`INSERT INTO reservations (status) VALUES (1) RETURNING id`).Scan(&id)
	require.NoError(t, err)
	return id
}

func createTestShift(t *testing.T, db *sqlx.DB, reservationID int64, nurseID *int64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(`
		INSERT INTO shifts (reservation_id, nurse_id, day, month, status)
		VALUES ($1, $2, '2026-08-03', '2026-08', 'scheduled') RETURNING id`,
		reservationID, nurseID).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestClaimShift(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewShiftRepository(db)
	ctx := context.Background()

	reservationID := createTestReservation(t, db)
	nurseA := createTestNurse(t, db, "a@example.com")
	nurseB := createTestNurse(t, db, "b@example.com")
	shiftID := createTestShift(t, db, reservationID, nil)

	shift, err := repo.ClaimShift(ctx, shiftID, nurseA)
	require.NoError(t, err)
	require.NotNil(t, shift.NurseID)
	assert.Equal(t, nurseA, *shift.NurseID)

	// The loser of the race gets the taken error and the holder is unchanged.
	_, err = repo.ClaimShift(ctx, shiftID, nurseB)
	assert.ErrorIs(t, err, models.ErrShiftAlreadyTaken)

	shift, err = repo.GetShift(ctx, shiftID)
	require.NoError(t, err)
	assert.Equal(t, nurseA, *shift.NurseID)
}

func TestClaimMissingShift(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewShiftRepository(db)

	nurseID := createTestNurse(t, db, "a@example.com")
	_, err := repo.ClaimShift(context.Background(), 999999, nurseID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestIncidentCarriesShiftOwnership(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewShiftRepository(db)
	ctx := context.Background()

	reservationID := createTestReservation(t, db)
	nurseID := createTestNurse(t, db, "a@example.com")
	shiftID := createTestShift(t, db, reservationID, &nurseID)

	incident := &models.ShiftIncident{ShiftID: shiftID, Category: 2, Description: "late arrival"}
	require.NoError(t, repo.CreateIncident(ctx, incident))

	got, err := repo.GetIncident(ctx, incident.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ShiftNurseID)
	assert.Equal(t, nurseID, *got.ShiftNurseID)
	assert.Equal(t, reservationID, got.ShiftReservationID)
}

func TestReplaceScheduleDays(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewShiftRepository(db)
	ctx := context.Background()

	reservationID := createTestReservation(t, db)
	nurseID := createTestNurse(t, db, "a@example.com")

	var scheduleID int64
	err := db.QueryRow(`
		INSERT INTO shift_schedules (reservation_id, rrule, start_date, active)
		VALUES ($1, 'FREQ=WEEKLY;BYDAY=MO', '2026-08-03', true) RETURNING id`,
		reservationID).Scan(&scheduleID)
	require.NoError(t, err)

	require.NoError(t, repo.ReplaceScheduleDays(ctx, scheduleID, []models.ShiftScheduleDay{
		{Weekday: 0, NurseID: &nurseID},
		{Weekday: 3},
	}))

	days, err := repo.ScheduleDays(ctx, scheduleID)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, 0, days[0].Weekday)
	require.NotNil(t, days[0].NurseID)
	assert.Nil(t, days[1].NurseID)

	// Replacement swaps the whole set.
	require.NoError(t, repo.ReplaceScheduleDays(ctx, scheduleID, []models.ShiftScheduleDay{
		{Weekday: 5},
	}))
	days, err = repo.ScheduleDays(ctx, scheduleID)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 5, days[0].Weekday)
}

func TestCreateShiftForScheduleIsIdempotent(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewShiftRepository(db)
	ctx := context.Background()

	reservationID := createTestReservation(t, db)
	var scheduleID int64
	err := db.QueryRow(`
		INSERT INTO shift_schedules (reservation_id, rrule, start_date, active)
		VALUES ($1, 'FREQ=DAILY', '2026-08-03', true) RETURNING id`,
		reservationID).Scan(&scheduleID)
	require.NoError(t, err)

	day := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	shift := &models.Shift{
		ReservationID: reservationID,
		ScheduleID:    &scheduleID,
		Day:           day,
		Month:         "2026-08",
		Status:        models.ShiftScheduled,
	}
	created, err := repo.CreateShiftForSchedule(ctx, shift)
	require.NoError(t, err)
	assert.True(t, created)

	duplicate := &models.Shift{
		ReservationID: reservationID,
		ScheduleID:    &scheduleID,
		Day:           day,
		Month:         "2026-08",
		Status:        models.ShiftScheduled,
	}
	created, err = repo.CreateShiftForSchedule(ctx, duplicate)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestListShiftsScoping(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewShiftRepository(db)
	ctx := context.Background()

	reservationA := createTestReservation(t, db)
	reservationB := createTestReservation(t, db)
	nurseID := createTestNurse(t, db, "a@example.com")

	mine := createTestShift(t, db, reservationA, &nurseID)
	open := createTestShift(t, db, reservationB, nil)

	// A nurse sees its own shifts plus claimable ones.
	nurse := &models.Identity{Role: models.RoleNurse, UserID: nurseID}
	shifts, err := repo.ListShifts(ctx, nurse, "")
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	assert.ElementsMatch(t, []int64{mine, open}, []int64{shifts[0].ID, shifts[1].ID})

	// A client sees only its reservation.
	client := &models.Identity{Role: models.RoleClient, UserID: 1, ReservationID: reservationA}
	shifts, err = repo.ListShifts(ctx, client, "")
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, mine, shifts[0].ID)

	// Month filter.
	shifts, err = repo.ListShifts(ctx, nurse, "1999-01")
	require.NoError(t, err)
	assert.Empty(t, shifts)

	// Roles without a shift scope are refused, never shown everything.
	donor := &models.Identity{Role: models.RoleDonor, UserID: 1}
	_, err = repo.ListShifts(ctx, donor, "")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestListIncidentsRefusesUnscopedRoles(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewShiftRepository(db)

	organization := &models.Identity{Role: models.RoleOrganization, UserID: 1}
	_, err := repo.ListIncidents(context.Background(), organization)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestCheckinStampsOnce(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewShiftRepository(db)
	ctx := context.Background()

	reservationID := createTestReservation(t, db)
	nurseID := createTestNurse(t, db, "a@example.com")
	shiftID := createTestShift(t, db, reservationID, &nurseID)

	first := time.Date(2026, 8, 3, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetCheckin(ctx, shiftID, first))

	// A second stamp loses and the first timestamp survives.
	err := repo.SetCheckin(ctx, shiftID, first.Add(time.Hour))
	assert.ErrorIs(t, err, models.ErrAlreadyCheckedIn)

	shift, err := repo.GetShift(ctx, shiftID)
	require.NoError(t, err)
	require.NotNil(t, shift.Checkin)
	assert.True(t, shift.Checkin.Equal(first))

	assert.ErrorIs(t, repo.SetCheckin(ctx, 999999, first), models.ErrNotFound)
}

func TestCheckoutRequiresCheckin(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewShiftRepository(db)
	ctx := context.Background()

	reservationID := createTestReservation(t, db)
	nurseID := createTestNurse(t, db, "a@example.com")
	shiftID := createTestShift(t, db, reservationID, &nurseID)

	at := time.Date(2026, 8, 3, 20, 0, 0, 0, time.UTC)
	assert.ErrorIs(t, repo.SetCheckout(ctx, shiftID, at), models.ErrShiftNotCheckedIn)

	require.NoError(t, repo.SetCheckin(ctx, shiftID, at.Add(-12*time.Hour)))
	require.NoError(t, repo.SetCheckout(ctx, shiftID, at))
	assert.ErrorIs(t, repo.SetCheckout(ctx, shiftID, at.Add(time.Hour)), models.ErrAlreadyCheckedOut)
}
