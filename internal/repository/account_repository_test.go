package repository

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brigada-mx/backend-sub000/internal/models"
	"github.com/brigada-mx/backend-sub000/internal/testutils"
)

func createTestPatient(t *testing.T, db *sqlx.DB, reservationID int64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(`
		INSERT INTO patients (reservation_id, first_name, surname)
		VALUES ($1, 'Luz', 'Mora') RETURNING id`, reservationID).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestListPatientsScoping(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	reservationA := createTestReservation(t, db)
	reservationB := createTestReservation(t, db)
	mine := createTestPatient(t, db, reservationA)
	createTestPatient(t, db, reservationB)

	client := &models.Identity{Role: models.RoleClient, UserID: 1, ReservationID: reservationA}
	patients, err := repo.ListPatients(ctx, client)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, mine, patients[0].ID)

	staff := &models.Identity{Role: models.RoleStaff, UserID: 1, IsStaff: true}
	patients, err = repo.ListPatients(ctx, staff)
	require.NoError(t, err)
	assert.Len(t, patients, 2)

	// A donor token authenticates, but patient data is out of its reach.
	donor := &models.Identity{Role: models.RoleDonor, UserID: 1}
	_, err = repo.ListPatients(ctx, donor)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestListAddressesScoping(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	reservationA := createTestReservation(t, db)
	reservationB := createTestReservation(t, db)
	for _, reservationID := range []int64{reservationA, reservationB} {
		address := &models.Address{ReservationID: reservationID, Street: "Calle 1", Locality: "CDMX", PostalCode: "06000"}
		require.NoError(t, repo.CreateAddress(ctx, address))
	}

	client := &models.Identity{Role: models.RoleClient, UserID: 1, ReservationID: reservationA}
	addresses, err := repo.ListAddresses(ctx, client)
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.Equal(t, reservationA, addresses[0].ReservationID)

	// Care addresses are not shared with the nurse pool, let alone other
	// roles.
	nurse := &models.Identity{Role: models.RoleNurse, UserID: 1}
	_, err = repo.ListAddresses(ctx, nurse)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	organization := &models.Identity{Role: models.RoleOrganization, UserID: 1}
	_, err = repo.ListAddresses(ctx, organization)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestListNursesRefusesUnscopedRoles(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewUserRepository(db)

	donor := &models.Identity{Role: models.RoleDonor, UserID: 1}
	_, err := repo.ListNurses(context.Background(), donor)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}
