package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brigada-mx/backend-sub000/internal/database"
	"github.com/brigada-mx/backend-sub000/internal/models"
)

// AccountRepository manages reservations and the resources that belong to
// them: client users, patients and addresses.
type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateAccount inserts the reservation and its holder client in one
// transaction so a half-created account never survives a failure.
func (r *AccountRepository) CreateAccount(ctx context.Context, holder *models.ClientUser) (*models.Reservation, error) {
	var reservation models.Reservation
	err := database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO reservations (status, created) VALUES ($1, NOW()) RETURNING id, status, created`,
			models.ReservationIncoming,
		).Scan(&reservation.ID, &reservation.Status, &reservation.Created)
		if err != nil {
			return fmt.Errorf("error creating reservation: %w", err)
		}

		holder.ReservationID = reservation.ID
		holder.AccountHolder = true
		err = tx.QueryRowContext(ctx, `
			INSERT INTO client_users (email, password_hash, first_name, surname, reservation_id, account_holder)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			holder.Email, holder.PasswordHash, holder.FirstName, holder.Surname,
			holder.ReservationID, holder.AccountHolder,
		).Scan(&holder.ID)
		if err != nil {
			return fmt.Errorf("error creating account holder: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *AccountRepository) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.GetContext(ctx, &reservation, `SELECT id, status, created FROM reservations WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting reservation: %w", err)
	}
	return &reservation, nil
}

func (r *AccountRepository) CreatePatient(ctx context.Context, patient *models.Patient) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO patients (reservation_id, first_name, surname)
		VALUES ($1, $2, $3)
		RETURNING id`,
		patient.ReservationID, patient.FirstName, patient.Surname,
	).Scan(&patient.ID)
	if err != nil {
		return fmt.Errorf("error creating patient: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetPatient(ctx context.Context, id int64) (*models.Patient, error) {
	var patient models.Patient
	err := r.db.GetContext(ctx, &patient,
		`SELECT id, reservation_id, first_name, surname FROM patients WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting patient: %w", err)
	}
	return &patient, nil
}

// ListPatients returns the role-scoped patient list: a nurse sees patients on
// reservations it covers through schedule days, a client sees its own
// reservation's patients, staff sees all. Roles without a scope here get
// nothing, not everything.
func (r *AccountRepository) ListPatients(ctx context.Context, identity *models.Identity) ([]models.Patient, error) {
	var query string
	args := []interface{}{}

	switch identity.Role {
	case models.RoleStaff, models.RoleInternal:
		query = `SELECT id, reservation_id, first_name, surname FROM patients ORDER BY id`
	case models.RoleNurse:
		query = `
			SELECT DISTINCT p.id, p.reservation_id, p.first_name, p.surname
			FROM patients p
			JOIN reservations r ON r.id = p.reservation_id
			JOIN shift_schedules ss ON ss.reservation_id = p.reservation_id
			JOIN shift_schedule_days sd ON sd.schedule_id = ss.id
			WHERE r.status IN ($1, $2) AND sd.nurse_id = $3
			ORDER BY p.id`
		args = append(args, models.ReservationIncoming, models.ReservationActive, identity.UserID)
	case models.RoleClient:
		query = `SELECT id, reservation_id, first_name, surname FROM patients WHERE reservation_id = $1 ORDER BY id`
		args = append(args, identity.ReservationID)
	default:
		return nil, models.ErrPermissionDenied
	}

	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("error listing patients: %w", err)
	}
	return patients, nil
}

func (r *AccountRepository) UpdatePatient(ctx context.Context, patient *models.Patient) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE patients SET first_name = $1, surname = $2 WHERE id = $3`,
		patient.FirstName, patient.Surname, patient.ID)
	if err != nil {
		return fmt.Errorf("error updating patient: %w", err)
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

func (r *AccountRepository) DeletePatient(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error deleting patient: %w", err)
	}
	return nil
}

func (r *AccountRepository) CreateAddress(ctx context.Context, address *models.Address) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO addresses (reservation_id, street, locality, postal_code)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		address.ReservationID, address.Street, address.Locality, address.PostalCode,
	).Scan(&address.ID)
	if err != nil {
		return fmt.Errorf("error creating address: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetAddress(ctx context.Context, id int64) (*models.Address, error) {
	var address models.Address
	err := r.db.GetContext(ctx, &address,
		`SELECT id, reservation_id, street, locality, postal_code FROM addresses WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting address: %w", err)
	}
	return &address, nil
}

// ListAddresses is client-only outside staff: care addresses are not shared
// with the nurse pool.
func (r *AccountRepository) ListAddresses(ctx context.Context, identity *models.Identity) ([]models.Address, error) {
	var query string
	args := []interface{}{}

	switch identity.Role {
	case models.RoleStaff, models.RoleInternal:
		query = `SELECT id, reservation_id, street, locality, postal_code FROM addresses ORDER BY id`
	case models.RoleClient:
		query = `SELECT id, reservation_id, street, locality, postal_code FROM addresses WHERE reservation_id = $1 ORDER BY id`
		args = append(args, identity.ReservationID)
	default:
		return nil, models.ErrPermissionDenied
	}

	var addresses []models.Address
	if err := r.db.SelectContext(ctx, &addresses, query, args...); err != nil {
		return nil, fmt.Errorf("error listing addresses: %w", err)
	}
	return addresses, nil
}
