package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brigada-mx/backend-sub000/internal/models"
)

// UserRepository loads the identity variants. Token-key lookups join the
// role's token table so authentication costs a single query.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const nurseColumns = `n.id, n.email, n.password_hash, n.first_name, n.surname, n.gender, n.nurse_type, n.messenger_id, n.set_password_code`

func (r *UserRepository) NurseByTokenKey(ctx context.Context, key string) (*models.NurseUser, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM nurse_users n
		JOIN nurse_user_tokens t ON t.user_id = n.id
		WHERE t.key = $1`, nurseColumns)

	var nurse models.NurseUser
	err := r.db.GetContext(ctx, &nurse, query, key)
	if err == sql.ErrNoRows {
		return nil, models.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error looking up nurse by token: %w", err)
	}
	return &nurse, nil
}

func (r *UserRepository) ClientByTokenKey(ctx context.Context, key string) (*models.ClientUser, error) {
	query := `
		SELECT c.id, c.email, c.password_hash, c.first_name, c.surname, c.reservation_id, c.account_holder
		FROM client_users c
		JOIN client_user_tokens t ON t.user_id = c.id
		WHERE t.key = $1`

	var client models.ClientUser
	err := r.db.GetContext(ctx, &client, query, key)
	if err == sql.ErrNoRows {
		return nil, models.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error looking up client by token: %w", err)
	}
	return &client, nil
}

func (r *UserRepository) OrganizationUserByTokenKey(ctx context.Context, key string) (*models.OrganizationUser, error) {
	query := `
		SELECT u.id, u.email, u.password_hash, u.organization_id
		FROM organization_users u
		JOIN organization_user_tokens t ON t.user_id = u.id
		WHERE t.key = $1`

	var user models.OrganizationUser
	err := r.db.GetContext(ctx, &user, query, key)
	if err == sql.ErrNoRows {
		return nil, models.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error looking up organization user by token: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) DonorUserByTokenKey(ctx context.Context, key string) (*models.DonorUser, error) {
	query := `
		SELECT u.id, u.email, u.password_hash, u.donor_id
		FROM donor_users u
		JOIN donor_user_tokens t ON t.user_id = u.id
		WHERE t.key = $1`

	var user models.DonorUser
	err := r.db.GetContext(ctx, &user, query, key)
	if err == sql.ErrNoRows {
		return nil, models.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error looking up donor user by token: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) NurseByID(ctx context.Context, id int64) (*models.NurseUser, error) {
	query := fmt.Sprintf(`SELECT %s FROM nurse_users n WHERE n.id = $1`, nurseColumns)

	var nurse models.NurseUser
	err := r.db.GetContext(ctx, &nurse, query, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting nurse: %w", err)
	}
	return &nurse, nil
}

func (r *UserRepository) NurseByEmail(ctx context.Context, email string) (*models.NurseUser, error) {
	query := fmt.Sprintf(`SELECT %s FROM nurse_users n WHERE n.email = $1`, nurseColumns)

	var nurse models.NurseUser
	err := r.db.GetContext(ctx, &nurse, query, email)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting nurse by email: %w", err)
	}
	return &nurse, nil
}

func (r *UserRepository) ClientByID(ctx context.Context, id int64) (*models.ClientUser, error) {
	query := `
		SELECT id, email, password_hash, first_name, surname, reservation_id, account_holder
		FROM client_users WHERE id = $1`

	var client models.ClientUser
	err := r.db.GetContext(ctx, &client, query, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting client: %w", err)
	}
	return &client, nil
}

func (r *UserRepository) ClientByEmail(ctx context.Context, email string) (*models.ClientUser, error) {
	query := `
		SELECT id, email, password_hash, first_name, surname, reservation_id, account_holder
		FROM client_users WHERE email = $1`

	var client models.ClientUser
	err := r.db.GetContext(ctx, &client, query, email)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting client by email: %w", err)
	}
	return &client, nil
}

func (r *UserRepository) OrganizationUserByEmail(ctx context.Context, email string) (*models.OrganizationUser, error) {
	query := `SELECT id, email, password_hash, organization_id FROM organization_users WHERE email = $1`

	var user models.OrganizationUser
	err := r.db.GetContext(ctx, &user, query, email)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting organization user by email: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) DonorUserByEmail(ctx context.Context, email string) (*models.DonorUser, error) {
	query := `SELECT id, email, password_hash, donor_id FROM donor_users WHERE email = $1`

	var user models.DonorUser
	err := r.db.GetContext(ctx, &user, query, email)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting donor user by email: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) StaffByID(ctx context.Context, id int64) (*models.StaffUser, error) {
	query := `SELECT id, email, password_hash, is_staff FROM staff_users WHERE id = $1`

	var staff models.StaffUser
	err := r.db.GetContext(ctx, &staff, query, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting staff user: %w", err)
	}
	return &staff, nil
}

func (r *UserRepository) StaffByEmail(ctx context.Context, email string) (*models.StaffUser, error) {
	query := `SELECT id, email, password_hash, is_staff FROM staff_users WHERE email = $1`

	var staff models.StaffUser
	err := r.db.GetContext(ctx, &staff, query, email)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting staff user by email: %w", err)
	}
	return &staff, nil
}

func (r *UserRepository) CreateNurse(ctx context.Context, nurse *models.NurseUser) error {
	query := `
		INSERT INTO nurse_users (email, password_hash, first_name, surname, gender, nurse_type, messenger_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		nurse.Email,
		nurse.PasswordHash,
		nurse.FirstName,
		nurse.Surname,
		nurse.Gender,
		nurse.NurseType,
		nurse.MessengerID,
	).Scan(&nurse.ID)
	if err != nil {
		return fmt.Errorf("error creating nurse: %w", err)
	}
	return nil
}

// UpdateNurse writes the mutable profile fields. Email and password are
// managed by their own flows.
func (r *UserRepository) UpdateNurse(ctx context.Context, nurse *models.NurseUser) error {
	query := `
		UPDATE nurse_users
		SET first_name = $1, surname = $2, gender = $3, nurse_type = $4, messenger_id = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		nurse.FirstName,
		nurse.Surname,
		nurse.Gender,
		nurse.NurseType,
		nurse.MessengerID,
		nurse.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating nurse: %w", err)
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

// SetNursePassword also clears any outstanding set-password code.
func (r *UserRepository) SetNursePassword(ctx context.Context, nurseID int64, passwordHash string) error {
	query := `UPDATE nurse_users SET password_hash = $1, set_password_code = NULL WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, passwordHash, nurseID)
	if err != nil {
		return fmt.Errorf("error setting password: %w", err)
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

func (r *UserRepository) SetNursePasswordCode(ctx context.Context, nurseID int64, code string) error {
	query := `UPDATE nurse_users SET set_password_code = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, code, nurseID); err != nil {
		return fmt.Errorf("error setting password code: %w", err)
	}
	return nil
}

// ListNurses returns the role-scoped nurse list: a nurse sees only itself, a
// client sees only nurses with shifts on its reservation, staff sees all
// nurses. Any other role is refused.
func (r *UserRepository) ListNurses(ctx context.Context, identity *models.Identity) ([]models.NurseUser, error) {
	var query string
	args := []interface{}{}

	switch identity.Role {
	case models.RoleStaff, models.RoleInternal:
		query = fmt.Sprintf(`SELECT %s FROM nurse_users n ORDER BY n.id`, nurseColumns)
	case models.RoleNurse:
		query = fmt.Sprintf(`SELECT %s FROM nurse_users n WHERE n.id = $1`, nurseColumns)
		args = append(args, identity.UserID)
	case models.RoleClient:
		query = fmt.Sprintf(`
			SELECT DISTINCT %s FROM nurse_users n
			JOIN shifts s ON s.nurse_id = n.id
			WHERE s.reservation_id = $1
			ORDER BY n.id`, nurseColumns)
		args = append(args, identity.ReservationID)
	default:
		return nil, models.ErrPermissionDenied
	}

	var nurses []models.NurseUser
	if err := r.db.SelectContext(ctx, &nurses, query, args...); err != nil {
		return nil, fmt.Errorf("error listing nurses: %w", err)
	}
	return nurses, nil
}
