package models

import "strings"

// NurseUser is a caregiver account. Nurses own shifts and the care log
// entries attached to them.
type NurseUser struct {
	ID              int64   `db:"id" json:"id"`
	Email           string  `db:"email" json:"email"`
	PasswordHash    string  `db:"password_hash" json:"-"`
	FirstName       string  `db:"first_name" json:"first_name"`
	Surname         string  `db:"surname" json:"surname"`
	Gender          string  `db:"gender" json:"gender"`
	NurseType       string  `db:"nurse_type" json:"nurse_type"`
	MessengerID     *string `db:"messenger_id" json:"messenger_id"`
	SetPasswordCode *string `db:"set_password_code" json:"-"`
}

func (n *NurseUser) FullName() string {
	return strings.TrimSpace(n.FirstName + " " + n.Surname)
}

// ClientUser belongs to exactly one reservation (the family account). The
// account holder has elevated edit rights over sibling members.
type ClientUser struct {
	ID            int64  `db:"id" json:"id"`
	Email         string `db:"email" json:"email"`
	PasswordHash  string `db:"password_hash" json:"-"`
	FirstName     string `db:"first_name" json:"first_name"`
	Surname       string `db:"surname" json:"surname"`
	ReservationID int64  `db:"reservation_id" json:"reservation_id"`
	AccountHolder bool   `db:"account_holder" json:"account_holder"`
}

func (c *ClientUser) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.Surname)
}

// OwnerReservationID lets a ClientUser act as a reservation-owned resource,
// so sibling clients in the same account can be checked against it.
func (c *ClientUser) OwnerReservationID() (int64, bool) {
	return c.ReservationID, true
}

// OrganizationUser belongs to exactly one organization on the civic platform.
type OrganizationUser struct {
	ID             int64  `db:"id" json:"id"`
	Email          string `db:"email" json:"email"`
	PasswordHash   string `db:"password_hash" json:"-"`
	OrganizationID int64  `db:"organization_id" json:"organization_id"`
}

// DonorUser belongs to exactly one donor on the civic platform.
type DonorUser struct {
	ID           int64  `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	DonorID      int64  `db:"donor_id" json:"donor_id"`
}

// StaffUser authenticates through the admin session cookie.
type StaffUser struct {
	ID           int64  `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	IsStaff      bool   `db:"is_staff" json:"is_staff"`
}

// Organization is a civic-platform organization publishing reconstruction
// actions.
type Organization struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Donor is a civic-platform donor attached to donations.
type Donor struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
