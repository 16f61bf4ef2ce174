package models

// Identity is the result of a successful authentication: who the caller is
// and which backend vouched for them. The Role field is assigned exclusively
// by the backend constructors below.
type Identity struct {
	Role           Role   `json:"role"`
	UserID         int64  `json:"user_id"`
	Email          string `json:"email"`
	IsStaff        bool   `json:"is_staff"`
	ReservationID  int64  `json:"reservation_id,omitempty"`
	AccountHolder  bool   `json:"account_holder,omitempty"`
	OrganizationID int64  `json:"organization_id,omitempty"`
	DonorID        int64  `json:"donor_id,omitempty"`
}

func NurseIdentity(n *NurseUser) *Identity {
	return &Identity{Role: RoleNurse, UserID: n.ID, Email: n.Email}
}

func ClientIdentity(c *ClientUser) *Identity {
	return &Identity{
		Role:          RoleClient,
		UserID:        c.ID,
		Email:         c.Email,
		ReservationID: c.ReservationID,
		AccountHolder: c.AccountHolder,
	}
}

func OrganizationIdentity(u *OrganizationUser) *Identity {
	return &Identity{Role: RoleOrganization, UserID: u.ID, Email: u.Email, OrganizationID: u.OrganizationID}
}

func DonorIdentity(u *DonorUser) *Identity {
	return &Identity{Role: RoleDonor, UserID: u.ID, Email: u.Email, DonorID: u.DonorID}
}

func StaffIdentity(s *StaffUser) *Identity {
	return &Identity{Role: RoleStaff, UserID: s.ID, Email: s.Email, IsStaff: s.IsStaff}
}

// InternalIdentity represents a process on our own servers that presented the
// shared internal secret. It carries no user row and no staff bit; its power
// comes from reaching internal-only routes and unscoped querysets.
func InternalIdentity() *Identity {
	return &Identity{Role: RoleInternal}
}
