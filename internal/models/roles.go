package models

// Role identifies which authentication backend produced an identity. It is
// never taken from the request itself, so the Authorization header alone can
// never claim a role.
type Role string

const (
	RoleNurse        Role = "nurse"
	RoleClient       Role = "client"
	RoleOrganization Role = "organization"
	RoleDonor        Role = "donor"
	RoleStaff        Role = "staff"
	RoleInternal     Role = "internal"
)

// RoleHintHeader carries an optional client-supplied hint naming the backend
// that should handle the request. Backends whose hint does not match decline
// immediately without touching storage.
const RoleHintHeader = "X-Role-Hint"

// Hint values accepted in RoleHintHeader, one per configured backend.
const (
	RoleHintSession           = "session"
	RoleHintNurseToken        = "nurse_token"
	RoleHintClientToken       = "client_token"
	RoleHintOrganizationToken = "organization_token"
	RoleHintDonorToken        = "donor_token"
	RoleHintInternal          = "internal"
	RoleHintPreAuthNurse      = "nurse_unauthenticated"
)
