package auth

import "github.com/brigada-mx/backend-sub000/internal/models"

// Capability interfaces describe how a resource relates to its owners. A
// resource that does not implement the interface a predicate needs is denied:
// a missing relation never grants access.

// NurseOwned resources belong to a nurse directly. A nil owner means
// unassigned.
type NurseOwned interface {
	OwnerNurseID() *int64
}

// ReservationOwned resources belong to a reservation. The bool reports
// whether the relation is set.
type ReservationOwned interface {
	OwnerReservationID() (int64, bool)
}

// ShiftNurseOwned resources belong to a nurse through their shift.
type ShiftNurseOwned interface {
	ShiftOwnerNurseID() *int64
}

// Categorized resources carry an incident category.
type Categorized interface {
	IncidentCategory() int
}

// Permission decides whether an identity may act on a resource. Every
// predicate grants staff unconditionally; beyond that each one checks exactly
// one ownership relation.
type Permission func(identity *models.Identity, obj interface{}) bool

// AnyOf grants when at least one predicate grants.
func AnyOf(perms ...Permission) Permission {
	return func(identity *models.Identity, obj interface{}) bool {
		for _, perm := range perms {
			if perm(identity, obj) {
				return true
			}
		}
		return false
	}
}

// AllOf grants only when every predicate grants.
func AllOf(perms ...Permission) Permission {
	return func(identity *models.Identity, obj interface{}) bool {
		for _, perm := range perms {
			if !perm(identity, obj) {
				return false
			}
		}
		return true
	}
}

// readableNurseIncidentCategories are the incident categories a nurse may
// read. Everything else is internal follow-up.
var readableNurseIncidentCategories = map[int]bool{0: true, 1: true, 2: true, 7: true}

// HasNurseOwner grants a nurse access to a resource it owns directly.
func HasNurseOwner(identity *models.Identity, obj interface{}) bool {
	if identity.IsStaff {
		return true
	}
	if identity.Role != models.RoleNurse {
		return false
	}
	owned, ok := obj.(NurseOwned)
	if !ok {
		return false
	}
	owner := owned.OwnerNurseID()
	return owner != nil && *owner == identity.UserID
}

// HasNoNurseOwner grants access to resources no nurse holds yet, such as
// claimable shifts.
func HasNoNurseOwner(identity *models.Identity, obj interface{}) bool {
	if identity.IsStaff {
		return true
	}
	if identity.Role != models.RoleNurse {
		return false
	}
	owned, ok := obj.(NurseOwned)
	if !ok {
		return false
	}
	return owned.OwnerNurseID() == nil
}

// IsNurseUser grants a nurse access to its own user record.
func IsNurseUser(identity *models.Identity, obj interface{}) bool {
	if identity.IsStaff {
		return true
	}
	if identity.Role != models.RoleNurse {
		return false
	}
	nurse, ok := obj.(*models.NurseUser)
	if !ok {
		return false
	}
	return nurse.ID == identity.UserID
}

// HasShiftWithNurseOwner grants a nurse access to resources hanging off its
// own shifts.
func HasShiftWithNurseOwner(identity *models.Identity, obj interface{}) bool {
	if identity.IsStaff {
		return true
	}
	if identity.Role != models.RoleNurse {
		return false
	}
	owned, ok := obj.(ShiftNurseOwned)
	if !ok {
		return false
	}
	owner := owned.ShiftOwnerNurseID()
	return owner != nil && *owner == identity.UserID
}

// IsReadableNurseIncidentCategory restricts nurses to the readable incident
// categories.
func IsReadableNurseIncidentCategory(identity *models.Identity, obj interface{}) bool {
	if identity.IsStaff {
		return true
	}
	if identity.Role != models.RoleNurse {
		return false
	}
	categorized, ok := obj.(Categorized)
	if !ok {
		return false
	}
	return readableNurseIncidentCategories[categorized.IncidentCategory()]
}

// IsClientUser grants a client access to client user records. The account
// holder reaches every client on its reservation; a non-holder reaches only
// itself.
func IsClientUser(identity *models.Identity, obj interface{}) bool {
	if identity.IsStaff {
		return true
	}
	if identity.Role != models.RoleClient {
		return false
	}
	client, ok := obj.(*models.ClientUser)
	if !ok {
		return false
	}
	if identity.AccountHolder {
		return client.ReservationID == identity.ReservationID
	}
	return client.ID == identity.UserID
}

// HasClientOwnerCreate gates resource creation under a reservation: only the
// account holder may create.
func HasClientOwnerCreate(identity *models.Identity) bool {
	if identity.IsStaff {
		return true
	}
	return identity.Role == models.RoleClient && identity.AccountHolder
}

// HasClientOwner grants the account holder access to resources on its
// reservation.
func HasClientOwner(identity *models.Identity, obj interface{}) bool {
	if identity.IsStaff {
		return true
	}
	if identity.Role != models.RoleClient || !identity.AccountHolder {
		return false
	}
	owned, ok := obj.(ReservationOwned)
	if !ok {
		return false
	}
	reservationID, set := owned.OwnerReservationID()
	return set && reservationID == identity.ReservationID
}

// HasClient grants any client access to resources on its own reservation,
// holder or not.
func HasClient(identity *models.Identity, obj interface{}) bool {
	if identity.IsStaff {
		return true
	}
	if identity.Role != models.RoleClient {
		return false
	}
	owned, ok := obj.(ReservationOwned)
	if !ok {
		return false
	}
	reservationID, set := owned.OwnerReservationID()
	return set && reservationID == identity.ReservationID
}

// HasOwner grants access through whichever ownership relation the resource
// carries: nurse ownership for nurses, reservation ownership for clients.
func HasOwner(identity *models.Identity, obj interface{}) bool {
	if identity.IsStaff {
		return true
	}
	switch identity.Role {
	case models.RoleNurse:
		return HasNurseOwner(identity, obj)
	case models.RoleClient:
		return HasClient(identity, obj)
	}
	return false
}
