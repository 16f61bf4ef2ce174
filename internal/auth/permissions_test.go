package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brigada-mx/backend-sub000/internal/models"
)

func ptr(v int64) *int64 { return &v }

func nurseIdentity(id int64) *models.Identity {
	return &models.Identity{Role: models.RoleNurse, UserID: id}
}

func clientIdentity(id, reservationID int64, holder bool) *models.Identity {
	return &models.Identity{
		Role:          models.RoleClient,
		UserID:        id,
		ReservationID: reservationID,
		AccountHolder: holder,
	}
}

func staffIdentity() *models.Identity {
	return &models.Identity{Role: models.RoleStaff, UserID: 1, IsStaff: true}
}

func TestHasNurseOwner(t *testing.T) {
	owned := &models.Shift{ID: 1, ReservationID: 10, NurseID: ptr(7)}
	unowned := &models.Shift{ID: 2, ReservationID: 10}

	assert.True(t, HasNurseOwner(nurseIdentity(7), owned))
	assert.False(t, HasNurseOwner(nurseIdentity(8), owned))
	assert.False(t, HasNurseOwner(nurseIdentity(7), unowned), "nil owner must deny")
	assert.False(t, HasNurseOwner(clientIdentity(3, 10, true), owned), "wrong role must deny")
	assert.False(t, HasNurseOwner(nurseIdentity(7), struct{}{}), "missing relation must deny")
	assert.True(t, HasNurseOwner(staffIdentity(), unowned), "staff always wins")
}

func TestHasNoNurseOwner(t *testing.T) {
	open := &models.Shift{ID: 1, ReservationID: 10}
	taken := &models.Shift{ID: 2, ReservationID: 10, NurseID: ptr(9)}

	assert.True(t, HasNoNurseOwner(nurseIdentity(7), open))
	assert.False(t, HasNoNurseOwner(nurseIdentity(7), taken))
	assert.True(t, HasNoNurseOwner(staffIdentity(), taken))
}

func TestIsNurseUser(t *testing.T) {
	nurse := &models.NurseUser{ID: 7}

	assert.True(t, IsNurseUser(nurseIdentity(7), nurse))
	assert.False(t, IsNurseUser(nurseIdentity(8), nurse))
	assert.False(t, IsNurseUser(clientIdentity(7, 10, true), nurse))
	assert.True(t, IsNurseUser(staffIdentity(), nurse))
}

func TestHasShiftWithNurseOwner(t *testing.T) {
	entry := &models.CareLogEntry{ID: 1, ShiftID: 2, ShiftNurseID: ptr(7), ShiftReservationID: 10}
	orphan := &models.CareLogEntry{ID: 2, ShiftID: 3, ShiftReservationID: 10}

	assert.True(t, HasShiftWithNurseOwner(nurseIdentity(7), entry))
	assert.False(t, HasShiftWithNurseOwner(nurseIdentity(8), entry))
	assert.False(t, HasShiftWithNurseOwner(nurseIdentity(7), orphan), "unassigned shift must deny")
}

func TestIsReadableNurseIncidentCategory(t *testing.T) {
	for _, category := range []int{0, 1, 2, 7} {
		incident := &models.ShiftIncident{Category: category, ShiftNurseID: ptr(7)}
		assert.True(t, IsReadableNurseIncidentCategory(nurseIdentity(7), incident), "category %d", category)
	}
	for _, category := range []int{3, 4, 5, 6, 8} {
		incident := &models.ShiftIncident{Category: category, ShiftNurseID: ptr(7)}
		assert.False(t, IsReadableNurseIncidentCategory(nurseIdentity(7), incident), "category %d", category)
		assert.True(t, IsReadableNurseIncidentCategory(staffIdentity(), incident))
	}
}

func TestIsClientUser(t *testing.T) {
	holder := clientIdentity(3, 10, true)
	sibling := clientIdentity(4, 10, false)

	self := &models.ClientUser{ID: 4, ReservationID: 10}
	other := &models.ClientUser{ID: 5, ReservationID: 10}
	stranger := &models.ClientUser{ID: 6, ReservationID: 99}

	// The holder reaches every client on its reservation.
	assert.True(t, IsClientUser(holder, self))
	assert.True(t, IsClientUser(holder, other))
	assert.False(t, IsClientUser(holder, stranger))

	// A non-holder reaches only itself, even on the same reservation.
	assert.True(t, IsClientUser(sibling, self))
	assert.False(t, IsClientUser(sibling, other))
	assert.False(t, IsClientUser(sibling, stranger))

	assert.True(t, IsClientUser(staffIdentity(), stranger))
}

func TestHasClientAndHasClientOwner(t *testing.T) {
	holder := clientIdentity(3, 10, true)
	sibling := clientIdentity(4, 10, false)
	outsider := clientIdentity(5, 99, true)

	patient := &models.Patient{ID: 1, ReservationID: 10}

	// HasClient: any client on the reservation, holder or not.
	assert.True(t, HasClient(holder, patient))
	assert.True(t, HasClient(sibling, patient))
	assert.False(t, HasClient(outsider, patient))

	// HasClientOwner: only the holder.
	assert.True(t, HasClientOwner(holder, patient))
	assert.False(t, HasClientOwner(sibling, patient))
	assert.False(t, HasClientOwner(outsider, patient))

	// Creates are holder-only.
	assert.True(t, HasClientOwnerCreate(holder))
	assert.False(t, HasClientOwnerCreate(sibling))
	assert.True(t, HasClientOwnerCreate(staffIdentity()))

	assert.False(t, HasClient(sibling, struct{}{}), "missing relation must deny")
}

func TestHasOwner(t *testing.T) {
	shift := &models.Shift{ID: 1, ReservationID: 10, NurseID: ptr(7)}

	assert.True(t, HasOwner(nurseIdentity(7), shift))
	assert.False(t, HasOwner(nurseIdentity(8), shift))
	assert.True(t, HasOwner(clientIdentity(3, 10, false), shift))
	assert.False(t, HasOwner(clientIdentity(3, 99, false), shift))
	assert.False(t, HasOwner(&models.Identity{Role: models.RoleDonor, UserID: 1}, shift))
	assert.True(t, HasOwner(staffIdentity(), shift))
}

func TestCombinators(t *testing.T) {
	incident := &models.ShiftIncident{Category: 5, ShiftNurseID: ptr(7), ShiftReservationID: 10}

	nurseRead := AllOf(HasShiftWithNurseOwner, IsReadableNurseIncidentCategory)
	assert.False(t, nurseRead(nurseIdentity(7), incident), "own shift but unreadable category")

	combined := AnyOf(nurseRead, HasClient)
	assert.True(t, combined(clientIdentity(3, 10, false), incident))
	assert.False(t, combined(nurseIdentity(7), incident))
	assert.True(t, combined(staffIdentity(), incident))
}
