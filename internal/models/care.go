package models

import "time"

// ReservationStatus follows the original account lifecycle: 0 = incoming,
// 1 = active, 2 = closed.
type ReservationStatus int

const (
	ReservationIncoming ReservationStatus = 0
	ReservationActive   ReservationStatus = 1
	ReservationClosed   ReservationStatus = 2
)

// Reservation is a family account. Clients, patients, addresses, shifts and
// schedules all hang off a reservation.
type Reservation struct {
	ID      int64             `db:"id" json:"id"`
	Status  ReservationStatus `db:"status" json:"status"`
	Created time.Time         `db:"created" json:"created"`
}

// Patient receives care under a reservation.
type Patient struct {
	ID            int64  `db:"id" json:"id"`
	ReservationID int64  `db:"reservation_id" json:"reservation_id"`
	FirstName     string `db:"first_name" json:"first_name"`
	Surname       string `db:"surname" json:"surname"`
}

func (p *Patient) OwnerReservationID() (int64, bool) {
	return p.ReservationID, p.ReservationID != 0
}

// Address is a care location under a reservation.
type Address struct {
	ID            int64  `db:"id" json:"id"`
	ReservationID int64  `db:"reservation_id" json:"reservation_id"`
	Street        string `db:"street" json:"street"`
	Locality      string `db:"locality" json:"locality"`
	PostalCode    string `db:"postal_code" json:"postal_code"`
}

func (a *Address) OwnerReservationID() (int64, bool) {
	return a.ReservationID, a.ReservationID != 0
}

type ShiftStatus string

const (
	ShiftScheduled ShiftStatus = "scheduled"
	ShiftCompleted ShiftStatus = "completed"
	ShiftCancelled ShiftStatus = "cancelled"
)

// Shift is a single day of care. NurseID is null until a nurse is assigned
// or claims the shift.
type Shift struct {
	ID            int64       `db:"id" json:"id"`
	ReservationID int64       `db:"reservation_id" json:"reservation_id"`
	NurseID       *int64      `db:"nurse_id" json:"nurse_id"`
	ScheduleID    *int64      `db:"schedule_id" json:"schedule_id,omitempty"`
	Day           time.Time   `db:"day" json:"day"`
	Month         string      `db:"month" json:"month"`
	Status        ShiftStatus `db:"status" json:"status"`
	Checkin       *time.Time  `db:"checkin" json:"checkin"`
	Checkout      *time.Time  `db:"checkout" json:"checkout"`
}

func (s *Shift) OwnerNurseID() *int64 {
	return s.NurseID
}

func (s *Shift) OwnerReservationID() (int64, bool) {
	return s.ReservationID, s.ReservationID != 0
}

// ShiftIncident is a categorized report attached to a shift. ShiftNurseID and
// ShiftReservationID are populated by the repository join so permission
// checks never need a second query.
type ShiftIncident struct {
	ID                 int64  `db:"id" json:"id"`
	ShiftID            int64  `db:"shift_id" json:"shift_id"`
	Category           int    `db:"category" json:"category"`
	Description        string `db:"description" json:"description"`
	ShiftNurseID       *int64 `db:"shift_nurse_id" json:"-"`
	ShiftReservationID int64  `db:"shift_reservation_id" json:"-"`
}

func (i *ShiftIncident) ShiftOwnerNurseID() *int64 {
	return i.ShiftNurseID
}

func (i *ShiftIncident) IncidentCategory() int {
	return i.Category
}

func (i *ShiftIncident) OwnerReservationID() (int64, bool) {
	return i.ShiftReservationID, i.ShiftReservationID != 0
}

// CareLogEntryStatus: 0 = pending, 1 = completed, 2 = skipped.
type CareLogEntryStatus int

const (
	CareLogPending   CareLogEntryStatus = 0
	CareLogCompleted CareLogEntryStatus = 1
	CareLogSkipped   CareLogEntryStatus = 2
)

// CareLogEntry records one care task within a shift. Joined shift columns are
// populated by the repository for scoping and permission checks.
type CareLogEntry struct {
	ID                 int64              `db:"id" json:"id"`
	ShiftID            int64              `db:"shift_id" json:"shift_id"`
	Task               string             `db:"task" json:"task"`
	Status             CareLogEntryStatus `db:"status" json:"status"`
	Observations       string             `db:"observations" json:"observations"`
	CreatedByNurse     bool               `db:"created_by_nurse" json:"created_by_nurse"`
	ShiftNurseID       *int64             `db:"shift_nurse_id" json:"-"`
	ShiftReservationID int64              `db:"shift_reservation_id" json:"-"`
}

func (e *CareLogEntry) ShiftOwnerNurseID() *int64 {
	return e.ShiftNurseID
}

func (e *CareLogEntry) OwnerReservationID() (int64, bool) {
	return e.ShiftReservationID, e.ShiftReservationID != 0
}

// ShiftSchedule is a recurring care plan expressed as an iCalendar RRULE.
// The expander materializes it into shift rows over a look-ahead window.
type ShiftSchedule struct {
	ID            int64     `db:"id" json:"id"`
	ReservationID int64     `db:"reservation_id" json:"reservation_id"`
	RRule         string    `db:"rrule" json:"rrule"`
	StartDate     time.Time `db:"start_date" json:"start_date"`
	Active        bool      `db:"active" json:"active"`
}

func (s *ShiftSchedule) OwnerReservationID() (int64, bool) {
	return s.ReservationID, s.ReservationID != 0
}

// ShiftScheduleDay assigns a nurse to one weekday of a schedule. The full set
// of day rows for a schedule is always replaced atomically.
type ShiftScheduleDay struct {
	ID         int64  `db:"id" json:"id"`
	ScheduleID int64  `db:"schedule_id" json:"schedule_id"`
	Weekday    int    `db:"weekday" json:"weekday"`
	NurseID    *int64 `db:"nurse_id" json:"nurse_id"`
}
