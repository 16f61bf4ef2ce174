package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brigada-mx/backend-sub000/internal/auth"
	"github.com/brigada-mx/backend-sub000/internal/middleware"
	"github.com/brigada-mx/backend-sub000/internal/models"
	"github.com/brigada-mx/backend-sub000/internal/repository"
	"github.com/brigada-mx/backend-sub000/internal/services"
)

// ShiftHandler serves shifts, their incidents and care log, and schedule day
// assignments.
type ShiftHandler struct {
	shifts   *repository.ShiftRepository
	notifier *services.Notifier
}

func NewShiftHandler(shifts *repository.ShiftRepository, notifier *services.Notifier) *ShiftHandler {
	return &ShiftHandler{shifts: shifts, notifier: notifier}
}

func (h *ShiftHandler) List(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	shifts, err := h.shifts.ListShifts(c.Request.Context(), identity, c.Query("month"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": shifts, "count": len(shifts)})
}

func (h *ShiftHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	shift, err := h.shifts.GetShift(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.AnyOf(auth.HasOwner, auth.HasNoNurseOwner)(identity, shift) {
		failPermission(c)
		return
	}
	c.JSON(http.StatusOK, shift)
}

type updateShiftRequest struct {
	Status models.ShiftStatus `json:"status" binding:"required,oneof=scheduled completed cancelled"`
}

// UpdateStatus is staff-only; the route enforces it.
func (h *ShiftHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req updateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	if err := h.shifts.UpdateShiftStatus(c.Request.Context(), id, req.Status); err != nil {
		fail(c, err)
		return
	}
	shift, err := h.shifts.GetShift(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, shift)
}

// Claim assigns an open shift to the calling nurse. Losing the race returns
// the shift-taken error, never a silent reassignment.
func (h *ShiftHandler) Claim(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok || identity.Role != models.RoleNurse {
		failPermission(c)
		return
	}

	shift, err := h.shifts.ClaimShift(c.Request.Context(), id, identity.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	h.notifier.Enqueue(c.Request.Context(), services.NotificationShiftClaimed, "", map[string]interface{}{
		"shift_id":       shift.ID,
		"reservation_id": shift.ReservationID,
		"nurse_id":       identity.UserID,
		"day":            shift.Day.Format("2006-01-02"),
	})
	c.JSON(http.StatusOK, shift)
}

func (h *ShiftHandler) Checkin(c *gin.Context) {
	h.stamp(c, true)
}

func (h *ShiftHandler) Checkout(c *gin.Context) {
	h.stamp(c, false)
}

func (h *ShiftHandler) stamp(c *gin.Context, checkin bool) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	shift, err := h.shifts.GetShift(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.HasNurseOwner(identity, shift) {
		failPermission(c)
		return
	}

	// The repository's conditional update decides whether the stamp lands,
	// so two concurrent requests can never both write it.
	now := time.Now()
	if checkin {
		err = h.shifts.SetCheckin(c.Request.Context(), id, now)
		shift.Checkin = &now
	} else {
		err = h.shifts.SetCheckout(c.Request.Context(), id, now)
		shift.Checkout = &now
	}
	switch err {
	case nil:
	case models.ErrAlreadyCheckedIn:
		fail(c, models.NewValidationError(
			"shift already checked in", "Ya hiciste check-in en este turno.", "already_checked_in"))
		return
	case models.ErrShiftNotCheckedIn:
		fail(c, models.NewValidationError(
			"cannot check out before checking in", "Primero haz check-in.", "not_checked_in"))
		return
	case models.ErrAlreadyCheckedOut:
		fail(c, models.NewValidationError(
			"shift already checked out", "Ya hiciste check-out en este turno.", "already_checked_out"))
		return
	default:
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, shift)
}

type createIncidentRequest struct {
	ShiftID     int64  `json:"shift_id" binding:"required"`
	Category    int    `json:"category"`
	Description string `json:"description" binding:"required"`
}

func (h *ShiftHandler) CreateIncident(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	var req createIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	shift, err := h.shifts.GetShift(c.Request.Context(), req.ShiftID)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.HasNurseOwner(identity, shift) {
		failPermission(c)
		return
	}

	incident := &models.ShiftIncident{
		ShiftID:     req.ShiftID,
		Category:    req.Category,
		Description: req.Description,
	}
	if err := h.shifts.CreateIncident(c.Request.Context(), incident); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, incident)
}

func (h *ShiftHandler) ListIncidents(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	incidents, err := h.shifts.ListIncidents(c.Request.Context(), identity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": incidents, "count": len(incidents)})
}

// GetIncident lets a nurse read incidents on its own shifts, but only in the
// readable categories; clients read everything on their reservation.
func (h *ShiftHandler) GetIncident(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	incident, err := h.shifts.GetIncident(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	allowed := auth.AnyOf(
		auth.AllOf(auth.HasShiftWithNurseOwner, auth.IsReadableNurseIncidentCategory),
		auth.HasClient,
	)
	if !allowed(identity, incident) {
		failPermission(c)
		return
	}
	c.JSON(http.StatusOK, incident)
}

type createCareLogRequest struct {
	ShiftID int64  `json:"shift_id" binding:"required"`
	Task    string `json:"task" binding:"required"`
}

func (h *ShiftHandler) CreateCareLogEntry(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	var req createCareLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	shift, err := h.shifts.GetShift(c.Request.Context(), req.ShiftID)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.AnyOf(auth.HasNurseOwner, auth.HasClient)(identity, shift) {
		failPermission(c)
		return
	}

	entry := &models.CareLogEntry{
		ShiftID:        req.ShiftID,
		Task:           req.Task,
		Status:         models.CareLogPending,
		CreatedByNurse: identity.Role == models.RoleNurse,
	}
	if err := h.shifts.CreateCareLogEntry(c.Request.Context(), entry); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *ShiftHandler) ListCareLogEntries(c *gin.Context) {
	shiftID, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	entries, err := h.shifts.ListCareLogEntries(c.Request.Context(), identity, shiftID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": entries, "count": len(entries)})
}

func (h *ShiftHandler) GetCareLogEntry(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	entry, err := h.shifts.GetCareLogEntry(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.AnyOf(auth.HasShiftWithNurseOwner, auth.HasClient)(identity, entry) {
		failPermission(c)
		return
	}
	c.JSON(http.StatusOK, entry)
}

type updateCareLogRequest struct {
	Status       models.CareLogEntryStatus `json:"status"`
	Observations string                    `json:"observations"`
}

func (h *ShiftHandler) UpdateCareLogEntry(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	entry, err := h.shifts.GetCareLogEntry(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.AnyOf(auth.HasShiftWithNurseOwner, auth.HasClientOwner)(identity, entry) {
		failPermission(c)
		return
	}

	var req updateCareLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	if req.Status < models.CareLogPending || req.Status > models.CareLogSkipped {
		fail(c, models.NewValidationError(
			"invalid care log status", "Revisa los datos enviados.", "validation_error"))
		return
	}

	entry.Status = req.Status
	entry.Observations = req.Observations
	if err := h.shifts.UpdateCareLogEntry(c.Request.Context(), entry); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

type scheduleDaysRequest struct {
	Days []scheduleDayInput `json:"days" binding:"required,dive"`
}

type scheduleDayInput struct {
	Weekday int    `json:"weekday" binding:"min=0,max=6"`
	NurseID *int64 `json:"nurse_id"`
}

// ReplaceScheduleDays swaps the schedule's weekday assignments atomically.
// Only the account holder (or staff) manages the care plan.
func (h *ShiftHandler) ReplaceScheduleDays(c *gin.Context) {
	scheduleID, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	schedule, err := h.shifts.GetSchedule(c.Request.Context(), scheduleID)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.HasClientOwner(identity, schedule) {
		failPermission(c)
		return
	}

	var req scheduleDaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	seen := make(map[int]bool, len(req.Days))
	days := make([]models.ShiftScheduleDay, 0, len(req.Days))
	for _, input := range req.Days {
		if seen[input.Weekday] {
			fail(c, models.NewValidationError(
				"duplicate weekday in schedule days", "Revisa los datos enviados.", "validation_error"))
			return
		}
		seen[input.Weekday] = true
		days = append(days, models.ShiftScheduleDay{Weekday: input.Weekday, NurseID: input.NurseID})
	}

	if err := h.shifts.ReplaceScheduleDays(c.Request.Context(), scheduleID, days); err != nil {
		fail(c, err)
		return
	}

	days, err = h.shifts.ScheduleDays(c.Request.Context(), scheduleID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule_id": scheduleID, "days": days})
}
