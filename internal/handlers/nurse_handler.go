package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/brigada-mx/backend-sub000/internal/auth"
	"github.com/brigada-mx/backend-sub000/internal/middleware"
	"github.com/brigada-mx/backend-sub000/internal/models"
	"github.com/brigada-mx/backend-sub000/internal/repository"
	"github.com/brigada-mx/backend-sub000/internal/services"
)

type NurseHandler struct {
	users    *repository.UserRepository
	preAuth  *services.PreAuthService
	notifier *services.Notifier
}

func NewNurseHandler(users *repository.UserRepository, preAuth *services.PreAuthService, notifier *services.Notifier) *NurseHandler {
	return &NurseHandler{users: users, preAuth: preAuth, notifier: notifier}
}

type createNurseRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	FirstName   string  `json:"first_name" binding:"required"`
	Surname     string  `json:"surname" binding:"required"`
	Gender      string  `json:"gender"`
	NurseType   string  `json:"nurse_type"`
	MessengerID *string `json:"messenger_id"`
}

// Create registers a nurse without a password and returns a pre-auth token
// the nurse uses to complete its own profile before it can log in.
func (h *NurseHandler) Create(c *gin.Context) {
	var req createNurseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	nurse := &models.NurseUser{
		Email:       req.Email,
		FirstName:   req.FirstName,
		Surname:     req.Surname,
		Gender:      req.Gender,
		NurseType:   req.NurseType,
		MessengerID: req.MessengerID,
	}
	if err := h.users.CreateNurse(c.Request.Context(), nurse); err != nil {
		fail(c, err)
		return
	}

	token, err := h.preAuth.Mint(nurse.ID, services.NamespaceUpdateNurse)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"nurse": nurse, "token": token})
}

func (h *NurseHandler) List(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	nurses, err := h.users.ListNurses(c.Request.Context(), identity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": nurses, "count": len(nurses)})
}

func (h *NurseHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	nurse, err := h.users.NurseByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.IsNurseUser(identity, nurse) {
		failPermission(c)
		return
	}
	c.JSON(http.StatusOK, nurse)
}

type updateNurseRequest struct {
	FirstName   string  `json:"first_name" binding:"required"`
	Surname     string  `json:"surname" binding:"required"`
	Gender      string  `json:"gender"`
	NurseType   string  `json:"nurse_type"`
	MessengerID *string `json:"messenger_id"`
}

// Update edits a nurse's own profile. The pre-auth backend lets a freshly
// created nurse reach this endpoint before it has a password.
func (h *NurseHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	nurse, err := h.users.NurseByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.IsNurseUser(identity, nurse) {
		failPermission(c)
		return
	}

	var req updateNurseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	nurse.FirstName = req.FirstName
	nurse.Surname = req.Surname
	nurse.Gender = req.Gender
	nurse.NurseType = req.NurseType
	nurse.MessengerID = req.MessengerID
	if err := h.users.UpdateNurse(c.Request.Context(), nurse); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nurse)
}

type setPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// SetPassword lets a nurse set its password through the pre-auth flow.
func (h *NurseHandler) SetPassword(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	nurse, err := h.users.NurseByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.IsNurseUser(identity, nurse) {
		failPermission(c)
		return
	}

	var req setPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.users.SetNursePassword(c.Request.Context(), nurse.ID, string(hash)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "password updated"})
}

// SendSetPasswordEmail stores a fresh set-password code on the nurse and
// queues the email carrying it.
func (h *NurseHandler) SendSetPasswordEmail(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	nurse, err := h.users.NurseByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		fail(c, fmt.Errorf("error generating set-password code: %w", err))
		return
	}
	code := hex.EncodeToString(raw)

	if err := h.users.SetNursePasswordCode(c.Request.Context(), nurse.ID, code); err != nil {
		fail(c, err)
		return
	}

	h.notifier.Enqueue(c.Request.Context(), services.NotificationSetPassword, nurse.Email, map[string]interface{}{
		"nurse_id": nurse.ID,
		"name":     nurse.FullName(),
		"code":     code,
	})
	c.JSON(http.StatusOK, gin.H{"detail": "email queued"})
}
