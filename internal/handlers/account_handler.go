package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/brigada-mx/backend-sub000/internal/auth"
	"github.com/brigada-mx/backend-sub000/internal/middleware"
	"github.com/brigada-mx/backend-sub000/internal/models"
	"github.com/brigada-mx/backend-sub000/internal/repository"
	"github.com/brigada-mx/backend-sub000/internal/services"
)

// AccountHandler serves account signup and the reservation-owned resources:
// client users, patients and addresses.
type AccountHandler struct {
	accounts *repository.AccountRepository
	users    *repository.UserRepository
	tokens   *repository.TokenRepository
	preAuth  *services.PreAuthService
}

func NewAccountHandler(accounts *repository.AccountRepository, users *repository.UserRepository, tokens *repository.TokenRepository, preAuth *services.PreAuthService) *AccountHandler {
	return &AccountHandler{accounts: accounts, users: users, tokens: tokens, preAuth: preAuth}
}

type createAccountRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	Surname   string `json:"surname" binding:"required"`
}

// CreateAccount is the public signup: it creates the reservation with its
// holder client and returns a login token plus a pre-auth token that lets the
// signup flow add patients and addresses before the client ever logs in.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, err)
		return
	}

	holder := &models.ClientUser{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		Surname:      req.Surname,
	}
	reservation, err := h.accounts.CreateAccount(c.Request.Context(), holder)
	if err != nil {
		fail(c, err)
		return
	}

	token, err := h.tokens.GetOrCreate(c.Request.Context(), models.RoleClient, holder.ID)
	if err != nil {
		fail(c, err)
		return
	}
	preAuthToken, err := h.preAuth.Mint(reservation.ID, services.NamespaceAccountCreate)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"reservation":    reservation,
		"user":           holder,
		"token":          token.Key,
		"pre_auth_token": preAuthToken,
	})
}

// GetClient returns a client user record. The account holder reaches every
// sibling on the reservation; other clients only themselves.
func (h *AccountHandler) GetClient(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	client, err := h.users.ClientByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.IsClientUser(identity, client) {
		failPermission(c)
		return
	}
	c.JSON(http.StatusOK, client)
}

// preAuthReservation verifies the signup pre-auth token from the body and
// returns the reservation it was minted for.
func (h *AccountHandler) preAuthReservation(c *gin.Context, token string) (int64, bool) {
	reservationID, err := h.preAuth.Verify(token, services.NamespaceAccountCreate)
	if err != nil {
		fail(c, err)
		return 0, false
	}
	if _, err := h.accounts.GetReservation(c.Request.Context(), reservationID); err != nil {
		fail(c, err)
		return 0, false
	}
	return reservationID, true
}

type patientRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	Surname   string `json:"surname" binding:"required"`
	Token     string `json:"token"`
}

// CreatePatient creates a patient on the caller's own reservation. Only the
// account holder may create.
func (h *AccountHandler) CreatePatient(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}
	if !auth.HasClientOwnerCreate(identity) {
		failPermission(c)
		return
	}

	var req patientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	h.createPatient(c, identity.ReservationID, req)
}

// CreatePatientUnauthenticated is the signup-flow variant: the pre-auth token
// in the body decides the reservation, so the client never chooses one.
func (h *AccountHandler) CreatePatientUnauthenticated(c *gin.Context) {
	var req patientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	reservationID, ok := h.preAuthReservation(c, req.Token)
	if !ok {
		return
	}
	h.createPatient(c, reservationID, req)
}

func (h *AccountHandler) createPatient(c *gin.Context, reservationID int64, req patientRequest) {
	patient := &models.Patient{
		ReservationID: reservationID,
		FirstName:     req.FirstName,
		Surname:       req.Surname,
	}
	if err := h.accounts.CreatePatient(c.Request.Context(), patient); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

func (h *AccountHandler) ListPatients(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	patients, err := h.accounts.ListPatients(c.Request.Context(), identity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": patients, "count": len(patients)})
}

func (h *AccountHandler) GetPatient(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	patient, err := h.accounts.GetPatient(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.AnyOf(auth.HasClient, auth.HasOwner)(identity, patient) {
		failPermission(c)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (h *AccountHandler) UpdatePatient(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	patient, err := h.accounts.GetPatient(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.HasClientOwner(identity, patient) {
		failPermission(c)
		return
	}

	var req patientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	patient.FirstName = req.FirstName
	patient.Surname = req.Surname
	if err := h.accounts.UpdatePatient(c.Request.Context(), patient); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (h *AccountHandler) DeletePatient(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	patient, err := h.accounts.GetPatient(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.HasClientOwner(identity, patient) {
		failPermission(c)
		return
	}

	if err := h.accounts.DeletePatient(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addressRequest struct {
	Street     string `json:"street" binding:"required"`
	Locality   string `json:"locality" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
	Token      string `json:"token"`
}

func (h *AccountHandler) CreateAddress(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}
	if !auth.HasClientOwnerCreate(identity) {
		failPermission(c)
		return
	}

	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	h.createAddress(c, identity.ReservationID, req)
}

func (h *AccountHandler) CreateAddressUnauthenticated(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	reservationID, ok := h.preAuthReservation(c, req.Token)
	if !ok {
		return
	}
	h.createAddress(c, reservationID, req)
}

func (h *AccountHandler) createAddress(c *gin.Context, reservationID int64, req addressRequest) {
	address := &models.Address{
		ReservationID: reservationID,
		Street:        req.Street,
		Locality:      req.Locality,
		PostalCode:    req.PostalCode,
	}
	if err := h.accounts.CreateAddress(c.Request.Context(), address); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}

func (h *AccountHandler) ListAddresses(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	addresses, err := h.accounts.ListAddresses(c.Request.Context(), identity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": addresses, "count": len(addresses)})
}

func (h *AccountHandler) GetAddress(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	address, err := h.accounts.GetAddress(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.HasClient(identity, address) {
		failPermission(c)
		return
	}
	c.JSON(http.StatusOK, address)
}
