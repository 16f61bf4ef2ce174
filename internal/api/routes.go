package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/brigada-mx/backend-sub000/internal/auth"
	"github.com/brigada-mx/backend-sub000/internal/handlers"
	"github.com/brigada-mx/backend-sub000/internal/middleware"
)

// Handlers bundles everything SetupRoutes wires.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Nurses   *handlers.NurseHandler
	Accounts *handlers.AccountHandler
	Shifts   *handlers.ShiftHandler
	Metrics  *handlers.MetricsHandler
	Internal *handlers.InternalHandler
	Status   gin.HandlerFunc
	Health   gin.HandlerFunc
}

// SetupRoutes configures all API routes with their middleware. Two
// authenticator chains exist: the default one, and the nurse-detail one that
// additionally accepts pre-auth tokens so a freshly created nurse can finish
// its profile before it can log in.
func SetupRoutes(router *gin.Engine, h Handlers, defaultAuth, nurseDetailAuth *auth.Authenticator, rateLimiter *middleware.RateLimiter, accessLogger *logrus.Logger) {
	router.Use(middleware.AccessLogger(accessLogger))
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/v1")

	public := v1.Group("/")
	{
		public.GET("/status", h.Status)
		public.GET("/health", h.Health)

		public.POST("/auth/login/nurse", h.Auth.NurseLogin)
		public.POST("/auth/login/client", h.Auth.ClientLogin)
		public.POST("/auth/login/organization", h.Auth.OrganizationLogin)
		public.POST("/auth/login/donor", h.Auth.DonorLogin)
		public.POST("/auth/login/admin", h.Auth.AdminLogin)
		public.POST("/auth/logout/admin", h.Auth.AdminLogout)

		public.POST("/accounts", h.Accounts.CreateAccount)
		public.POST("/patients/unauthenticated", h.Accounts.CreatePatientUnauthenticated)
		public.POST("/addresses/unauthenticated", h.Accounts.CreateAddressUnauthenticated)
	}

	protected := v1.Group("/")
	protected.Use(middleware.Authentication(defaultAuth))
	protected.Use(rateLimiter.RateLimit())
	{
		protected.POST("/auth/logout", h.Auth.Logout)

		protected.GET("/nurses", h.Nurses.List)

		protected.GET("/clients/:id", h.Accounts.GetClient)

		patients := protected.Group("/patients")
		{
			patients.POST("", h.Accounts.CreatePatient)
			patients.GET("", h.Accounts.ListPatients)
			patients.GET("/:id", h.Accounts.GetPatient)
			patients.PUT("/:id", h.Accounts.UpdatePatient)
			patients.DELETE("/:id", h.Accounts.DeletePatient)
		}

		addresses := protected.Group("/addresses")
		{
			addresses.POST("", h.Accounts.CreateAddress)
			addresses.GET("", h.Accounts.ListAddresses)
			addresses.GET("/:id", h.Accounts.GetAddress)
		}

		shifts := protected.Group("/shifts")
		{
			shifts.GET("", h.Shifts.List)
			shifts.GET("/:id", h.Shifts.Get)
			shifts.POST("/:id/claim", h.Shifts.Claim)
			shifts.POST("/:id/checkin", h.Shifts.Checkin)
			shifts.POST("/:id/checkout", h.Shifts.Checkout)
			shifts.GET("/:id/care-log", h.Shifts.ListCareLogEntries)
			shifts.PATCH("/:id", middleware.RequireStaff(), h.Shifts.UpdateStatus)
		}

		incidents := protected.Group("/shift-incidents")
		{
			incidents.POST("", h.Shifts.CreateIncident)
			incidents.GET("", h.Shifts.ListIncidents)
			incidents.GET("/:id", h.Shifts.GetIncident)
		}

		careLog := protected.Group("/care-log-entries")
		{
			careLog.POST("", h.Shifts.CreateCareLogEntry)
			careLog.GET("/:id", h.Shifts.GetCareLogEntry)
			careLog.PATCH("/:id", h.Shifts.UpdateCareLogEntry)
		}

		protected.PUT("/shift-schedules/:id/days", h.Shifts.ReplaceScheduleDays)

		staff := protected.Group("/")
		staff.Use(middleware.RequireStaff())
		{
			staff.POST("/nurses", h.Nurses.Create)
			staff.POST("/nurses/:id/send-set-password-email", h.Nurses.SendSetPasswordEmail)

			staff.GET("/metrics/care-log", h.Metrics.CareLog)
			staff.GET("/metrics/shifts", h.Metrics.Shifts)
		}

		internal := protected.Group("/internal")
		internal.Use(middleware.RequireInternal())
		{
			internal.POST("/debug-raise", h.Internal.DebugRaise)
			internal.POST("/expand-schedules", h.Internal.ExpandSchedules)
		}
	}

	// Nurse detail routes accept pre-auth tokens in addition to the default
	// credentials, so they carry their own authenticator chain.
	nurseDetail := v1.Group("/nurses")
	nurseDetail.Use(middleware.Authentication(nurseDetailAuth))
	nurseDetail.Use(rateLimiter.RateLimit())
	{
		nurseDetail.GET("/:id", h.Nurses.Get)
		nurseDetail.PUT("/:id", h.Nurses.Update)
		nurseDetail.POST("/:id/set-password", h.Nurses.SetPassword)
	}
}
