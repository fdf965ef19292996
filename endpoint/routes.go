package endpoint

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ariebrainware/mindery/config"
	"github.com/ariebrainware/mindery/middleware"
	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterRoutes mounts every API route on r, serving db to the handlers.
func RegisterRoutes(r *gin.Engine, db *gorm.DB) {
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RequestMetrics())
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.EndpointCallLogger())

	r.GET("/", Welcome)
	r.GET("/healthz", Healthz)
	r.GET("/metrics", gin.WrapH(util.MetricsHandler()))

	api := r.Group("/api")
	auth := middleware.ValidateLoginToken()
	admin := middleware.RequireRoles(model.RoleAdmin)
	staff := middleware.RequireRoles(model.RoleAdmin, model.RoleDoctor)
	student := middleware.RequireRoles(model.RoleStudent)
	doctor := middleware.RequireRoles(model.RoleDoctor)
	uniStaff := middleware.RequireRoles(model.RoleAdmin, model.RoleUniversityAdmin)
	uniAdmin := middleware.RequireRoles(model.RoleUniversityAdmin)

	api.POST("/auth/signup", Signup)
	api.POST("/auth/login", middleware.RateLimiter(middleware.RateLimitConfig{Limit: 10, Window: 15 * time.Minute}), Login)
	api.DELETE("/auth/logout", auth, Logout)
	api.GET("/auth/me", auth, Me)
	api.PATCH("/auth/me", auth, UpdateProfile)
	api.GET("/auth/token/validate", auth, ValidateSession)
	api.GET("/me", auth, Me)

	api.GET("/universities", ListUniversities)
	universities := api.Group("/universities", auth)
	{
		universities.POST("", admin, CreateUniversity)
		universities.GET("/doctors/all", uniStaff, ListAllDoctorsForAssignment)
		universities.GET("/my-university/doctors", uniAdmin, MyUniversityDoctors)
		universities.GET("/my-university/students/count", uniAdmin, MyUniversityStudentCount)
		universities.DELETE("/:id", admin, DeleteUniversity)
		universities.GET("/:id/students", uniStaff, ListUniversityStudents)
		universities.GET("/:id/doctors", uniStaff, ListUniversityDoctors)
		universities.POST("/:id/doctors", uniStaff, AssignDoctors)
		universities.DELETE("/:id/doctors/:doctorId", uniStaff, UnassignDoctor)
	}

	doctors := api.Group("/doctors", auth)
	{
		doctors.GET("", ListDoctors)
		doctors.POST("", admin, CreateDoctor)
		doctors.GET("/my-university", student, MyUniversityBookableDoctors)
		doctors.PUT("/:id", admin, UpdateDoctor)
		doctors.DELETE("/:id", admin, DeleteDoctor)
		doctors.GET("/:id/all-slots", staff, GetDoctorSlots)
		doctors.PATCH("/:id/all-slots", staff, ReplaceDoctorSlots)
		doctors.POST("/:id/slots/generate", staff, GenerateDoctorSlots)
		doctors.GET("/:id/availability/:date", DoctorAvailability)
		doctors.GET("/:id/available-dates", DoctorAvailableDates)
	}

	appointments := api.Group("/appointments", auth)
	{
		appointments.POST("", student, BookAppointment)
		appointments.GET("", student, ListMyAppointments)
		appointments.GET("/my/upcoming", student, MyUpcomingAppointments)
		appointments.GET("/my/attended", student, MyAttendedAppointments)
		appointments.GET("/approved", doctor, DoctorApprovedAppointments)
		appointments.GET("/doctor/:doctorId", staff, DoctorAppointments)
		appointments.PATCH("/:id", staff, UpdateAppointmentStatus)
		appointments.PATCH("/:id/status", staff, UpdateAppointmentStatus)
	}

	sessions := api.Group("/sessions", auth)
	{
		sessions.POST("", student, BookAppointment)
		sessions.GET("/my-sessions", doctor, DoctorSessions)
	}

	adminGroup := api.Group("/admin", auth, admin)
	{
		adminGroup.GET("/appointments", AdminAppointments)
		adminGroup.GET("/appointments/pending", AppointmentsWithStatus(model.StatusPending))
		adminGroup.PATCH("/appointments/:id/status", UpdateAppointmentStatus)
		adminGroup.DELETE("/appointments/:id", DeleteAppointment)
		adminGroup.GET("/approved", AppointmentsWithStatus(model.StatusApproved))
		adminGroup.GET("/rejected", AppointmentsWithStatus(model.StatusRejected))
		adminGroup.GET("/stats/sessions", AdminSessionStats)
		adminGroup.GET("/users", ListUsers)
		adminGroup.DELETE("/users/:id", DeleteUser)
	}

	reports := api.Group("/reports", auth, staff)
	{
		reports.GET("", ListReports)
		reports.POST("", CreateReport)
		reports.GET("/summary", ReportSummary)
		reports.PUT("/:id", UpdateReport)
		reports.DELETE("/:id", DeleteReport)
	}

	api.GET("/assessments", ListAssessments)
	api.GET("/assessments/:slug", GetAssessment)
	api.POST("/assessments/:slug/submit", auth, SubmitAssessment)
}

// Welcome godoc
// @Summary      Welcome message
// @Tags         Ops
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       / [get]
func Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Welcome to %s!", config.LoadConfig().AppName),
	})
}

// Healthz godoc
// @Summary      Liveness and database check
// @Tags         Ops
// @Produce      json
// @Success      200 {object} util.APIResponse
// @Failure      500 {object} util.APIResponse "Database unreachable"
// @Router       /healthz [get]
func Healthz(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database unreachable", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "ok"})
}
