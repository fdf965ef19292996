package endpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/mindery/booking"
	"github.com/ariebrainware/mindery/middleware"
	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/slot"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	errSlotTaken     = errors.New("slot already booked")
	errStatusChanged = errors.New("appointment status changed concurrently")
)

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required" example:"approved"`
}

type AppointmentList struct {
	Count        int                     `json:"count" example:"2"`
	Appointments []model.AppointmentView `json:"appointments"`
}

type SessionStats struct {
	Total     int64 `json:"total" example:"20"`
	Pending   int64 `json:"pending" example:"4"`
	Approved  int64 `json:"approved" example:"6"`
	Rejected  int64 `json:"rejected" example:"2"`
	Completed int64 `json:"completed" example:"8"`
	Upcoming  int64 `json:"upcoming" example:"5"`
}

// requestedSlot maps the booking timestamps back to a date and wall-clock
// slot in loc.
func requestedSlot(req booking.Request, loc *time.Location) (string, slot.Slot, error) {
	start := req.SlotStart.In(loc)
	end := req.SlotEnd.In(loc)
	if !end.After(start) {
		return "", slot.Slot{}, fmt.Errorf("%w: slotEnd must be after slotStart", booking.ErrInvalidSelection)
	}
	if !start.Truncate(time.Minute).Equal(start) || !end.Truncate(time.Minute).Equal(end) {
		return "", slot.Slot{}, fmt.Errorf("%w: slot boundaries must be whole minutes", booking.ErrInvalidSelection)
	}
	date := start.Format(slot.DateLayout)
	endClock := end.Format(slot.ClockLayout)
	if end.Format(slot.DateLayout) != date {
		if endClock != "00:00" || end.Sub(start) > 24*time.Hour {
			return "", slot.Slot{}, fmt.Errorf("%w: slot must not span dates", booking.ErrInvalidSelection)
		}
		endClock = "24:00"
	}
	return date, slot.Slot{StartTime: start.Format(slot.ClockLayout), EndTime: endClock}, nil
}

func rejectBooking(c *gin.Context, msg string, err error) {
	util.Bookings.WithLabelValues("invalid").Inc()
	util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
}

// BookAppointment godoc
// @Summary      Book an appointment
// @Description  The slot must be one of the doctor's stored slots, not in the past, in a mode the doctor offers and not already held by a pending or approved appointment.
// @Tags         Appointments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body booking.Request true "Booking"
// @Success      201 {object} util.APIResponse{data=model.Appointment}
// @Failure      400 {object} util.APIResponse "Invalid booking"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Failure      409 {object} util.APIResponse "Slot already booked"
// @Router       /appointments [post]
func BookAppointment(c *gin.Context) {
	var req booking.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		rejectBooking(c, booking.ErrMissingSelection.Error(), err)
		return
	}
	studentID, ok := userIDOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	loc := appLocation()
	date, requested, err := requestedSlot(req, loc)
	if err != nil {
		rejectBooking(c, "Invalid slot", err)
		return
	}
	var doctor model.Doctor
	if !firstOrRespond(c, db, &doctor, req.DoctorID, "Doctor") {
		return
	}
	if !doctor.IsBookable() {
		rejectBooking(c, "Doctor is not available for booking", fmt.Errorf("doctor %d is %s", doctor.ID, doctor.IsAvailable))
		return
	}
	mode := booking.NormalizeMode(req.Mode)
	if !doctor.AcceptsMode(mode) {
		rejectBooking(c, fmt.Sprintf("Doctor only offers %s sessions", doctor.AvailabilityType), fmt.Errorf("mode %q not accepted", mode))
		return
	}

	stored, err := model.LoadDaySlots(db, doctor.ID, date)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve slots", Err: err})
		return
	}
	if !slot.Contains(stored, requested) {
		rejectBooking(c, "Selected slot is not offered by this doctor", fmt.Errorf("slot %s on %s not stored", requested, date))
		return
	}
	if !slot.Contains(slot.AvailableForDate(slot.DateSlots{date: stored}, date, nowFunc().In(loc)), requested) {
		rejectBooking(c, "Selected slot is in the past", fmt.Errorf("slot %s on %s already started", requested, date))
		return
	}

	appt := model.Appointment{
		Reference: uuid.NewString(),
		DoctorID:  doctor.ID,
		StudentID: studentID,
		SlotStart: req.SlotStart.UTC(),
		SlotEnd:   req.SlotEnd.UTC(),
		Mode:      mode,
		Notes:     strings.TrimSpace(req.Notes),
		Status:    model.StatusPending,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := model.LockDoctor(tx, doctor.ID); err != nil {
			return err
		}
		taken, err := model.HasLiveBooking(tx, doctor.ID, appt.SlotStart)
		if err != nil {
			return err
		}
		if taken {
			return errSlotTaken
		}
		return tx.Create(&appt).Error
	})
	if errors.Is(err, errSlotTaken) {
		util.Bookings.WithLabelValues("conflict").Inc()
		util.CallConflict(c, util.APIErrorParams{Msg: "This slot has just been booked, please pick another one", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to book appointment", Err: err})
		return
	}

	util.Bookings.WithLabelValues("booked").Inc()
	util.LogAppointmentBooked(studentID, c.ClientIP(), appt)
	util.CallCreated(c, util.APISuccessParams{Msg: "Appointment booked", Data: appt})
}

// appointmentViews selects appointments with the student and doctor names.
func appointmentViews(db *gorm.DB) *gorm.DB {
	return db.Table("appointments").
		Select("appointments.*, users.name AS student_name, users.email AS student_email, users.phone AS student_phone, doctors.name AS doctor_name").
		Joins("LEFT JOIN users ON users.id = appointments.student_id").
		Joins("LEFT JOIN doctors ON doctors.id = appointments.doctor_id").
		Where("appointments.deleted_at IS NULL")
}

func respondViews(c *gin.Context, q *gorm.DB, msg string) {
	views := make([]model.AppointmentView, 0)
	if err := q.Scan(&views).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointments", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: msg, Data: views})
}

func respondViewList(c *gin.Context, q *gorm.DB, msg string) {
	views := make([]model.AppointmentView, 0)
	if err := q.Scan(&views).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointments", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: msg, Data: AppointmentList{Count: len(views), Appointments: views}})
}

// ListMyAppointments godoc
// @Summary      Appointments of the student
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.AppointmentView}
// @Router       /appointments [get]
func ListMyAppointments(c *gin.Context) {
	studentID, ok := userIDOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	q := appointmentViews(db).Where("appointments.student_id = ?", studentID).Order("appointments.slot_start DESC")
	respondViews(c, q, "Appointments retrieved")
}

// MyUpcomingAppointments godoc
// @Summary      Pending and approved appointments that have not started
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=AppointmentList}
// @Router       /appointments/my/upcoming [get]
func MyUpcomingAppointments(c *gin.Context) {
	studentID, ok := userIDOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	q := appointmentViews(db).
		Where("appointments.student_id = ? AND appointments.status IN ? AND appointments.slot_start >= ?", studentID, model.LiveStatuses, nowFunc().UTC()).
		Order("appointments.slot_start ASC")
	respondViewList(c, q, "Upcoming appointments retrieved")
}

// MyAttendedAppointments godoc
// @Summary      Completed appointments of the student
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=AppointmentList}
// @Router       /appointments/my/attended [get]
func MyAttendedAppointments(c *gin.Context) {
	studentID, ok := userIDOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	q := appointmentViews(db).
		Where("appointments.student_id = ? AND appointments.status = ?", studentID, model.StatusCompleted).
		Order("appointments.slot_start DESC")
	respondViewList(c, q, "Attended appointments retrieved")
}

// DoctorAppointments godoc
// @Summary      Appointments of a doctor
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Param        doctorId path int true "Doctor ID"
// @Success      200 {object} util.APIResponse{data=[]model.AppointmentView}
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Router       /appointments/doctor/{doctorId} [get]
func DoctorAppointments(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "doctorId")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	if !ensureDoctorScope(c, db, doctorID) {
		return
	}
	q := appointmentViews(db).Where("appointments.doctor_id = ?", doctorID).Order("appointments.slot_start ASC")
	respondViews(c, q, "Appointments retrieved")
}

// DoctorApprovedAppointments godoc
// @Summary      Approved appointments of the calling doctor
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.AppointmentView}
// @Failure      404 {object} util.APIResponse "Doctor profile not found"
// @Router       /appointments/approved [get]
func DoctorApprovedAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctor, ok := linkedDoctorOrRespond(c, db)
	if !ok {
		return
	}
	q := appointmentViews(db).
		Where("appointments.doctor_id = ? AND appointments.status = ?", doctor.ID, model.StatusApproved).
		Order("appointments.slot_start ASC")
	respondViews(c, q, "Approved appointments retrieved")
}

// DoctorSessions godoc
// @Summary      Booking queue of the calling doctor
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.AppointmentView}
// @Failure      404 {object} util.APIResponse "Doctor profile not found"
// @Router       /sessions/my-sessions [get]
func DoctorSessions(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctor, ok := linkedDoctorOrRespond(c, db)
	if !ok {
		return
	}
	q := appointmentViews(db).Where("appointments.doctor_id = ?", doctor.ID).Order("appointments.slot_start ASC")
	respondViews(c, q, "Sessions retrieved")
}

// AdminAppointments godoc
// @Summary      All appointments, optionally filtered by status
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "pending, approved, rejected or completed"
// @Success      200 {object} util.APIResponse{data=[]model.AppointmentView}
// @Failure      400 {object} util.APIResponse "Unknown status"
// @Router       /admin/appointments [get]
func AdminAppointments(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !model.IsValidStatus(status) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Unknown status", Err: fmt.Errorf("invalid status %q", status)})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	q := appointmentViews(db).Order("appointments.slot_start DESC")
	if status != "" {
		q = q.Where("appointments.status = ?", status)
	}
	respondViews(c, q, "Appointments retrieved")
}

// AppointmentsWithStatus lists every appointment in status in slot order.
// It backs the admin pending, approved and rejected lists.
func AppointmentsWithStatus(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		db, ok := getDBOrRespond(c)
		if !ok {
			return
		}
		q := appointmentViews(db).Where("appointments.status = ?", status).Order("appointments.slot_start ASC")
		respondViews(c, q, "Appointments retrieved")
	}
}

// UpdateAppointmentStatus godoc
// @Summary      Change the status of an appointment
// @Description  pending -> approved or rejected, approved -> completed. The student is notified by mail when SMTP is configured.
// @Tags         Appointments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Appointment ID"
// @Param        request body UpdateStatusRequest true "New status"
// @Success      200 {object} util.APIResponse{data=model.Appointment}
// @Failure      400 {object} util.APIResponse "Invalid transition"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Failure      409 {object} util.APIResponse "Status changed concurrently"
// @Router       /appointments/{id}/status [patch]
func UpdateAppointmentStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	next := strings.ToLower(strings.TrimSpace(req.Status))
	if !model.IsValidStatus(next) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Unknown status", Err: fmt.Errorf("invalid status %q", req.Status)})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var appt model.Appointment
	if !firstOrRespond(c, db, &appt, id, "Appointment") {
		return
	}
	if !ensureDoctorScope(c, db, appt.DoctorID) {
		return
	}

	from := appt.Status
	if err := appt.TransitionTo(next); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: fmt.Sprintf("Cannot move a %s appointment to %s", from, next), Err: err})
		return
	}
	res := db.Model(&model.Appointment{}).Where("id = ? AND status = ?", appt.ID, from).Update("status", appt.Status)
	if res.Error != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update appointment", Err: res.Error})
		return
	}
	if res.RowsAffected == 0 {
		util.CallConflict(c, util.APIErrorParams{Msg: "Appointment was updated by someone else, please reload", Err: errStatusChanged})
		return
	}

	util.StatusTransitions.WithLabelValues(from, appt.Status).Inc()
	actorID, _ := middleware.GetUserID(c)
	util.LogStatusChanged(actorID, c.ClientIP(), appt.ID, from, appt.Status)
	notifyStudent(db, appt)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment " + appt.Status, Data: appt})
}

func notifyStudent(db *gorm.DB, appt model.Appointment) {
	if mailer == nil {
		return
	}
	var doctor model.Doctor
	if err := db.Select("name").First(&doctor, appt.DoctorID).Error; err != nil {
		doctor.Name = "your counsellor"
	}
	mailer.NotifyStatusAsync(util.GetUserContact(db, appt.StudentID), doctor.Name, appt, appLocation())
}

// DeleteAppointment godoc
// @Summary      Delete an appointment
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Appointment ID"
// @Success      200 {object} util.APIResponse
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Router       /admin/appointments/{id} [delete]
func DeleteAppointment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var appt model.Appointment
	if !firstOrRespond(c, db, &appt, id, "Appointment") {
		return
	}
	if err := db.Delete(&appt).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete appointment", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment deleted"})
}

// AdminSessionStats godoc
// @Summary      Appointment counts by status
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=SessionStats}
// @Router       /admin/stats/sessions [get]
func AdminSessionStats(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&model.Appointment{}).Select("status, count(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to compute stats", Err: err})
		return
	}
	var stats SessionStats
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Status {
		case model.StatusPending:
			stats.Pending = r.Count
		case model.StatusApproved:
			stats.Approved = r.Count
		case model.StatusRejected:
			stats.Rejected = r.Count
		case model.StatusCompleted:
			stats.Completed = r.Count
		}
	}
	if err := db.Model(&model.Appointment{}).
		Where("status IN ? AND slot_start >= ?", model.LiveStatuses, nowFunc().UTC()).
		Count(&stats.Upcoming).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to compute stats", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Session stats retrieved", Data: stats})
}
