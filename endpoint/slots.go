package endpoint

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ariebrainware/mindery/middleware"
	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/slot"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultAvailableDays = 14
	maxAvailableDays     = 60
)

type DoctorSchedule struct {
	DoctorID         uint           `json:"doctorId" example:"1"`
	AvailabilityType string         `json:"availabilityType" example:"both"`
	IsAvailable      string         `json:"isAvailable" example:"available"`
	DateSlots        slot.DateSlots `json:"dateSlots"`
}

type ReplaceSlotsRequest struct {
	DateSlots   slot.DateSlots `json:"dateSlots"`
	IsAvailable string         `json:"isAvailable" example:"available"`
}

type GenerateSlotsRequest struct {
	Date     string `json:"date" binding:"required" example:"2025-01-18"`
	Start    string `json:"start" binding:"required" example:"09:00"`
	End      string `json:"end" binding:"required" example:"12:00"`
	// Duration <= 0 generates no slots.
	Duration int    `json:"duration" example:"15"`
	// Save replaces the stored slots of the date with the generated ones.
	Save bool `json:"save" example:"false"`
}

type DayAvailabilityResponse struct {
	Date  string      `json:"date" example:"2025-01-18"`
	Slots []slot.Slot `json:"slots"`
}

// storedDateSlots returns the doctor's full stored schedule, through the
// redis cache when it is enabled.
func storedDateSlots(ctx context.Context, db *gorm.DB, doctorID uint) (slot.DateSlots, error) {
	if ds, ok := util.CachedDateSlots(ctx, doctorID); ok {
		return ds, nil
	}
	ds, err := model.LoadDateSlots(db, doctorID)
	if err != nil {
		return nil, err
	}
	util.CacheDateSlots(ctx, doctorID, ds)
	return ds, nil
}

// bookableSlots is what a student can still pick for the doctor on date:
// stored, not in the past, and not held by a live appointment.
func bookableSlots(ctx context.Context, db *gorm.DB, doctor model.Doctor, date string, now time.Time) ([]slot.Slot, error) {
	if !doctor.IsBookable() {
		return []slot.Slot{}, nil
	}
	ds, err := storedDateSlots(ctx, db, doctor.ID)
	if err != nil {
		return nil, err
	}
	free := slot.AvailableForDate(ds, date, now)
	if len(free) == 0 {
		return free, nil
	}
	taken, err := model.TakenSlots(db, doctor.ID, date, now.Location())
	if err != nil {
		return nil, err
	}
	return slot.Exclude(free, taken), nil
}

// GetDoctorSlots godoc
// @Summary      Stored slots of a doctor
// @Tags         Slots
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Doctor ID"
// @Success      200 {object} util.APIResponse{data=DoctorSchedule}
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Router       /doctors/{id}/all-slots [get]
func GetDoctorSlots(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	if !ensureDoctorScope(c, db, id) {
		return
	}
	var doctor model.Doctor
	if !firstOrRespond(c, db, &doctor, id, "Doctor") {
		return
	}
	ds, err := storedDateSlots(c.Request.Context(), db, doctor.ID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve slots", Err: err})
		return
	}
	util.SlotQueries.WithLabelValues("schedule").Inc()
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Slots retrieved", Data: DoctorSchedule{
		DoctorID:         doctor.ID,
		AvailabilityType: doctor.AvailabilityType,
		IsAvailable:      doctor.IsAvailable,
		DateSlots:        ds,
	}})
}

// validateDateSlots checks every date key and the slots under it. Dates
// with no slots are dropped.
func validateDateSlots(ds slot.DateSlots) (slot.DateSlots, error) {
	out := slot.DateSlots{}
	for date, slots := range ds {
		if _, err := time.Parse(slot.DateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid date %q", date)
		}
		validated, err := slot.ValidateDay(slots)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", date, err)
		}
		if len(validated) > 0 {
			out[date] = validated
		}
	}
	return out, nil
}

func countSlots(ds slot.DateSlots) int {
	n := 0
	for _, slots := range ds {
		n += len(slots)
	}
	return n
}

// ReplaceDoctorSlots godoc
// @Summary      Replace the stored slots of a doctor
// @Description  Replaces every stored slot. With isAvailable=not_available all slots are cleared.
// @Tags         Slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Doctor ID"
// @Param        request body ReplaceSlotsRequest true "Schedule"
// @Success      200 {object} util.APIResponse{data=DoctorSchedule}
// @Failure      400 {object} util.APIResponse "Malformed or overlapping slots"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Router       /doctors/{id}/all-slots [patch]
func ReplaceDoctorSlots(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReplaceSlotsRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if req.IsAvailable != "" && !model.IsValidAvailabilityStatus(req.IsAvailable) {
		util.CallUserError(c, util.APIErrorParams{Msg: "isAvailable must be available or not_available", Err: fmt.Errorf("invalid isAvailable %q", req.IsAvailable)})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	if !ensureDoctorScope(c, db, id) {
		return
	}
	var doctor model.Doctor
	if !firstOrRespond(c, db, &doctor, id, "Doctor") {
		return
	}

	if req.IsAvailable != "" {
		doctor.IsAvailable = req.IsAvailable
	}
	ds := slot.DateSlots{}
	if doctor.IsBookable() {
		validated, err := validateDateSlots(req.DateSlots)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
			return
		}
		ds = validated
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&doctor).Update("is_available", doctor.IsAvailable).Error; err != nil {
			return err
		}
		return model.ReplaceDateSlots(tx, doctor.ID, ds)
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to save slots", Err: err})
		return
	}

	util.InvalidateDateSlots(c.Request.Context(), doctor.ID)
	util.FlushDirectory()
	actorID, _ := middleware.GetUserID(c)
	util.LogSlotsReplaced(actorID, c.ClientIP(), doctor.ID, len(ds), countSlots(ds))

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Slots updated", Data: DoctorSchedule{
		DoctorID:         doctor.ID,
		AvailabilityType: doctor.AvailabilityType,
		IsAvailable:      doctor.IsAvailable,
		DateSlots:        ds,
	}})
}

// GenerateDoctorSlots godoc
// @Summary      Generate contiguous slots for a working window
// @Description  Returns [start, start+duration] slots that fit before end. With save=true they replace the stored slots of the date.
// @Tags         Slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Doctor ID"
// @Param        request body GenerateSlotsRequest true "Window"
// @Success      200 {object} util.APIResponse{data=DayAvailabilityResponse}
// @Failure      400 {object} util.APIResponse "Invalid date"
// @Router       /doctors/{id}/slots/generate [post]
func GenerateDoctorSlots(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req GenerateSlotsRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if _, err := time.Parse(slot.DateLayout, req.Date); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid date", Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	if !ensureDoctorScope(c, db, id) {
		return
	}
	var doctor model.Doctor
	if !firstOrRespond(c, db, &doctor, id, "Doctor") {
		return
	}

	generated := slot.Generate(req.Start, req.End, req.Duration)
	if req.Save {
		if !doctor.IsBookable() {
			util.CallUserError(c, util.APIErrorParams{Msg: "Doctor is not available", Err: fmt.Errorf("doctor %d is not_available", doctor.ID)})
			return
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			return model.ReplaceDaySlots(tx, doctor.ID, req.Date, generated)
		}); err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to save slots", Err: err})
			return
		}
		util.InvalidateDateSlots(c.Request.Context(), doctor.ID)
		actorID, _ := middleware.GetUserID(c)
		util.LogSlotsReplaced(actorID, c.ClientIP(), doctor.ID, 1, len(generated))
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Slots generated", Data: DayAvailabilityResponse{Date: req.Date, Slots: generated}})
}

// DoctorAvailability godoc
// @Summary      Bookable slots of a doctor on a date
// @Description  Future dates return every free stored slot. Today returns only slots starting now or later.
// @Tags         Slots
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Doctor ID"
// @Param        date path string true "Date (YYYY-MM-DD)"
// @Success      200 {object} util.APIResponse{data=DayAvailabilityResponse}
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Router       /doctors/{id}/availability/{date} [get]
func DoctorAvailability(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	date := c.Param("date")
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var doctor model.Doctor
	if !firstOrRespond(c, db, &doctor, id, "Doctor") {
		return
	}
	slots, err := bookableSlots(c.Request.Context(), db, doctor, date, localNow())
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve availability", Err: err})
		return
	}
	util.SlotQueries.WithLabelValues("day").Inc()
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Availability retrieved", Data: DayAvailabilityResponse{Date: date, Slots: slots}})
}

// DoctorAvailableDates godoc
// @Summary      Upcoming dates with bookable slots
// @Tags         Slots
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Doctor ID"
// @Param        days query int false "Days to look ahead (default 14, max 60)"
// @Success      200 {object} util.APIResponse{data=[]slot.DayAvailability}
// @Failure      400 {object} util.APIResponse "Invalid days"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Router       /doctors/{id}/available-dates [get]
func DoctorAvailableDates(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	days, ok := parseDays(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var doctor model.Doctor
	if !firstOrRespond(c, db, &doctor, id, "Doctor") {
		return
	}

	result := make([]slot.DayAvailability, 0)
	if doctor.IsBookable() {
		now := localNow()
		ds, err := storedDateSlots(c.Request.Context(), db, doctor.ID)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve availability", Err: err})
			return
		}
		for _, day := range slot.AvailableDates(ds, now, days) {
			taken, err := model.TakenSlots(db, doctor.ID, day.Date, now.Location())
			if err != nil {
				util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve availability", Err: err})
				return
			}
			if free := slot.Exclude(day.Slots, taken); len(free) > 0 {
				result = append(result, slot.DayAvailability{Date: day.Date, Slots: free})
			}
		}
	}
	util.SlotQueries.WithLabelValues("dates").Inc()
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Available dates retrieved", Data: result})
}

func parseDays(c *gin.Context) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return defaultAvailableDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "days must be a positive number", Err: fmt.Errorf("invalid days %q", raw)})
		return 0, false
	}
	if days > maxAvailableDays {
		days = maxAvailableDays
	}
	return days, true
}
