package endpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ariebrainware/mindery/middleware"
	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const doctorsCacheKey = "doctors"

var (
	errDoctorNotLinked   = errors.New("no doctor profile is linked to this account")
	errEmailTaken        = errors.New("email already exists")
	errUnknownUniversity = errors.New("one or more universities do not exist")
)

type CreateDoctorRequest struct {
	Name             string `json:"name" binding:"required" example:"Dr. Sari"`
	Specialization   string `json:"specialization" binding:"required" example:"Clinical Psychology"`
	Email            string `json:"email" binding:"required,email" example:"sari@example.com"`
	Phone            string `json:"phone" example:"081234567890"`
	AvailabilityType string `json:"availabilityType" example:"both"`
	IsAvailable      string `json:"isAvailable" example:"available"`
	UniversityIDs    []uint `json:"universityIds" example:"1"`
}

type CreateDoctorResponse struct {
	Doctor model.Doctor `json:"doctor"`
	// Password is the generated password of the doctor's login account.
	Password string `json:"password" example:"q2Zc8tM1xVbN0aLr"`
}

type UpdateDoctorRequest struct {
	Name             *string `json:"name" example:"Dr. Sari"`
	Specialization   *string `json:"specialization" example:"Counselling"`
	Phone            *string `json:"phone" example:"081234567890"`
	AvailabilityType *string `json:"availabilityType" example:"online"`
	IsAvailable      *string `json:"isAvailable" example:"not_available"`
	UniversityIDs    *[]uint `json:"universityIds"`
}

func validateDoctorModes(availabilityType, isAvailable string) error {
	if availabilityType != "" && !model.IsValidAvailabilityType(availabilityType) {
		return fmt.Errorf("availabilityType must be online, offline or both")
	}
	if isAvailable != "" && !model.IsValidAvailabilityStatus(isAvailable) {
		return fmt.Errorf("isAvailable must be available or not_available")
	}
	return nil
}

func loadUniversities(tx *gorm.DB, ids []uint) ([]model.University, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []model.University{}, nil
	}
	var universities []model.University
	if err := tx.Where("id IN ?", ids).Find(&universities).Error; err != nil {
		return nil, err
	}
	if len(universities) != len(ids) {
		return nil, errUnknownUniversity
	}
	return universities, nil
}

// ListDoctors godoc
// @Summary      List doctors
// @Tags         Doctors
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Doctor}
// @Router       /doctors [get]
func ListDoctors(c *gin.Context) {
	if cached, ok := util.CachedDirectory(doctorsCacheKey); ok {
		util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: cached})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var doctors []model.Doctor
	if err := db.Preload("Universities").Order("name ASC").Find(&doctors).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctors", Err: err})
		return
	}
	util.StoreDirectory(doctorsCacheKey, doctors)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: doctors})
}

// CreateDoctor godoc
// @Summary      Create doctor
// @Description  Creates the doctor and a linked login account with a generated password
// @Tags         Doctors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateDoctorRequest true "Doctor"
// @Success      201 {object} util.APIResponse{data=CreateDoctorResponse}
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      409 {object} util.APIResponse "Email already exists"
// @Router       /doctors [post]
func CreateDoctor(c *gin.Context) {
	var req CreateDoctorRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if err := validateDoctorModes(req.AvailabilityType, req.IsAvailable); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	password, err := util.GeneratePassword()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate password", Err: err})
		return
	}
	hashed, salt, ok := hashPasswordOrRespond(c, password)
	if !ok {
		return
	}

	email := util.NormalizeEmail(req.Email)
	doctor := model.Doctor{
		Name:             util.NormalizeName(req.Name),
		Specialization:   strings.TrimSpace(req.Specialization),
		Email:            email,
		Phone:            req.Phone,
		AvailabilityType: req.AvailabilityType,
		IsAvailable:      req.IsAvailable,
	}
	if doctor.AvailabilityType == "" {
		doctor.AvailabilityType = model.AvailabilityBoth
	}
	if doctor.IsAvailable == "" {
		doctor.IsAvailable = model.DoctorAvailable
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errEmailTaken
		}
		role, err := model.FindRoleByName(tx, model.RoleDoctor)
		if err != nil {
			return fmt.Errorf("failed to find doctor role: %w", err)
		}
		user := model.User{
			Name:         doctor.Name,
			Email:        email,
			Phone:        req.Phone,
			Password:     hashed,
			PasswordSalt: salt,
			RoleID:       role.ID,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		universities, err := loadUniversities(tx, req.UniversityIDs)
		if err != nil {
			return err
		}
		doctor.UserID = &user.ID
		doctor.Universities = universities
		return tx.Create(&doctor).Error
	})
	if respondDoctorWriteError(c, err, "Failed to create doctor") {
		return
	}

	util.FlushDirectory()
	util.CallCreated(c, util.APISuccessParams{
		Msg:  "Doctor created",
		Data: CreateDoctorResponse{Doctor: doctor, Password: password},
	})
}

func respondDoctorWriteError(c *gin.Context, err error, msg string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, errEmailTaken):
		util.CallConflict(c, util.APIErrorParams{Msg: "Email already exists", Err: err})
	case errors.Is(err, errUnknownUniversity):
		util.CallUserError(c, util.APIErrorParams{Msg: "One or more universities do not exist", Err: err})
	default:
		util.CallServerError(c, util.APIErrorParams{Msg: msg, Err: err})
	}
	return true
}

// UpdateDoctor godoc
// @Summary      Update doctor
// @Description  Partial update. Setting isAvailable to not_available clears the doctor's slots.
// @Tags         Doctors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Doctor ID"
// @Param        request body UpdateDoctorRequest true "Fields to change"
// @Success      200 {object} util.APIResponse{data=model.Doctor}
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Router       /doctors/{id} [put]
func UpdateDoctor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateDoctorRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if err := validateDoctorModes(deref(req.AvailabilityType), deref(req.IsAvailable)); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
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

	applyDoctorUpdate(&doctor, req)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Universities").Save(&doctor).Error; err != nil {
			return err
		}
		if !doctor.IsBookable() {
			if err := model.ReplaceDateSlots(tx, doctor.ID, nil); err != nil {
				return err
			}
		}
		if req.UniversityIDs == nil {
			return nil
		}
		universities, err := loadUniversities(tx, *req.UniversityIDs)
		if err != nil {
			return err
		}
		return tx.Model(&doctor).Association("Universities").Replace(universities)
	})
	if respondDoctorWriteError(c, err, "Failed to update doctor") {
		return
	}

	util.InvalidateDateSlots(c.Request.Context(), doctor.ID)
	util.FlushDirectory()
	if err := db.Preload("Universities").First(&doctor, doctor.ID).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctor", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctor updated", Data: doctor})
}

func applyDoctorUpdate(doctor *model.Doctor, req UpdateDoctorRequest) {
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		doctor.Name = util.NormalizeName(*req.Name)
	}
	if req.Specialization != nil && strings.TrimSpace(*req.Specialization) != "" {
		doctor.Specialization = strings.TrimSpace(*req.Specialization)
	}
	if req.Phone != nil {
		doctor.Phone = *req.Phone
	}
	if req.AvailabilityType != nil {
		doctor.AvailabilityType = *req.AvailabilityType
	}
	if req.IsAvailable != nil {
		doctor.IsAvailable = *req.IsAvailable
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// DeleteDoctor godoc
// @Summary      Delete doctor
// @Tags         Doctors
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Doctor ID"
// @Success      200 {object} util.APIResponse
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Router       /doctors/{id} [delete]
func DeleteDoctor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
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

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := model.ReplaceDateSlots(tx, doctor.ID, nil); err != nil {
			return err
		}
		if err := tx.Model(&doctor).Association("Universities").Clear(); err != nil {
			return err
		}
		if doctor.UserID != nil {
			if err := tx.Delete(&model.User{}, *doctor.UserID).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("user_id = ?", *doctor.UserID).Delete(&model.Session{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&doctor).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete doctor", Err: err})
		return
	}
	if doctor.UserID != nil {
		_ = util.InvalidateUserSessions(c.Request.Context(), *doctor.UserID)
		util.ForgetUserContact(*doctor.UserID)
	}
	util.InvalidateDateSlots(c.Request.Context(), doctor.ID)
	util.FlushDirectory()
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctor deleted"})
}

// MyUniversityBookableDoctors godoc
// @Summary      Bookable doctors of the student's university
// @Tags         Doctors
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Doctor}
// @Failure      404 {object} util.APIResponse "Not linked to a university"
// @Router       /doctors/my-university [get]
func MyUniversityBookableDoctors(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	universityID, ok := myUniversityOrRespond(c, db)
	if !ok {
		return
	}
	doctors, err := universityDoctors(db.Where("doctors.is_available = ?", model.DoctorAvailable), universityID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctors", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: doctors})
}

// linkedDoctor returns the doctor profile of a doctor account.
func linkedDoctor(db *gorm.DB, userID uint) (model.Doctor, error) {
	var doctor model.Doctor
	err := db.Where("user_id = ?", userID).First(&doctor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return doctor, errDoctorNotLinked
	}
	return doctor, err
}

func linkedDoctorOrRespond(c *gin.Context, db *gorm.DB) (model.Doctor, bool) {
	userID, ok := userIDOrRespond(c)
	if !ok {
		return model.Doctor{}, false
	}
	doctor, err := linkedDoctor(db, userID)
	if errors.Is(err, errDoctorNotLinked) {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Doctor profile not found", Err: err})
		return model.Doctor{}, false
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctor", Err: err})
		return model.Doctor{}, false
	}
	return doctor, true
}

// ensureDoctorScope lets admins through and limits doctors to their own
// profile.
func ensureDoctorScope(c *gin.Context, db *gorm.DB, doctorID uint) bool {
	role, _ := middleware.GetRole(c)
	if role != model.RoleDoctor {
		return true
	}
	doctor, ok := linkedDoctorOrRespond(c, db)
	if !ok {
		return false
	}
	if doctor.ID != doctorID {
		userID, _ := middleware.GetUserID(c)
		util.LogForbiddenAccess(userID, role, c.ClientIP(), c.Request.URL.Path)
		util.CallForbidden(c, util.APIErrorParams{
			Msg: "You can only manage your own schedule",
			Err: fmt.Errorf("doctor %d is not linked to user %d", doctorID, userID),
		})
		return false
	}
	return true
}
