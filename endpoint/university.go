package endpoint

import (
	"fmt"
	"strings"

	"github.com/ariebrainware/mindery/middleware"
	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const universitiesCacheKey = "universities"

type CreateUniversityRequest struct {
	Name     string `json:"name" binding:"required" example:"Universitas Indonesia"`
	Location string `json:"location" example:"Depok"`
}

type AssignDoctorsRequest struct {
	DoctorIDs []uint `json:"doctorIds" binding:"required,min=1" example:"1,2"`
}

type CountResponse struct {
	Count int64 `json:"count" example:"42"`
}

// ListUniversities godoc
// @Summary      List universities
// @Description  Public list used by the signup form
// @Tags         Universities
// @Produce      json
// @Success      200 {object} util.APIResponse{data=[]model.University}
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /universities [get]
func ListUniversities(c *gin.Context) {
	if cached, ok := util.CachedDirectory(universitiesCacheKey); ok {
		util.CallSuccessOK(c, util.APISuccessParams{Msg: "Universities retrieved", Data: cached})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var universities []model.University
	if err := db.Order("name ASC").Find(&universities).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve universities", Err: err})
		return
	}
	util.StoreDirectory(universitiesCacheKey, universities)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Universities retrieved", Data: universities})
}

// CreateUniversity godoc
// @Summary      Create university
// @Tags         Universities
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateUniversityRequest true "University"
// @Success      201 {object} util.APIResponse{data=model.University}
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      409 {object} util.APIResponse "University already exists"
// @Router       /universities [post]
func CreateUniversity(c *gin.Context) {
	var req CreateUniversityRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: "Name is required", Err: fmt.Errorf("empty name")})
		return
	}

	var count int64
	if err := db.Model(&model.University{}).Where("name = ?", name).Count(&count).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return
	}
	if count > 0 {
		util.CallConflict(c, util.APIErrorParams{Msg: "University already exists", Err: fmt.Errorf("duplicate university %q", name)})
		return
	}

	university := model.University{Name: name, Location: strings.TrimSpace(req.Location)}
	if err := db.Create(&university).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create university", Err: err})
		return
	}
	util.FlushDirectory()
	util.CallCreated(c, util.APISuccessParams{Msg: "University created", Data: university})
}

// DeleteUniversity godoc
// @Summary      Delete university
// @Tags         Universities
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "University ID"
// @Success      200 {object} util.APIResponse
// @Failure      404 {object} util.APIResponse "University not found"
// @Router       /universities/{id} [delete]
func DeleteUniversity(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var university model.University
	if !firstOrRespond(c, db, &university, id, "University") {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&university).Association("Doctors").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).Where("university_id = ?", id).Update("university_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&university).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete university", Err: err})
		return
	}
	util.FlushDirectory()
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "University deleted"})
}

// ensureUniversityScope lets admins through and limits university admins to
// their own university.
func ensureUniversityScope(c *gin.Context, db *gorm.DB, universityID uint) bool {
	role, _ := middleware.GetRole(c)
	if role == model.RoleAdmin {
		return true
	}
	user, ok := currentUserOrRespond(c, db)
	if !ok {
		return false
	}
	if user.UniversityID == nil || *user.UniversityID != universityID {
		util.LogForbiddenAccess(user.ID, role, c.ClientIP(), c.Request.URL.Path)
		util.CallForbidden(c, util.APIErrorParams{
			Msg: "You do not have access to this university",
			Err: fmt.Errorf("user %d is not a member of university %d", user.ID, universityID),
		})
		return false
	}
	return true
}

// myUniversityOrRespond resolves the university of the authenticated user.
func myUniversityOrRespond(c *gin.Context, db *gorm.DB) (uint, bool) {
	user, ok := currentUserOrRespond(c, db)
	if !ok {
		return 0, false
	}
	if user.UniversityID == nil {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "You are not linked to a university", Err: fmt.Errorf("user %d has no university", user.ID)})
		return 0, false
	}
	return *user.UniversityID, true
}

func studentsQuery(db *gorm.DB, universityID uint) *gorm.DB {
	return db.Model(&model.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.university_id = ? AND roles.name = ?", universityID, model.RoleStudent)
}

// ListUniversityStudents godoc
// @Summary      Students of a university
// @Tags         Universities
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "University ID"
// @Success      200 {object} util.APIResponse{data=[]model.Profile}
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Router       /universities/{id}/students [get]
func ListUniversityStudents(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	if !ensureUniversityScope(c, db, id) {
		return
	}
	var users []model.User
	if err := studentsQuery(db, id).Order("users.name ASC").Find(&users).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve students", Err: err})
		return
	}
	profiles := make([]model.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, model.ProfileOf(u, model.RoleStudent))
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Students retrieved", Data: profiles})
}

func universityDoctors(db *gorm.DB, universityID uint) ([]model.Doctor, error) {
	var doctors []model.Doctor
	err := db.Joins("JOIN university_doctors ON university_doctors.doctor_id = doctors.id").
		Where("university_doctors.university_id = ?", universityID).
		Order("doctors.name ASC").
		Find(&doctors).Error
	return doctors, err
}

// ListUniversityDoctors godoc
// @Summary      Doctors assigned to a university
// @Tags         Universities
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "University ID"
// @Success      200 {object} util.APIResponse{data=[]model.Doctor}
// @Router       /universities/{id}/doctors [get]
func ListUniversityDoctors(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	if !ensureUniversityScope(c, db, id) {
		return
	}
	doctors, err := universityDoctors(db, id)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctors", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: doctors})
}

// AssignDoctors godoc
// @Summary      Assign doctors to a university
// @Tags         Universities
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "University ID"
// @Param        request body AssignDoctorsRequest true "Doctor ids"
// @Success      200 {object} util.APIResponse{data=[]model.Doctor}
// @Failure      400 {object} util.APIResponse "Unknown doctor"
// @Router       /universities/{id}/doctors [post]
func AssignDoctors(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req AssignDoctorsRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	if !ensureUniversityScope(c, db, id) {
		return
	}
	var university model.University
	if !firstOrRespond(c, db, &university, id, "University") {
		return
	}

	var doctors []model.Doctor
	if err := db.Where("id IN ?", req.DoctorIDs).Find(&doctors).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctors", Err: err})
		return
	}
	if len(doctors) != len(uniqueIDs(req.DoctorIDs)) {
		util.CallUserError(c, util.APIErrorParams{Msg: "One or more doctors do not exist", Err: fmt.Errorf("unknown doctor in %v", req.DoctorIDs)})
		return
	}
	if err := db.Model(&university).Association("Doctors").Append(&doctors); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to assign doctors", Err: err})
		return
	}
	util.FlushDirectory()

	assigned, err := universityDoctors(db, id)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctors", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors assigned", Data: assigned})
}

// UnassignDoctor godoc
// @Summary      Remove a doctor from a university
// @Tags         Universities
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "University ID"
// @Param        doctorId path int true "Doctor ID"
// @Success      200 {object} util.APIResponse
// @Failure      404 {object} util.APIResponse "Not found"
// @Router       /universities/{id}/doctors/{doctorId} [delete]
func UnassignDoctor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	doctorID, ok := parseIDParam(c, "doctorId")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	if !ensureUniversityScope(c, db, id) {
		return
	}
	var university model.University
	if !firstOrRespond(c, db, &university, id, "University") {
		return
	}
	var doctor model.Doctor
	if !firstOrRespond(c, db, &doctor, doctorID, "Doctor") {
		return
	}
	if err := db.Model(&university).Association("Doctors").Delete(&doctor); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to remove doctor", Err: err})
		return
	}
	util.FlushDirectory()
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctor removed from university"})
}

// ListAllDoctorsForAssignment godoc
// @Summary      Every doctor, for the assignment picker
// @Tags         Universities
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Doctor}
// @Router       /universities/doctors/all [get]
func ListAllDoctorsForAssignment(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var doctors []model.Doctor
	if err := db.Order("name ASC").Find(&doctors).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctors", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: doctors})
}

// MyUniversityDoctors godoc
// @Summary      Doctors of the caller's university
// @Tags         Universities
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Doctor}
// @Failure      404 {object} util.APIResponse "Not linked to a university"
// @Router       /universities/my-university/doctors [get]
func MyUniversityDoctors(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	universityID, ok := myUniversityOrRespond(c, db)
	if !ok {
		return
	}
	doctors, err := universityDoctors(db, universityID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctors", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: doctors})
}

// MyUniversityStudentCount godoc
// @Summary      Number of students in the caller's university
// @Tags         Universities
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=CountResponse}
// @Router       /universities/my-university/students/count [get]
func MyUniversityStudentCount(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	universityID, ok := myUniversityOrRespond(c, db)
	if !ok {
		return
	}
	var count int64
	if err := studentsQuery(db, universityID).Count(&count).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to count students", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Students counted", Data: CountResponse{Count: count}})
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
