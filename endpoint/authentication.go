package endpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/mindery/middleware"
	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	maxFailedAttempts = 5
	lockoutDuration   = 15 * time.Minute
)

// selfSignupRoles are the roles a visitor may pick when registering.
var selfSignupRoles = []string{model.RoleStudent, model.RoleUniversityAdmin}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

type LoginResponse struct {
	Token     string        `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt time.Time     `json:"expiresAt" example:"2025-01-19T09:00:00Z"`
	User      model.Profile `json:"user"`
}

type SignupRequest struct {
	Name         string `json:"name" binding:"required" example:"Jane Doe"`
	Email        string `json:"email" binding:"required,email" example:"jane@example.com"`
	Password     string `json:"password" binding:"required,min=8" example:"password123"`
	Phone        string `json:"phone" example:"081234567890"`
	Role         string `json:"role" example:"student"`
	UniversityID *uint  `json:"universityId" example:"1"`
}

type loginContext struct {
	C     *gin.Context
	DB    *gorm.DB
	Email string
	CI    clientInfo
}

// Login godoc
// @Summary      User login
// @Description  Authenticate with email and password and receive a bearer token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid request payload or credentials"
// @Failure      429 {object} util.APIResponse "Too many requests"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /auth/login [post]
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ctx := loginContext{C: c, DB: db, Email: util.NormalizeEmail(req.Email), CI: clientOf(c)}
	user, ok := loadUserForLogin(ctx)
	if !ok {
		return
	}
	if !ensureAccountNotLocked(ctx, &user) {
		return
	}
	if !verifyPasswordOrRespond(ctx, &user, req.Password) {
		return
	}
	finalizeLogin(ctx, &user)
}

func loadUserForLogin(ctx loginContext) (model.User, bool) {
	var user model.User
	err := ctx.DB.Where("email = ?", ctx.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "user not found")
		util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("user not found")})
		return model.User{}, false
	}
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "database error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Database error", Err: err})
		return model.User{}, false
	}
	return user, true
}

func ensureAccountNotLocked(ctx loginContext, user *model.User) bool {
	if locked, until := user.IsLocked(nowFunc()); locked {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "account locked")
		util.CallUserError(ctx.C, util.APIErrorParams{
			Msg: fmt.Sprintf("Account is locked until %s due to multiple failed login attempts", until.Format(time.RFC3339)),
			Err: fmt.Errorf("account locked"),
		})
		return false
	}
	return true
}

func verifyPasswordOrRespond(ctx loginContext, user *model.User, plain string) bool {
	match, err := util.VerifyPassword(plain, user.Password, user.PasswordSalt)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "password verification error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return false
	}
	if !match {
		incrementFailedAttempts(ctx.DB, user, ctx.CI)
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "invalid password")
		util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("invalid password")})
		return false
	}
	return true
}

func incrementFailedAttempts(db *gorm.DB, user *model.User, ci clientInfo) {
	user.FailedAttempts++
	if user.FailedAttempts >= maxFailedAttempts {
		lockUntil := nowFunc().Add(lockoutDuration).Unix()
		user.LockedUntil = &lockUntil
		util.LogAccountLocked(user.ID, user.Email, ci.IP, "too many failed login attempts")
	}
	if err := db.Model(user).Select("FailedAttempts", "LockedUntil").Updates(user).Error; err != nil {
		util.LogLoginFailure(user.Email, ci.IP, ci.Agent, "failed to update failed attempts")
	}
}

func resetFailedAttempts(db *gorm.DB, user *model.User) error {
	if user.FailedAttempts == 0 && user.LockedUntil == nil {
		return nil
	}
	user.FailedAttempts = 0
	user.LockedUntil = nil
	return db.Model(user).Select("FailedAttempts", "LockedUntil").Updates(user).Error
}

func finalizeLogin(ctx loginContext, user *model.User) {
	if err := resetFailedAttempts(ctx.DB, user); err != nil {
		util.LogLoginFailure(user.Email, ctx.CI.IP, ctx.CI.Agent, fmt.Sprintf("failed to reset failed attempts: %v", err))
	}

	role, err := model.FindRoleByID(ctx.DB, user.RoleID)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "role not found")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Role not found", Err: err})
		return
	}

	token, expires, err := util.IssueToken(user.ID, user.Email, role.Name, nowFunc())
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "token generation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return
	}

	session := model.Session{
		UserID:       user.ID,
		SessionToken: token,
		ExpiresAt:    expires,
		ClientIP:     ctx.CI.IP,
		Browser:      ctx.CI.Agent,
	}
	if err := ctx.DB.Create(&session).Error; err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "session creation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Failed to record session", Err: err})
		return
	}
	// Redis is only a mirror of the sessions table.
	_ = util.CacheSession(ctx.C.Request.Context(), token, user.ID, role.Name, time.Until(expires))

	util.LogLoginSuccess(user.ID, user.Email, ctx.CI.IP, ctx.CI.Agent)
	util.CallSuccessOK(ctx.C, util.APISuccessParams{
		Msg:  "Login successful",
		Data: LoginResponse{Token: token, ExpiresAt: expires, User: model.ProfileOf(*user, role.Name)},
	})
}

// Signup godoc
// @Summary      User signup
// @Description  Register a student or university admin account
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup details"
// @Success      201 {object} util.APIResponse{data=model.Profile} "Signup successful"
// @Failure      400 {object} util.APIResponse "Invalid request or email already exists"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /auth/signup [post]
func Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	roleName := req.Role
	if roleName == "" {
		roleName = model.RoleStudent
	}
	if !util.Contains(roleName, selfSignupRoles) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid role", Err: fmt.Errorf("role %q cannot sign up", roleName)})
		return
	}
	if roleName == model.RoleUniversityAdmin && req.UniversityID == nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "University is required", Err: fmt.Errorf("universityId missing")})
		return
	}
	if !ensureUniversityExists(c, db, req.UniversityID) {
		return
	}

	email := util.NormalizeEmail(req.Email)
	if !ensureEmailAvailable(c, db, email) {
		return
	}
	role, err := model.FindRoleByName(db, roleName)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Role not found", Err: err})
		return
	}
	hashed, salt, ok := hashPasswordOrRespond(c, req.Password)
	if !ok {
		return
	}

	user := model.User{
		Name:         util.NormalizeName(req.Name),
		Email:        email,
		Phone:        req.Phone,
		Password:     hashed,
		PasswordSalt: salt,
		RoleID:       role.ID,
		UniversityID: req.UniversityID,
	}
	if err := db.Create(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create new user", Err: err})
		return
	}

	util.LogSignup(user.ID, user.Email, role.Name, c.ClientIP(), c.Request.UserAgent())
	util.CallCreated(c, util.APISuccessParams{Msg: "Signup successful", Data: model.ProfileOf(user, role.Name)})
}

func ensureUniversityExists(c *gin.Context, db *gorm.DB, id *uint) bool {
	if id == nil {
		return true
	}
	var count int64
	if err := db.Model(&model.University{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return false
	}
	if count == 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "University not found", Err: fmt.Errorf("university %d not found", *id)})
		return false
	}
	return true
}

func ensureEmailAvailable(c *gin.Context, db *gorm.DB, email string) bool {
	var count int64
	if err := db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return false
	}
	if count > 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: fmt.Errorf("email already exists")})
		return false
	}
	return true
}

func hashPasswordOrRespond(c *gin.Context, plain string) (string, string, bool) {
	salt, err := util.GenerateSalt()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate password salt", Err: err})
		return "", "", false
	}
	hashed, err := util.HashPasswordArgon2(plain, salt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return "", "", false
	}
	return hashed, salt, true
}

// Logout godoc
// @Summary      User logout
// @Description  Invalidate the session of the bearer token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /auth/logout [delete]
func Logout(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := userIDOrRespond(c)
	if !ok {
		return
	}
	token := middleware.GetToken(c)

	if err := db.Unscoped().Where("session_token = ?", token).Delete(&model.Session{}).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete session", Err: err})
		return
	}
	_ = util.DropSession(c.Request.Context(), userID, token)

	util.LogLogout(userID, util.GetUserEmail(db, userID), c.ClientIP(), c.Request.UserAgent())
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Logout successful"})
}

// Me godoc
// @Summary      Current user
// @Description  Profile of the authenticated user
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=model.Profile}
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "User not found"
// @Router       /auth/me [get]
func Me(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c, db)
	if !ok {
		return
	}
	role, _ := middleware.GetRole(c)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile retrieved", Data: model.ProfileOf(user, role)})
}
