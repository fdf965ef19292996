package endpoint

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariebrainware/mindery/middleware"
	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var ErrUserEmailAlreadyExists = errors.New("email already exists")

type UpdateProfileRequest struct {
	Name     string `json:"name" example:"Jane Doe"`
	Email    string `json:"email" example:"jane@example.com"`
	Phone    string `json:"phone" example:"081234567890"`
	Password string `json:"password" example:"newpassword123"`
}

type UserPage struct {
	Users        []model.Profile `json:"users"`
	Total        int64           `json:"total" example:"120"`
	TotalFetched int             `json:"total_fetched" example:"10"`
	HasMore      bool            `json:"has_more" example:"true"`
	NextCursor   *uint           `json:"next_cursor,omitempty" example:"10"`
}

type SessionStatus struct {
	Valid     bool      `json:"valid" example:"true"`
	UserID    uint      `json:"userId" example:"1"`
	Role      string    `json:"role" example:"student"`
	ExpiresAt time.Time `json:"expiresAt" example:"2025-01-19T09:00:00Z"`
}

func (r UpdateProfileRequest) empty() bool {
	return r.Name == "" && r.Email == "" && r.Phone == "" && r.Password == ""
}

func emailExists(db *gorm.DB, email string, excludeID uint) (bool, error) {
	var count int64
	if err := db.Model(&model.User{}).Where("email = ? AND id != ?", email, excludeID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyProfileUpdate changes user in place and reports whether the password
// changed.
func applyProfileUpdate(db *gorm.DB, user *model.User, req UpdateProfileRequest) (bool, error) {
	if email := util.NormalizeEmail(req.Email); email != "" && email != user.Email {
		exists, err := emailExists(db, email, user.ID)
		if err != nil {
			return false, fmt.Errorf("failed to validate email uniqueness: %w", err)
		}
		if exists {
			return false, ErrUserEmailAlreadyExists
		}
		user.Email = email
	}
	if strings.TrimSpace(req.Name) != "" {
		user.Name = util.NormalizeName(req.Name)
	}
	if req.Phone != "" {
		user.Phone = strings.TrimSpace(req.Phone)
	}
	if req.Password == "" {
		return false, nil
	}
	if len(req.Password) < 8 {
		return false, fmt.Errorf("%w: password must be at least 8 characters", errInvalidProfile)
	}
	salt, err := util.GenerateSalt()
	if err != nil {
		return false, fmt.Errorf("failed to generate password salt: %w", err)
	}
	hashed, err := util.HashPasswordArgon2(req.Password, salt)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hashed
	user.PasswordSalt = salt
	return true, nil
}

var errInvalidProfile = errors.New("invalid profile")

// invalidateUserSessions removes every session of the user from the DB and
// from redis.
func invalidateUserSessions(c *gin.Context, db *gorm.DB, userID uint) {
	_ = db.Unscoped().Where("user_id = ?", userID).Delete(&model.Session{}).Error
	_ = util.InvalidateUserSessions(c.Request.Context(), userID)
}

// UpdateProfile godoc
// @Summary      Update current user profile
// @Description  Changes name, email, phone and/or password. A password change ends every session.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateProfileRequest true "Update details"
// @Success      200 {object} util.APIResponse{data=model.Profile} "Update successful"
// @Failure      400 {object} util.APIResponse "Invalid request or email already exists"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /auth/me [patch]
func UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if req.empty() {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "At least one field (name, email, phone or password) must be provided",
			Err: fmt.Errorf("no fields to update"),
		})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c, db)
	if !ok {
		return
	}

	passwordChanged, err := applyProfileUpdate(db, &user, req)
	switch {
	case errors.Is(err, ErrUserEmailAlreadyExists):
		util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: err})
		return
	case errors.Is(err, errInvalidProfile):
		util.CallUserError(c, util.APIErrorParams{Msg: "Password must be at least 8 characters", Err: err})
		return
	case err != nil:
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update user fields", Err: err})
		return
	}
	if err := db.Save(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update user", Err: err})
		return
	}
	util.ForgetUserContact(user.ID)
	if passwordChanged {
		invalidateUserSessions(c, db, user.ID)
	}

	role, _ := middleware.GetRole(c)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User updated successfully", Data: model.ProfileOf(user, role)})
}

// ValidateSession godoc
// @Summary      Validate the bearer token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=SessionStatus} "Valid session"
// @Failure      401 {object} util.APIResponse "Invalid or expired session"
// @Router       /auth/token/validate [get]
func ValidateSession(c *gin.Context) {
	claims, err := util.ParseToken(middleware.GetToken(c))
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid or expired token", Err: err})
		return
	}
	role, _ := middleware.GetRole(c)
	status := SessionStatus{Valid: true, UserID: claims.UserID, Role: role}
	if claims.ExpiresAt != nil {
		status.ExpiresAt = claims.ExpiresAt.Time
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Valid session token", Data: status})
}

// parsePositiveInt parses a positive integer query value, returning
// defaultVal when missing or invalid. A positive max caps the result.
func parsePositiveInt(q string, defaultVal, max int) int {
	if q == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(q)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

func parseUintQuery(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

func buildKeywordFilter(keyword string) (string, []interface{}) {
	if keyword == "" {
		return "", nil
	}
	kw := "%" + keyword + "%"
	return "users.name LIKE ? OR users.email LIKE ?", []interface{}{kw, kw}
}

type userWithRole struct {
	model.User
	RoleName string
}

// ListUsers godoc
// @Summary      List users (admin only)
// @Description  Cursor paginated list of users, optionally filtered by keyword and role.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Limit number of results (default 10, max 100)"
// @Param        cursor query int false "Cursor for pagination (User ID)"
// @Param        keyword query string false "Search keyword for name or email"
// @Param        role query string false "Role name"
// @Success      200 {object} util.APIResponse{data=UserPage}
// @Failure      400 {object} util.APIResponse "Unknown role"
// @Router       /admin/users [get]
func ListUsers(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	limit := parsePositiveInt(c.Query("limit"), 10, 100)
	cursor := parseUintQuery(c, "cursor")

	query := db.Model(&model.User{}).Joins("JOIN roles ON roles.id = users.role_id")
	if clause, args := buildKeywordFilter(c.Query("keyword")); clause != "" {
		query = query.Where(clause, args...)
	}
	if role := c.Query("role"); role != "" {
		if !model.IsKnownRole(role) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Unknown role", Err: fmt.Errorf("invalid role %q", role)})
			return
		}
		query = query.Where("roles.name = ?", role)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to count users", Err: err})
		return
	}
	if cursor > 0 {
		query = query.Where("users.id > ?", cursor)
	}
	// One extra row tells whether another page exists.
	var rows []userWithRole
	err := query.Select("users.*, roles.name AS role_name").Order("users.id ASC").Limit(limit + 1).Scan(&rows).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve users", Err: err})
		return
	}

	page := UserPage{Total: total, HasMore: len(rows) > limit}
	if page.HasMore {
		rows = rows[:limit]
		lastID := rows[len(rows)-1].ID
		page.NextCursor = &lastID
	}
	page.Users = make([]model.Profile, 0, len(rows))
	for _, r := range rows {
		page.Users = append(page.Users, model.ProfileOf(r.User, r.RoleName))
	}
	page.TotalFetched = len(page.Users)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Users retrieved", Data: page})
}

// DeleteUser godoc
// @Summary      Delete user (admin only)
// @Description  Soft-deletes the user and ends every session.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "User ID"
// @Success      200 {object} util.APIResponse "User deleted"
// @Failure      400 {object} util.APIResponse "Cannot delete yourself"
// @Failure      404 {object} util.APIResponse "User not found"
// @Router       /admin/users/{id} [delete]
func DeleteUser(c *gin.Context) {
	uid, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if self, _ := middleware.GetUserID(c); self == uid {
		util.CallUserError(c, util.APIErrorParams{Msg: "You cannot delete your own account", Err: fmt.Errorf("self delete")})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.First(&user, uid).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", uid).Delete(&model.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete user", Err: err})
		return
	}

	_ = util.InvalidateUserSessions(c.Request.Context(), uid)
	util.ForgetUserContact(uid)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User deleted"})
}
