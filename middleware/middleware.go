package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Context keys set by the middlewares in this package.
const (
	DBKey     = "db"
	UserIDKey = "user_id"
	RoleKey   = "role"
	TokenKey  = "session_token"
)

func setCorsHeaders(c *gin.Context) {
	origin := os.Getenv("CORS_ALLOW_ORIGIN")
	if origin == "" {
		origin = "*"
	}
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, PATCH, DELETE")
	h.Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization")
	h.Set("Access-Control-Max-Age", "86400")
	if origin != "*" {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

// CORSMiddleware sets CORS headers and answers preflight requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		setCorsHeaders(c)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// DatabaseMiddleware makes db available to handlers through GetDB.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DBKey, db)
		c.Next()
	}
}

// GetDB returns the request scoped DB, or nil when none was set.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(DBKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	if db == nil || c.Request == nil {
		return db
	}
	return db.WithContext(c.Request.Context())
}

// GetUserID returns the authenticated user's id.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// GetRole returns the authenticated user's role name.
func GetRole(c *gin.Context) (string, bool) {
	v, ok := c.Get(RoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok && role != ""
}

// GetToken returns the bearer token the request was authenticated with.
func GetToken(c *gin.Context) string {
	return c.GetString(TokenKey)
}

var (
	errMissingToken = errors.New("authorization bearer token not provided")
	errSessionGone  = errors.New("session not found or expired")
)

func bearerToken(c *gin.Context) (string, error) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

type sessionRow struct {
	UserID    uint
	Role      string
	ExpiresAt time.Time
}

// lookupSession resolves a token through redis first, then the sessions
// table. A DB hit is mirrored back into redis.
func lookupSession(c *gin.Context, db *gorm.DB, token string) (uint, string, error) {
	ctx := c.Request.Context()
	userID, role, err := util.LookupSession(ctx, token)
	if err == nil {
		return userID, role, nil
	}
	if !errors.Is(err, util.ErrSessionNotCached) {
		return 0, "", err
	}
	if db == nil {
		return 0, "", fmt.Errorf("db is nil")
	}

	var row sessionRow
	err = db.Table("sessions").
		Select("sessions.user_id, sessions.expires_at, roles.name AS role").
		Joins("JOIN users ON users.id = sessions.user_id AND users.deleted_at IS NULL").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("sessions.session_token = ? AND sessions.deleted_at IS NULL AND sessions.expires_at > ?", token, time.Now()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, "", errSessionGone
	}
	if err != nil {
		return 0, "", err
	}
	_ = util.CacheSession(ctx, token, row.UserID, row.Role, time.Until(row.ExpiresAt))
	return row.UserID, row.Role, nil
}

// ValidateLoginToken authenticates the request from its bearer token. The
// token must carry a valid signature and map to a live session of the same
// user. On success the user id, role name and token are put in the context.
func ValidateLoginToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		token, err := bearerToken(c)
		if err != nil {
			rejectUnauthorized(c, "Authentication required", err)
			return
		}
		claims, err := util.ParseToken(token)
		if err != nil {
			rejectUnauthorized(c, "Invalid or expired token", err)
			return
		}

		userID, role, err := lookupSession(c, GetDB(c), token)
		if errors.Is(err, errSessionGone) {
			rejectUnauthorized(c, "Session expired, please log in again", err)
			return
		}
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to validate session", Err: err})
			c.Abort()
			return
		}
		if userID != claims.UserID {
			rejectUnauthorized(c, "Invalid or expired token", fmt.Errorf("token does not belong to session"))
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(RoleKey, role)
		c.Set(TokenKey, token)
		c.Next()
	}
}

func rejectUnauthorized(c *gin.Context, msg string, err error) {
	util.LogUnauthorizedAccess("", "", c.ClientIP(), c.Request.URL.Path, err.Error())
	util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: msg, Err: err})
	c.Abort()
}

// RequireRoles lets the request through only when the authenticated role is
// one of roles. It must run after ValidateLoginToken.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok {
			rejectUnauthorized(c, "Authentication required", errMissingToken)
			return
		}
		if !util.Contains(role, roles) {
			userID, _ := GetUserID(c)
			util.LogForbiddenAccess(userID, role, c.ClientIP(), c.Request.URL.Path)
			util.CallForbidden(c, util.APIErrorParams{
				Msg: "You do not have access to this resource",
				Err: fmt.Errorf("role %s is not allowed", role),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
