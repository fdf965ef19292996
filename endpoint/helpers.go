// Package endpoint holds the gin handlers of the Mindery API.
package endpoint

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ariebrainware/mindery/config"
	"github.com/ariebrainware/mindery/middleware"
	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type clientInfo struct {
	IP    string
	Agent string
}

func clientOf(c *gin.Context) clientInfo {
	return clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
}

// nowFunc is replaced in tests that pin the clock.
var nowFunc = time.Now

// appLocation is the zone wall-clock slot times are written in.
func appLocation() *time.Location {
	return config.LoadConfig().Location()
}

// localNow is the current time in appLocation.
func localNow() time.Time {
	return nowFunc().In(appLocation())
}

var mailer *util.Mailer

// SetMailer sets the notifier used on appointment status changes. A nil
// mailer disables notifications.
func SetMailer(m *util.Mailer) {
	mailer = m
}

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

func userIDOrRespond(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "User not authenticated",
			Err: fmt.Errorf("user id not found in context"),
		})
		return 0, false
	}
	return userID, true
}

// currentUserOrRespond loads the authenticated user row.
func currentUserOrRespond(c *gin.Context, db *gorm.DB) (model.User, bool) {
	userID, ok := userIDOrRespond(c)
	if !ok {
		return model.User{}, false
	}
	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return model.User{}, false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve user", Err: err})
		return model.User{}, false
	}
	return user, true
}

// parseIDParam reads a positive numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid %s", name),
			Err: fmt.Errorf("invalid %s %q", name, raw),
		})
		return 0, false
	}
	return uint(id), true
}

// firstOrRespond loads a row by id, answering 404 when it does not exist.
func firstOrRespond(c *gin.Context, db *gorm.DB, dst interface{}, id uint, what string) bool {
	if err := db.First(dst, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: what + " not found", Err: err})
			return false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve " + what, Err: err})
		return false
	}
	return true
}
