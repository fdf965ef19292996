package util

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContains(t *testing.T) {
	list := []string{"student", "doctor"}
	assert.True(t, Contains("doctor", list))
	assert.False(t, Contains("admin", list))
	assert.False(t, Contains("admin", nil))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Universitas   Indonesia ", "Universitas Indonesia"},
		{"Dr.\tSari\nDewi", "Dr. Sari Dewi"},
		{"already fine", "already fine"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeName(tt.input), "input %q", tt.input)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}

func TestResponseEnvelopes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		call    func(c *gin.Context)
		status  int
		success bool
		errText string
	}{
		{"user error", func(c *gin.Context) { CallUserError(c, APIErrorParams{Msg: "bad", Err: errors.New("invalid")}) }, http.StatusBadRequest, false, "invalid"},
		{"unauthorized", func(c *gin.Context) { CallUserNotAuthorized(c, APIErrorParams{Msg: "no", Err: errors.New("token")}) }, http.StatusUnauthorized, false, "token"},
		{"forbidden", func(c *gin.Context) { CallForbidden(c, APIErrorParams{Msg: "no", Err: errors.New("role")}) }, http.StatusForbidden, false, "role"},
		{"not found", func(c *gin.Context) { CallErrorNotFound(c, APIErrorParams{Msg: "missing", Err: errors.New("nf")}) }, http.StatusNotFound, false, "nf"},
		{"conflict", func(c *gin.Context) { CallConflict(c, APIErrorParams{Msg: "taken", Err: errors.New("dup")}) }, http.StatusConflict, false, "dup"},
		{"too many", func(c *gin.Context) { CallTooManyRequests(c, APIErrorParams{Msg: "slow down"}) }, http.StatusTooManyRequests, false, ""},
		{"server", func(c *gin.Context) { CallServerError(c, APIErrorParams{Msg: "oops", Err: errors.New("db")}) }, http.StatusInternalServerError, false, "db"},
		{"ok", func(c *gin.Context) { CallSuccessOK(c, APISuccessParams{Msg: "fine", Data: 1}) }, http.StatusOK, true, ""},
		{"created", func(c *gin.Context) { CallCreated(c, APISuccessParams{Msg: "made", Data: 2}) }, http.StatusCreated, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.call(c)

			assert.Equal(t, tt.status, w.Code)
			var resp APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.success, resp.Success)
			assert.Equal(t, tt.errText, resp.Error)
		})
	}
}
