package endpoint

import (
	"net/http"
	"testing"

	"github.com/ariebrainware/mindery/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCRUD(t *testing.T) {
	r, db := SetupTestServer(t)
	_, token := createAccount(t, db, userParams{Email: "admin@example.com", Role: model.RoleAdmin})

	var report model.Report
	decode(t, performRequest(r, send(http.MethodPost, "/api/reports", token, ReportRequest{
		Name: " Jane  Doe ", Age: 21, Gender: "Female", Mode: "Offline",
		Problems: "Exam stress", NextSessionDate: "2025-01-25", AttendedDate: "2025-01-18",
	})), http.StatusCreated, &report)
	assert.Equal(t, "Jane Doe", report.Name)
	assert.Equal(t, "female", report.Gender)
	assert.Equal(t, "offline", report.Mode)

	decode(t, performRequest(r, send(http.MethodPut, "/api/reports/"+itoa(report.ID), token, ReportRequest{
		Name: "Jane Doe", Age: 22, Mode: "online",
	})), http.StatusOK, &report)
	assert.Equal(t, 22, report.Age)
	assert.Equal(t, "online", report.Mode)

	var reports []model.Report
	decode(t, performRequest(r, get("/api/reports", token)), http.StatusOK, &reports)
	require.Len(t, reports, 1)

	decode(t, performRequest(r, send(http.MethodDelete, "/api/reports/"+itoa(report.ID), token, nil)), http.StatusOK, nil)
	decode(t, performRequest(r, get("/api/reports", token)), http.StatusOK, &reports)
	assert.Empty(t, reports)
	decode(t, performRequest(r, send(http.MethodDelete, "/api/reports/"+itoa(report.ID), token, nil)), http.StatusNotFound, nil)
}

func TestReportValidation(t *testing.T) {
	r, db := SetupTestServer(t)
	_, token := createAccount(t, db, userParams{Email: "doc@example.com", Role: model.RoleDoctor})

	for _, req := range []ReportRequest{
		{Age: 20},
		{Name: "A", Age: -1},
		{Name: "A", NextSessionDate: "25/01/2025"},
		{Name: "A", AttendedDate: "yesterday"},
	} {
		decode(t, performRequest(r, send(http.MethodPost, "/api/reports", token, req)), http.StatusBadRequest, nil)
	}
}

func TestReportsAreStaffOnly(t *testing.T) {
	r, db := SetupTestServer(t)
	_, token := createAccount(t, db, userParams{Email: "s@example.com", Role: model.RoleStudent})
	decode(t, performRequest(r, get("/api/reports", token)), http.StatusForbidden, nil)
}

func TestReportSummary(t *testing.T) {
	r, db := SetupTestServer(t)
	_, token := createAccount(t, db, userParams{Email: "admin@example.com", Role: model.RoleAdmin})
	for _, rep := range []model.Report{
		{Name: "A", Mode: "online", Gender: "female"},
		{Name: "B", Mode: "online", Gender: "male"},
		{Name: "C", Mode: "offline", Gender: "female"},
		{Name: "D"},
	} {
		rep := rep
		require.NoError(t, db.Create(&rep).Error)
	}

	var summary model.ReportSummary
	decode(t, performRequest(r, get("/api/reports/summary", token)), http.StatusOK, &summary)
	assert.EqualValues(t, 4, summary.Total)
	assert.Equal(t, map[string]int64{"online": 2, "offline": 1, "unspecified": 1}, summary.ByMode)
	assert.Equal(t, map[string]int64{"female": 2, "male": 1, "unspecified": 1}, summary.ByGender)
}
