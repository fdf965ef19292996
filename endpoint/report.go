package endpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/slot"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReportRequest struct {
	Name            string `json:"name" binding:"required" example:"Jane Doe"`
	Age             int    `json:"age" binding:"gte=0,lte=150" example:"21"`
	Gender          string `json:"gender" example:"female"`
	Mode            string `json:"mode" example:"offline"`
	Problems        string `json:"problems" example:"Exam stress"`
	Analysis        string `json:"analysis" example:"Mild anxiety"`
	Metrics         string `json:"metrics" example:"GAD-7: 8"`
	NextSessionDate string `json:"nextSessionDate" example:"2025-01-25"`
	DaysToAttend    int    `json:"daysToAttend" binding:"gte=0" example:"3"`
	AttendedDate    string `json:"attendedDate" example:"2025-01-18"`
}

func (r ReportRequest) validate() error {
	for field, value := range map[string]string{"nextSessionDate": r.NextSessionDate, "attendedDate": r.AttendedDate} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(slot.DateLayout, value); err != nil {
			return fmt.Errorf("%s must be a YYYY-MM-DD date", field)
		}
	}
	return nil
}

func (r ReportRequest) apply(report *model.Report) {
	report.Name = util.NormalizeName(r.Name)
	report.Age = r.Age
	report.Gender = strings.ToLower(strings.TrimSpace(r.Gender))
	report.Mode = strings.ToLower(strings.TrimSpace(r.Mode))
	report.Problems = r.Problems
	report.Analysis = r.Analysis
	report.Metrics = r.Metrics
	report.NextSessionDate = r.NextSessionDate
	report.DaysToAttend = r.DaysToAttend
	report.AttendedDate = r.AttendedDate
}

func bindReportOrRespond(c *gin.Context) (ReportRequest, bool) {
	var req ReportRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return req, false
	}
	if err := req.validate(); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return req, false
	}
	return req, true
}

// ListReports godoc
// @Summary      List counselling reports
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Report}
// @Router       /reports [get]
func ListReports(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	reports := make([]model.Report, 0)
	if err := db.Order("created_at DESC").Find(&reports).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve reports", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Reports retrieved", Data: reports})
}

// CreateReport godoc
// @Summary      Create counselling report
// @Tags         Reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ReportRequest true "Report"
// @Success      201 {object} util.APIResponse{data=model.Report}
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Router       /reports [post]
func CreateReport(c *gin.Context) {
	req, ok := bindReportOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var report model.Report
	req.apply(&report)
	if err := db.Create(&report).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create report", Err: err})
		return
	}
	util.CallCreated(c, util.APISuccessParams{Msg: "Report created", Data: report})
}

// UpdateReport godoc
// @Summary      Update counselling report
// @Tags         Reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Report ID"
// @Param        request body ReportRequest true "Report"
// @Success      200 {object} util.APIResponse{data=model.Report}
// @Failure      404 {object} util.APIResponse "Report not found"
// @Router       /reports/{id} [put]
func UpdateReport(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	req, ok := bindReportOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var report model.Report
	if !firstOrRespond(c, db, &report, id, "Report") {
		return
	}
	req.apply(&report)
	if err := db.Save(&report).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update report", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Report updated", Data: report})
}

// DeleteReport godoc
// @Summary      Delete counselling report
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Report ID"
// @Success      200 {object} util.APIResponse
// @Failure      404 {object} util.APIResponse "Report not found"
// @Router       /reports/{id} [delete]
func DeleteReport(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var report model.Report
	if !firstOrRespond(c, db, &report, id, "Report") {
		return
	}
	if err := db.Delete(&report).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete report", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Report deleted"})
}

type groupCount struct {
	Label string
	Count int64
}

func countBy(db *gorm.DB, column string) (map[string]int64, error) {
	var rows []groupCount
	err := db.Model(&model.Report{}).
		Select(column + " AS label, count(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		label := r.Label
		if label == "" {
			label = "unspecified"
		}
		out[label] += r.Count
	}
	return out, nil
}

// ReportSummary godoc
// @Summary      Report totals by mode and gender
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=model.ReportSummary}
// @Router       /reports/summary [get]
func ReportSummary(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var summary model.ReportSummary
	if err := db.Model(&model.Report{}).Count(&summary.Total).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to summarise reports", Err: err})
		return
	}
	var err error
	if summary.ByMode, err = countBy(db, "mode"); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to summarise reports", Err: err})
		return
	}
	if summary.ByGender, err = countBy(db, "gender"); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to summarise reports", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Report summary retrieved", Data: summary})
}
