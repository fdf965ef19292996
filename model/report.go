package model

import "gorm.io/gorm"

// Report is a counselling report written after a session
// @Description Counselling report
type Report struct {
	gorm.Model
	Name            string `json:"name" gorm:"type:varchar(191);not null" example:"Jane Doe"`
	Age             int    `json:"age" example:"21"`
	Gender          string `json:"gender" gorm:"type:varchar(16)" example:"female"`
	Mode            string `json:"mode" gorm:"type:varchar(16)" example:"offline"`
	Problems        string `json:"problems" gorm:"type:text" example:"Exam stress"`
	Analysis        string `json:"analysis" gorm:"type:text" example:"Mild anxiety"`
	Metrics         string `json:"metrics" gorm:"type:text" example:"GAD-7: 8"`
	NextSessionDate string `json:"nextSessionDate" gorm:"type:varchar(10)" example:"2025-01-25"`
	DaysToAttend    int    `json:"daysToAttend" example:"3"`
	AttendedDate    string `json:"attendedDate" gorm:"type:varchar(10)" example:"2025-01-18"`
}

// ReportSummary aggregates reports for the analytics view.
type ReportSummary struct {
	Total    int64            `json:"total" example:"12"`
	ByMode   map[string]int64 `json:"byMode"`
	ByGender map[string]int64 `json:"byGender"`
}
