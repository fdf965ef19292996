package endpoint

import (
	"encoding/json"
	"errors"

	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AssessmentSummary struct {
	ID            uint   `json:"id" example:"1"`
	Slug          string `json:"slug" example:"stress-check"`
	Title         string `json:"title" example:"Stress Check"`
	Description   string `json:"description"`
	QuestionCount int    `json:"questionCount" example:"5"`
}

type AssessmentDetail struct {
	AssessmentSummary
	Questions []model.Question `json:"questions"`
}

type SubmitAssessmentRequest struct {
	// Answers maps question ids to the chosen option.
	Answers map[string]string `json:"answers" binding:"required"`
}

func loadAssessmentOrRespond(c *gin.Context, db *gorm.DB) (model.Assessment, bool) {
	var a model.Assessment
	err := db.Where("slug = ?", c.Param("slug")).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Assessment not found", Err: err})
		return a, false
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve assessment", Err: err})
		return a, false
	}
	return a, true
}

// ListAssessments godoc
// @Summary      List assessments
// @Tags         Assessments
// @Produce      json
// @Success      200 {object} util.APIResponse{data=[]AssessmentSummary}
// @Router       /assessments [get]
func ListAssessments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var assessments []model.Assessment
	if err := db.Order("title ASC").Find(&assessments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve assessments", Err: err})
		return
	}
	out := make([]AssessmentSummary, 0, len(assessments))
	for _, a := range assessments {
		qs, err := a.DecodeQuestions()
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to read assessment", Err: err})
			return
		}
		out = append(out, AssessmentSummary{ID: a.ID, Slug: a.Slug, Title: a.Title, Description: a.Description, QuestionCount: len(qs)})
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Assessments retrieved", Data: out})
}

// GetAssessment godoc
// @Summary      Assessment with its questions
// @Description  Answers are not included.
// @Tags         Assessments
// @Produce      json
// @Param        slug path string true "Assessment slug"
// @Success      200 {object} util.APIResponse{data=AssessmentDetail}
// @Failure      404 {object} util.APIResponse "Assessment not found"
// @Router       /assessments/{slug} [get]
func GetAssessment(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	a, ok := loadAssessmentOrRespond(c, db)
	if !ok {
		return
	}
	qs, err := a.PublicQuestions()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to read assessment", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Assessment retrieved", Data: AssessmentDetail{
		AssessmentSummary: AssessmentSummary{ID: a.ID, Slug: a.Slug, Title: a.Title, Description: a.Description, QuestionCount: len(qs)},
		Questions:         qs,
	}})
}

// SubmitAssessment godoc
// @Summary      Submit assessment answers
// @Tags         Assessments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        slug path string true "Assessment slug"
// @Param        request body SubmitAssessmentRequest true "Answers"
// @Success      200 {object} util.APIResponse{data=model.AssessmentScore}
// @Failure      400 {object} util.APIResponse "Unanswered questions"
// @Failure      404 {object} util.APIResponse "Assessment not found"
// @Router       /assessments/{slug}/submit [post]
func SubmitAssessment(c *gin.Context) {
	var req SubmitAssessmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	userID, ok := userIDOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	a, ok := loadAssessmentOrRespond(c, db)
	if !ok {
		return
	}

	score, err := a.Score(req.Answers)
	if errors.Is(err, model.ErrUnanswered) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Please answer every question", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to score assessment", Err: err})
		return
	}

	answers, err := json.Marshal(req.Answers)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to store answers", Err: err})
		return
	}
	result := model.AssessmentResult{
		AssessmentID: a.ID,
		UserID:       userID,
		Answers:      datatypes.JSON(answers),
		Correct:      score.Correct,
		Total:        score.Total,
		Percentage:   score.Percentage,
	}
	if err := db.Create(&result).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to store result", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Assessment scored", Data: score})
}
