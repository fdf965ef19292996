package model

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

//go:embed assessments.yaml
var assessmentCatalog []byte

var ErrUnanswered = errors.New("not every question was answered")

// Question is one item of an assessment.
type Question struct {
	ID      string   `json:"id" yaml:"id"`
	Text    string   `json:"text" yaml:"text"`
	Options []string `json:"options,omitempty" yaml:"options"`
	Answer  string   `json:"answer,omitempty" yaml:"answer"`
}

// Assessment is a self check questionnaire
// @Description Assessment with its questions
type Assessment struct {
	gorm.Model
	Slug        string         `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null" example:"stress-check"`
	Title       string         `json:"title" gorm:"type:varchar(191);not null" example:"Stress Check"`
	Description string         `json:"description" gorm:"type:text"`
	Questions   datatypes.JSON `json:"questions" gorm:"type:json" swaggertype:"array,object"`
}

// AssessmentResult stores one scored submission.
type AssessmentResult struct {
	gorm.Model
	AssessmentID uint           `json:"assessmentId" gorm:"not null;index"`
	UserID       uint           `json:"userId" gorm:"index"`
	Answers      datatypes.JSON `json:"answers" gorm:"type:json" swaggertype:"object"`
	Correct      int            `json:"correct"`
	Total        int            `json:"total"`
	Percentage   int            `json:"percentage"`
}

// AssessmentScore is the report returned after a submission.
type AssessmentScore struct {
	Correct    int    `json:"correct" example:"7"`
	Total      int    `json:"total" example:"10"`
	Percentage int    `json:"percentage" example:"70"`
	Message    string `json:"message" example:"Good effort. A session with a counsellor can help you go further."`
}

type assessmentSeed struct {
	Slug        string     `yaml:"slug"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Questions   []Question `yaml:"questions"`
}

// DecodeQuestions unmarshals the stored questions.
func (a *Assessment) DecodeQuestions() ([]Question, error) {
	var qs []Question
	if len(a.Questions) == 0 {
		return qs, nil
	}
	if err := json.Unmarshal(a.Questions, &qs); err != nil {
		return nil, fmt.Errorf("decode questions of %s: %w", a.Slug, err)
	}
	return qs, nil
}

// PublicQuestions returns the questions without their answers.
func (a *Assessment) PublicQuestions() ([]Question, error) {
	qs, err := a.DecodeQuestions()
	if err != nil {
		return nil, err
	}
	for i := range qs {
		qs[i].Answer = ""
	}
	return qs, nil
}

// Score grades answers keyed by question id. Every question must be answered.
func (a *Assessment) Score(answers map[string]string) (AssessmentScore, error) {
	qs, err := a.DecodeQuestions()
	if err != nil {
		return AssessmentScore{}, err
	}
	score := AssessmentScore{Total: len(qs)}
	for _, q := range qs {
		given, ok := answers[q.ID]
		if !ok || strings.TrimSpace(given) == "" {
			return AssessmentScore{}, fmt.Errorf("%w: %s", ErrUnanswered, q.ID)
		}
		if strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(q.Answer)) {
			score.Correct++
		}
	}
	if score.Total > 0 {
		score.Percentage = score.Correct * 100 / score.Total
	}
	score.Message = scoreMessage(score.Percentage)
	return score, nil
}

func scoreMessage(percentage int) string {
	switch {
	case percentage >= 80:
		return "Great work. Keep up the habits that are working for you."
	case percentage >= 50:
		return "Good effort. A session with a counsellor can help you go further."
	default:
		return "Consider booking a session with one of our counsellors."
	}
}

// SeedAssessments inserts the embedded catalog, skipping slugs that exist.
func SeedAssessments(db *gorm.DB) error {
	var seeds []assessmentSeed
	if err := yaml.Unmarshal(assessmentCatalog, &seeds); err != nil {
		return fmt.Errorf("parse assessment catalog: %w", err)
	}
	for _, s := range seeds {
		var existing Assessment
		err := db.Where("slug = ?", s.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		questions, err := json.Marshal(s.Questions)
		if err != nil {
			return err
		}
		if err := db.Create(&Assessment{
			Slug:        s.Slug,
			Title:       s.Title,
			Description: s.Description,
			Questions:   datatypes.JSON(questions),
		}).Error; err != nil {
			return fmt.Errorf("failed to seed assessment %s: %w", s.Slug, err)
		}
	}
	return nil
}
