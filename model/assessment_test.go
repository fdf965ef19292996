package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestAssessment(t *testing.T) Assessment {
	t.Helper()
	qs := []Question{
		{ID: "q1", Text: "One", Options: []string{"a", "b"}, Answer: "a"},
		{ID: "q2", Text: "Two", Options: []string{"a", "b"}, Answer: "b"},
		{ID: "q3", Text: "Three", Answer: "Rest"},
		{ID: "q4", Text: "Four", Answer: "yes"},
	}
	raw, err := json.Marshal(qs)
	require.NoError(t, err)
	return Assessment{Slug: "test", Title: "Test", Questions: datatypes.JSON(raw)}
}

func TestAssessmentScore(t *testing.T) {
	a := newTestAssessment(t)

	score, err := a.Score(map[string]string{"q1": "a", "q2": "a", "q3": " rest ", "q4": "no"})
	require.NoError(t, err)
	assert.Equal(t, 2, score.Correct)
	assert.Equal(t, 4, score.Total)
	assert.Equal(t, 50, score.Percentage)
	assert.NotEmpty(t, score.Message)

	perfect, err := a.Score(map[string]string{"q1": "a", "q2": "b", "q3": "rest", "q4": "YES"})
	require.NoError(t, err)
	assert.Equal(t, 100, perfect.Percentage)
	assert.NotEqual(t, score.Message, perfect.Message)
}

func TestAssessmentScore_Unanswered(t *testing.T) {
	a := newTestAssessment(t)
	_, err := a.Score(map[string]string{"q1": "a", "q2": "b", "q3": "  "})
	assert.ErrorIs(t, err, ErrUnanswered)
}

func TestAssessmentPublicQuestionsHidesAnswers(t *testing.T) {
	a := newTestAssessment(t)
	qs, err := a.PublicQuestions()
	require.NoError(t, err)
	require.Len(t, qs, 4)
	for _, q := range qs {
		assert.Empty(t, q.Answer)
	}
}

func TestSeedAssessments(t *testing.T) {
	db := setupTestDB(t, "assessments", &Assessment{})
	require.NoError(t, SeedAssessments(db))
	require.NoError(t, SeedAssessments(db))

	var all []Assessment
	require.NoError(t, db.Order("slug").Find(&all).Error)
	require.Len(t, all, 2)
	assert.Equal(t, "sleep-hygiene", all[0].Slug)
	assert.Equal(t, "stress-check", all[1].Slug)

	qs, err := all[1].DecodeQuestions()
	require.NoError(t, err)
	assert.Len(t, qs, 3)
	assert.Equal(t, "Taking a short break", qs[0].Answer)
}
