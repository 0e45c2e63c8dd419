package scoring

import (
	"encoding/json"
	"testing"

	"github.com/examport/attempt-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objectiveQuestions() []models.Question {
	return []models.Question{
		{ID: 1, Type: models.QuestionTrueFalse, MaxScore: 1, AnswerKey: []byte(`{"answer":true}`), Prompt: []byte(`{"text":"The passage says X."}`)},
		{ID: 2, Type: models.QuestionSingleChoice, MaxScore: 1, AnswerKey: []byte(`{"correct":"B"}`), Prompt: []byte(`{"text":"Pick one."}`)},
		{ID: 3, Type: models.QuestionShortText, MaxScore: 2, AnswerKey: []byte(`{"accepted":["harbour","the harbour"]}`), Prompt: []byte(`{"text":"Name the place."}`)},
		{ID: 4, Type: models.QuestionGapFill, MaxScore: 4, AnswerKey: []byte(`{"fillers":["sun","wind","rain","snow"]}`), Prompt: []byte(`{"text":"Fill the gaps."}`)},
	}
}

func perfectAnswers() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"1": json.RawMessage(`{"answer":true}`),
		"2": json.RawMessage(`{"selected":"B"}`),
		"3": json.RawMessage(`{"text":"Harbour"}`),
		"4": json.RawMessage(`{"fillers":["sun","wind","rain","snow"]}`),
	}
}

func TestScoreSection_PerfectAnswers(t *testing.T) {
	questions := objectiveQuestions()

	score, err := ScoreSection(questions, perfectAnswers())
	require.NoError(t, err)

	assert.Equal(t, score.MaxRawScore, score.RawScore)
	assert.Equal(t, 8, score.RawScore)
	assert.Equal(t, 4, score.CorrectCount)
	assert.Equal(t, 4, score.TotalQuestions)
	for _, r := range score.Breakdown {
		assert.True(t, r.Correct, "question %d should be correct", r.QuestionID)
	}
}

func TestScoreSection_NoAnswers(t *testing.T) {
	score, err := ScoreSection(objectiveQuestions(), map[string]json.RawMessage{})
	require.NoError(t, err)

	assert.Equal(t, 0, score.RawScore)
	assert.Equal(t, 8, score.MaxRawScore)
	assert.Equal(t, 0, score.CorrectCount)
	assert.Equal(t, 4, score.TotalQuestions)
	for _, r := range score.Breakdown {
		assert.False(t, r.Answered)
		assert.False(t, r.Correct)
	}
}

func TestScoreSection_Deterministic(t *testing.T) {
	questions := objectiveQuestions()
	answers := perfectAnswers()
	answers["4"] = json.RawMessage(`{"fillers":["sun","wind","hail","snow"]}`)

	first, err := ScoreSection(questions, answers)
	require.NoError(t, err)
	second, err := ScoreSection(questions, answers)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScoreSection_SkipsFreeResponse(t *testing.T) {
	questions := append(objectiveQuestions(), models.Question{
		ID: 5, Type: models.QuestionFreeResponse, MaxScore: 9,
		Prompt: []byte(`{"text":"Write an essay."}`),
	})

	score, err := ScoreSection(questions, perfectAnswers())
	require.NoError(t, err)

	assert.Equal(t, 4, score.TotalQuestions)
	assert.Equal(t, 8, score.MaxRawScore)
	for _, r := range score.Breakdown {
		assert.NotEqual(t, models.QuestionFreeResponse, r.Type)
	}
}

func TestScoreQuestion_TrueFalse(t *testing.T) {
	q := models.Question{ID: 1, Type: models.QuestionTrueFalse, MaxScore: 1, AnswerKey: []byte(`{"answer":false}`)}

	tests := []struct {
		name     string
		payload  string
		answered bool
		correct  bool
		points   int
	}{
		{name: "correct", payload: `{"answer":false}`, answered: true, correct: true, points: 1},
		{name: "wrong", payload: `{"answer":true}`, answered: true, correct: false, points: 0},
		{name: "malformed payload", payload: `{"answer":`, answered: false, correct: false, points: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ScoreQuestion(q, json.RawMessage(tc.payload), true)
			require.NoError(t, err)
			assert.Equal(t, tc.answered, got.Answered)
			assert.Equal(t, tc.correct, got.Correct)
			assert.Equal(t, tc.points, got.PointsAwarded)
		})
	}
}

func TestScoreQuestion_SingleChoiceNormalization(t *testing.T) {
	q := models.Question{ID: 2, Type: models.QuestionSingleChoice, MaxScore: 2, AnswerKey: []byte(`{"correct":"c"}`)}

	got, err := ScoreQuestion(q, json.RawMessage(`{"selected":" C "}`), true)
	require.NoError(t, err)
	assert.True(t, got.Correct)
	assert.Equal(t, 2, got.PointsAwarded)
}

func TestScoreQuestion_ShortTextCaseNormalized(t *testing.T) {
	q := models.Question{ID: 3, Type: models.QuestionShortText, MaxScore: 1, AnswerKey: []byte(`{"accepted":["Gold Coast","the Gold Coast"]}`)}

	tests := []struct {
		name    string
		payload string
		correct bool
	}{
		{name: "exact", payload: `{"text":"Gold Coast"}`, correct: true},
		{name: "case differs", payload: `{"text":"gold coast"}`, correct: true},
		{name: "extra whitespace", payload: `{"text":"  the  gold  coast "}`, correct: true},
		{name: "no fuzzy match", payload: `{"text":"gold cost"}`, correct: false},
		{name: "empty", payload: `{"text":""}`, correct: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ScoreQuestion(q, json.RawMessage(tc.payload), true)
			require.NoError(t, err)
			assert.Equal(t, tc.correct, got.Correct)
		})
	}
}

func TestScoreQuestion_GapFillProportional(t *testing.T) {
	q := models.Question{ID: 4, Type: models.QuestionGapFill, MaxScore: 4, AnswerKey: []byte(`{"fillers":["a","b","c","d"]}`)}

	tests := []struct {
		name    string
		payload string
		points  int
		correct bool
	}{
		{name: "all gaps", payload: `{"fillers":["a","b","c","d"]}`, points: 4, correct: true},
		{name: "three of four", payload: `{"fillers":["a","b","c","x"]}`, points: 3, correct: false},
		{name: "half rounds up", payload: `{"fillers":["a","b"]}`, points: 2, correct: false},
		{name: "one of four", payload: `{"fillers":["a"]}`, points: 1, correct: false},
		{name: "none", payload: `{"fillers":["x","y","z","w"]}`, points: 0, correct: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ScoreQuestion(q, json.RawMessage(tc.payload), true)
			require.NoError(t, err)
			assert.Equal(t, tc.points, got.PointsAwarded)
			assert.Equal(t, tc.correct, got.Correct)
		})
	}
}

func TestScoreQuestion_GapFillRoundHalfUp(t *testing.T) {
	// 3 points over 2 gaps: one match is 1.5, rounded half-up to 2.
	q := models.Question{ID: 7, Type: models.QuestionGapFill, MaxScore: 3, AnswerKey: []byte(`{"fillers":["a","b"]}`)}

	got, err := ScoreQuestion(q, json.RawMessage(`{"fillers":["a","x"]}`), true)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PointsAwarded)
}

func TestScoreQuestion_MalformedKey(t *testing.T) {
	q := models.Question{ID: 8, Type: models.QuestionSingleChoice, MaxScore: 1, AnswerKey: []byte(`{}`)}

	_, err := ScoreQuestion(q, json.RawMessage(`{"selected":"A"}`), true)
	assert.Error(t, err)
}

func TestScoreQuestion_MissingKey(t *testing.T) {
	q := models.Question{ID: 9, Type: models.QuestionTrueFalse, MaxScore: 1}

	_, err := ScoreQuestion(q, nil, false)
	assert.Error(t, err)
}
