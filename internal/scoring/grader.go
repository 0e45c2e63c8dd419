package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/examport/attempt-service/internal/models"
)

// QuestionResult is one line of a section's correctness breakdown.
type QuestionResult struct {
	QuestionID    uint                `json:"question_id"`
	Type          models.QuestionType `json:"type"`
	Answered      bool                `json:"answered"`
	Correct       bool                `json:"correct"`
	PointsAwarded int                 `json:"points_awarded"`
	MaxScore      int                 `json:"max_score"`
	Submitted     interface{}         `json:"submitted,omitempty"`
	Expected      interface{}         `json:"expected,omitempty"`
}

// SectionScore aggregates grading over a section's auto-gradable questions.
type SectionScore struct {
	RawScore       int              `json:"raw_score"`
	MaxRawScore    int              `json:"max_raw_score"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	Breakdown      []QuestionResult `json:"breakdown"`
}

// ScoreSection grades every auto-gradable question in the section against the
// stored answer map (question ID string -> raw payload). Free-response
// questions are skipped entirely. The function has no side effects; identical
// input always yields identical output.
func ScoreSection(questions []models.Question, answers map[string]json.RawMessage) (*SectionScore, error) {
	score := &SectionScore{Breakdown: make([]QuestionResult, 0, len(questions))}

	for _, q := range questions {
		if !q.Type.AutoGradable() {
			continue
		}

		raw, ok := answers[strconv.FormatUint(uint64(q.ID), 10)]
		result, err := ScoreQuestion(q, raw, ok)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", q.ID, err)
		}

		score.RawScore += result.PointsAwarded
		score.MaxRawScore += result.MaxScore
		score.TotalQuestions++
		if result.Correct {
			score.CorrectCount++
		}
		score.Breakdown = append(score.Breakdown, result)
	}

	return score, nil
}

// ScoreQuestion grades a single objective question. A missing or malformed
// student payload earns zero points; a malformed answer key is a definition
// defect and surfaces as an error.
func ScoreQuestion(q models.Question, raw json.RawMessage, answered bool) (QuestionResult, error) {
	maxScore := q.MaxScore
	if maxScore <= 0 {
		maxScore = 1
	}

	result := QuestionResult{
		QuestionID: q.ID,
		Type:       q.Type,
		MaxScore:   maxScore,
	}

	if len(q.AnswerKey) == 0 {
		return result, fmt.Errorf("missing answer key for %s question", q.Type)
	}

	switch q.Type {
	case models.QuestionTrueFalse:
		return gradeTrueFalse(q, raw, answered, result)
	case models.QuestionSingleChoice:
		return gradeSingleChoice(q, raw, answered, result)
	case models.QuestionShortText:
		return gradeShortText(q, raw, answered, result)
	case models.QuestionGapFill:
		return gradeGapFill(q, raw, answered, result)
	default:
		return result, fmt.Errorf("question type %q is not auto-gradable", q.Type)
	}
}

func gradeTrueFalse(q models.Question, raw json.RawMessage, answered bool, result QuestionResult) (QuestionResult, error) {
	var key models.TrueFalseKey
	if err := json.Unmarshal(q.AnswerKey, &key); err != nil {
		return result, fmt.Errorf("malformed true_false answer key: %w", err)
	}
	result.Expected = key.Answer

	if !answered {
		return result, nil
	}
	var ans models.TrueFalseAnswer
	if err := json.Unmarshal(raw, &ans); err != nil {
		return result, nil
	}
	result.Answered = true
	result.Submitted = ans.Answer
	if ans.Answer == key.Answer {
		result.Correct = true
		result.PointsAwarded = result.MaxScore
	}
	return result, nil
}

func gradeSingleChoice(q models.Question, raw json.RawMessage, answered bool, result QuestionResult) (QuestionResult, error) {
	var key models.SingleChoiceKey
	if err := json.Unmarshal(q.AnswerKey, &key); err != nil || key.Correct == "" {
		return result, fmt.Errorf("malformed single_choice answer key")
	}
	result.Expected = key.Correct

	if !answered {
		return result, nil
	}
	var ans models.SingleChoiceAnswer
	if err := json.Unmarshal(raw, &ans); err != nil || ans.Selected == "" {
		return result, nil
	}
	result.Answered = true
	result.Submitted = ans.Selected
	if normalizeChoice(ans.Selected) == normalizeChoice(key.Correct) {
		result.Correct = true
		result.PointsAwarded = result.MaxScore
	}
	return result, nil
}

func gradeShortText(q models.Question, raw json.RawMessage, answered bool, result QuestionResult) (QuestionResult, error) {
	var key models.ShortTextKey
	if err := json.Unmarshal(q.AnswerKey, &key); err != nil || len(key.Accepted) == 0 {
		return result, fmt.Errorf("malformed short_text answer key")
	}
	result.Expected = key.Accepted

	if !answered {
		return result, nil
	}
	var ans models.ShortTextAnswer
	if err := json.Unmarshal(raw, &ans); err != nil {
		return result, nil
	}
	result.Answered = ans.Text != ""
	result.Submitted = ans.Text

	// Case-normalized exact match against any accepted string. No fuzzy
	// matching.
	submitted := normalizeText(ans.Text)
	for _, accepted := range key.Accepted {
		if submitted != "" && submitted == normalizeText(accepted) {
			result.Correct = true
			result.PointsAwarded = result.MaxScore
			break
		}
	}
	return result, nil
}

func gradeGapFill(q models.Question, raw json.RawMessage, answered bool, result QuestionResult) (QuestionResult, error) {
	var key models.GapFillKey
	if err := json.Unmarshal(q.AnswerKey, &key); err != nil || len(key.Fillers) == 0 {
		return result, fmt.Errorf("malformed gap_fill answer key")
	}
	result.Expected = key.Fillers

	if !answered {
		return result, nil
	}
	var ans models.GapFillAnswer
	if err := json.Unmarshal(raw, &ans); err != nil {
		return result, nil
	}
	result.Answered = len(ans.Fillers) > 0
	result.Submitted = ans.Fillers

	matched := 0
	for i, expected := range key.Fillers {
		if i < len(ans.Fillers) && normalizeText(ans.Fillers[i]) == normalizeText(expected) {
			matched++
		}
	}

	// Proportional credit, rounded half-up to a whole point.
	result.PointsAwarded = roundHalfUp(float64(result.MaxScore) * float64(matched) / float64(len(key.Fillers)))
	result.Correct = matched == len(key.Fillers)
	return result, nil
}

// roundHalfUp rounds to the nearest integer with .5 always rounding up.
func roundHalfUp(x float64) int {
	return int(x + 0.5)
}

func normalizeChoice(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
