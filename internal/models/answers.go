package models

import (
	"encoding/json"
	"fmt"
)

// Answer payloads form a tagged union keyed by QuestionType. Handlers decode
// the raw JSON at the boundary so scoring logic never touches untyped maps.

type TrueFalseAnswer struct {
	Answer    bool `json:"answer"`
	TimeSpent int  `json:"time_spent"`
}

type SingleChoiceAnswer struct {
	Selected  string `json:"selected"`
	TimeSpent int    `json:"time_spent"`
}

type ShortTextAnswer struct {
	Text      string `json:"text"`
	TimeSpent int    `json:"time_spent"`
}

type GapFillAnswer struct {
	Fillers   []string `json:"fillers"` // one filler per gap, in gap order
	TimeSpent int      `json:"time_spent"`
}

type FreeResponseAnswer struct {
	Text      string `json:"text"`
	AudioURL  string `json:"audio_url,omitempty"`
	TimeSpent int    `json:"time_spent"`
}

// Answer keys, one shape per objective question type.

type TrueFalseKey struct {
	Answer bool `json:"answer"`
}

type SingleChoiceKey struct {
	Correct string `json:"correct"`
}

type ShortTextKey struct {
	Accepted []string `json:"accepted"`
}

type GapFillKey struct {
	Fillers []string `json:"fillers"` // expected filler per gap, in gap order
}

// DecodeAnswerKey validates that raw parses as the answer key shape for the
// given question type. Free-response questions carry no key.
func DecodeAnswerKey(qt QuestionType, raw json.RawMessage) (interface{}, error) {
	switch qt {
	case QuestionTrueFalse:
		var k TrueFalseKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, fmt.Errorf("invalid true_false answer key: %w", err)
		}
		return &k, nil
	case QuestionSingleChoice:
		var k SingleChoiceKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, fmt.Errorf("invalid single_choice answer key: %w", err)
		}
		if k.Correct == "" {
			return nil, fmt.Errorf("single_choice answer key has no correct option")
		}
		return &k, nil
	case QuestionShortText:
		var k ShortTextKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, fmt.Errorf("invalid short_text answer key: %w", err)
		}
		if len(k.Accepted) == 0 {
			return nil, fmt.Errorf("short_text answer key accepts nothing")
		}
		return &k, nil
	case QuestionGapFill:
		var k GapFillKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, fmt.Errorf("invalid gap_fill answer key: %w", err)
		}
		if len(k.Fillers) == 0 {
			return nil, fmt.Errorf("gap_fill answer key has no fillers")
		}
		return &k, nil
	case QuestionFreeResponse:
		return nil, fmt.Errorf("free_response questions carry no answer key")
	default:
		return nil, fmt.Errorf("unknown question type %q", qt)
	}
}

// DecodeAnswer validates that raw parses as the payload shape for the given
// question type and returns the typed value.
func DecodeAnswer(qt QuestionType, raw json.RawMessage) (interface{}, error) {
	switch qt {
	case QuestionTrueFalse:
		var a TrueFalseAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("invalid true_false answer payload: %w", err)
		}
		return &a, nil
	case QuestionSingleChoice:
		var a SingleChoiceAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("invalid single_choice answer payload: %w", err)
		}
		return &a, nil
	case QuestionShortText:
		var a ShortTextAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("invalid short_text answer payload: %w", err)
		}
		return &a, nil
	case QuestionGapFill:
		var a GapFillAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("invalid gap_fill answer payload: %w", err)
		}
		return &a, nil
	case QuestionFreeResponse:
		var a FreeResponseAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("invalid free_response answer payload: %w", err)
		}
		return &a, nil
	default:
		return nil, fmt.Errorf("unknown question type %q", qt)
	}
}

// DecodeAnswerMap decodes a whole stored answer map (question ID -> payload),
// rejecting any entry whose payload does not match its question's type.
func DecodeAnswerMap(questions []Question, raw map[string]json.RawMessage) (map[uint]interface{}, error) {
	types := make(map[uint]QuestionType, len(questions))
	for _, q := range questions {
		types[q.ID] = q.Type
	}

	decoded := make(map[uint]interface{}, len(raw))
	for key, payload := range raw {
		var qid uint
		if _, err := fmt.Sscanf(key, "%d", &qid); err != nil {
			return nil, fmt.Errorf("invalid question id %q in answer map", key)
		}
		qt, ok := types[qid]
		if !ok {
			return nil, fmt.Errorf("answer references unknown question %d", qid)
		}
		ans, err := DecodeAnswer(qt, payload)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", qid, err)
		}
		decoded[qid] = ans
	}
	return decoded, nil
}
