package placement

import (
	"encoding/json"
	"math"
)

// invalidIndex stands for a selected option that is not an option index; it never matches.
const invalidIndex = -1

// RawAnswer is an answer as sent by the participant, before grading.
type RawAnswer struct {
	Question        string
	SelectedOptions []int
}

// ParseAnswers decodes answers leniently. `raw` may be a JSON array or a string holding one;
// each item may be an object or a string holding one, and its selected_options may be an array
// or a string holding one. Malformed parts decode as empty; items without a question are dropped.
func ParseAnswers(raw json.RawMessage) []RawAnswer {
	items, ok := decodeLenient(raw).([]interface{})
	if !ok {
		return []RawAnswer{}
	}

	answers := make([]RawAnswer, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			item = decodeString(s)
		}
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		question, _ := obj["question"].(string)
		if question == "" {
			continue
		}
		answers = append(answers, RawAnswer{Question: question, SelectedOptions: parseSelection(obj["selected_options"])})
	}
	return answers
}

func decodeLenient(raw json.RawMessage) interface{} {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return decodeString(s)
	}
	return v
}

func decodeString(s string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	return v
}

func parseSelection(v interface{}) []int {
	switch sel := v.(type) {
	case nil:
		return []int{}
	case string:
		if sel == "" {
			return []int{}
		}
		v = decodeString(sel)
	}
	items, ok := v.([]interface{})
	if !ok {
		return []int{}
	}
	indices := make([]int, 0, len(items))
	for _, item := range items {
		n, ok := item.(float64)
		if !ok || n != math.Trunc(n) || n < 0 {
			indices = append(indices, invalidIndex)
			continue
		}
		indices = append(indices, int(n))
	}
	return indices
}

// IsAnswerCorrect grades a selection: a single answer question needs exactly one selected option
// and it must be correct; other questions need the selected set to equal the correct set.
func IsAnswerCorrect(q Question, selected []int) bool {
	correct := make(map[int]bool)
	for _, i := range q.CorrectIndices() {
		correct[i] = true
	}

	if q.QuestionType == SingleAnswer {
		return len(selected) == 1 && correct[selected[0]]
	}

	chosen := make(map[int]bool, len(selected))
	for _, i := range selected {
		if !correct[i] {
			return false
		}
		chosen[i] = true
	}
	return len(chosen) == len(correct)
}
