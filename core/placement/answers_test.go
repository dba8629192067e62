package placement_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-lms/core/placement"
)

func TestParseAnswers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []placement.RawAnswer
	}{
		{
			name: "array",
			raw:  `[{"question": "q1", "selected_options": [0]}, {"question": "q2", "selected_options": [1, 2]}]`,
			want: []placement.RawAnswer{{Question: "q1", SelectedOptions: []int{0}}, {Question: "q2", SelectedOptions: []int{1, 2}}},
		},
		{
			name: "string holding the array",
			raw:  `"[{\"question\": \"q1\", \"selected_options\": \"[1, 2]\"}]"`,
			want: []placement.RawAnswer{{Question: "q1", SelectedOptions: []int{1, 2}}},
		},
		{
			name: "string items",
			raw:  `["{\"question\": \"q1\", \"selected_options\": [3]}", "not json"]`,
			want: []placement.RawAnswer{{Question: "q1", SelectedOptions: []int{3}}},
		},
		{
			name: "invalid selections",
			raw:  `[{"question": "q1", "selected_options": ["a", 1.5, -1, 2]}]`,
			want: []placement.RawAnswer{{Question: "q1", SelectedOptions: []int{-1, -1, -1, 2}}},
		},
		{
			name: "missing selections",
			raw:  `[{"question": "q1"}, {"question": "q2", "selected_options": "oops"}, {"question": "q3", "selected_options": ""}]`,
			want: []placement.RawAnswer{{Question: "q1", SelectedOptions: []int{}}, {Question: "q2", SelectedOptions: []int{}}, {Question: "q3", SelectedOptions: []int{}}},
		},
		{
			name: "items without question are dropped",
			raw:  `[{"selected_options": [0]}, {"question": ""}, 42]`,
			want: []placement.RawAnswer{},
		},
		{name: "object", raw: `{"question": "q1"}`, want: []placement.RawAnswer{}},
		{name: "garbage", raw: `garbage`, want: []placement.RawAnswer{}},
		{name: "null", raw: `null`, want: []placement.RawAnswer{}},
		{name: "empty", raw: ``, want: []placement.RawAnswer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, placement.ParseAnswers(json.RawMessage(tt.raw)))
		})
	}
}

func TestIsAnswerCorrect(t *testing.T) {
	single := placement.Question{
		QuestionType: placement.SingleAnswer,
		Options:      []placement.Option{{OptionText: "a"}, {OptionText: "b", IsCorrect: true}, {OptionText: "c"}},
	}
	multiple := placement.Question{
		QuestionType: placement.MultipleAnswer,
		Options:      []placement.Option{{OptionText: "a", IsCorrect: true}, {OptionText: "b"}, {OptionText: "c", IsCorrect: true}},
	}

	tests := []struct {
		name     string
		q        placement.Question
		selected []int
		want     bool
	}{
		{"single correct", single, []int{1}, true},
		{"single wrong", single, []int{0}, false},
		{"single twice", single, []int{1, 1}, false},
		{"single none", single, []int{}, false},
		{"single out of range", single, []int{5}, false},
		{"multiple exact", multiple, []int{0, 2}, true},
		{"multiple any order", multiple, []int{2, 0}, true},
		{"multiple duplicates", multiple, []int{0, 2, 2}, true},
		{"multiple partial", multiple, []int{0}, false},
		{"multiple extra", multiple, []int{0, 1, 2}, false},
		{"multiple invalid", multiple, []int{0, 2, -1}, false},
		{"multiple none", multiple, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := placement.IsAnswerCorrect(tt.q, tt.selected); got != tt.want {
				t.Errorf("failed! IsAnswerCorrect(%v) = %v; want %v", tt.selected, got, tt.want)
			}
		})
	}
}
