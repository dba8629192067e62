package sqlxrepos

import (
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/grading"
	"github.com/trezcool/masomo-lms/core/placement"
)

func TestGradeRecordRow(t *testing.T) {
	exam := 20.5
	row := toGradeRecordRow("sheet-1", grading.Record{StudentName: "Amy", Exam: &exam, Total: 20.5})

	assert.False(t, row.Student.Valid, "anonymous rows have no student")
	assert.False(t, row.Speaking.Valid, "ungraded components are NULL")
	assert.True(t, row.Exam.Valid)
	assert.Equal(t, "sheet-1", row.Sheet)

	rec := row.record()
	assert.Nil(t, rec.Speaking)
	if assert.NotNil(t, rec.Exam) {
		assert.Equal(t, 20.5, *rec.Exam)
	}
	assert.Equal(t, "", rec.Student)
}

func TestQuestionRowOptions(t *testing.T) {
	row, err := toQuestionRow(placement.Question{Question: "2 + 2?"})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(row.Options))

	row.Options = []byte(`[{"option_text":"3","is_correct":false},{"option_text":"4","is_correct":true}]`)
	q, err := row.question()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, q.CorrectIndices())

	row.Options = []byte(`{`)
	_, err = row.question()
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unique", err: &pq.Error{Code: "23505"}, want: true},
		{name: "wrapped", err: errors.Wrap(&pq.Error{Code: "23505"}, "inserting"), want: true},
		{name: "foreign key", err: &pq.Error{Code: "23503"}},
		{name: "other", err: errors.New("boom")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isUniqueViolation(tc.err); got != tc.want {
				t.Errorf("failed! got %v, want %v", got, tc.want)
			}
		})
	}
}
