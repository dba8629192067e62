package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	tests := []struct {
		name     string
		msg      EmailMessage
		wantText []string
		wantHTML []string
	}{
		{
			name: "password reset",
			msg: EmailMessage{
				TemplateName: "password_reset",
				TemplateData: map[string]string{"Name": "Amy", "UID": "dWlk", "Token": "abc-123"},
			},
			wantText: []string{"Hello Amy,", "/password-reset/dWlk/abc-123", "The " + Conf.AppName + " team"},
			wantHTML: []string{"<p>Hello Amy,</p>", "/password-reset/dWlk/abc-123"},
		},
		{
			name: "placement result",
			msg: EmailMessage{
				TemplateName: "placement_result",
				TemplateData: struct {
					FullName, TestTitle, InterviewTime, Submission string
					CorrectAnswers, TotalQuestions                 int
					Score, PassingScore                            float64
					Passed                                         bool
				}{"Amy D.", "French A1", "", "PTS-0001", 1, 2, 50, 50, true},
			},
			wantText: []string{"Hello Amy D.,", "Correct answers: 1 / 2", "Score: 50.00%", "Result: Passed", "/placement-test/result/PTS-0001"},
			wantHTML: []string{"<strong>Passed</strong>", "/placement-test/result/PTS-0001"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			require.NoError(t, msg.Render())
			require.True(t, msg.HasContent())
			for _, want := range tt.wantText {
				if !strings.Contains(msg.TextContent, want) {
					t.Errorf("failed! text content misses %q:\n%s", want, msg.TextContent)
				}
			}
			for _, want := range tt.wantHTML {
				if !strings.Contains(msg.HTMLContent, want) {
					t.Errorf("failed! html content misses %q:\n%s", want, msg.HTMLContent)
				}
			}
		})
	}
}

func TestEmailMessage_RenderUnknownTemplate(t *testing.T) {
	msg := EmailMessage{TemplateName: "nope"}
	assert.Error(t, msg.Render())

	msg = EmailMessage{TemplateName: "nope", BodyStr: "plain"}
	require.NoError(t, msg.Render())
	assert.Equal(t, "plain", msg.TextContent)
}
