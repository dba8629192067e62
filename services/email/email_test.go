package emailsvc

import (
	"bytes"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
)

func TestConsoleService(t *testing.T) {
	Outbox.Reset()
	out := new(bytes.Buffer)
	svc := &consoleService{from: mail.Address{Name: "LMS", Address: "noreply@lms.test"}, subjPrefix: "[LMS] ", out: out, sync: true}

	svc.SendMessages(
		&core.EmailMessage{To: core.Addresses("amy@test.test"), Bcc: core.Addresses("office@test.test"), Subject: "Hello", BodyStr: "Hi Amy"},
		&core.EmailMessage{Subject: "nobody", BodyStr: "dropped"},
	)

	msgs := Outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hi Amy", msgs[0].TextContent)
	printed := out.String()
	assert.True(t, strings.Contains(printed, "Subject: [LMS] Hello"), printed)
	assert.True(t, strings.Contains(printed, "Bcc: <office@test.test>"), printed)
	assert.False(t, strings.Contains(printed, "dropped"))
}

func TestSendgridPrepare(t *testing.T) {
	svc := &sendgridService{from: sgEmail(mail.Address{Address: "noreply@lms.test"}), subjPrefix: "[LMS] "}
	m := svc.prepare(core.EmailMessage{
		To:          core.Addresses("Amy <amy@test.test>"),
		Bcc:         core.Addresses("office@test.test"),
		Subject:     "Result",
		TextContent: "text",
	})

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[LMS] Result", p.Subject)
	assert.Equal(t, "amy@test.test", p.To[0].Address)
	assert.Equal(t, "office@test.test", p.BCC[0].Address)
	assert.Len(t, m.Content, 1) // no html part
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		res  *rest.Response
		err  error
		want bool
	}{
		{name: "network error", err: errors.New("timeout"), want: true},
		{name: "accepted", res: &rest.Response{StatusCode: http.StatusAccepted}},
		{name: "bad request", res: &rest.Response{StatusCode: http.StatusBadRequest}},
		{name: "throttled", res: &rest.Response{StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "server error", res: &rest.Response{StatusCode: http.StatusBadGateway}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.res, tt.err); got != tt.want {
				t.Errorf("failed! retryable() = %v; want %v", got, tt.want)
			}
		})
	}
}
