package emailsvc

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

// Outbox records the messages delivered by the mock service.
var Outbox = new(outbox)

type outbox struct {
	mu   sync.Mutex
	msgs []core.EmailMessage
}

func (o *outbox) add(msg core.EmailMessage) {
	o.mu.Lock()
	o.msgs = append(o.msgs, msg)
	o.mu.Unlock()
}

// Messages returns a copy of the recorded messages, oldest first.
func (o *outbox) Messages() []core.EmailMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]core.EmailMessage(nil), o.msgs...)
}

func (o *outbox) Reset() {
	o.mu.Lock()
	o.msgs = nil
	o.mu.Unlock()
}

// consoleService prints emails instead of sending them. Used in development.
type consoleService struct {
	from       mail.Address
	subjPrefix string
	out        io.Writer
	logger     core.Logger
	sync       bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(logger core.Logger) core.EmailService {
	return &consoleService{
		from:       core.Conf.DefaultFromEmail,
		subjPrefix: "[" + core.Conf.AppName + "] ",
		out:        os.Stdout,
		logger:     logger,
	}
}

// NewConsoleServiceMock renders messages synchronously into the Outbox without printing them.
func NewConsoleServiceMock() core.EmailService {
	return &consoleService{
		from:       core.Conf.DefaultFromEmail,
		subjPrefix: "[" + core.Conf.AppName + "] ",
		out:        io.Discard,
		sync:       true,
	}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.sync {
			svc.deliver(msg)
			continue
		}
		go svc.deliver(msg)
	}
}

func (svc *consoleService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.fail("rendering email", err)
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}
	if err := svc.write(*msg); err != nil {
		svc.fail("writing email", err)
		return
	}
	if svc.sync {
		Outbox.add(*msg)
	}
}

func (svc *consoleService) fail(msg string, err error) {
	if svc.logger == nil {
		panic(errors.Wrap(err, msg))
	}
	svc.logger.Error(msg, err)
}

func (svc *consoleService) write(msg core.EmailMessage) error {
	body := new(strings.Builder)

	header := textproto.MIMEHeader{}
	header.Set("From", svc.from.String())
	header.Set("MIME-Version", "1.0")
	header.Set("Date", time.Now().Format(time.RFC1123Z))
	header.Set("Subject", svc.subjPrefix+msg.Subject)
	header.Set("To", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		header.Set("Cc", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		header.Set("Bcc", joinAddresses(msg.Bcc))
	}

	altW := multipart.NewWriter(body)
	var mixedW *multipart.Writer
	if msg.HasAttachments() {
		mixedW = multipart.NewWriter(body)
		header.Set("Content-Type", "multipart/mixed; boundary="+mixedW.Boundary())
	} else {
		header.Set("Content-Type", "multipart/alternative; boundary="+altW.Boundary())
	}
	for k, v := range header {
		_, _ = fmt.Fprintf(body, "%s: %s\r\n", k, strings.Join(v, ", "))
	}
	_, _ = fmt.Fprint(body, "\r\n")

	if mixedW != nil {
		if _, err := mixedW.CreatePart(textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + altW.Boundary()}}); err != nil {
			return errors.Wrap(err, "creating multipart/alternative part")
		}
	}

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)
	if msg.HTMLContent != "" {
		if w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}}); err != nil {
			return errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	if err := altW.Close(); err != nil {
		return err
	}

	if mixedW != nil {
		for _, at := range msg.Attachments {
			w, err = mixedW.CreatePart(textproto.MIMEHeader{
				"Content-Type":              {at.ContentType},
				"Content-Transfer-Encoding": {"base64"},
				"Content-Disposition":       {"attachment; filename=" + at.Filename},
			})
			if err != nil {
				return errors.Wrap(err, "creating "+at.ContentType+" part")
			}
			_, _ = fmt.Fprintf(w, "%s\r\n", at.Content.String())
		}
		if err := mixedW.Close(); err != nil {
			return err
		}
	}

	_, err = io.WriteString(svc.out, body.String())
	return err
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
