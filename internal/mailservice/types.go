package mailservice

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/go-mail/mail/v2"
	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
)

const (
	maxRetries       = 5
	defaultBaseDelay = 500 * time.Millisecond

	blogCreatedTemplate = "blog_created.html"
)

type MailService struct {
	mb        common.MessageConsumer
	m         Mailer
	stats     StatsSource
	recipient string
	logger    MailLogger
	baseDelay time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// StatsSource supplies the digest appended to every notification.
type StatsSource interface {
	Stats(ctx context.Context) (blogservice.Stats, error)
}

type MailLogger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

type Mail struct {
	mu     sync.Mutex
	dialer Dialer
	parser TemplateParser
	sender string
}

type Mailer interface {
	send(recipient string, data any, templateFile string) error
}

type Template struct{}

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type TemplateParser interface {
	ParseTemplate(name string, data any) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer, error)
}

// notification is the data handed to blog_created.html.
type notification struct {
	Blog  blogservice.BlogCreatedEvent
	Stats blogservice.Stats
}
