package mailservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"golang.org/x/exp/rand"
)

type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Sender    string
	Recipient string
}

func NewMailService(mb common.MessageConsumer, cfg Config, stats StatsSource, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:        mb,
		m:         NewMailer(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Sender, NewTemplate()),
		stats:     stats,
		recipient: cfg.Recipient,
		logger:    logger,
		baseDelay: defaultBaseDelay,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// NotifyBlogCreated starts consuming blog.created events in the background. Every
// event is acked once, whether or not the mail could be delivered.
func (s *MailService) NotifyBlogCreated() error {
	msgs, err := s.mb.Consume(common.BlogCreatedKey, common.BlogExchange, common.BlogCreatedQueue)
	if err != nil {
		return fmt.Errorf("could not consume blog events: %w", err)
	}

	go func() {
		defer close(s.done)

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				if err := s.notify(msg.Body); err != nil {
					s.logger.Error("could not send blog notification", slog.String("error", err.Error()))
				}
				_ = msg.Ack(false)

			case <-s.ctx.Done():
				s.logger.Info("stopping blog notifications")
				return
			}
		}
	}()

	return nil
}

func (s *MailService) notify(body []byte) error {
	var event blogservice.BlogCreatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("could not decode event: %w", err)
	}

	data := notification{Blog: event}

	stats, err := s.stats.Stats(s.ctx)
	if err != nil {
		// the digest is optional, the notification still goes out
		s.logger.Error("could not compute blog stats", slog.String("error", err.Error()))
	} else {
		data.Stats = stats
	}

	// exponential backoff with jitter
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = s.m.send(s.recipient, data, blogCreatedTemplate)
		if err == nil {
			s.logger.Info("blog notification sent", slog.String("blog_id", event.ID.String()))
			return nil
		}

		delay := time.Duration(rand.Int63n(int64(s.baseDelay) << uint(attempt)))
		s.logger.Info("delaying blog notification", slog.String("blog_id", event.ID.String()), slog.Int("attempt", attempt), slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", maxRetries, err)
}

// Close stops the consumer. Wait on Done to know it has exited.
func (s *MailService) Close() {
	s.cancel()
}

// Done is closed once the consumer goroutine has returned.
func (s *MailService) Done() <-chan struct{} {
	return s.done
}
