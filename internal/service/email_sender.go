package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/dailypen/internal/config"
	appErr "github.com/xxxsen/dailypen/internal/pkg/errors"
)

const defaultRetryDelay = 500 * time.Millisecond

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smtpSender struct {
	cfg config.MailConfig
}

func NewEmailSender(cfg config.MailConfig) EmailSender {
	var sender EmailSender
	switch cfg.Type {
	case "log":
		sender = logSender{}
	default:
		sender = &smtpSender{cfg: cfg}
	}
	if cfg.DisableRetry {
		return sender
	}
	return NewRetrySender(sender, time.Duration(cfg.RetryDelayMS)*time.Millisecond)
}

func (s *smtpSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := strings.TrimSpace(s.cfg.From)
	if s.cfg.Host == "" || s.cfg.Port == 0 || from == "" {
		return appErr.ErrInvalid
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := []byte("From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body)
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

// logSender writes messages to the log instead of mailing them. Development only.
type logSender struct{}

func (logSender) Send(ctx context.Context, to, subject, body string) error {
	logutil.GetLogger(ctx).Info("mail not sent, log sender in use",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// RetrySender resends the identical message once when the first attempt fails.
type RetrySender struct {
	next  EmailSender
	delay time.Duration
}

func NewRetrySender(next EmailSender, delay time.Duration) *RetrySender {
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return &RetrySender{next: next, delay: delay}
}

func (s *RetrySender) Send(ctx context.Context, to, subject, body string) error {
	attempt := 0
	backoff := retry.WithMaxRetries(1, retry.NewConstant(s.delay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := s.next.Send(ctx, to, subject, body); err != nil {
			logutil.GetLogger(ctx).Warn("send mail failed",
				zap.String("to", to),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
}
