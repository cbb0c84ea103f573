// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package identity

import (
	"context"
	"sync"

	"github.com/toeirei/lingo/internal/logging"
)

// EmailSender delivers account emails.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// LogEmailSender writes outgoing mail to the log and remembers the last
// message per recipient so the confirmation page can show the link.
type LogEmailSender struct {
	mu   sync.Mutex
	last map[string]string
}

func NewLogEmailSender() *LogEmailSender {
	return &LogEmailSender{last: map[string]string{}}
}

func (s *LogEmailSender) SendEmail(_ context.Context, to, subject, htmlBody string) error {
	s.mu.Lock()
	s.last[Normalize(to)] = htmlBody
	s.mu.Unlock()
	logging.With("to", to, "subject", subject).Info("email queued (log transport)")
	logging.Debugf("email body: %s", htmlBody)
	return nil
}

// LastMessage returns the most recent body sent to address.
func (s *LogEmailSender) LastMessage(address string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.last[Normalize(address)]
	return body, ok
}
