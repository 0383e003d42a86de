package service

import (
	"sync"
	"time"

	"service-resolver-be/internal/pkg/logger"
	"service-resolver-be/internal/pkg/mailer"
)

type IAlertService interface {
	RecordFailure(reason string)
}

// alertService counts hard pipeline failures over a sliding window and
// mails an alarm once the threshold is crossed. The window resets after
// an alarm fires so a sustained outage produces one mail per window, not
// one per request.
type alertService struct {
	mu       sync.Mutex
	failures []time.Time
	lastErr  string

	threshold int
	window    time.Duration
	recipient string
	enabled   bool

	mailer mailer.IEmailService
	log    logger.ILogger
}

func NewAlertService(enabled bool, threshold int, window time.Duration, recipient string, emailService mailer.IEmailService, log logger.ILogger) IAlertService {
	return &alertService{
		threshold: threshold,
		window:    window,
		recipient: recipient,
		enabled:   enabled,
		mailer:    emailService,
		log:       log,
	}
}

func (s *alertService) RecordFailure(reason string) {
	if !s.enabled {
		return
	}

	s.mu.Lock()
	now := time.Now()
	s.lastErr = reason
	s.failures = append(s.failures, now)
	s.prune(now)

	if len(s.failures) < s.threshold {
		s.mu.Unlock()
		return
	}

	count := len(s.failures)
	lastErr := s.lastErr
	s.failures = nil
	s.mu.Unlock()

	s.log.Error("alert", "failure threshold crossed, sending alarm", map[string]interface{}{
		"count":     count,
		"window":    s.window.String(),
		"recipient": s.recipient,
	})

	if err := s.mailer.SendFailureAlarm(s.recipient, count, s.window, lastErr); err != nil {
		s.log.Error("alert", "failed to send failure alarm", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *alertService) prune(now time.Time) {
	cutoff := now.Add(-s.window)
	kept := s.failures[:0]
	for _, t := range s.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.failures = kept
}
