package mailer

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendFailureAlarm(toEmail string, failureCount int, window time.Duration, lastError string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

func (s *emailService) SendFailureAlarm(toEmail string, failureCount int, window time.Duration, lastError string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Service Resolver: upstream failure alarm")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Resolution pipeline failure alarm</h2>
			<p>The pipeline recorded <b>%d</b> hard failures in the last %s.</p>
			<p>Most recent error:</p>
			<pre style="background: #f4f4f4; padding: 10px; border-radius: 5px;">%s</pre>
			<p>Check the embedding, index and rerank upstreams.</p>
		</div>
	`, failureCount, window, lastError)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send failure alarm to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Failure alarm sent to %s\n", toEmail)
	return nil
}
