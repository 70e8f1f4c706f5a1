package utils

import (
	"fmt"
	"html"
	"log"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailService sends transactional email through SendGrid. Without an API key
// it only logs what it would have sent.
type EmailService struct {
	apiKey string
	host   string // empty means api.sendgrid.com
	from   *mail.Email
}

func NewEmailService(apiKey, sender, senderName string) *EmailService {
	return &EmailService{
		apiKey: apiKey,
		from:   mail.NewEmail(senderName, sender),
	}
}

// SendEmail delivers one HTML email and waits for SendGrid to accept it
func (s *EmailService) SendEmail(to, name, subject, htmlBody string) error {
	if s.apiKey == "" {
		log.Printf("[EMAIL] SendGrid disabled, skipping %q to %s", subject, to)
		return nil
	}

	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail(name, to), subject, htmlBody)

	request := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequest(request)
	if err != nil {
		log.Printf("[EMAIL] Error sending %q to %s: %v", subject, to, err)
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		log.Printf("[EMAIL] SendGrid rejected %q to %s: %d %s", subject, to, resp.StatusCode, resp.Body)
		return fmt.Errorf("sendgrid error: status=%d", resp.StatusCode)
	}

	log.Printf("[EMAIL] Sent %q to %s", subject, to)
	return nil
}

// HTML wrapper shared by all academy emails
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #111827; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #111827; line-height: 1.6; }
			.info-box { background: #EEF2FF; padding: 15px; border-radius: 4px; border-left: 4px solid #6366F1; margin: 20px 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>AI FIRST ACADEMY</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; AI First Academy. All rights reserved.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// --- Bodies ---

func enrollmentEmailBody(name, courseTitle string) string {
	return fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your purchase is complete and you are now enrolled in <strong>%s</strong>.</p>
		<div class="info-box">
			Every lesson is waiting for you in your dashboard. Complete them all to earn your certificate.
		</div>
	`, html.EscapeString(name), html.EscapeString(courseTitle))
}

func certificateEmailBody(name, courseTitle, certificateNumber string) string {
	return fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations on completing <strong>%s</strong>.</p>
		<div class="info-box">
			Your certificate number is <strong>%s</strong>. Use it to verify your achievement.
		</div>
	`, html.EscapeString(name), html.EscapeString(courseTitle), html.EscapeString(certificateNumber))
}

// --- Triggers ---

// SendEnrollmentEmail confirms a new enrollment
func (s *EmailService) SendEnrollmentEmail(email, name, courseTitle string) {
	subject := "Enrollment Confirmed: " + courseTitle
	go s.SendEmail(email, name, subject, getEmailTemplate("Enrollment Successful", enrollmentEmailBody(name, courseTitle)))
}

// SendCertificateEmail announces an issued certificate
func (s *EmailService) SendCertificateEmail(email, name, courseTitle, certificateNumber string) {
	subject := "Certificate of Completion: " + courseTitle
	go s.SendEmail(email, name, subject, getEmailTemplate("Certificate Issued", certificateEmailBody(name, courseTitle, certificateNumber)))
}
