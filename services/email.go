package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"os"

	appcontext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// EmailService sends certificate notifications over SMTP. It is disabled when
// SMTP_HOST is unset.
type EmailService struct {
	appcontext.DefaultService

	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	fromName     string

	templates map[string]*template.Template
	sendMail  func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

const EMAIL_SVC = "email_svc"

func (svc EmailService) Id() string {
	return EMAIL_SVC
}

func (svc *EmailService) Configure(ctx *appcontext.Context) error {
	svc.smtpHost = os.Getenv("SMTP_HOST")
	svc.smtpPort = envOr("SMTP_PORT", "587")
	svc.smtpUsername = os.Getenv("SMTP_USERNAME")
	svc.smtpPassword = os.Getenv("SMTP_PASSWORD")
	svc.fromEmail = os.Getenv("FROM_EMAIL")
	svc.fromName = envOr("FROM_NAME", "LearnProof")

	return svc.DefaultService.Configure(ctx)
}

func (svc *EmailService) Start() error {
	if err := svc.loadTemplates(); err != nil {
		log.WithError(err).Error("Failed to load email templates")
	}
	if svc.sendMail == nil {
		svc.sendMail = smtp.SendMail
	}
	if !svc.Enabled() {
		log.Info("SMTP_HOST not set, certificate emails disabled")
	}
	return nil
}

func (svc *EmailService) Enabled() bool {
	return svc != nil && svc.smtpHost != ""
}

const certificateEmailHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Your certificate - {{.AppName}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #205493; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .button { display: inline-block; padding: 12px 24px; background-color: #205493; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Congratulations!</h1>
        </div>
        <div class="content">
            <h2>Hi {{.Username}},</h2>
            <p>You passed the quiz for <strong>{{.Title}}</strong> and earned a certificate.</p>
            <a href="{{.DownloadURL}}" class="button">Download certificate</a>
            <p>If the button doesn't work, copy this link into your browser:</p>
            <p><a href="{{.DownloadURL}}">{{.DownloadURL}}</a></p>
        </div>
        <div class="footer">
            <p>&copy; {{.AppName}}</p>
        </div>
    </div>
</body>
</html>
`

type CertificateEmailData struct {
	AppName     string
	Username    string
	Title       string
	DownloadURL string
}

func (svc *EmailService) loadTemplates() error {
	svc.templates = make(map[string]*template.Template)

	tmpl, err := template.New("certificate").Parse(certificateEmailHTML)
	if err != nil {
		return fmt.Errorf("failed to parse certificate email template: %w", err)
	}
	svc.templates["certificate"] = tmpl
	return nil
}

func (svc *EmailService) SendCertificateEmail(ctx context.Context, to, name, title, downloadURL string) error {
	if !svc.Enabled() {
		log.Warn("SMTP not configured, skipping certificate email")
		return nil
	}
	if name == "" {
		name = "there"
	}

	data := CertificateEmailData{
		AppName:     svc.fromName,
		Username:    name,
		Title:       title,
		DownloadURL: downloadURL,
	}
	subject := fmt.Sprintf("Your certificate for %s", title)
	return svc.sendTemplateEmail(ctx, to, subject, "certificate", data)
}

func (svc *EmailService) sendTemplateEmail(ctx context.Context, to, subject, templateName string, data interface{}) error {
	tmpl, exists := svc.templates[templateName]
	if !exists {
		return fmt.Errorf("template %s not found", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return svc.sendEmail(ctx, to, subject, body.String())
}

func (svc *EmailService) sendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if svc.smtpUsername != "" {
		auth = smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		svc.fromName, svc.fromEmail, to, subject, body))

	err := svc.sendMail(svc.smtpHost+":"+svc.smtpPort, auth, svc.fromEmail, []string{to}, msg)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"to": to, "subject": subject}).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.WithFields(log.Fields{"to": to, "subject": subject}).Info("Email sent")
	return nil
}
