// Package notifications delivers tracker alerts to Slack and email.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/iso27001/tracker/internal/config"
	"github.com/iso27001/tracker/internal/models"
)

type NotificationType string

const (
	NotifyOverdueDigest NotificationType = "overdue_digest"
	NotifyJobFailed     NotificationType = "job_failed"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Field is one labelled value shown with a notification. Order is kept.
type Field struct {
	Title string
	Value string
}

type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Severity  Severity
	Fields    []Field
	Lines     []string
	Timestamp time.Time
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config   config.NotificationsConfig
	logger   *slog.Logger
	client   *http.Client
	sendMail sendMailFunc
}

func NewService(cfg config.NotificationsConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config:   cfg,
		logger:   logger,
		client:   &http.Client{Timeout: 10 * time.Second},
		sendMail: smtp.SendMail,
	}
}

// Enabled reports whether any channel is configured.
func (s *Service) Enabled() bool {
	return s.config.Slack.Enabled || s.config.Email.Enabled
}

// Send delivers to every enabled channel. A failing channel does not stop the
// others.
func (s *Service) Send(ctx context.Context, notif *Notification) error {
	var errs []error

	if s.config.Slack.Enabled {
		if err := s.sendSlack(ctx, notif); err != nil {
			errs = append(errs, fmt.Errorf("slack: %w", err))
		}
	}

	if s.config.Email.Enabled {
		if err := s.sendEmail(notif); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	return errors.Join(errs...)
}

type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

type SlackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fallback  string       `json:"fallback,omitempty"`
	Fields    []SlackField `json:"fields,omitempty"`
	Footer    string       `json:"footer,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func (s *Service) sendSlack(ctx context.Context, notif *Notification) error {
	fields := make([]SlackField, 0, len(notif.Fields))
	for _, f := range notif.Fields {
		fields = append(fields, SlackField{Title: f.Title, Value: f.Value, Short: true})
	}

	text := notif.Message
	if len(notif.Lines) > 0 {
		text += "\n" + strings.Join(notif.Lines, "\n")
	}

	msg := SlackMessage{
		Channel: s.config.Slack.Channel,
		Attachments: []SlackAttachment{{
			Color:     severityColor(notif.Severity),
			Title:     notif.Title,
			Text:      text,
			Fallback:  fmt.Sprintf("%s: %s", notif.Title, notif.Message),
			Fields:    fields,
			Footer:    "ISO 27001 Tracker",
			Timestamp: notif.Timestamp.Unix(),
		}},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Slack.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	s.logger.Info("slack notification sent", "type", notif.Type, "title", notif.Title)
	return nil
}

func severityColor(sev Severity) string {
	switch sev {
	case SeverityCritical:
		return "#F44336"
	case SeverityWarning:
		return "#FF9800"
	default:
		return "#36A64F"
	}
}

func (s *Service) sendEmail(notif *Notification) error {
	body, err := formatEmailBody(notif)
	if err != nil {
		return err
	}

	msg := s.buildEmailMessage("[ISMS] "+notif.Title, body)

	var auth smtp.Auth
	if s.config.Email.Username != "" {
		auth = smtp.PlainAuth("", s.config.Email.Username, s.config.Email.Password, s.config.Email.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%d", s.config.Email.SMTPHost, s.config.Email.SMTPPort)

	if err := s.sendMail(addr, auth, s.config.Email.From, s.config.Email.To, []byte(msg)); err != nil {
		return err
	}

	s.logger.Info("email notification sent",
		"type", notif.Type,
		"title", notif.Title,
		"recipients", len(s.config.Email.To))
	return nil
}

func (s *Service) buildEmailMessage(subject, body string) string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.config.Email.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(s.config.Email.To, ","))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 640px; margin: 0 auto; background: white; border-radius: 8px; }
        .header { padding: 20px; background: {{.Color}}; color: white; border-radius: 8px 8px 0 0; }
        .content { padding: 20px; }
        .fields td { padding: 6px 8px; border-bottom: 1px solid #eee; }
        .fields td:first-child { font-weight: bold; }
        .footer { padding: 15px 20px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h2 style="margin:0;">{{.Title}}</h2></div>
        <div class="content">
            <p>{{.Message}}</p>
            {{if .Fields}}
            <table class="fields">
                {{range .Fields}}<tr><td>{{.Title}}</td><td>{{.Value}}</td></tr>
                {{end}}
            </table>
            {{end}}
            {{if .Lines}}
            <ul>
                {{range .Lines}}<li>{{.}}</li>
                {{end}}
            </ul>
            {{end}}
        </div>
        <div class="footer">Generated at {{.Timestamp}} by the ISO 27001 tracker.</div>
    </div>
</body>
</html>
`))

func formatEmailBody(notif *Notification) (string, error) {
	data := map[string]interface{}{
		"Title":     notif.Title,
		"Message":   notif.Message,
		"Color":     severityColor(notif.Severity),
		"Fields":    notif.Fields,
		"Lines":     notif.Lines,
		"Timestamp": notif.Timestamp.Format(time.RFC1123),
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// OverdueDigest lists the action items and risk treatments past their dates.
type OverdueDigest struct {
	ActionItems []models.ActionItem
	Risks       []models.RiskRegister
	Now         time.Time
}

func (d OverdueDigest) Empty() bool {
	return len(d.ActionItems) == 0 && len(d.Risks) == 0
}

// Severity is critical when a critical action or a very high or critical
// risk is overdue, warning for anything else overdue.
func (d OverdueDigest) Severity() Severity {
	if d.Empty() {
		return SeverityInfo
	}
	for _, a := range d.ActionItems {
		if a.Priority == models.PriorityCritical {
			return SeverityCritical
		}
	}
	for _, r := range d.Risks {
		if r.RiskLevel == models.RiskCritical || r.RiskLevel == models.RiskVeryHigh {
			return SeverityCritical
		}
	}
	return SeverityWarning
}

func (d OverdueDigest) Notification() *Notification {
	lines := make([]string, 0, len(d.ActionItems)+len(d.Risks))
	for _, a := range d.ActionItems {
		owner := a.AssignedTo
		if owner == "" {
			owner = "unassigned"
		}
		lines = append(lines, fmt.Sprintf("Action #%d %s (%s, %s) due %s", a.ID, a.Title, a.Priority, owner, a.DueDate))
	}
	for _, r := range d.Risks {
		lines = append(lines, fmt.Sprintf("Risk %s %s (%s, %s) target %s", r.RiskID, r.Title, r.RiskLevel, r.TreatmentStatus, r.TargetDate))
	}

	return &Notification{
		Type:     NotifyOverdueDigest,
		Title:    "Overdue ISMS Work",
		Message:  fmt.Sprintf("%d action items and %d risk treatments are overdue", len(d.ActionItems), len(d.Risks)),
		Severity: d.Severity(),
		Fields: []Field{
			{Title: "Overdue actions", Value: fmt.Sprint(len(d.ActionItems))},
			{Title: "Overdue risks", Value: fmt.Sprint(len(d.Risks))},
			{Title: "As of", Value: models.DateOf(d.Now).String()},
		},
		Lines:     lines,
		Timestamp: d.Now,
	}
}

// NotifyOverdueDigest sends the digest. An empty digest is not sent.
func (s *Service) NotifyOverdueDigest(ctx context.Context, digest OverdueDigest) error {
	if digest.Empty() {
		s.logger.Debug("nothing overdue, digest skipped")
		return nil
	}
	return s.Send(ctx, digest.Notification())
}

// NotifyJobFailed reports a failed scheduled job run.
func (s *Service) NotifyJobFailed(ctx context.Context, job string, runErr error) error {
	return s.Send(ctx, &Notification{
		Type:     NotifyJobFailed,
		Title:    "Scheduled Job Failed",
		Message:  fmt.Sprintf("Job %s failed: %s", job, runErr),
		Severity: SeverityWarning,
		Fields: []Field{
			{Title: "Job", Value: job},
			{Title: "Error", Value: runErr.Error()},
		},
		Timestamp: time.Now(),
	})
}
