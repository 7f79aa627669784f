// Package notifications delivers run summaries over Teams webhooks and
// email. Both channels are optional; report consumers proper read the
// serialized ReportData, this is the human-facing ping.
package notifications

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/finpulse/finpulse-bot/internal/config"
	"github.com/finpulse/finpulse-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service sends notifications via the configured channels.
type Service struct {
	config *config.Config
	client *resty.Client
}

var _ Notifier = (*Service)(nil)

// TeamsMessage is a Microsoft Teams MessageCard payload.
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a notification service.
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendRunReport delivers the run summary to every configured channel.
// Channel failures are combined into one error; a failure here never affects
// the pipeline's own output.
func (s *Service) SendRunReport(data models.ReportData) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(data); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Sent run summary to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(data); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Sent run summary via email")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(data models.ReportData) error {
	message := s.buildTeamsMessage(data)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(data models.ReportData) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   "Market Sentiment Report",
		Text: fmt.Sprintf("Analyzed %d posts, overall weighted sentiment %.3f",
			data.TotalPosts, data.Overall.MeanSentiment),
	}

	facts := []TeamsFact{
		{Name: "Total Posts", Value: fmt.Sprintf("%d", data.TotalPosts)},
		{Name: "Overall Sentiment", Value: fmt.Sprintf("%.3f", data.Overall.MeanSentiment)},
		{Name: "New This Run", Value: fmt.Sprintf("%d", len(data.NewPosts))},
		{Name: "Generated", Value: data.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	for _, name := range sortedCategories(data.Categories) {
		stats := data.Categories[name]
		facts = append(facts, TeamsFact{
			Name:  strings.Title(name),
			Value: fmt.Sprintf("%d posts, sentiment %.3f", stats.PostCount, stats.MeanSentiment),
		})
	}

	message.Sections = []TeamsSection{{
		ActivityTitle: "Category breakdown",
		Facts:         facts,
		Markdown:      true,
	}}

	if data.Narrative != "" {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Analyst narrative",
			ActivityText:  data.Narrative,
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(data models.ReportData) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("Market Sentiment Report - %s", data.GeneratedAt.Format("2006-01-02")))
	m.SetBody("text/plain", s.buildEmailBody(data))

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) buildEmailBody(data models.ReportData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Market sentiment run, generated %s\n\n", data.GeneratedAt.Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "Posts analyzed: %d (%d new this run)\n", data.TotalPosts, len(data.NewPosts))
	fmt.Fprintf(&b, "Overall weighted sentiment: %.3f\n\n", data.Overall.MeanSentiment)

	for _, name := range sortedCategories(data.Categories) {
		stats := data.Categories[name]
		fmt.Fprintf(&b, "%s: %d posts, engagement %d, sentiment %.3f\n",
			name, stats.PostCount, stats.TotalEngagement, stats.MeanSentiment)
	}

	if data.Narrative != "" {
		fmt.Fprintf(&b, "\n%s\n", data.Narrative)
	}

	return b.String()
}

func sortedCategories(categories map[string]models.CategoryStats) []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
