package notifications

import "github.com/finpulse/finpulse-bot/internal/models"

// Notifier delivers the run summary to the configured channels.
type Notifier interface {
	SendRunReport(data models.ReportData) error
}
