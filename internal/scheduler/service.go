package scheduler

import (
	"context"

	"github.com/finpulse/finpulse-bot/internal/config"
	"github.com/finpulse/finpulse-bot/internal/pipeline"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service triggers the pipeline's two entry points on their configured cron
// schedules. Collection and analysis are independent, so they run on
// separate expressions.
type Service struct {
	config   *config.Config
	pipeline *pipeline.Service
	cron     *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(cfg *config.Config, pipelineService *pipeline.Service) *Service {
	return &Service{
		config:   cfg,
		pipeline: pipelineService,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled runs.
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.config.CollectSchedule, func() {
		logrus.Info("Starting scheduled collection run")
		if _, err := s.pipeline.RunCollection(context.Background()); err != nil {
			logrus.Errorf("Scheduled collection run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(s.config.AnalyzeSchedule, func() {
		logrus.Info("Starting scheduled analysis run")
		if _, err := s.pipeline.RunAnalysis(context.Background()); err != nil {
			logrus.Errorf("Scheduled analysis run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started (collect: %q, analyze: %q)", s.config.CollectSchedule, s.config.AnalyzeSchedule)
	return nil
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
