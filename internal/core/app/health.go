package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	s.app.mu.RLock()
	analyzer, cfg, last := s.app.analyzer, s.app.Config, s.app.last
	s.app.mu.RUnlock()

	if analyzer == nil {
		status.Status = "degraded"
		status.Components["analyzer"] = "missing"
	} else {
		security, deep := analyzer.RuleIDs()
		status.Components["analyzer"] = fmt.Sprintf("ok (%d security rules, %d deep rules)", len(security), len(deep))
	}

	switch {
	case s.app.history != nil:
		status.Components["history"] = "ok"
	case cfg != nil && cfg.DB.Enabled:
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	default:
		status.Components["history"] = "disabled"
	}

	if last != nil {
		status.Components["last_run"] = fmt.Sprintf("score %d over %d files", last.Score.OverallScore, len(last.Reports))
	} else {
		status.Components["last_run"] = "none"
	}

	return status
}
