package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
)

const (
	defaultCheckInterval = 5 * time.Minute

	// alertCooldown is how long an alert type stays quiet after it was sent.
	// The lookback window slides slowly, so the same breach is seen on many
	// consecutive ticks.
	alertCooldown = time.Hour
)

// Checker evaluates the run-log window on a timer and posts alerts.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	interval  time.Duration
	lookback  int

	mu       sync.Mutex
	lastSent map[AlertType]time.Time
}

func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		interval:  interval,
		lookback:  cfg.LookbackWindowHours,
		lastSent:  make(map[AlertType]time.Time),
	}
}

// Run checks once on start and then every interval. It blocks until ctx is
// cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("run-log alert checker started",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		c.Check(ctx, log)
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	log.Info("run-log alert checker stopped")
}

// Check evaluates one snapshot and sends the alerts that are not cooling
// down. It returns the alerts it sent.
func (c *Checker) Check(ctx context.Context, log *zap.Logger) []Alert {
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("monitoring: collect run logs", zap.Error(err))
		return nil
	}

	due := c.due(c.alerter.Evaluate(snap))
	if len(due) == 0 {
		return nil
	}

	sent := c.alerter.SendAlerts(ctx, due)
	log.Info("monitoring: alerts raised",
		zap.Int("total_runs", snap.TotalRuns),
		zap.Int("failed_runs", snap.FailedRuns),
		zap.Int("alerts", len(due)),
		zap.Int("delivered", sent),
	)
	return due
}

// due drops alerts whose type fired within alertCooldown and stamps the rest.
func (c *Checker) due(alerts []Alert) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.alerter.now()
	var out []Alert
	for _, a := range alerts {
		if last, ok := c.lastSent[a.Type]; ok && now.Sub(last) < alertCooldown {
			continue
		}
		c.lastSent[a.Type] = now
		out = append(out, a)
	}
	return out
}
