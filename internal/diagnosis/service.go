// Package diagnosis aggregates a shop's setup health into a single
// report: OAuth session, tracking configuration, pixel installation,
// and recorded event activity.
package diagnosis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/pixelbridge/pixelbridge-backend/internal/events"
	"github.com/pixelbridge/pixelbridge-backend/internal/installer"
	"github.com/pixelbridge/pixelbridge-backend/internal/oauth"
	"github.com/pixelbridge/pixelbridge-backend/internal/pixel"
	"github.com/pixelbridge/pixelbridge-backend/internal/shopconfig"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

// Status grades a single check and the report overall.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Check is one graded dimension of the report.
type Check struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail"`
}

// Report is the full diagnosis for a shop.
type Report struct {
	Shop        string    `json:"shop"`
	Overall     Status    `json:"overall"`
	Checks      []Check   `json:"checks"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// SessionSource resolves a shop's live OAuth session.
type SessionSource interface {
	Get(ctx context.Context, shop string) (*oauth.Session, error)
}

// ConfigSource resolves a shop's tracking configuration.
type ConfigSource interface {
	Get(ctx context.Context, shop string) (*shopconfig.ShopConfig, error)
}

// InstallSource resolves a shop's installation record.
type InstallSource interface {
	Status(ctx context.Context, shop string) (*installer.Record, error)
}

// StatsSource resolves a shop's recorded event counters.
type StatsSource interface {
	Stats(ctx context.Context, shop string) (*events.EventStats, error)
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Sessions SessionSource
	Configs  ConfigSource
	Installs InstallSource
	Stats    StatsSource
	Pixels   *pixel.Generator
	Logg     *logger.Logger
}

// Service builds diagnosis reports.
type Service struct {
	sessions SessionSource
	configs  ConfigSource
	installs InstallSource
	stats    StatsSource
	pixels   *pixel.Generator
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) *Service {
	return &Service{
		sessions: params.Sessions,
		configs:  params.Configs,
		installs: params.Installs,
		stats:    params.Stats,
		pixels:   params.Pixels,
		logg:     params.Logg,
		now:      time.Now,
	}
}

// Diagnose grades every dimension of a shop's setup. Collaborator
// failures degrade the affected check to "error" instead of failing
// the report; the report itself only errors when nothing at all could
// be gathered.
func (s *Service) Diagnose(ctx context.Context, shop string) (*Report, error) {
	ctx = s.logg.WithShop(ctx, shop)

	var (
		session *oauth.Session
		cfg     *shopconfig.ShopConfig
		install *installer.Record
		stats   *events.EventStats

		sessionErr, cfgErr, installErr, statsErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		session, sessionErr = s.sessions.Get(gctx, shop)
		return nil
	})
	g.Go(func() error {
		cfg, cfgErr = s.configs.Get(gctx, shop)
		return nil
	})
	g.Go(func() error {
		install, installErr = s.installs.Status(gctx, shop)
		return nil
	})
	g.Go(func() error {
		stats, statsErr = s.stats.Stats(gctx, shop)
		return nil
	})
	_ = g.Wait()

	if combined := multierr.Combine(sessionErr, cfgErr, installErr, statsErr); combined != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", combined.Error()), "diagnosis degraded by collaborator failures")
	}

	report := &Report{
		Shop:        shop,
		GeneratedAt: s.now().UTC(),
		Checks: []Check{
			sessionCheck(session, sessionErr),
			configCheck(cfg, cfgErr),
			installCheck(install, installErr),
			activityCheck(stats, statsErr),
			s.pixelCheck(cfg, cfgErr),
		},
	}
	report.Overall = overall(report.Checks)
	return report, nil
}

func sessionCheck(session *oauth.Session, err error) Check {
	switch {
	case err != nil:
		return Check{Name: "session", Status: StatusError, Detail: "could not load session"}
	case session == nil:
		return Check{Name: "session", Status: StatusError, Detail: "no active session, reinstall the app"}
	default:
		return Check{Name: "session", Status: StatusHealthy, Detail: "app authorized with scopes " + session.Scope}
	}
}

func configCheck(cfg *shopconfig.ShopConfig, err error) Check {
	switch {
	case err != nil:
		return Check{Name: "configuration", Status: StatusError, Detail: "could not load configuration"}
	case cfg == nil:
		return Check{Name: "configuration", Status: StatusError, Detail: "Google Ads tracking not configured"}
	case cfg.GoogleAds.AddToCartLabel == "" && cfg.GoogleAds.BeginCheckoutLabel == "":
		return Check{Name: "configuration", Status: StatusWarning, Detail: "only purchase tracking configured"}
	default:
		return Check{Name: "configuration", Status: StatusHealthy, Detail: "tracking " + cfg.GoogleAds.ConversionID}
	}
}

func installCheck(install *installer.Record, err error) Check {
	switch {
	case err != nil:
		return Check{Name: "installation", Status: StatusError, Detail: "could not load installation record"}
	case install == nil:
		return Check{Name: "installation", Status: StatusError, Detail: "pixel not installed on storefront"}
	default:
		return Check{Name: "installation", Status: StatusHealthy,
			Detail: fmt.Sprintf("script tag %d installed %s", install.ScriptTagID, install.InstalledAt.UTC().Format(time.RFC3339))}
	}
}

func activityCheck(stats *events.EventStats, err error) Check {
	switch {
	case err != nil:
		return Check{Name: "activity", Status: StatusError, Detail: "could not load event counters"}
	case stats == nil || stats.TotalEvents == 0:
		return Check{Name: "activity", Status: StatusWarning, Detail: "no conversion events recorded yet"}
	default:
		return Check{Name: "activity", Status: StatusHealthy,
			Detail: fmt.Sprintf("%d events recorded", stats.TotalEvents)}
	}
}

// pixelCheck renders the script the storefront would receive and
// inspects it statically.
func (s *Service) pixelCheck(cfg *shopconfig.ShopConfig, cfgErr error) Check {
	if cfgErr != nil {
		return Check{Name: "pixel", Status: StatusError, Detail: "could not render pixel"}
	}
	probe := pixel.Probe(s.pixels.Render(cfg))
	if !probe.Active {
		return Check{Name: "pixel", Status: StatusError, Detail: "storefront is served a no-op script"}
	}
	return Check{Name: "pixel", Status: StatusHealthy,
		Detail: fmt.Sprintf("serving %s with %d handlers", probe.ConversionID, probe.Handlers)}
}

// overall is the worst status present; warnings degrade a healthy
// report, any error dominates.
func overall(checks []Check) Status {
	result := StatusHealthy
	for _, c := range checks {
		switch {
		case c.Status == StatusError:
			return StatusError
		case c.Status == StatusWarning:
			result = StatusWarning
		}
	}
	return result
}
