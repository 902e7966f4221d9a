// Package health reports, per known capability adapter, whether it is unconfigured,
// configured and reachable, or configured but failing.
package health

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/capability/selector"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

const (
	StatusNotConfigured = "not_configured"
	StatusWorking       = "working"
	StatusError         = "error"
)

type ServiceStatus struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Reason    string `json:"reason,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
}

type Summary struct {
	Total         int `json:"total"`
	Working       int `json:"working"`
	Errors        int `json:"errors"`
	NotConfigured int `json:"not_configured"`
}

type Report struct {
	Services  []ServiceStatus `json:"services"`
	Summary   Summary         `json:"summary"`
	CheckedAt time.Time       `json:"checked_at"`
}

// Describer lists the adapters to check. *selector.Selector satisfies it.
type Describer interface {
	Describe() []selector.Descriptor
}

type Checker struct {
	describer Describer
	timeout   time.Duration
	now       func() time.Time
}

// NewChecker returns a Checker that bounds each adapter check by timeout.
func NewChecker(d Describer, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{describer: d, timeout: timeout, now: time.Now}
}

// Check pings every configured adapter concurrently. A failing adapter is reported, not
// returned as an error.
func (c *Checker) Check(ctx context.Context) Report {
	descs := c.describer.Describe()
	services := make([]ServiceStatus, len(descs))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range descs {
		services[i] = ServiceStatus{Name: d.Name, Kind: d.Kind, Status: StatusNotConfigured}
		if !d.Configured {
			continue
		}
		pinger, ok := d.Adapter.(models.Pinger)
		if !ok {
			services[i].Status = StatusWorking
			continue
		}
		g.Go(func() error {
			services[i] = c.check(gctx, d, pinger)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Services: services, CheckedAt: c.now().UTC()}
	for _, s := range services {
		report.Summary.Total++
		switch s.Status {
		case StatusWorking:
			report.Summary.Working++
		case StatusError:
			report.Summary.Errors++
		default:
			report.Summary.NotConfigured++
		}
	}
	return report
}

func (c *Checker) check(ctx context.Context, d selector.Descriptor, p models.Pinger) ServiceStatus {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.now()
	err := p.Ping(ctx)
	s := ServiceStatus{
		Name:      d.Name,
		Kind:      d.Kind,
		Status:    StatusWorking,
		LatencyMS: c.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		s.Status = StatusError
		s.Message = err.Error()
		s.Reason = string(capability.ReasonOf(err))
		if errors.Is(err, context.DeadlineExceeded) && s.Reason == "" {
			s.Reason = string(capability.ReasonTimeout)
		}
	}
	return s
}
