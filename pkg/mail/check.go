package mail

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/vigilantes/alertmail/pkg/config"
)

// CheckStage identifies one phase of a configuration probe.
type CheckStage string

const (
	StageConfiguration CheckStage = "configuration"
	StageConnect       CheckStage = "connect"
	StageAuthenticate  CheckStage = "authenticate"
	StageSend          CheckStage = "send"
)

// StageResult is the outcome of a single probe stage.
type StageResult struct {
	Stage    CheckStage
	OK       bool
	Duration time.Duration
	Err      error
}

// CheckReport collects the stage results of a configuration probe.
type CheckReport struct {
	Stages []StageResult
}

// OK reports whether every executed stage passed.
func (r CheckReport) OK() bool {
	for _, s := range r.Stages {
		if !s.OK {
			return false
		}
	}
	return len(r.Stages) > 0
}

// CheckConfiguration probes the stored configuration in stages: loads and
// validates it, opens a TCP connection to the SMTP server, performs the
// STARTTLS handshake plus authentication, and, when sendTest is set,
// delivers a short test mail to the sender's own address. A failed stage
// aborts the stages that depend on it.
func (m *Manager) CheckConfiguration(ctx context.Context, sendTest bool) CheckReport {
	var report CheckReport

	cfg, result := m.checkStage(StageConfiguration, func() (*config.EmailConfig, error) {
		return m.store.Load()
	})
	report.Stages = append(report.Stages, result)
	if !result.OK {
		return report
	}

	_, result = m.checkStage(StageConnect, func() (*config.EmailConfig, error) {
		addr := net.JoinHostPort(cfg.SMTPServer, fmt.Sprintf("%d", cfg.SMTPPort))
		dialer := net.Dialer{Timeout: cfg.TimeoutDuration()}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("cannot reach %s: %w", addr, err)
		}
		return nil, conn.Close()
	})
	report.Stages = append(report.Stages, result)
	if !result.OK {
		return report
	}

	_, result = m.checkStage(StageAuthenticate, func() (*config.EmailConfig, error) {
		closer, err := dialSMTP(cfg)
		if err != nil {
			return nil, err
		}
		return nil, closer.Close()
	})
	report.Stages = append(report.Stages, result)
	if !result.OK || !sendTest {
		return report
	}

	_, result = m.checkStage(StageSend, func() (*config.EmailConfig, error) {
		msg, err := RenderTestMail(cfg.SenderEmail)
		if err != nil {
			return nil, err
		}
		return nil, m.sender.Send(cfg, cfg.SenderEmail, msg)
	})
	report.Stages = append(report.Stages, result)
	return report
}

func (m *Manager) checkStage(stage CheckStage, fn func() (*config.EmailConfig, error)) (*config.EmailConfig, StageResult) {
	start := time.Now()
	cfg, err := fn()
	result := StageResult{Stage: stage, OK: err == nil, Duration: time.Since(start), Err: err}
	if err != nil {
		m.log.Warnw("Configuration check stage failed", "stage", stage, "error", err)
	} else {
		m.log.Infow("Configuration check stage passed", "stage", stage, "took", result.Duration)
	}
	return cfg, result
}
