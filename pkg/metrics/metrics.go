package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alertmail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alertmail_send_failure_total",
		Help: "Total number of mail sends that exhausted all attempts or failed permanently",
	}, []string{"host", "category"})
	MailRetryScheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alertmail_send_retry_total",
		Help: "Total number of retries scheduled after transient send failures",
	}, []string{"host"})

	// Configuration store metrics
	ConfigSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "alertmail_config_saved_total",
		Help: "Total number of successful configuration saves",
	})
	ConfigBackupsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "alertmail_config_backups_created_total",
		Help: "Total number of configuration backups created",
	})
	ConfigBackupsPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "alertmail_config_backups_pruned_total",
		Help: "Total number of configuration backups evicted by the retention policy",
	})
	ConfigRestoreFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alertmail_config_restore_failed_total",
		Help: "Total number of failed configuration restores",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(MailRetryScheduled)
	prometheus.MustRegister(ConfigSaved)
	prometheus.MustRegister(ConfigBackupsCreated)
	prometheus.MustRegister(ConfigBackupsPruned)
	prometheus.MustRegister(ConfigRestoreFailed)
}

// Handler returns an http.Handler exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
