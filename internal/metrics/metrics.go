// Package metrics provides Prometheus metrics for login lockout tracking.
// All metrics use the "folio" namespace and are registered with the default
// registry via promauto and scraped from the admin-only /admin/metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "folio"

var (
	// FailedAttemptsTotal counts attempt records written, by key kind.
	// kind: identifier | ip
	FailedAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lockout",
			Name:      "failed_attempts_total",
			Help:      "Total failed login attempt records written by key kind.",
		},
		[]string{"kind"},
	)

	// SuccessfulResetsTotal counts successful logins that cleared attempt history.
	SuccessfulResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lockout",
			Name:      "successful_resets_total",
			Help:      "Total successful logins that cleared failed attempt history.",
		},
	)

	// LockoutsStartedTotal counts failed logins that tripped a lockout.
	LockoutsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lockout",
			Name:      "started_total",
			Help:      "Total lockouts started by a failed login crossing the threshold.",
		},
	)

	// MissingAnchorTotal counts evaluations over threshold with no timestamp to anchor on.
	// decision: open | closed
	MissingAnchorTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lockout",
			Name:      "missing_anchor_total",
			Help:      "Evaluations over the threshold without an anchoring record, by decision.",
		},
		[]string{"decision"},
	)

	// EmergencyUnlocksTotal counts admin overrides by outcome.
	// outcome: unlocked | unlocked_audit_failed | failed
	EmergencyUnlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lockout",
			Name:      "emergency_unlocks_total",
			Help:      "Total emergency unlock operations by outcome.",
		},
		[]string{"outcome"},
	)

	// CleanupDeletedTotal counts attempt records purged by retention cleanup.
	CleanupDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lockout",
			Name:      "cleanup_deleted_total",
			Help:      "Total attempt records deleted by retention cleanup.",
		},
	)

	// NotificationsTotal counts lockout notices by result.
	// result: sent | failed
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lockout",
			Name:      "notifications_total",
			Help:      "Total lockout notification emails by result.",
		},
		[]string{"result"},
	)
)
