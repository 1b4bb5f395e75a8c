package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)
	TaskCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_cache_lookups_total",
			Help: "Active task cache lookups by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(AuthAttempts)
	prometheus.MustRegister(TaskCacheLookups)
}
