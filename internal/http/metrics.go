package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "legalgpt_auth_requests_total",
	Help: "Auth endpoint outcomes by endpoint and result.",
}, []string{"endpoint", "outcome"})
