package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var bookingAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "booking_attempts_total",
	Help: "Booking creation attempts grouped by outcome.",
}, []string{"result"})
