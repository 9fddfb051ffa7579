package fakeapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type counters struct {
	refreshes *prometheus.CounterVec
	logins    *prometheus.CounterVec
}

func newCounters(reg prometheus.Registerer) *counters {
	c := &counters{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewine_mock_refreshes_total",
			Help: "Refresh token exchanges served by the mock API, by result.",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewine_mock_logins_total",
			Help: "Login and register calls served by the mock API, by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		for _, col := range []prometheus.Collector{c.refreshes, c.logins} {
			if err := reg.Register(col); err != nil {
				log.Warn().Err(err).Msg("mock api metrics not registered")
			}
		}
	}
	return c
}
