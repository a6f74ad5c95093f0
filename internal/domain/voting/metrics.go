package voting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	sessionsCreated prometheus.Counter
	sessionsClosed  *prometheus.CounterVec
	votesCast       prometheus.Counter
	rejectedVotes   *prometheus.CounterVec
}

func newMetrics(promRegistry prometheus.Registerer) *metrics {
	promautoFactory := promauto.With(promRegistry)
	return &metrics{
		sessionsCreated: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "council_voting_sessions_created_total",
			Help: "voting sessions opened",
		}),
		sessionsClosed: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "council_voting_sessions_closed_total",
			Help: "voting sessions closed, by final result",
		}, []string{"result"}),
		votesCast: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "council_voting_votes_cast_total",
			Help: "votes recorded",
		}),
		rejectedVotes: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "council_voting_votes_rejected_total",
			Help: "votes rejected, by reason",
		}, []string{"reason"}),
	}
}
