package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the voting module.
type Metrics struct {
	// Vote records created, by election type
	VotesCreated *prometheus.CounterVec

	// Vote records soft-deleted
	VotesRetracted prometheus.Counter

	// Signed booth delegations issued, by server profile
	DelegationsIssued *prometheus.CounterVec

	// Vote creation failures by reason
	VoteErrors *prometheus.CounterVec

	// End-to-end latency of issuing a delegation (derive, persist, sign)
	AuthorizeLatency prometheus.Histogram

	// Valid vote counter computations, split by cache outcome
	CounterLookups *prometheus.CounterVec
}

// New creates a new Metrics instance with all voting module metrics registered.
func New() *Metrics {
	return &Metrics{
		VotesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "plebis_voting_votes_created_total",
			Help: "Total vote records created by election type",
		}, []string{"election_type"}),

		VotesRetracted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "plebis_voting_votes_retracted_total",
			Help: "Total vote records soft-deleted",
		}),

		DelegationsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "plebis_voting_delegations_issued_total",
			Help: "Total signed booth delegations issued by server profile",
		}, []string{"server"}),

		VoteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "plebis_voting_vote_errors_total",
			Help: "Total vote creation failures by reason",
		}, []string{"reason"}), // reason: "identity", "conflict", "store", "closed"

		AuthorizeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "plebis_voting_authorize_duration_seconds",
			Help:    "Duration of issuing a booth delegation including persistence",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		CounterLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "plebis_voting_counter_lookups_total",
			Help: "Total valid vote counter computations by cache outcome",
		}, []string{"outcome"}), // outcome: "hit", "miss", "bypass"
	}
}

// IncrementVotesCreated records a created vote.
func (m *Metrics) IncrementVotesCreated(electionType string) {
	if m != nil {
		m.VotesCreated.WithLabelValues(electionType).Inc()
	}
}

// IncrementVotesRetracted records a soft-deleted vote.
func (m *Metrics) IncrementVotesRetracted() {
	if m != nil {
		m.VotesRetracted.Inc()
	}
}

// IncrementDelegationsIssued records a signed delegation handed out.
func (m *Metrics) IncrementDelegationsIssued(server string) {
	if m != nil {
		m.DelegationsIssued.WithLabelValues(server).Inc()
	}
}

// IncrementVoteErrors records a vote creation failure.
func (m *Metrics) IncrementVoteErrors(reason string) {
	if m != nil {
		m.VoteErrors.WithLabelValues(reason).Inc()
	}
}

// ObserveAuthorizeLatency records the total delegation issuance duration.
func (m *Metrics) ObserveAuthorizeLatency(d time.Duration) {
	if m != nil {
		m.AuthorizeLatency.Observe(d.Seconds())
	}
}

// IncrementCounterLookups records a valid vote counter computation.
func (m *Metrics) IncrementCounterLookups(outcome string) {
	if m != nil {
		m.CounterLookups.WithLabelValues(outcome).Inc()
	}
}
