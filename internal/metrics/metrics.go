package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "markovgame_active_rooms",
		Help: "Number of rooms currently held by the engine.",
	})

	MovesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "markovgame_moves_submitted_total",
		Help: "Total number of accepted moves.",
	})

	MovesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "markovgame_moves_rejected_total",
		Help: "Total number of rejected moves, labelled by reason.",
	}, []string{"reason"})

	RoundsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "markovgame_rounds_resolved_total",
		Help: "Total number of rounds merged and scored.",
	})

	ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "markovgame_resolution_duration_ms",
		Help:    "Wall time of one round resolution (merge + scoring) in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250},
	})

	ScoreIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "markovgame_score_iterations",
		Help:    "Power-iteration steps needed per scoring pass.",
		Buckets: []float64{5, 10, 25, 50, 100, 200, 400},
	})

	ScoreNonConverged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "markovgame_score_nonconverged_total",
		Help: "Scoring passes that hit the iteration cap before converging.",
	})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "markovgame_events_dropped_total",
		Help: "Domain events dropped because a subscriber queue was full, labelled by subscriber.",
	}, []string{"subscriber"})

	SnapshotsArchived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "markovgame_snapshots_archived_total",
		Help: "Round snapshots written to the SQLite archive, labelled by status.",
	}, []string{"status"})
)
