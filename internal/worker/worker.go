package worker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/freightlink/services/marketplace/config"
	"example.com/freightlink/services/marketplace/internal/messagebus"
	"example.com/freightlink/services/marketplace/internal/metrics"
	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
	"example.com/freightlink/services/marketplace/internal/search"
)

// Worker runs the background maintenance jobs: it drains the load-events
// queue into the search index, periodically reindexes the active marketplace,
// and sweeps stale truck assignments left behind by out-of-band terminations.
// Proposal expiry is deliberately not handled here; proposals expire lazily
// on read.
type Worker struct {
	loads  repository.LoadRepository
	trucks repository.TruckRepository
	search search.Client
	bus    messagebus.Client
	cfg    config.WorkerConfig
	queues config.MessageBusConfig
	log    *logrus.Logger
}

// New creates a new worker
func New(
	loads repository.LoadRepository,
	trucks repository.TruckRepository,
	searchClient search.Client,
	bus messagebus.Client,
	cfg config.WorkerConfig,
	queues config.MessageBusConfig,
	log *logrus.Logger,
) *Worker {
	return &Worker{
		loads:  loads,
		trucks: trucks,
		search: searchClient,
		bus:    bus,
		cfg:    cfg,
		queues: queues,
		log:    log,
	}
}

// ConsumeLoadEvents drains the load-events queue and refreshes the search
// index for each referenced load. Runs until the context is cancelled.
func (w *Worker) ConsumeLoadEvents(ctx context.Context) error {
	w.log.WithField("queue", w.queues.LoadEventsQueue).Info("Starting load events consumer")

	interval := w.cfg.ConsumeInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	batch := w.cfg.ConsumeBatchSize
	if batch <= 0 {
		batch = 10
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Load events consumer stopping")
			return nil
		default:
		}

		messages, err := w.bus.ReceiveMessages(ctx, w.queues.LoadEventsQueue, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.WithError(err).Error("Failed to receive load events")
			metrics.GetMetricsCollector().RecordError(metrics.ErrorTypeMessageBus)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
			continue
		}

		if len(messages) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
			continue
		}

		for _, msg := range messages {
			w.handleLoadEvent(ctx, msg)
		}
	}
}

func (w *Worker) handleLoadEvent(ctx context.Context, msg messagebus.Message) {
	loadID, err := msg.GetID()
	if err != nil {
		w.log.WithError(err).Warn("Dropping load event without an id")
		if err := msg.Reject(ctx); err != nil {
			w.log.WithError(err).Warn("Failed to reject message")
		}
		return
	}

	load, err := w.loads.GetByID(ctx, loadID)
	if errors.Is(err, repository.ErrNotFound) {
		// The load may have been created and deleted between publish and
		// consume; completing avoids a redelivery loop.
		w.log.WithField("load_id", loadID).Warn("Load event references unknown load")
		if err := msg.Complete(ctx); err != nil {
			w.log.WithError(err).Warn("Failed to complete message")
		}
		return
	}
	if err != nil {
		// Transient lookup failure: leave the message for redelivery.
		w.log.WithError(err).WithField("load_id", loadID).Error("Failed to fetch load for event")
		if err := msg.Reject(ctx); err != nil {
			w.log.WithError(err).Warn("Failed to reject message")
		}
		return
	}

	if err := w.search.IndexLoad(ctx, load); err != nil {
		w.log.WithError(err).WithField("load_id", loadID).Error("Failed to index load from event")
		if err := msg.Reject(ctx); err != nil {
			w.log.WithError(err).Warn("Failed to reject message")
		}
		return
	}

	if err := msg.Complete(ctx); err != nil {
		w.log.WithError(err).WithField("load_id", loadID).Warn("Failed to complete message")
	}
}

// ReindexActive rebuilds the search index for the open side of the
// marketplace: proposable loads and active truck postings.
func (w *Worker) ReindexActive(ctx context.Context) error {
	indexed := 0

	for _, status := range []model.LoadStatus{
		model.LoadStatusPosted,
		model.LoadStatusSearching,
		model.LoadStatusOffered,
	} {
		loads, err := w.loads.List(ctx, repository.LoadFilter{Status: status})
		if err != nil {
			return err
		}
		for _, load := range loads {
			if err := w.search.IndexLoad(ctx, load); err != nil {
				w.log.WithError(err).WithField("load_id", load.ID).Warn("Failed to reindex load")
				continue
			}
			indexed++
		}
	}

	trucks, err := w.trucks.ListActive(ctx, 0)
	if err != nil {
		return err
	}
	for _, posting := range trucks {
		if err := w.search.IndexTruck(ctx, posting); err != nil {
			w.log.WithError(err).WithField("truck_id", posting.ID).Warn("Failed to reindex truck posting")
			continue
		}
		indexed++
	}

	w.log.WithField("indexed", indexed).Info("Reindex pass completed")
	return nil
}

// SweepStaleAssignments releases trucks still referenced by loads that
// reached a terminal status some time ago.
func (w *Worker) SweepStaleAssignments(ctx context.Context) error {
	age := w.cfg.StaleAssignmentAge
	if age <= 0 {
		age = 24 * time.Hour
	}

	released, err := w.loads.ReleaseTerminalAssignments(ctx, time.Now().Add(-age))
	if err != nil {
		return err
	}
	if released > 0 {
		w.log.WithField("released", released).Info("Released stale truck assignments")
	}
	return nil
}
