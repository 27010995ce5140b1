package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/amaumene/tubearchive/internal/controllers"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// reconcileSpec runs the ledger reconcile once a day
const reconcileSpec = "30 3 * * *"

// ArchiveRunner runs one archive pass
type ArchiveRunner interface {
	Run(ctx context.Context) (*controllers.RunStats, error)
}

// Reconciler reconciles the ledger against the archive
type Reconciler interface {
	Reconcile(ctx context.Context, dryRun bool) (*controllers.ReconcileResult, error)
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron        *cron.Cron
	spec        string
	syncCtrl    ArchiveRunner
	cleanupCtrl Reconciler
	logger      *logrus.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	// startup tracks the run kicked off by Start, which cron does not own
	startup sync.WaitGroup
}

// NewScheduler creates a new scheduler running archive passes on spec
func NewScheduler(spec string, syncCtrl ArchiveRunner, cleanupCtrl Reconciler, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.PrintfLogger(logger)),
		)),
		spec:        spec,
		syncCtrl:    syncCtrl,
		cleanupCtrl: cleanupCtrl,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start registers the jobs, starts the scheduler and kicks off a first run
func (s *Scheduler) Start() error {
	s.logger.WithField("schedule", s.spec).Info("Starting scheduler")

	if _, err := s.cron.AddFunc(s.spec, s.runArchive); err != nil {
		return fmt.Errorf("failed to add archive job: %w", err)
	}

	if _, err := s.cron.AddFunc(reconcileSpec, s.runReconcile); err != nil {
		return fmt.Errorf("failed to add reconcile job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		s.runArchive()
	}()

	return nil
}

// Stop stops the scheduler and cancels a run in progress. The returned
// context is done once running jobs, including the startup run, have returned.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	cronCtx := s.cron.Stop()

	ctx, done := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.startup.Wait()
		done()
	}()
	return ctx
}

// runArchive executes the archive job
func (s *Scheduler) runArchive() {
	s.logger.Info("Running scheduled archive")

	_, err := s.syncCtrl.Run(s.ctx)
	switch {
	case errors.Is(err, controllers.ErrRunInProgress):
		s.logger.Info("Archive run already in progress, skipping")
	case err != nil:
		s.logger.WithError(err).Error("Archive job failed")
	default:
		s.logger.Info("Archive job completed successfully")
	}
}

// runReconcile executes the ledger reconcile job
func (s *Scheduler) runReconcile() {
	s.logger.Info("Running scheduled ledger reconcile")

	if _, err := s.cleanupCtrl.Reconcile(s.ctx, false); err != nil {
		s.logger.WithError(err).Error("Reconcile job failed")
	}
}
