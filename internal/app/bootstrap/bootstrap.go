package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	commissionescrowservice "commissionvault/contexts/finance-core/commission-escrow-service"
	boltadapter "commissionvault/contexts/finance-core/commission-escrow-service/adapters/bolt"
	"commissionvault/contexts/finance-core/commission-escrow-service/adapters/idgen"
	"commissionvault/contexts/finance-core/commission-escrow-service/adapters/memory"
	postgresadapter "commissionvault/contexts/finance-core/commission-escrow-service/adapters/postgres"
	"commissionvault/contexts/finance-core/commission-escrow-service/adapters/settlement"
	"commissionvault/contexts/finance-core/commission-escrow-service/application/workers"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
	"commissionvault/internal/platform/config"
	"commissionvault/internal/platform/db"
	"commissionvault/internal/platform/httpserver"
	"commissionvault/internal/platform/messaging"
	"commissionvault/internal/platform/metrics"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.
//
// Vault pools live in the same store as the escrow records. For single-node
// stores (memory, bolt) the API process runs every background loop; with
// postgres the loops move to the worker process.

const auditConsumerGroup = "commission-escrow-audit"

type APIApp struct {
	runtime *runtime
	server  *httpserver.Server
	limiter *httpserver.RateLimiter
	loops   []loop
}

type WorkerApp struct {
	runtime *runtime
	loops   []loop
}

type loop struct {
	name string
	run  func(ctx context.Context) error
}

type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	clock  clockwork.Clock
	module commissionescrowservice.Module
	outbox ports.OutboxRepository
	bus    *messaging.Bus

	subscriber ports.EventSubscriber
	closers    []func() error
}

func BuildAPI(cfg config.Config, logger *slog.Logger) (*APIApp, error) {
	rt, err := newRuntime(cfg, logger.With("service", cfg.ServiceName, "process", "api"))
	if err != nil {
		return nil, err
	}

	var limiter *httpserver.RateLimiter
	if cfg.HTTPRateLimitRPS > 0 {
		limiter = httpserver.NewRateLimiter(rate.Limit(cfg.HTTPRateLimitRPS), cfg.HTTPRateLimitBurst, rt.clock)
	}

	app := &APIApp{
		runtime: rt,
		server:  httpserver.New(rt.module, limiter, rt.logger, normalizeAddr(cfg.HTTPPort)),
		limiter: limiter,
	}
	// Single-node stores cannot be shared with a separate worker process.
	if cfg.StoreDriver != config.StoreDriverPostgres {
		app.loops = rt.loops()
	}
	return app, nil
}

func BuildWorker(cfg config.Config, logger *slog.Logger) (*WorkerApp, error) {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return nil, fmt.Errorf("worker process needs a shared store, got STORE_DRIVER=%s; the api process runs workers for single-node stores", cfg.StoreDriver)
	}
	rt, err := newRuntime(cfg, logger.With("service", cfg.ServiceName, "process", "worker"))
	if err != nil {
		return nil, err
	}

	return &WorkerApp{runtime: rt, loops: rt.loops()}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.runtime.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"store_driver", a.runtime.cfg.StoreDriver,
		"loops", len(a.loops),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(a.server.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	if a.limiter != nil {
		g.Go(func() error { return a.limiter.Run(ctx) })
	}
	a.runtime.start(ctx, g, a.loops)
	return g.Wait()
}

func (a *APIApp) Close() error {
	return a.runtime.close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.runtime.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.runtime.cfg.WorkerPollInterval.String(),
		"brokers", strings.Join(w.runtime.bus.Brokers(), ","),
	)

	g, ctx := errgroup.WithContext(ctx)
	w.runtime.start(ctx, g, w.loops)
	return g.Wait()
}

func (w *WorkerApp) Close() error {
	return w.runtime.close()
}

func newRuntime(cfg config.Config, logger *slog.Logger) (_ *runtime, err error) {
	bus := messaging.NewBus(cfg.KafkaBrokers, logger)
	rt := &runtime{
		cfg:        cfg,
		logger:     logger,
		clock:      clockwork.NewRealClock(),
		bus:        bus,
		subscriber: bus,
	}
	defer func() {
		if err != nil {
			_ = rt.close()
		}
	}()

	repository, vault, err := rt.openStore()
	if err != nil {
		return nil, err
	}

	converter, err := settlement.NewRateConverter(cfg.SettlementRate)
	if err != nil {
		return nil, fmt.Errorf("settlement rate: %w", err)
	}
	policy := entities.SlashPolicy(cfg.SlashPolicy)
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown slash policy %q", cfg.SlashPolicy)
	}

	rt.module = commissionescrowservice.NewModule(commissionescrowservice.Dependencies{
		Repository:         repository,
		Vault:              vault,
		Converter:          converter,
		Clock:              rt.clock,
		IDGenerator:        idgen.UUIDGenerator{},
		Metrics:            metrics.Recorder{},
		GracePeriod:        cfg.EscrowGracePeriod,
		SlashPolicy:        policy,
		PlatformTreasuryID: cfg.PlatformTreasuryID,
		VaultOperatorID:    cfg.VaultOperatorID,
		SweepBatchSize:     cfg.SweepBatchSize,
		Logger:             logger,
	})
	logger.Info("escrow module wired",
		"event", "bootstrap_module_wired",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"store_driver", cfg.StoreDriver,
		"settlement_rate", converter.Rate(),
		"slash_policy", cfg.SlashPolicy,
		"grace_period", cfg.EscrowGracePeriod.String(),
	)
	return rt, nil
}

type outboxRepository interface {
	ports.Repository
	ports.OutboxRepository
}

// openStore opens the configured store and the vault ledger kept beside it.
func (rt *runtime) openStore() (ports.Repository, ports.VaultLedger, error) {
	var (
		store outboxRepository
		vault ports.VaultLedger
	)
	switch rt.cfg.StoreDriver {
	case config.StoreDriverMemory:
		store = memory.NewStore()
		vault = memory.NewVault()
	case config.StoreDriverBolt:
		boltDB, err := db.OpenBolt(rt.cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, boltDB.Close)
		boltStore, err := boltadapter.NewStore(boltDB)
		if err != nil {
			return nil, nil, err
		}
		store, vault = boltStore, boltStore.Vault()
	case config.StoreDriverPostgres:
		pg, err := db.Connect(rt.cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, pg.Close)
		repo := postgresadapter.NewRepository(pg.DB, rt.logger)
		if rt.cfg.PostgresAutoMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := repo.Migrate(ctx); err != nil {
				return nil, nil, fmt.Errorf("migrate escrow schema: %w", err)
			}
		}
		store, vault = repo, repo.Vault()
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", rt.cfg.StoreDriver)
	}
	rt.outbox = store
	return store, vault, nil
}

// loops returns the enabled background loops.
func (rt *runtime) loops() []loop {
	var loops []loop
	if rt.cfg.EnableSlashSweeper {
		loops = append(loops, loop{name: "slash_sweeper", run: rt.module.SlashSweeper.RunOnce})
	}
	if rt.cfg.EnableHarvestScheduler {
		loops = append(loops, loop{name: "harvest_scheduler", run: rt.module.HarvestScheduler.RunOnce})
	}
	if rt.cfg.EnableOutboxRelay {
		loops = append(loops, loop{name: "outbox_relay", run: rt.relay().RunOnce})
	}
	return loops
}

func (rt *runtime) relay() workers.OutboxRelay {
	return workers.OutboxRelay{
		Outbox:    rt.outbox,
		Publisher: rt.bus,
		Clock:     rt.clock,
		Topic:     rt.cfg.OutboxTopic,
		BatchSize: rt.cfg.SweepBatchSize,
		Logger:    rt.logger,
	}
}

// start launches each loop on g, plus the audit consumer when the relay runs.
func (rt *runtime) start(ctx context.Context, g *errgroup.Group, loops []loop) {
	for _, item := range loops {
		if item.name == "outbox_relay" {
			rt.subscriber.Subscribe(ctx, rt.cfg.OutboxTopic, auditConsumerGroup, rt.auditEvent)
		}
		g.Go(func() error { return rt.poll(ctx, item) })
	}
}

// poll runs item immediately and then on every tick until ctx is done.
// A failed pass is logged and retried on the next tick.
func (rt *runtime) poll(ctx context.Context, item loop) error {
	ticker := rt.clock.NewTicker(rt.cfg.WorkerPollInterval)
	defer ticker.Stop()

	for {
		err := item.run(ctx)
		metrics.RecordWorkerRun(item.name, err)
		if err != nil && ctx.Err() == nil {
			rt.logger.Error("worker pass failed",
				"event", "bootstrap_worker_pass_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"worker", item.name,
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

func (rt *runtime) auditEvent(_ context.Context, event ports.EventEnvelope) error {
	var data map[string]any
	if err := event.DecodeData(&data); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}
	rt.logger.Info("escrow event",
		"event", "escrow_event_audited",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
		"occurred_at", event.OccurredAt.Format(time.RFC3339),
		"data", data,
	)
	return nil
}

func (rt *runtime) close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
