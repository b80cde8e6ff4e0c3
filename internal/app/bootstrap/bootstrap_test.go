package bootstrap

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
	escrowhttp "commissionvault/contexts/finance-core/commission-escrow-service/transport/http"
	"commissionvault/internal/platform/config"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(driver string) config.Config {
	return config.Config{
		ServiceName:            "commission-escrow",
		HTTPPort:               "0",
		StoreDriver:            driver,
		OutboxTopic:            "escrow.events",
		EscrowGracePeriod:      72 * time.Hour,
		SlashPolicy:            "retain",
		SettlementRate:         "1",
		WorkerPollInterval:     time.Second,
		SweepBatchSize:         50,
		EnableSlashSweeper:     true,
		EnableHarvestScheduler: true,
		EnableOutboxRelay:      true,
		HTTPRateLimitRPS:       10,
		HTTPRateLimitBurst:     10,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loopNames(loops []loop) []string {
	names := make([]string, 0, len(loops))
	for _, item := range loops {
		names = append(names, item.name)
	}
	return names
}

func TestBuildAPIRunsAllLoopsForSingleNodeStores(t *testing.T) {
	app, err := BuildAPI(testConfig(config.StoreDriverMemory), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Equal(t, []string{"slash_sweeper", "harvest_scheduler", "outbox_relay"}, loopNames(app.loops))
	assert.NotNil(t, app.limiter)
}

func TestBuildAPIOpensBoltStore(t *testing.T) {
	cfg := testConfig(config.StoreDriverBolt)
	cfg.BoltPath = filepath.Join(t.TempDir(), "data", "escrow.db")
	cfg.HTTPRateLimitRPS = 0
	cfg.EnableHarvestScheduler = false

	app, err := BuildAPI(cfg, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, app.limiter)
	assert.Equal(t, []string{"slash_sweeper", "outbox_relay"}, loopNames(app.loops))
	require.NoError(t, app.Close())

	// the file lock is released on close
	again, err := BuildAPI(cfg, discardLogger())
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestBoltVaultPoolsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.StoreDriverBolt)
	cfg.BoltPath = filepath.Join(t.TempDir(), "escrow.db")
	cfg.VaultOperatorID = "ops"

	app, err := BuildAPI(cfg, discardLogger())
	require.NoError(t, err)
	handler := app.runtime.module.Handler
	_, err = handler.PublishContractHandler(ctx, "merchant_1", escrowhttp.PublishContractRequest{
		SKU:              "sku_1",
		CommissionBPS:    500,
		PlatformShareBPS: 2000,
		VaultID:          "vault_usdc",
		Deposit:          2000,
	})
	require.NoError(t, err)
	_, err = handler.RecordVaultYieldHandler(ctx, "ops", "vault_usdc", escrowhttp.RecordVaultYieldRequest{Assets: 100})
	require.NoError(t, err)
	require.NoError(t, app.Close())

	again, err := BuildAPI(cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.Close() })
	pool, err := again.runtime.module.Handler.GetVaultPoolHandler(ctx, "vault_usdc")
	require.NoError(t, err)
	assert.Equal(t, escrowhttp.VaultPoolDTO{VaultID: "vault_usdc", TotalAssets: 2100, TotalShares: 2000}, pool.Data)
}

func TestBuildWorkerRequiresSharedStore(t *testing.T) {
	_, err := BuildWorker(testConfig(config.StoreDriverMemory), discardLogger())
	require.Error(t, err)
}

func TestBuildRejectsBadSettlementRate(t *testing.T) {
	cfg := testConfig(config.StoreDriverMemory)
	cfg.SettlementRate = "abc"
	_, err := BuildAPI(cfg, discardLogger())
	require.Error(t, err)
}

func TestPollRunsImmediatelyAndOnEveryTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rt := &runtime{cfg: testConfig(config.StoreDriverMemory), logger: discardLogger(), clock: clock}

	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- rt.poll(ctx, loop{name: "test_loop", run: func(context.Context) error {
			runs.Add(1)
			return nil
		}})
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poll did not stop")
	}
}

func TestAuditEventDecodesPayload(t *testing.T) {
	rt := &runtime{logger: discardLogger()}
	event := ports.EventEnvelope{
		EventID:   "evt_1",
		EventType: "escrow.order.slashed",
		Data:      json.RawMessage(`{"order_id":"order_1"}`),
	}
	require.NoError(t, rt.auditEvent(context.Background(), event))

	event.Data = json.RawMessage(`not-json`)
	require.Error(t, rt.auditEvent(context.Background(), event))
}

func TestNormalizeAddr(t *testing.T) {
	assert.Equal(t, ":8080", normalizeAddr(""))
	assert.Equal(t, ":9000", normalizeAddr("9000"))
	assert.Equal(t, ":9000", normalizeAddr(":9000"))
}
