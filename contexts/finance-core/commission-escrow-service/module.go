package commissionescrowservice

import (
	"log/slog"
	"time"

	httpadapter "commissionvault/contexts/finance-core/commission-escrow-service/adapters/http"
	"commissionvault/contexts/finance-core/commission-escrow-service/adapters/memory"
	"commissionvault/contexts/finance-core/commission-escrow-service/adapters/settlement"
	"commissionvault/contexts/finance-core/commission-escrow-service/application/commands"
	"commissionvault/contexts/finance-core/commission-escrow-service/application/queries"
	"commissionvault/contexts/finance-core/commission-escrow-service/application/workers"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"

	"github.com/jonboulle/clockwork"
)

// Module is the composition surface for the escrow context.
// Runtime wiring consumes Handler and the workers; Store and Vault are only
// set by NewInMemoryModule.
type Module struct {
	Handler          httpadapter.Handler
	SlashSweeper     workers.SlashSweeper
	HarvestScheduler workers.HarvestScheduler

	Store *memory.Store
	Vault *memory.Vault
}

type Dependencies struct {
	Repository         ports.Repository
	Vault              ports.VaultLedger
	Converter          ports.SettlementConverter
	Clock              ports.Clock
	IDGenerator        ports.IDGenerator
	Metrics            ports.Metrics
	GracePeriod        time.Duration
	SlashPolicy        entities.SlashPolicy
	PlatformTreasuryID string
	VaultOperatorID    string
	SweepBatchSize     int
	Logger             *slog.Logger
}

func NewModule(deps Dependencies) Module {
	slash := commands.SlashOrderUseCase{
		Repository:  deps.Repository,
		Vault:       deps.Vault,
		Converter:   deps.Converter,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Policy:      deps.SlashPolicy,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}
	harvest := commands.HarvestInterestUseCase{
		Repository:         deps.Repository,
		Vault:              deps.Vault,
		Converter:          deps.Converter,
		Clock:              deps.Clock,
		IDGenerator:        deps.IDGenerator,
		PlatformTreasuryID: deps.PlatformTreasuryID,
		Metrics:            deps.Metrics,
		Logger:             deps.Logger,
	}

	handler := httpadapter.Handler{
		PublishAndStake: commands.PublishAndStakeUseCase{
			Repository:  deps.Repository,
			Vault:       deps.Vault,
			Converter:   deps.Converter,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		CreateOrder: commands.CreateOrderUseCase{
			Repository:  deps.Repository,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			GracePeriod: deps.GracePeriod,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		ConfirmOrder: commands.ConfirmOrderUseCase{
			Repository:  deps.Repository,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		DisputeOrder: commands.DisputeOrderUseCase{
			Repository:  deps.Repository,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		SlashOrder: slash,
		ClaimCommission: commands.ClaimCommissionUseCase{
			Repository:  deps.Repository,
			Vault:       deps.Vault,
			Converter:   deps.Converter,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		HarvestInterest: harvest,
		RecordYield: commands.RecordVaultYieldUseCase{
			Repository:  deps.Repository,
			Vault:       deps.Vault,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			OperatorID:  deps.VaultOperatorID,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},

		GetContract:    queries.GetContractUseCase{Repository: deps.Repository, Logger: deps.Logger},
		GetOrder:       queries.GetOrderUseCase{Repository: deps.Repository},
		GetTicket:      queries.GetTicketUseCase{Repository: deps.Repository},
		ListTickets:    queries.ListTicketsUseCase{Repository: deps.Repository},
		ListPayouts:    queries.ListPayoutsUseCase{Repository: deps.Repository},
		PreviewHarvest: queries.PreviewHarvestUseCase{Repository: deps.Repository, Vault: deps.Vault},
		GetVaultPool:   queries.GetVaultPoolUseCase{Vault: deps.Vault},
		Logger:         deps.Logger,
	}

	return Module{
		Handler: handler,
		SlashSweeper: workers.SlashSweeper{
			Repository: deps.Repository,
			Slash:      slash,
			Clock:      deps.Clock,
			BatchSize:  deps.SweepBatchSize,
			Logger:     deps.Logger,
		},
		HarvestScheduler: workers.HarvestScheduler{
			Repository: deps.Repository,
			Harvest:    harvest,
			BatchSize:  deps.SweepBatchSize,
			Logger:     deps.Logger,
		},
	}
}

// InMemoryVaultOperator is the operator allowed to record yield in modules
// built by NewInMemoryModule.
const InMemoryVaultOperator = "vault_operator"

// NewInMemoryModule wires the escrow use cases against the in-process store
// and vault at 1:1 settlement. A nil clock means the wall clock.
func NewInMemoryModule(logger *slog.Logger, clock ports.Clock) Module {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	store := memory.NewStore()
	vault := memory.NewVault()
	module := NewModule(Dependencies{
		Repository:      store,
		Vault:           vault,
		Converter:       settlement.ParityConverter(),
		Clock:           clock,
		IDGenerator:     store,
		GracePeriod:     entities.DefaultGracePeriod,
		SlashPolicy:     entities.SlashPolicyRetain,
		VaultOperatorID: InMemoryVaultOperator,
		Logger:          logger,
	})
	module.Store = store
	module.Vault = vault
	return module
}
