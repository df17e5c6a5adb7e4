package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bdlandchain/landchain-cli/internal/adapters/agent/keystore"
	rpcagent "github.com/bdlandchain/landchain-cli/internal/adapters/agent/rpc"
	"github.com/bdlandchain/landchain-cli/internal/adapters/ledger"
	metricsadapter "github.com/bdlandchain/landchain-cli/internal/adapters/metrics"
	statusadapter "github.com/bdlandchain/landchain-cli/internal/adapters/render/status"
	tomlrepo "github.com/bdlandchain/landchain-cli/internal/adapters/repo/toml"
	chainstore "github.com/bdlandchain/landchain-cli/internal/adapters/secrets/chain"
	"github.com/bdlandchain/landchain-cli/internal/application"
	"github.com/bdlandchain/landchain-cli/internal/config"
	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/logging"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/spf13/viper"
)

const configFileEnv = "LANDCHAIN_CONFIG"

type app struct {
	cfg         config.Config
	logger      *slog.Logger
	closeLog    io.Closer
	preferences *application.PreferenceService
	secretStore ports.SecretStore
	metrics     *metricsadapter.Prometheus
	renderer    func(statusadapter.Snapshot, statusadapter.RenderOptions) (string, error)
	now         func() time.Time
}

func wireApp() (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v, os.Getenv(configFileEnv))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, closeLog, err := logging.Setup(logging.Options{
		Service:    "landchain",
		Path:       cfg.Log.Path,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire preference repository: %w", err)
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(cfg.Agent.Keystore.Secrets)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		closeLog:    closeLog,
		preferences: application.NewPreferenceService(repo),
		secretStore: secretStore,
		metrics:     metricsadapter.NewPrometheus(),
		renderer:    statusadapter.Render,
		now:         time.Now,
	}, nil
}

// runtime is the per-command object graph around one signing agent.
type runtime struct {
	coordinator *application.Coordinator
	guard       *application.NetworkGuard
	session     *application.Session
	notifier    *application.NotificationQueue
	tracker     *application.Tracker
	closers     []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

type runtimeOptions struct {
	prompter keystore.Prompter
	onToast  func(domain.Toast)
}

func (a *app) openRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	rt := &runtime{}

	signer, closeAgent, err := a.openAgent(ctx, opts.prompter)
	switch {
	case err == nil:
		rt.closers = append(rt.closers, closeAgent)
	case errors.Is(err, domain.ErrNoAgent):
		a.logger.Warn("signing agent unavailable", slog.String("error", err.Error()))
	default:
		return nil, err
	}

	var gateway ports.LedgerGateway
	if signer != nil {
		contract, err := a.cfg.Contract()
		if err != nil {
			rt.Close()
			return nil, err
		}

		gw, err := ledger.NewGateway(signer, contract, ledger.Options{
			PageSize:    a.cfg.Ledger.PageSize,
			Concurrency: a.cfg.Ledger.Concurrency,
			RegisterGas: gasPolicy(a.cfg.Gas.Register),
			VerifyGas:   gasPolicy(a.cfg.Gas.Verify),
			Logger:      a.logger,
		})
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("wire ledger gateway: %w", err)
		}
		gateway = gw
	}

	rt.notifier = application.NewNotificationQueue(application.NotificationOptions{
		DefaultTTL: a.cfg.Notifications.DefaultTTL,
		TxTTL:      a.cfg.Notifications.TxTTL,
	}, ports.SystemClock{}, a.metrics, a.logger)
	rt.closers = append(rt.closers, rt.notifier.Close)
	if opts.onToast != nil {
		rt.closers = append(rt.closers, rt.notifier.Subscribe(opts.onToast))
	}

	rt.tracker = application.NewTracker(application.TrackerOptions{
		DisplayWindow: a.cfg.Tracker.DisplayWindow,
		Retention:     a.cfg.Tracker.Retention,
	}, ports.SystemClock{}, a.logger)
	rt.guard = application.NewNetworkGuard(signer, a.cfg.Network, a.logger)
	rt.session = application.NewSession(signer, rt.guard, rt.notifier, a.logger)
	rt.closers = append(rt.closers, rt.session.Close)

	rt.coordinator = application.NewCoordinator(application.CoordinatorDeps{
		Session:  rt.session,
		Guard:    rt.guard,
		Gateway:  gateway,
		Tracker:  rt.tracker,
		Notifier: rt.notifier,
		Metrics:  a.metrics,
		Logger:   a.logger,
	})

	return rt, nil
}

// openAgent returns a nil agent together with an ErrNoAgent error when no signer is reachable.
func (a *app) openAgent(ctx context.Context, prompter keystore.Prompter) (ports.SigningAgent, func(), error) {
	switch a.cfg.Agent.Kind {
	case config.AgentKindKeystore:
		network := a.cfg.Network
		network.RPCURLs = append([]string{a.cfg.KeystoreRPCURL()}, network.RPCURLs...)

		signer, err := keystore.Open(ctx, network, keystore.Options{
			Dir:            a.cfg.Agent.Keystore.Dir,
			ReceiptTimeout: a.cfg.Agent.ReceiptTimeout,
			PollInterval:   a.cfg.Agent.PollInterval,
			Secrets:        a.secretStore,
			Prompter:       prompter,
			Logger:         a.logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return signer, signer.Close, nil
	default:
		signer, err := rpcagent.Dial(ctx, a.cfg.Agent.RPC.URL, rpcagent.Options{
			RequestsPerSecond:    a.cfg.Agent.RPC.RequestsPerSecond,
			Burst:                a.cfg.Agent.RPC.Burst,
			ReceiptTimeout:       a.cfg.Agent.ReceiptTimeout,
			PollInterval:         a.cfg.Agent.PollInterval,
			AccountsPollInterval: a.cfg.Agent.AccountsPollInterval,
			Logger:               a.logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return signer, signer.Close, nil
	}
}

func gasPolicy(cfg config.GasPolicyConfig) ledger.GasPolicy {
	return ledger.GasPolicy{
		Mode:     ledger.GasMode(cfg.Mode),
		Fallback: cfg.Fallback,
		Headroom: cfg.Headroom,
		Attempts: cfg.Attempts,
	}
}
