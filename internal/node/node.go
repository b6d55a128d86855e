// Package node wires settings into a running oracle: adapters, services and
// query sources.
package node

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/ai"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/attestation"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/blobstore/gcs"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/blobstore/walrus"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/config/file"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/crypto/aescbc"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/ledger/sui"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/storage/firestore"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/storage/memory"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/storage/mongo"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/storage/postgres"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/storage/redis"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/storage/sqlite"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driving/inbox"
	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
	"github.com/anynomousfriend/Fathom-0x/internal/core/services"
	"github.com/anynomousfriend/Fathom-0x/internal/logger"
	"github.com/anynomousfriend/Fathom-0x/internal/postprocessors"
	"github.com/anynomousfriend/Fathom-0x/internal/postprocessors/chunker"
)

// Options are process-level inputs that are not oracle settings.
type Options struct {
	// Version is reported by the health service.
	Version string

	// ConfigDir holds prompts and, unless tracker.data_dir is set, the
	// SQLite database. Empty uses ~/.fathom.
	ConfigDir string
}

// Node is a fully wired oracle.
type Node struct {
	Settings domain.OracleSettings

	Pipeline driving.Pipeline
	Health   driving.HealthService
	Records  driving.RecordService
	Runner   *services.Runner

	// Sources are the enabled query sources, ledger first.
	Sources []driving.QuerySource

	// Keyring resolves key material for ledger-discovered queries. Nil when
	// ledger polling is disabled.
	Keyring *file.Keyring

	// Signer is the oracle's ledger address.
	Signer string

	closers []func() error
}

// Close releases every resource opened by Build, in reverse order.
func (n *Node) Close() error {
	var errs []error
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	n.closers = nil
	return errors.Join(errs...)
}

func (n *Node) onClose(fn func() error) {
	n.closers = append(n.closers, fn)
}

// Build wires a node from settings. On error nothing is left open.
func Build(ctx context.Context, settings domain.OracleSettings, opts Options) (_ *Node, err error) {
	n := &Node{Settings: settings}
	defer func() {
		if err != nil {
			n.Close() //nolint:errcheck
		}
	}()

	keypair, err := sui.ParseKeypair(settings.PrivateKey)
	if err != nil {
		return nil, &domain.ConfigError{Field: "oracle.private_key", Reason: err.Error()}
	}
	n.Signer = keypair.Address()

	store, err := OpenBlobStore(ctx, settings)
	if err != nil {
		return nil, err
	}
	if c, ok := store.(interface{ Close() error }); ok {
		n.onClose(c.Close)
	}

	tracker, cursors, closeTracker, err := OpenTracker(ctx, settings.Tracker, opts.ConfigDir)
	if err != nil {
		return nil, err
	}
	n.onClose(closeTracker)

	generator, closeBackends, err := BuildGenerator(settings.Backends, opts.ConfigDir)
	if err != nil {
		return nil, err
	}
	n.onClose(closeBackends)

	retriever, err := postprocessors.NewRetriever(settings.Pipeline.Scorer)
	if err != nil {
		return nil, &domain.ConfigError{Field: "pipeline.scorer", Reason: err.Error()}
	}

	client := sui.NewClient(sui.ClientConfig{
		RPCURL:            settings.Sui.RPCURL,
		Timeout:           settings.Sui.Timeout,
		RequestsPerSecond: settings.Sui.RequestsPerSecond,
	})
	submitter, err := sui.NewSubmitter(client, keypair, sui.SubmitterConfig{
		PackageID:      settings.Sui.PackageID,
		ConfigObjectID: settings.Sui.ConfigObjectID,
		Module:         settings.Sui.Module,
		GasBudget:      settings.Sui.GasBudget,
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := services.NewPipeline(services.PipelineDeps{
		Store:     store,
		Decryptor: aescbc.NewDecryptor(),
		Chunker:   chunker.New(),
		Retriever: retriever,
		Generator: generator,
		Attestor:  attestation.NewSigner(keypair.PrivateKey(), n.Signer),
		Submitter: submitter,
		Tracker:   tracker,
	}, settings.Pipeline)
	if err != nil {
		return nil, err
	}
	n.Pipeline = pipeline
	n.Runner = services.NewRunner(pipeline, settings.Pipeline.Concurrency)
	n.Records = services.NewRecordService(tracker)
	n.Health = services.NewHealthService(healthConfig(settings, opts, n.Signer), generator)

	if settings.Sources.LedgerEvents {
		keyring, err := file.NewKeyring(settings.Sources.KeyringPath)
		if err != nil {
			return nil, fmt.Errorf("opening keyring: %w", err)
		}
		n.Keyring = keyring
		events := sui.NewEventReader(client, settings.Sui.PackageID, settings.Sui.Module)
		n.Sources = append(n.Sources, services.NewLedgerSource(events, keyring, cursors, settings.Sources.PollInterval))
	}
	if settings.Sources.InboxDir != "" {
		n.Sources = append(n.Sources, inbox.New(settings.Sources.InboxDir))
	}

	logger.With(
		zap.String("signer", n.Signer),
		zap.String("blob_store", store.Name()),
		zap.String("tracker", string(settings.Tracker.Backend)),
		zap.Int("sources", len(n.Sources)),
	).Debug("node built")

	return n, nil
}

// NewHealth builds a health service without opening stores or ledger
// clients, for reporting on a node that may not be fully configured.
func NewHealth(settings domain.OracleSettings, opts Options) (driving.HealthService, func() error, error) {
	generator, closeBackends, err := BuildGenerator(settings.Backends, opts.ConfigDir)
	if err != nil {
		return nil, nil, err
	}

	signer := ""
	if kp, err := sui.ParseKeypair(settings.PrivateKey); err == nil {
		signer = kp.Address()
	}
	return services.NewHealthService(healthConfig(settings, opts, signer), generator), closeBackends, nil
}

func healthConfig(settings domain.OracleSettings, opts Options, signer string) services.HealthConfig {
	return services.HealthConfig{
		Version:          opts.Version,
		Signer:           signer,
		BlobStore:        string(settings.BlobStore),
		Tracker:          string(settings.Tracker.Backend),
		LedgerConfigured: settings.Sui.PackageID != "" && settings.Sui.ConfigObjectID != "",
	}
}

// BuildGenerator creates the generation backends in priority order. Prompts
// are read from <configDir>/prompts.
func BuildGenerator(backends []domain.BackendSettings, configDir string) (*services.Generator, func() error, error) {
	promptDir := ""
	if configDir != "" {
		promptDir = filepath.Join(configDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening prompt store: %w", err)
	}

	built, err := ai.CreateBackends(backends, prompts)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range built.Warnings {
		logger.Debug("%s", w)
	}

	gens := make([]services.GeneratorBackend, len(built.Backends))
	for i, b := range built.Backends {
		gens[i] = services.GeneratorBackend{Backend: b.GenerationBackend, Timeout: b.Timeout}
	}
	return services.NewGenerator(gens...), func() error { built.Close(); return nil }, nil
}

// OpenBlobStore creates the configured blob store.
func OpenBlobStore(ctx context.Context, settings domain.OracleSettings) (driven.BlobStore, error) {
	switch settings.BlobStore {
	case domain.BlobStoreWalrus, "":
		store, err := walrus.NewStore(walrus.Config{
			AggregatorURL: settings.Walrus.AggregatorURL,
			Timeout:       settings.Walrus.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case domain.BlobStoreGCS:
		store, err := OpenGCS(ctx, settings)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, &domain.ConfigError{Field: "blobstore.kind", Reason: fmt.Sprintf("unknown blob store %q", settings.BlobStore)}
	}
}

// OpenGCS opens the Cloud Storage bucket used as a blob store or mirror.
func OpenGCS(ctx context.Context, settings domain.OracleSettings) (*gcs.Store, error) {
	return gcs.NewStore(ctx, gcs.Config{
		Bucket:  settings.GCS.Bucket,
		Prefix:  settings.GCS.Prefix,
		Timeout: settings.Walrus.Timeout,
	})
}

// OpenTracker creates the configured tracker and the cursor store that
// shares its backend.
func OpenTracker(
	ctx context.Context,
	settings domain.TrackerSettings,
	configDir string,
) (driven.QueryLedgerTracker, driven.CursorStore, func() error, error) {
	switch settings.Backend {
	case domain.TrackerMemory:
		t := memory.NewTracker()
		return t, t, func() error { return nil }, nil

	case domain.TrackerSQLite, "":
		dataDir := settings.DataDir
		if dataDir == "" && configDir != "" {
			dataDir = filepath.Join(configDir, "data")
		}
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening sqlite tracker: %w", err)
		}
		return store.Tracker(), store.CursorStore(), store.Close, nil

	case domain.TrackerFirestore:
		t, err := firestore.NewTracker(ctx, firestore.Config{
			ProjectID:  settings.FirestoreProject,
			Collection: settings.FirestoreCollection,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening firestore tracker: %w", err)
		}
		return t, t, t.Close, nil

	case domain.TrackerPostgres:
		t, err := postgres.NewTracker(ctx, settings.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening postgres tracker: %w", err)
		}
		return t, t, func() error { t.Close(); return nil }, nil

	case domain.TrackerRedis:
		t, err := redis.NewTracker(ctx, redis.Config{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening redis tracker: %w", err)
		}
		return t, t, t.Close, nil

	case domain.TrackerMongo:
		t, err := mongo.NewTracker(ctx, mongo.Config{
			URI:      settings.MongoURI,
			Database: settings.MongoDatabase,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening mongo tracker: %w", err)
		}
		return t, t, t.Close, nil

	default:
		return nil, nil, nil, &domain.ConfigError{Field: "tracker.backend", Reason: fmt.Sprintf("unknown tracker %q", settings.Backend)}
	}
}
