package backend

import (
	"context"
	"fmt"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
	gsheet "smartexpense/internal/records/google"
	"smartexpense/internal/records/memory"
	"smartexpense/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds the store named by config and seeds demo data when asked.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.SeedDemo {
		if err := f.seed(ctx, res, config); err != nil {
			res.Close()
			return nil, err
		}
	}
	return res, nil
}

// seed writes the demo month once; a demo user that already has records is left alone.
func (f *DefaultFactory) seed(ctx context.Context, res *BackendResult, config Config) error {
	if res.Writer == nil {
		f.logger.WarnContext(ctx, "demo data not seeded: backend is read-only", log.FieldBackend, config.Type.String())
		return nil
	}
	existing, err := res.Store.Transactions(ctx, config.DemoUser, records.Filter{})
	if err != nil {
		return fmt.Errorf("check demo data: %w", err)
	}
	if len(existing) > 0 {
		f.logger.DebugContext(ctx, "demo data already present", log.FieldUserID, string(config.DemoUser))
		return nil
	}
	month := config.SeedMonth
	if month.IsZero() {
		month = core.Today()
	}
	if err := records.SeedDemo(ctx, res.Writer, config.DemoUser, month); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	f.logger.InfoContext(ctx, "demo data seeded",
		log.FieldOperation, log.OpSeed, log.FieldUserID, string(config.DemoUser), log.FieldMonth, core.MonthKey(month))
	return nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if err := repo.EnsureDefaultCategories(context.Background()); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create default categories: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Writer:  repo,
		Pinger:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		CredentialsFile: config.GoogleCredentialsFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)

	return &BackendResult{Store: cli, Pinger: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.New()
	if err := store.EnsureDefaultCategories(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create default categories: %w", err)
	}

	f.logger.Info("Initialized memory backend")

	return &BackendResult{Store: store, Writer: store, Pinger: store}, nil
}
