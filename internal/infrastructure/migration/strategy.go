package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"msgdeck/internal/infrastructure/persistence/models"
	"msgdeck/internal/shared/config"
	"msgdeck/internal/shared/logger"
)

const (
	StrategyGoose         = "goose"
	StrategyGolangMigrate = "golang-migrate"
	StrategyAutoMigrate   = "automigrate"
)

// ErrDownUnsupported is returned by strategies that cannot roll back.
var ErrDownUnsupported = errors.New("rollback is not supported by this strategy")

// Strategy defines the interface for different migration strategies
type Strategy interface {
	Up(ctx context.Context, db *gorm.DB) error
	Down(ctx context.Context, db *gorm.DB, steps int) error
	Version(ctx context.Context, db *gorm.DB) (int64, error)
	Name() string
}

// GooseStrategy applies the embedded goose scripts.
type GooseStrategy struct {
	dialect string
	logger  logger.Interface
}

func NewGooseStrategy(dialect string, log logger.Interface) *GooseStrategy {
	return &GooseStrategy{dialect: dialect, logger: log}
}

func (s *GooseStrategy) Name() string { return StrategyGoose }

func (s *GooseStrategy) prepare() error {
	goose.SetBaseFS(Scripts)
	goose.SetLogger(gooseLogger{s.logger})
	if err := goose.SetDialect(s.dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

func (s *GooseStrategy) Up(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.prepare(); err != nil {
		return err
	}

	from, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, gooseDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	to, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}

	s.logger.Infow("goose migration completed", "from_version", from, "to_version", to)
	return nil
}

func (s *GooseStrategy) Down(ctx context.Context, db *gorm.DB, steps int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.prepare(); err != nil {
		return err
	}
	for i := 0; i < steps; i++ {
		if err := goose.DownContext(ctx, sqlDB, gooseDir); err != nil {
			return fmt.Errorf("failed to run down migration: %w", err)
		}
	}
	return nil
}

func (s *GooseStrategy) Version(ctx context.Context, db *gorm.DB) (int64, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.prepare(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, sqlDB)
}

// Status prints goose's per-file status through the logger.
func (s *GooseStrategy) Status(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.prepare(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, sqlDB, gooseDir)
}

type gooseLogger struct{ log logger.Interface }

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Infow(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Errorw(fmt.Sprintf(format, v...))
}

// GolangMigrateStrategy applies the embedded up/down pairs with golang-migrate.
// It opens its own connection because multi-statement files need multiStatements=true.
type GolangMigrateStrategy struct {
	cfg    *config.DatabaseConfig
	logger logger.Interface
}

func NewGolangMigrateStrategy(cfg *config.DatabaseConfig, log logger.Interface) *GolangMigrateStrategy {
	return &GolangMigrateStrategy{cfg: cfg, logger: log}
}

func (s *GolangMigrateStrategy) Name() string { return StrategyGolangMigrate }

func (s *GolangMigrateStrategy) open() (*migrate.Migrate, error) {
	src, err := iofs.New(Scripts, migrateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded scripts: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "mysql://"+s.cfg.GetDSN()+"&multiStatements=true")
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func (s *GolangMigrateStrategy) Up(_ context.Context, _ *gorm.DB) error {
	m, err := s.open()
	if err != nil {
		return err
	}
	defer m.Close()

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d", from)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	to, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get final migration version: %w", err)
	}
	s.logger.Infow("golang-migrate migration completed", "from_version", from, "to_version", to)
	return nil
}

func (s *GolangMigrateStrategy) Down(_ context.Context, _ *gorm.DB, steps int) error {
	m, err := s.open()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run down migrations: %w", err)
	}
	return nil
}

func (s *GolangMigrateStrategy) Version(_ context.Context, _ *gorm.DB) (int64, error) {
	m, err := s.open()
	if err != nil {
		return 0, err
	}
	defer m.Close()

	v, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return int64(v), err
}

// AutoMigrateStrategy lets gorm create the schema from the models. Used for sqlite and
// postgres, which the SQL scripts do not target.
type AutoMigrateStrategy struct {
	logger logger.Interface
}

func NewAutoMigrateStrategy(log logger.Interface) *AutoMigrateStrategy {
	return &AutoMigrateStrategy{logger: log}
}

func (s *AutoMigrateStrategy) Name() string { return StrategyAutoMigrate }

func (s *AutoMigrateStrategy) Up(ctx context.Context, db *gorm.DB) error {
	all := models.All()
	if err := db.WithContext(ctx).AutoMigrate(all...); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	s.logger.Infow("auto-migrate completed", "models", len(all))
	return nil
}

func (s *AutoMigrateStrategy) Down(context.Context, *gorm.DB, int) error {
	return ErrDownUnsupported
}

func (s *AutoMigrateStrategy) Version(context.Context, *gorm.DB) (int64, error) {
	return 0, nil
}
