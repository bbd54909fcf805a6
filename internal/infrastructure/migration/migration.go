// Package migration applies the database schema with goose, golang-migrate or gorm AutoMigrate.
package migration

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"msgdeck/internal/shared/config"
	"msgdeck/internal/shared/logger"
)

// Manager handles database migrations with different strategies
type Manager struct {
	strategy Strategy
	logger   logger.Interface
}

// NewManager picks a strategy by name. An empty name means goose on mysql and
// AutoMigrate everywhere else.
func NewManager(name string, cfg *config.DatabaseConfig, log logger.Interface) (*Manager, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		driver = "mysql"
	}
	if name == "" {
		name = StrategyAutoMigrate
		if driver == "mysql" {
			name = StrategyGoose
		}
	}

	var strategy Strategy
	switch name {
	case StrategyGoose:
		if driver != "mysql" {
			return nil, fmt.Errorf("goose scripts target mysql, not %s", driver)
		}
		strategy = NewGooseStrategy("mysql", log)
	case StrategyGolangMigrate:
		if driver != "mysql" {
			return nil, fmt.Errorf("golang-migrate scripts target mysql, not %s", driver)
		}
		strategy = NewGolangMigrateStrategy(cfg, log)
	case StrategyAutoMigrate:
		strategy = NewAutoMigrateStrategy(log)
	default:
		return nil, fmt.Errorf("unknown migration strategy %q", name)
	}

	return &Manager{strategy: strategy, logger: log}, nil
}

// NewManagerWithStrategy creates a new migration manager with a specific strategy
func NewManagerWithStrategy(strategy Strategy, log logger.Interface) *Manager {
	return &Manager{strategy: strategy, logger: log}
}

func (m *Manager) Strategy() Strategy {
	return m.strategy
}

// Up applies every pending migration.
func (m *Manager) Up(ctx context.Context, db *gorm.DB) error {
	m.logger.Infow("starting database migration", "strategy", m.strategy.Name())

	if err := m.strategy.Up(ctx, db); err != nil {
		m.logger.Errorw("migration failed", "strategy", m.strategy.Name(), "error", err)
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.Name(), err)
	}
	return nil
}

func (m *Manager) Down(ctx context.Context, db *gorm.DB, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	m.logger.Infow("rolling back migrations", "strategy", m.strategy.Name(), "steps", steps)
	return m.strategy.Down(ctx, db, steps)
}

func (m *Manager) Version(ctx context.Context, db *gorm.DB) (int64, error) {
	return m.strategy.Version(ctx, db)
}
