package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"msgdeck/internal/shared/logger"
)

func newTestEnforcer(t *testing.T) (*Enforcer, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	e, err := NewEnforcer(db, logger.NewNop())
	require.NoError(t, err)
	return e, db
}

func TestEnforcer_DefaultPolicies(t *testing.T) {
	e, _ := newTestEnforcer(t)

	added, err := e.Seed(DefaultPolicies())
	require.NoError(t, err)
	assert.Equal(t, len(DefaultPolicies()), added)

	again, err := e.Seed(DefaultPolicies())
	require.NoError(t, err)
	assert.Zero(t, again)

	tests := []struct {
		subject, resource, action string
		want                      bool
	}{
		{"admin", ResourcePlan, ActionCreate, true},
		{"admin", ResourceTransaction, ActionRefund, true},
		{"admin", ResourceSubscription, ActionRenew, true},
		{"user", ResourcePlan, ActionCreate, false},
		{"user", ResourceTransaction, ActionStats, false},
		{"user", ResourceUsage, ActionAdjust, true},
		{"service", ResourceUsage, ActionAdjust, true},
		{"service", ResourcePromoCode, ActionDelete, false},
	}
	for _, tt := range tests {
		got, err := e.Enforce(tt.subject, tt.resource, tt.action)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %s %s", tt.subject, tt.resource, tt.action)
	}
}

func TestEnforcer_PoliciesPersistAcrossReload(t *testing.T) {
	e, db := newTestEnforcer(t)
	require.NoError(t, e.AddPolicy("auditor", ResourceTransaction, "*"))
	require.NoError(t, e.AddRoleForUser(UserSubject(42), "auditor"))

	reopened, err := NewEnforcer(db, logger.NewNop())
	require.NoError(t, err)

	ok, err := reopened.Enforce(UserSubject(42), ResourceTransaction, ActionStats)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reopened.Enforce(UserSubject(43), ResourceTransaction, ActionStats)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, reopened.RemovePolicy("auditor", ResourceTransaction, "*"))
	ok, err = reopened.Enforce(UserSubject(42), ResourceTransaction, ActionStats)
	require.NoError(t, err)
	assert.False(t, ok)
}
