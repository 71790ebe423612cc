package database

import (
	"testing"

	"whisperwall/internal/config"
	"whisperwall/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOpenSQLiteMigratesEveryModel(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&models.MessageLike{}, "idx_message_like_session"))
	assert.True(t, db.Migrator().HasIndex(&models.CommentLike{}, "idx_comment_like_session"))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestUniqueViolationIsTranslated(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)

	like := models.MessageLike{MessageID: 1, SessionToken: "s1"}
	require.NoError(t, db.Create(&like).Error)

	dup := models.MessageLike{MessageID: 1, SessionToken: "s1"}
	err = db.Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "board"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=board sslmode=disable", PostgresDSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, PostgresDSN(cfg), "sslmode=require")
}

func TestConnectRejectsMemoryDriver(t *testing.T) {
	_, err := Connect(&config.Config{DBDriver: config.DriverMemory})
	assert.Error(t, err)
}
