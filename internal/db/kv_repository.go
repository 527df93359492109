package db

import (
	"errors"
	"time"

	"github.com/terraincognita07/nestling/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVRepository stores the engine's blobs in the kv_entries table. Each Put is
// a single upsert statement, so writes are atomic per key.
type KVRepository struct {
	database *gorm.DB
	now      func() time.Time
}

func NewKVRepository(database *gorm.DB) *KVRepository {
	return &KVRepository{database: database, now: time.Now}
}

func (repo *KVRepository) Get(key string) (string, bool, error) {
	var entry models.KVEntry
	err := repo.database.Where(`"key" = ?`, key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (repo *KVRepository) Put(key string, value string) error {
	entry := models.KVEntry{Key: key, Value: value, UpdatedAt: repo.now().UTC()}
	return repo.database.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (repo *KVRepository) Delete(key string) error {
	return repo.database.Where(`"key" = ?`, key).Delete(&models.KVEntry{}).Error
}
