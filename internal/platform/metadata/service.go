package metadata

import (
	"errors"
	"fmt"
	"time"

	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Generic Accessors ---

// GetValue retrieves a value for a given key from the metadata table.
func GetValue(db *gorm.DB, key string) (string, error) {
	var meta Metadata
	err := db.Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// If the key doesn't exist, return an empty string, which is a valid default.
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetValue creates or updates a value for a given key.
func SetValue(db *gorm.DB, key, value string) error {
	// Use GORM's OnConflict clause for an efficient and atomic "upsert" operation.
	meta := Metadata{
		Key:   key,
		Value: value,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&meta).Error
}

// --- Specific Helpers ---

// MarkTallyRebuilt records the time of a completed tally rebuild.
func MarkTallyRebuilt(db *gorm.DB, at time.Time) error {
	return SetValue(db, LastTallyRebuildAtKey, at.UTC().Format(time.RFC3339))
}

// GetLastTallyRebuildAt returns the time of the last tally rebuild,
// or the zero time when no rebuild has happened yet.
func GetLastTallyRebuildAt(db *gorm.DB) (time.Time, error) {
	valueStr, err := GetValue(db, LastTallyRebuildAtKey)
	if err != nil {
		return time.Time{}, err
	}
	if valueStr == "" {
		return time.Time{}, nil
	}
	at, err := time.Parse(time.RFC3339, valueStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("无法解析元数据 '%s' 的值: %w", LastTallyRebuildAtKey, err)
	}
	return at, nil
}

// PrimeDB migrates the metadata table.
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Metadata{}); err != nil {
		return fmt.Errorf("无法迁移metadata表: %w", err)
	}
	return SetValue(database.DB, SchemaPrimedKey, "1")
}
