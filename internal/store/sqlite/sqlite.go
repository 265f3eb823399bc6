package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"invoicely/backend/internal/store"
)

// Document is one collection stored as a JSON column.
type Document struct {
	Key       string         `gorm:"primaryKey;size:64"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// Store is a single-file backend for local installs.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("automigrate documents: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	var doc Document
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc.Value), nil
}

func (s *Store) Save(ctx context.Context, entries ...store.Entry) error {
	if err := store.ValidateEntries(entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			doc := Document{Key: e.Key, Value: datatypes.JSON(e.Value), UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&doc).Error
			if err != nil {
				return fmt.Errorf("upsert %s: %w", e.Key, err)
			}
		}
		return nil
	})
}
