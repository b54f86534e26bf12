package storage

import (
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/crypt0inf0/openalgo-chart/internal/models"
)

// AlertRecord is the persisted row shape of a serializable alert.
// Notification settings are stored as a JSON blob to keep the row schema
// stable across settings changes.
type AlertRecord struct {
	ID            string  `gorm:"primaryKey"`
	Price         float64 `gorm:"not null"`
	Condition     string
	Type          string
	CreatedAt     int64
	Notifications string `gorm:"type:text"`
	Symbol        string
	Exchange      string
	Triggered     bool
}

// Store persists exported alert records in sqlite.
type Store struct {
	db *gorm.DB
}

// Open opens the database and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&AlertRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// ReplaceAll overwrites the persisted set with the given records in one
// transaction.
func (s *Store) ReplaceAll(records []models.SerializableAlert) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&AlertRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear alert records: %w", err)
		}
		for _, rec := range records {
			row, err := toRow(rec)
			if err != nil {
				log.Printf("Skipping unpersistable alert %s: %v", rec.ID, err)
				continue
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert alert record %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// LoadAll reads every persisted alert record.
func (s *Store) LoadAll() ([]models.SerializableAlert, error) {
	var rows []AlertRecord
	if err := s.db.Order("price DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load alert records: %w", err)
	}

	out := make([]models.SerializableAlert, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			log.Printf("Skipping unreadable alert record %s: %v", row.ID, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func toRow(rec models.SerializableAlert) (AlertRecord, error) {
	row := AlertRecord{
		ID:        rec.ID,
		Price:     rec.Price,
		Condition: string(rec.Condition),
		Type:      rec.Type,
		CreatedAt: rec.CreatedAt,
		Symbol:    rec.Symbol,
		Exchange:  rec.Exchange,
		Triggered: rec.Triggered,
	}
	if rec.Notifications != nil {
		blob, err := json.Marshal(rec.Notifications)
		if err != nil {
			return AlertRecord{}, fmt.Errorf("failed to marshal notification settings: %w", err)
		}
		row.Notifications = string(blob)
	}
	return row, nil
}

func fromRow(row AlertRecord) (models.SerializableAlert, error) {
	rec := models.SerializableAlert{
		ID:        row.ID,
		Price:     row.Price,
		Condition: models.AlertCondition(row.Condition),
		Type:      row.Type,
		CreatedAt: row.CreatedAt,
		Symbol:    row.Symbol,
		Exchange:  row.Exchange,
		Triggered: row.Triggered,
	}
	if row.Notifications != "" {
		var settings models.NotificationSettings
		if err := json.Unmarshal([]byte(row.Notifications), &settings); err != nil {
			return models.SerializableAlert{}, fmt.Errorf("failed to unmarshal notification settings: %w", err)
		}
		rec.Notifications = &settings
	}
	return rec, nil
}
