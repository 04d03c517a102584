package session

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sessionEntry is one persisted key/value pair.
type sessionEntry struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

func (sessionEntry) TableName() string { return "session_entries" }

// SQLiteStore persists the session key set in a local SQLite file, the
// single-machine analog of the browser's per-origin storage. Writes and
// clears run inside one transaction.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if err := db.AutoMigrate(&sessionEntry{}); err != nil {
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		return ErrEmptyToken
	}
	values, err := encodeSession(sess)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&sessionEntry{}).Error; err != nil {
			return fmt.Errorf("reset session entries: %w", err)
		}
		entries := make([]sessionEntry, 0, len(values))
		for key, value := range values {
			entries = append(entries, sessionEntry{Key: key, Value: value})
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("write session entries: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Load(ctx context.Context) (Session, error) {
	var entries []sessionEntry
	if err := s.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return Session{}, fmt.Errorf("load session entries: %w", err)
	}
	values := make(map[string]string, len(entries))
	for _, e := range entries {
		values[e.Key] = e.Value
	}
	if values[KeyToken] == "" {
		return Session{}, ErrNoSession
	}
	return decodeSession(values), nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("1 = 1").Delete(&sessionEntry{}).Error
	if err != nil {
		return fmt.Errorf("clear session entries: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Token(ctx context.Context) (string, error) {
	var entry sessionEntry
	err := s.db.WithContext(ctx).Where("key = ?", KeyToken).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return entry.Value, nil
}
