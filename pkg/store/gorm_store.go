package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"langstory/pkg/domain"
)

// Connection pool limits. The service is low-throughput; a handful of
// connections with a short idle reap matches the original deployment.
const (
	maxOpenConns    = 5
	maxIdleConns    = 2
	connMaxIdleTime = 10 * time.Second
	connMaxLifetime = 30 * time.Minute
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB, configures the pool, and runs auto-migration.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := db.AutoMigrate(&UserModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser creates or updates a user row.
func (s *GormStore) SaveUser(u domain.User) error {
	model, err := userToModel(u)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "coin", "languages", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	user, err := userFromModel(model)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	user, err := userFromModel(model)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}

// SaveLanguages overwrites the languages column in a single row update.
// The whole document is replaced; the write is atomic at the row level.
func (s *GormStore) SaveLanguages(userID string, languages domain.Languages) error {
	raw, err := marshalLanguages(languages)
	if err != nil {
		return err
	}
	return s.db.Model(&UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"languages":  raw,
			"updated_at": time.Now().UTC(),
		}).Error
}

// SaveCoin overwrites the coin balance.
func (s *GormStore) SaveCoin(userID string, coin int) error {
	return s.db.Model(&UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"coin":       coin,
			"updated_at": time.Now().UTC(),
		}).Error
}

func userToModel(u domain.User) (UserModel, error) {
	raw, err := marshalLanguages(u.Languages)
	if err != nil {
		return UserModel{}, err
	}
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Coin:         u.Coin,
		Languages:    raw,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}, nil
}

func userFromModel(m UserModel) (domain.User, error) {
	languages := domain.Languages{}
	if len(m.Languages) > 0 {
		if err := json.Unmarshal(m.Languages, &languages); err != nil {
			return domain.User{}, fmt.Errorf("decode languages for user %s: %w", m.ID, err)
		}
	}
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Coin:         m.Coin,
		Languages:    languages,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

func marshalLanguages(languages domain.Languages) (datatypes.JSON, error) {
	if languages == nil {
		languages = domain.Languages{}
	}
	raw, err := json.Marshal(languages)
	if err != nil {
		return nil, fmt.Errorf("encode languages: %w", err)
	}
	return datatypes.JSON(raw), nil
}
