// Package gormstore implements the store contracts on GORM over MySQL.
package gormstore

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/callbridge/callbridge/internal/domain"
	"github.com/callbridge/callbridge/internal/store"
)

// Store bundles the GORM-backed repositories over one connection pool.
type Store struct {
	db           *gorm.DB
	users        *UserRepository
	sessions     *SessionRepository
	participants *ParticipantRepository
	logs         *ConnectionLogRepository
}

// Open connects to MySQL and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm: open: %w", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Session{},
		&domain.Participant{},
		&domain.ConnectionLog{},
	); err != nil {
		return nil, fmt.Errorf("gorm: migrate: %w", err)
	}
	return New(db), nil
}

// New wraps an existing GORM handle.
func New(db *gorm.DB) *Store {
	if db == nil {
		panic("gormstore: nil db")
	}
	return &Store{
		db:           db,
		users:        &UserRepository{db: db},
		sessions:     &SessionRepository{db: db},
		participants: &ParticipantRepository{db: db},
		logs:         &ConnectionLogRepository{db: db},
	}
}

func (s *Store) Users() store.UserRepository                   { return s.users }
func (s *Store) Sessions() store.SessionRepository             { return s.sessions }
func (s *Store) Participants() store.ParticipantRepository     { return s.participants }
func (s *Store) ConnectionLogs() store.ConnectionLogRepository { return s.logs }

// translate maps driver-level failures onto the store sentinel errors.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return store.ErrDuplicateEntry
	}
	return err
}
