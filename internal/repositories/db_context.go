package repositories

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

// NewDbContext opens a postgres database for postgres URLs/DSNs and a sqlite file otherwise.
// The pool is shared by the whole process and released by Close.
func NewDbContext(connectionString string, maxOpenConns int) (*DbContext, error) {
	dialector, isSqlite := dialectorFor(connectionString)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if isSqlite && maxOpenConns == 0 {
		// sqlite allows a single writer
		maxOpenConns = 1
	}
	if maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(maxOpenConns)
	}

	return &DbContext{DB: db}, nil
}

func dialectorFor(connectionString string) (gorm.Dialector, bool) {
	if strings.HasPrefix(connectionString, "postgres://") ||
		strings.HasPrefix(connectionString, "postgresql://") ||
		strings.Contains(connectionString, "host=") {
		return postgres.Open(connectionString), false
	}
	return sqlite.Open(connectionString), true
}

func (c *DbContext) Migrate() error {
	err := c.DB.AutoMigrate(entities.Vacancy{})
	if err != nil {
		return fmt.Errorf("failed to migrate Vacancy entity: %w", err)
	}

	err = c.DB.AutoMigrate(entities.Requirement{})
	if err != nil {
		return fmt.Errorf("failed to migrate Requirement entity: %w", err)
	}

	err = c.DB.AutoMigrate(entities.CandidateProfile{})
	if err != nil {
		return fmt.Errorf("failed to migrate CandidateProfile entity: %w", err)
	}

	err = c.DB.AutoMigrate(entities.MatchResult{})
	if err != nil {
		return fmt.Errorf("failed to migrate MatchResult entity: %w", err)
	}

	err = c.DB.AutoMigrate(entities.MatchJob{})
	if err != nil {
		return fmt.Errorf("failed to migrate MatchJob entity: %w", err)
	}

	if err = c.DB.Exec("CREATE INDEX IF NOT EXISTS idx_match_jobs_pending ON match_jobs (status, next_try_at)").
		Error; err != nil {
		return fmt.Errorf("failed to create match jobs index: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
