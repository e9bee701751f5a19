package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// ViewBookmark persists a named camera position across restarts
// (SPEC_FULL §10); the control API has no bookmark route.
type ViewBookmark struct {
	Name      string `gorm:"primaryKey"`
	PosX      float64
	PosY      float64
	PosZ      float64
	UpdatedAt time.Time
}

// SessionStat persists the fetch-scheduler's cumulative counters once
// per checkpoint, the same "texture.db" persistence role the teacher's
// InitDatabase served, now storing this engine's own bookkeeping
// instead of cached GIS texture blobs.
type SessionStat struct {
	ID                  uint `gorm:"primaryKey"`
	RecordedAt          time.Time
	ResourcesFetched    uint64
	ResourcesFailed     uint64
	ResourcesEvicted    int
	RamBytes            uint64
	GpuBytes            uint64
}

// InitDatabase opens (creating if necessary) the engine's sqlite store
// under storagePath, migrating the stats/bookmark tables.
func InitDatabase(storagePath string) error {
	if err := os.MkdirAll(storagePath, os.ModePerm); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	dbPath := filepath.Join(storagePath, "vtsclient.db")
	Logger.Printf("opening state db at %s", dbPath)

	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	if err := DB.AutoMigrate(&ViewBookmark{}, &SessionStat{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// GetDB returns the shared *gorm.DB, or nil if InitDatabase hasn't run.
func GetDB() *gorm.DB { return DB }

// SaveBookmark upserts a named view position.
func SaveBookmark(name string, x, y, z float64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	b := ViewBookmark{Name: name, PosX: x, PosY: y, PosZ: z, UpdatedAt: time.Now()}
	return DB.Save(&b).Error
}

// RecordSessionStat appends one stats checkpoint row.
func RecordSessionStat(s SessionStat) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	s.RecordedAt = time.Now()
	return DB.Create(&s).Error
}
