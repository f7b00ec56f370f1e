// Package store keeps a log of received frames in SQLite.
package store

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/golang/glog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// pure Go driver registered as "sqlite"
	_ "modernc.org/sqlite"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
)

// FrameRecord is a stored frame.
type FrameRecord struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	ReceivedAt   time.Time `gorm:"index;not null" json:"received_at"`
	Mode         string    `gorm:"size:1" json:"mode"`
	Block        string    `gorm:"size:1" json:"block"`
	RSSI         int       `json:"rssi"`
	Length       int       `json:"length"`
	Manufacturer string    `gorm:"index;size:3" json:"manufacturer,omitempty"`
	MeterID      string    `gorm:"index;size:8" json:"meter_id,omitempty"`
	Data         string    `gorm:"not null" json:"data"`
}

// TableName implements gorm's tabler.
func (FrameRecord) TableName() string {
	return "frames"
}

// NewFrameRecord converts a frame for storage.
func NewFrameRecord(f *wmbus.Frame) *FrameRecord {
	r := &FrameRecord{
		ReceivedAt: f.Timestamp().UTC(),
		Mode:       f.Mode().String(),
		Block:      f.Block().String(),
		RSSI:       int(f.RSSI()),
		Length:     f.Len(),
		Data:       f.Hex(),
	}
	if h, err := f.LinkHeader(); err == nil {
		r.Manufacturer, r.MeterID = h.Manufacturer, h.ID
	}
	return r
}

// Frame converts the record back to a frame.
func (r *FrameRecord) Frame() (*wmbus.Frame, error) {
	data, err := hex.DecodeString(r.Data)
	if err != nil {
		return nil, err
	}
	return wmbus.NewFrame(data, int8(r.RSSI), r.ReceivedAt,
		wmbus.ParseMode(r.Mode), wmbus.ParseBlock(r.Block)), nil
}

// Store is the frame log.
type Store struct {
	db *gorm.DB
}

type glogWriter struct{}

func (glogWriter) Printf(format string, args ...interface{}) {
	glog.Warningf(format, args...)
}

// Open opens or creates the database at path. Use ":memory:" for a
// transient log.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: path}, &gorm.Config{
		Logger: logger.New(glogWriter{}, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers and keeps :memory: shared
	sqlDB.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}
	if err := db.AutoMigrate(&FrameRecord{}); err != nil {
		sqlDB.Close()
		return nil, err
	}
	glog.Infof("store: frame log %s", path)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save stores a frame.
func (s *Store) Save(ctx context.Context, f *wmbus.Frame) (*FrameRecord, error) {
	r := NewFrameRecord(f)
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// Recent returns up to limit records, newest first. A non-empty meterID
// filters by meter.
func (s *Store) Recent(ctx context.Context, meterID string, limit int) ([]FrameRecord, error) {
	q := s.db.WithContext(ctx).Order("received_at DESC").Order("id DESC").Limit(limit)
	if meterID != "" {
		q = q.Where("meter_id = ?", meterID)
	}
	var records []FrameRecord
	err := q.Find(&records).Error
	return records, err
}

// Count returns the number of stored frames.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&FrameRecord{}).Count(&count).Error
	return count, err
}

// Prune deletes records received before t and returns how many.
func (s *Store) Prune(ctx context.Context, t time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("received_at < ?", t.UTC()).Delete(&FrameRecord{})
	return res.RowsAffected, res.Error
}

// Name implements framework.Named.
func (s *Store) Name() string {
	return "store"
}

// HandleFrame saves the frame.
func (s *Store) HandleFrame(ctx context.Context, f *wmbus.Frame) bool {
	if _, err := s.Save(ctx, f); err != nil {
		glog.Errorf("store: save frame: %v", err)
		return false
	}
	return true
}
