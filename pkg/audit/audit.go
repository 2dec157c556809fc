package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/nergy-se/heatcontrol/pkg/plan"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ScheduleEntry is one planned hour. Date and Hour together are unique and a
// new plan for the same day overwrites the old rows.
type ScheduleEntry struct {
	Date         string `gorm:"primaryKey;type:varchar(10)"`
	Hour         int    `gorm:"primaryKey;autoIncrement:false"`
	Time         time.Time
	PriceNoTax   float64
	PriceWithTax float64
	Rank         int
	Level        string `gorm:"type:varchar(10)"`
	Forced       bool
	UpdatedAt    time.Time
}

// Reading is an energy meter sample taken when the hourly level was applied.
type Reading struct {
	ID      uint `gorm:"primaryKey"`
	Time    time.Time
	MeterID string `gorm:"type:varchar(64)"`
	TotalWh float64
	Level   string `gorm:"type:varchar(10)"`
}

type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening audit database %s: %w", path, err)
	}
	err = db.AutoMigrate(&ScheduleEntry{}, &Reading{})
	if err != nil {
		return nil, fmt.Errorf("error migrating audit database: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveSchedule writes the full schedule of a.
func (s *Store) SaveSchedule(ctx context.Context, a *plan.Allocation) error {
	date := a.Date().Format("2006-01-02")
	slots := a.Schedule()
	if len(slots) == 0 {
		return nil
	}
	entries := make([]ScheduleEntry, 0, len(slots))
	for _, slot := range slots {
		entries = append(entries, ScheduleEntry{
			Date:         date,
			Hour:         slot.Hour,
			Time:         slot.Time,
			PriceNoTax:   slot.PriceNoTax,
			PriceWithTax: slot.PriceWithTax,
			Rank:         slot.Rank,
			Level:        slot.Level.String(),
			Forced:       slot.Forced,
		})
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "hour"}},
		UpdateAll: true,
	}).Create(&entries).Error
}

func (s *Store) Schedule(ctx context.Context, date time.Time) ([]ScheduleEntry, error) {
	var entries []ScheduleEntry
	err := s.db.WithContext(ctx).
		Where("date = ?", date.Format("2006-01-02")).
		Order("hour").
		Find(&entries).Error
	return entries, err
}

func (s *Store) SaveReading(ctx context.Context, r Reading) error {
	return s.db.WithContext(ctx).Create(&r).Error
}

func (s *Store) Readings(ctx context.Context, from, to time.Time) ([]Reading, error) {
	var readings []Reading
	err := s.db.WithContext(ctx).
		Where("time >= ? AND time < ?", from, to).
		Order("time").
		Find(&readings).Error
	return readings, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
