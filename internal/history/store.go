// Package history keeps the bounded, durable record of past assessments.
package history

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cardiacai/riskengine/internal/assess"
	"github.com/cardiacai/riskengine/internal/features"
	"github.com/cardiacai/riskengine/internal/pkg/logger"
)

const DefaultCap = 20

// Entry is one persisted assessment. Entries are immutable once created;
// the snapshot and result are stored as JSON columns.
type Entry struct {
	ID        int64          `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Snapshot  datatypes.JSON `json:"snapshot"`
	Result    datatypes.JSON `json:"result"`
}

func (Entry) TableName() string { return "assessment_history" }

// Decode unpacks the JSON columns. Malformed rows return an error instead of
// panicking so callers can skip them.
func (e Entry) Decode() (features.Record, assess.Result, error) {
	var snapshot features.Record
	if err := json.Unmarshal(e.Snapshot, &snapshot); err != nil {
		return nil, assess.Result{}, fmt.Errorf("decode snapshot: %w", err)
	}
	var result assess.Result
	if err := json.Unmarshal(e.Result, &result); err != nil {
		return nil, assess.Result{}, fmt.Errorf("decode result: %w", err)
	}
	return snapshot, result, nil
}

// Store owns the history table. All mutations are transactional: an append
// and its cap eviction land together or not at all.
type Store struct {
	db  *gorm.DB
	cap int
	log *logger.Logger

	mu     sync.Mutex
	lastID int64
}

func NewStore(db *gorm.DB, capSize int, log *logger.Logger) (*Store, error) {
	if capSize <= 0 {
		capSize = DefaultCap
	}
	if log == nil {
		log = logger.Nop()
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		// A corrupt table must not block startup; reset and start empty.
		log.Warn("history table migration failed, resetting", "error", err)
		if dropErr := db.Migrator().DropTable(&Entry{}); dropErr != nil {
			return nil, fmt.Errorf("reset history table: %w", dropErr)
		}
		if err := db.AutoMigrate(&Entry{}); err != nil {
			return nil, fmt.Errorf("migrate history table: %w", err)
		}
	}

	return &Store{
		db:  db,
		cap: capSize,
		log: log.With("component", "history"),
	}, nil
}

func (s *Store) Cap() int { return s.cap }

// nextID returns a creation-time token that is strictly increasing even when
// two appends land within the same nanosecond tick.
func (s *Store) nextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := time.Now().UnixNano()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Append records an assessment and evicts the oldest entries beyond the cap.
func (s *Store) Append(snapshot features.Record, result assess.Result) (Entry, error) {
	snapJSON, err := json.Marshal(snapshot)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	resJSON, err := json.Marshal(result)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal result: %w", err)
	}

	entry := Entry{
		ID:        s.nextID(),
		CreatedAt: time.Now().UTC(),
		Snapshot:  snapJSON,
		Result:    resJSON,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&Entry{}).Count(&count).Error; err != nil {
			return err
		}
		if excess := count - int64(s.cap); excess > 0 {
			sub := tx.Model(&Entry{}).Select("id").Order("id ASC").Limit(int(excess))
			if err := tx.Where("id IN (?)", sub).Delete(&Entry{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Entry{}, fmt.Errorf("append history: %w", err)
	}
	return entry, nil
}

// List returns entries most-recent-first. Rows that fail to decode are
// skipped, never fatal.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	if err := s.db.Order("id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	out := entries[:0]
	for _, e := range entries {
		if _, _, err := e.Decode(); err != nil {
			s.log.Warn("skipping malformed history entry", "id", e.ID, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) Get(id int64) (Entry, error) {
	var entry Entry
	if err := s.db.First(&entry, "id = ?", id).Error; err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *Store) Remove(id int64) error {
	res := s.db.Delete(&Entry{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("remove history entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) Clear() error {
	if err := s.db.Where("1 = 1").Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
