package services

import (
	"errors"
	"log"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"gorm.io/gorm"
)

// Tournaments are read whole, mutated in memory and written back whole, so
// two concurrent writers would silently clobber each other on a plain save.
// TournamentStore guards every write with a version check: the UPDATE only
// lands when the row still carries the version we read, otherwise the whole
// mutation is retried against a fresh copy.
type TournamentStore struct {
	DB *gorm.DB
}

func NewTournamentStore(db *gorm.DB) *TournamentStore {
	return &TournamentStore{DB: db}
}

const updateRetries = 3

var errStaleVersion = errors.New("tournament version changed during update")

// Get loads the whole aggregate.
func (s *TournamentStore) Get(id string) (*models.Tournament, error) {
	var t models.Tournament
	if err := s.DB.First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("tournament %s not found", id)
		}
		return nil, err
	}
	return &t, nil
}

// Create inserts a new aggregate row.
func (s *TournamentStore) Create(t *models.Tournament) error {
	return s.DB.Create(t).Error
}

// Update runs mutate against a freshly loaded aggregate inside a transaction
// and writes it back guarded by the version read. Domain errors from mutate
// abort immediately; a lost version race rolls back (including any rows
// mutate created through tx) and retries. The mutate func must therefore be
// safe to re-run.
func (s *TournamentStore) Update(id string, mutate func(tx *gorm.DB, t *models.Tournament) error) (*models.Tournament, error) {
	var result *models.Tournament
	for attempt := 0; attempt < updateRetries; attempt++ {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			var t models.Tournament
			if err := tx.First(&t, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return NotFoundError("tournament %s not found", id)
				}
				return err
			}

			if err := mutate(tx, &t); err != nil {
				return err
			}

			loaded := t.Version
			t.Version++
			res := tx.Model(&models.Tournament{}).
				Where("id = ? AND version = ?", t.ID, loaded).
				Select("*").Omit("id", "created_at").
				Updates(&t)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleVersion
			}
			result = &t
			return nil
		})
		if errors.Is(err, errStaleVersion) {
			log.Printf("[STORE] version conflict on tournament %s, retrying (%d/%d)", id, attempt+1, updateRetries)
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, ConflictError("tournament %s is being modified concurrently, try again", id)
}
