package services

import (
	"testing"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStoreGetNotFound(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))

	_, err := store.Get("missing")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestStoreCreateAndGet(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))
	tournament := newTestTournament(2, 1)

	require.NoError(t, store.Create(tournament))

	loaded, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, "Test Open", loaded.Name)
	assert.Len(t, loaded.Participants, 4)
	assert.Equal(t, 2, loaded.CurrentDebaters)
}

func TestStoreUpdatePersistsAndBumpsVersion(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))
	require.NoError(t, store.Create(newTestTournament(2, 1)))

	updated, err := store.Update("t1", func(tx *gorm.DB, tr *models.Tournament) error {
		tr.Name = "Renamed Open"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)

	loaded, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Open", loaded.Name)
	assert.Equal(t, int64(1), loaded.Version)
}

func TestStoreUpdateDomainErrorRollsBack(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))
	require.NoError(t, store.Create(newTestTournament(2, 1)))

	_, err := store.Update("t1", func(tx *gorm.DB, tr *models.Tournament) error {
		tr.Name = "should not persist"
		return ValidationError("nope")
	})
	assert.Equal(t, KindValidation, KindOf(err))

	loaded, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, "Test Open", loaded.Name)
	assert.Equal(t, int64(0), loaded.Version, "failed update must not bump the version")
}

func TestStoreUpdateVersionConflictRetriesThenFails(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))
	require.NoError(t, store.Create(newTestTournament(2, 1)))

	// The mutate shifts the stored version through tx on every attempt, so
	// the guarded write always sees a stale row.
	attempts := 0
	_, err := store.Update("t1", func(tx *gorm.DB, tr *models.Tournament) error {
		attempts++
		return tx.Model(&models.Tournament{}).
			Where("id = ?", tr.ID).
			Update("version", tr.Version+100).Error
	})

	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, updateRetries, attempts, "every attempt should re-run the mutate")
}

func TestStoreUpdateNotFound(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))

	_, err := store.Update("missing", func(tx *gorm.DB, tr *models.Tournament) error {
		return nil
	})
	assert.Equal(t, KindNotFound, KindOf(err))
}
