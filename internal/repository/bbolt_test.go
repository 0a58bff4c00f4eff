package repository_test

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reqErrors "github.com/NamanBalaji/segreq/internal/errors"
	"github.com/NamanBalaji/segreq/internal/repository"
)

const archiveURL = "http://localhost:8080/archives/aria2-1.0.0.tar.bz2"

func openRepo(t *testing.T) *repository.BboltRepository {
	t.Helper()
	repo, err := repository.NewBboltRepository(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNewBboltRepository_OpenError(t *testing.T) {
	_, err := repository.NewBboltRepository(t.TempDir())
	require.Error(t, err)
	assert.True(t, reqErrors.IsStateError(err))
}

func TestSaveInvalidRecord(t *testing.T) {
	repo := openRepo(t)

	assert.ErrorIs(t, repo.Save(nil), repository.ErrNilRecord)
	assert.ErrorIs(t, repo.Save(&repository.Record{}), repository.ErrEmptyURL)
}

func TestSaveFindAllDelete(t *testing.T) {
	repo := openRepo(t)

	list, err := repo.FindAll()
	require.NoError(t, err)
	assert.Empty(t, list)

	record := &repository.Record{URL: archiveURL, EntityLength: 10 * 1024 * 1024}
	require.NoError(t, repo.Save(record))
	assert.Equal(t, repository.RecordID(archiveURL), record.ID)

	found, err := repo.Find(record.ID)
	require.NoError(t, err)
	assert.Equal(t, archiveURL, found.URL)
	assert.Equal(t, record.EntityLength, found.EntityLength)

	list, err = repo.FindAll()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, record.ID, list[0].ID)

	assert.ErrorIs(t, repo.Delete(uuid.Nil), repository.ErrEmptyID)
	assert.ErrorIs(t, repo.Delete(uuid.New()), repository.ErrRecordNotFound)
	require.NoError(t, repo.Delete(record.ID))

	_, err = repo.Find(record.ID)
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)

	_, err = repo.Find(uuid.Nil)
	assert.ErrorIs(t, err, repository.ErrEmptyID)
}

func TestConfirm(t *testing.T) {
	repo := openRepo(t)

	got, err := repo.Confirm(archiveURL, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	list, err := repo.FindAll()
	require.NoError(t, err)
	assert.Empty(t, list, "unknown length must not be recorded")

	got, err = repo.Confirm(archiveURL, 4096)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), got)

	got, err = repo.Confirm(archiveURL, 8192)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), got, "first confirmed length wins")

	record, err := repo.Find(repository.RecordID(archiveURL))
	require.NoError(t, err)
	assert.False(t, record.ConfirmedAt.IsZero())

	_, err = repo.Confirm("", 1)
	assert.ErrorIs(t, err, repository.ErrEmptyURL)
}

func TestRecordIDStable(t *testing.T) {
	assert.Equal(t, repository.RecordID(archiveURL), repository.RecordID(archiveURL))
	assert.NotEqual(t, repository.RecordID(archiveURL), repository.RecordID(archiveURL+"?x=1"))
}

func TestCloseBehavior(t *testing.T) {
	repo, err := repository.NewBboltRepository(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	assert.Error(t, repo.Save(&repository.Record{URL: archiveURL}))

	_, err = repo.FindAll()
	assert.Error(t, err)

	assert.Error(t, repo.Delete(uuid.New()))

	_, err = repo.Confirm(archiveURL, 1)
	assert.Error(t, err)
}
