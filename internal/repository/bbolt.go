package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	reqErrors "github.com/NamanBalaji/segreq/internal/errors"
	"github.com/NamanBalaji/segreq/internal/logger"
)

const (
	resourcesBucket = "resources"
	metadataBucket  = "metadata"
	schemaVersion   = 1
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrNilRecord      = errors.New("cannot save nil record")
	ErrEmptyID        = errors.New("record ID cannot be empty")
	ErrEmptyURL       = errors.New("record URL cannot be empty")
)

// BboltRepository stores confirmed entity lengths in a bbolt file.
type BboltRepository struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ Repository = (*BboltRepository)(nil)

func NewBboltRepository(dbPath string) (*BboltRepository, error) {
	options := &bbolt.Options{
		Timeout: 1 * time.Second,
	}

	db, err := bbolt.Open(dbPath, 0o600, options)
	if err != nil {
		return nil, reqErrors.NewStateError(fmt.Errorf("failed to open database: %w", err), dbPath)
	}

	repo := &BboltRepository{
		db:  db,
		now: time.Now,
	}

	if err := repo.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debugf("Opened state database %s", dbPath)

	return repo, nil
}

func (r *BboltRepository) initialize() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(resourcesBucket))
		if err != nil {
			return fmt.Errorf("failed to create resources bucket: %w", err)
		}

		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}

		err = meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion)))
		if err != nil {
			return fmt.Errorf("failed to store schema version: %w", err)
		}

		return nil
	})
}

// Save persists record, deriving its ID from the URL when unset.
func (r *BboltRepository) Save(record *Record) error {
	if record == nil {
		return ErrNilRecord
	}

	if record.URL == "" {
		return ErrEmptyURL
	}

	if record.ID == uuid.Nil {
		record.ID = RecordID(record.URL)
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, record)
	})
}

func (r *BboltRepository) Find(id uuid.UUID) (*Record, error) {
	if id == uuid.Nil {
		return nil, ErrEmptyID
	}

	var record *Record
	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		record, err = get(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *BboltRepository) FindAll() ([]*Record, error) {
	var records []*Record

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(resourcesBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", resourcesBucket)
		}

		return bucket.ForEach(func(_, v []byte) error {
			record := &Record{}
			if err := json.Unmarshal(v, record); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}

			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *BboltRepository) Delete(id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrEmptyID
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(resourcesBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", resourcesBucket)
		}

		if bucket.Get([]byte(id.String())) == nil {
			return ErrRecordNotFound
		}

		return bucket.Delete([]byte(id.String()))
	})
}

// Confirm returns the entity length already recorded for rawURL. On first
// sight it stores entityLength and returns it. A zero entityLength is never
// stored.
func (r *BboltRepository) Confirm(rawURL string, entityLength int64) (int64, error) {
	if rawURL == "" {
		return 0, ErrEmptyURL
	}

	id := RecordID(rawURL)
	var confirmed int64

	err := r.db.Update(func(tx *bbolt.Tx) error {
		record, err := get(tx, id)
		switch {
		case err == nil:
			confirmed = record.EntityLength
			return nil
		case !errors.Is(err, ErrRecordNotFound):
			return err
		}

		confirmed = entityLength
		if entityLength <= 0 {
			return nil
		}

		return put(tx, &Record{
			ID:           id,
			URL:          rawURL,
			EntityLength: entityLength,
			ConfirmedAt:  r.now().UTC(),
		})
	})
	if err != nil {
		return 0, err
	}

	if confirmed != entityLength {
		logger.Warnf("Entity length for %s changed: recorded %d, reported %d", rawURL, confirmed, entityLength)
	}

	return confirmed, nil
}

func (r *BboltRepository) Close() error {
	return r.db.Close()
}

func put(tx *bbolt.Tx, record *Record) error {
	bucket := tx.Bucket([]byte(resourcesBucket))
	if bucket == nil {
		return fmt.Errorf("bucket not found: %s", resourcesBucket)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := bucket.Put([]byte(record.ID.String()), data); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

func get(tx *bbolt.Tx, id uuid.UUID) (*Record, error) {
	bucket := tx.Bucket([]byte(resourcesBucket))
	if bucket == nil {
		return nil, fmt.Errorf("bucket not found: %s", resourcesBucket)
	}

	data := bucket.Get([]byte(id.String()))
	if data == nil {
		return nil, ErrRecordNotFound
	}

	record := &Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return record, nil
}
