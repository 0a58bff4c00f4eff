package repository

import (
	"time"

	"github.com/google/uuid"
)

// Record is the entity length a server last reported for a resource.
type Record struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	EntityLength int64     `json:"entityLength"`
	ConfirmedAt  time.Time `json:"confirmedAt"`
}

// RecordID derives the stable ID of the record for rawURL.
func RecordID(rawURL string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawURL))
}

type Repository interface {
	Save(record *Record) error
	Find(id uuid.UUID) (*Record, error)
	FindAll() ([]*Record, error)
	Delete(id uuid.UUID) error
	Confirm(rawURL string, entityLength int64) (int64, error)
	Close() error
}
