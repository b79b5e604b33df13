package database

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"
	"gorm.io/gorm"

	"github.com/pterodactyl/hangar/internal/models"
)

// ActivityStore persists activity events to the local database.
type ActivityStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewActivityStore returns an ActivityStore backed by the given database.
func NewActivityStore(db *gorm.DB) *ActivityStore {
	return &ActivityStore{db: db, timeout: time.Second * 3}
}

// Create stores a single activity entry and waits for it to be written.
func (s *ActivityStore) Create(ctx context.Context, a *models.Activity) error {
	if tx := s.db.WithContext(ctx).Create(a); tx.Error != nil {
		return errors.WithStack(tx.Error)
	}
	return nil
}

// SaveActivity saves an activity entry to the database in a background routine. If an error is
// encountered it is logged but not returned to the caller.
func (s *ActivityStore) SaveActivity(a *models.Activity) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	go func() {
		defer cancel()
		if err := s.Create(ctx, a); err != nil {
			log.WithField("subsystem", "activity").
				WithField("error", err).
				WithField("event", a.Event).
				Error("activity: failed to save event")
		}
	}()
}

// Recent returns the most recent activity entries, newest first. If a user is
// provided only entries for that user are returned.
func (s *ActivityStore) Recent(ctx context.Context, user string, limit int) ([]models.Activity, error) {
	var out []models.Activity
	q := s.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").Limit(limit)
	if user != "" {
		q = q.Where("user = ?", user)
	}
	if tx := q.Find(&out); tx.Error != nil {
		return nil, errors.WithStack(tx.Error)
	}
	return out, nil
}

// Prune deletes all activity entries older than the provided time and returns
// the number of entries removed.
func (s *ActivityStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tx := s.db.WithContext(ctx).Where("timestamp < ?", before.UTC()).Delete(&models.Activity{})
	if tx.Error != nil {
		return 0, errors.Wrap(tx.Error, "database: failed to prune activity")
	}
	return tx.RowsAffected, nil
}
