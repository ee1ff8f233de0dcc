package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emrgen/servicecatalog/internal/compress"
	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/publishing"
	"github.com/emrgen/servicecatalog/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreateHistoryMetaData appends a history entry. With forceUpdate the latest entry of the
// same version and action is overwritten instead; repair tooling uses this.
func (s *PublishingService) CreateHistoryMetaData(ctx context.Context, entry *model.HistoryMetaData, forceUpdate bool) error {
	if entry.EntityVersionID == "" || entry.Action == "" {
		return fmt.Errorf("%w: history entry needs a version and an action", ErrInvalidArgument)
	}
	if entry.ModifiedAt.IsZero() {
		entry.ModifiedAt = s.now()
	}

	if forceUpdate {
		latest, err := s.store.GetLatestHistory(ctx, entry.EntityVersionID, entry.Action)
		switch {
		case err == nil:
			entry.ID = latest.ID
			entry.CreatedAt = latest.CreatedAt
			logrus.Infof("overwriting history entry %s of version %s", latest.ID, entry.EntityVersionID)
			return s.store.UpdateHistory(ctx, entry)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	return s.store.CreateHistory(ctx, entry)
}

// UpdateHistoryMetaData shifts the modified timestamp of a version and of its latest
// history entry without recording a new entry.
func (s *PublishingService) UpdateHistoryMetaData(ctx context.Context, family domain.Family, versionID string, modifiedAt time.Time) error {
	return s.store.Transaction(ctx, func(tx store.Store) error {
		v, err := tx.GetVersion(ctx, family, versionID)
		if err != nil {
			return err
		}
		v.ModifiedAt = modifiedAt
		if err := tx.UpdateVersion(ctx, family, v); err != nil {
			return err
		}

		latest, err := tx.GetLatestHistory(ctx, versionID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		latest.ModifiedAt = modifiedAt

		return tx.UpdateHistory(ctx, latest)
	})
}

// ListHistory returns the history of a version, newest first.
func (s *PublishingService) ListHistory(ctx context.Context, versionID string) ([]*model.HistoryMetaData, error) {
	return s.store.ListHistory(ctx, versionID)
}

// DecodeHistorySnapshot returns the state recorded in a history entry, or nil when the
// entry carries none.
func DecodeHistorySnapshot(entry *model.HistoryMetaData) (*publishing.PriorState, error) {
	if len(entry.Snapshot) == 0 {
		return nil, nil
	}

	codec, err := compress.New(entry.Compression)
	if err != nil {
		return nil, err
	}
	data, err := codec.Decode(entry.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("decode history entry %s: %w", entry.ID, err)
	}

	var prior publishing.PriorState
	if err := json.Unmarshal(data, &prior); err != nil {
		return nil, fmt.Errorf("decode history entry %s: %w", entry.ID, err)
	}

	return &prior, nil
}

// priorState reads the state the version had before it reached its current status.
func (s *PublishingService) priorState(ctx context.Context, tx store.Store, v *model.EntityVersion) (*publishing.PriorState, error) {
	entries, err := tx.ListHistory(ctx, v.ID)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.ToStatus != v.Status || len(entry.Snapshot) == 0 {
			continue
		}
		// a restore records the state it undid, not one to go back to
		if entry.Action == string(publishing.ActionRestore) {
			continue
		}
		return DecodeHistorySnapshot(entry)
	}

	logrus.Infof("no recorded prior state for version %s, restoring as draft", v.ID)

	return nil, nil
}
