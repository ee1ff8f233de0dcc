package publishing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDueAction(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		status    Status
		validFrom *time.Time
		validTo   *time.Time
		want      Action
	}{
		{name: "nothing scheduled", status: StatusDraft},
		{name: "publish time reached", status: StatusDraft, validFrom: &past, want: ActionSchedulePublish},
		{name: "publish time reached on modified", status: StatusModified, validFrom: &now, want: ActionSchedulePublish},
		{name: "publish time in the future", status: StatusDraft, validFrom: &future},
		{name: "already published", status: StatusPublished, validFrom: &past},
		{name: "validity ended", status: StatusPublished, validTo: &past, want: ActionScheduleArchive},
		{name: "archive wins over publish", status: StatusDraft, validFrom: &past, validTo: &past, want: ActionScheduleArchive},
		{name: "archived versions are left alone", status: StatusArchived, validTo: &past},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DueAction(tt.status, tt.validFrom, tt.validTo, now))
		})
	}
}

func TestSortBatch(t *testing.T) {
	items := []Ordered{
		{RootID: "b", SnapshotID: "b2", Major: 2},
		{RootID: "a", SnapshotID: "a3", Major: 1, Minor: 1},
		{RootID: "b", SnapshotID: "b1", Major: 1, Minor: 4},
		{RootID: "a", SnapshotID: "a1", Minor: 3},
		{RootID: "a", SnapshotID: "a2", Major: 1},
	}

	SortBatch(items)

	var ids []string
	for _, item := range items {
		ids = append(ids, item.SnapshotID)
	}
	assert.Equal(t, []string{"a1", "a2", "a3", "b1", "b2"}, ids)
}
