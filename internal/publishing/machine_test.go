package publishing

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draftRoot(langs ...string) Root {
	s := Snapshot{ID: "v1", Status: StatusDraft, Minor: 1}
	for _, l := range langs {
		s.Languages = append(s.Languages, LanguageState{Code: l, Status: LanguageDraft})
	}

	return Root{ID: "root", Snapshots: []Snapshot{s}}
}

func languages(s Snapshot) map[string]LanguageStatus {
	out := make(map[string]LanguageStatus)
	for _, l := range s.Languages {
		out[l.Code] = l.Status
	}

	return out
}

func count(effects []Effect, kind EffectKind) int {
	n := 0
	for _, e := range effects {
		if e.Kind == kind {
			n++
		}
	}

	return n
}

func mustApply(t *testing.T, root Root, ev Event) (Root, []Effect) {
	t.Helper()
	next, effects, err := Apply(root, ev)
	require.NoError(t, err)
	require.NoError(t, Validate(next))

	return next, effects
}

func TestApply_PublishDraft(t *testing.T) {
	root := draftRoot("fi", "sv")

	next, effects := mustApply(t, root, Event{Action: ActionPublish, SnapshotID: "v1"})

	assert.Equal(t, StatusPublished, next.Snapshots[0].Status)
	assert.Equal(t, map[string]LanguageStatus{"fi": LanguagePublished, "sv": LanguagePublished}, languages(next.Snapshots[0]))
	assert.Equal(t, 1, count(effects, EffectStatusChanged))
	assert.Equal(t, 1, count(effects, EffectBumpMajor))
	assert.Equal(t, 0, count(effects, EffectRemoveNotCommonConnections))

	// the input root is left untouched
	assert.Equal(t, StatusDraft, root.Snapshots[0].Status)
}

func TestApply_PublishSupersedesPublished(t *testing.T) {
	root := draftRoot("fi")
	root, _ = mustApply(t, root, Event{Action: ActionPublish, SnapshotID: "v1"})
	root, _ = mustApply(t, root, Event{Action: ActionSave, SnapshotID: "v2", Languages: []string{"fi"}})

	v2 := root.Snapshots[root.Find("v2")]
	assert.Equal(t, StatusModified, v2.Status)
	assert.Equal(t, LanguageModified, languages(v2)["fi"])

	next, _ := mustApply(t, root, Event{Action: ActionPublish, SnapshotID: "v2"})
	v1 := next.Snapshots[next.Find("v1")]
	assert.Equal(t, StatusOldPublished, v1.Status)
	assert.Equal(t, LanguageOutdatedPublished, languages(v1)["fi"])
	assert.Equal(t, "v2", next.Snapshots[next.Published()].ID)
}

func TestApply_PublishTwice(t *testing.T) {
	root, _ := mustApply(t, draftRoot("fi"), Event{Action: ActionPublish, SnapshotID: "v1"})

	again, effects, err := Apply(root, Event{Action: ActionPublish, SnapshotID: "v1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidStateTransition))
	assert.Nil(t, effects)
	assert.Equal(t, root, again)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StatusPublished, te.Current)
	assert.Equal(t, ActionPublish, te.Requested)
}

func TestApply_WithdrawPublishRoundTrip(t *testing.T) {
	root := draftRoot("fi", "sv", "en")
	root, _ = mustApply(t, root, Event{Action: ActionArchiveLanguage, SnapshotID: "v1", Language: "en"})

	published, _ := mustApply(t, root, Event{Action: ActionPublish, SnapshotID: "v1"})
	withdrawn, _ := mustApply(t, published, Event{Action: ActionWithdraw, SnapshotID: "v1"})
	assert.Equal(t, StatusDraft, withdrawn.Snapshots[0].Status)
	assert.Equal(t, LanguageWithdrawn, languages(withdrawn.Snapshots[0])["fi"])

	again, _ := mustApply(t, withdrawn, Event{Action: ActionPublish, SnapshotID: "v1"})
	assert.Equal(t, StatusPublished, again.Snapshots[0].Status)
	assert.Equal(t, published.Snapshots[0].PublishedLanguages(), again.Snapshots[0].PublishedLanguages())
	assert.Equal(t, LanguageArchived, languages(again.Snapshots[0])["en"])
}

func TestApply_WithdrawWithEditableSibling(t *testing.T) {
	root, _ := mustApply(t, draftRoot("fi"), Event{Action: ActionPublish, SnapshotID: "v1"})
	root, _ = mustApply(t, root, Event{Action: ActionSave, SnapshotID: "v2"})

	_, _, err := Apply(root, Event{Action: ActionWithdraw, SnapshotID: "v1"})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestApply_Languages(t *testing.T) {
	tests := []struct {
		name      string
		langs     []string
		action    Action
		language  string
		status    Status
		languages map[string]LanguageStatus
	}{
		{
			name:      "archive one of two languages keeps the version published",
			langs:     []string{"fi", "sv"},
			action:    ActionArchiveLanguage,
			language:  "sv",
			status:    StatusPublished,
			languages: map[string]LanguageStatus{"fi": LanguagePublished, "sv": LanguageArchived},
		},
		{
			name:      "archive the last language archives the version",
			langs:     []string{"fi"},
			action:    ActionArchiveLanguage,
			language:  "fi",
			status:    StatusArchived,
			languages: map[string]LanguageStatus{"fi": LanguageArchived},
		},
		{
			name:      "withdraw one language",
			langs:     []string{"fi", "sv"},
			action:    ActionWithdrawLanguage,
			language:  "fi",
			status:    StatusPublished,
			languages: map[string]LanguageStatus{"fi": LanguageWithdrawn, "sv": LanguagePublished},
		},
		{
			name:      "withdraw the last language archives the version",
			langs:     []string{"sv"},
			action:    ActionWithdrawLanguage,
			language:  "sv",
			status:    StatusArchived,
			languages: map[string]LanguageStatus{"sv": LanguageWithdrawn},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, _ := mustApply(t, draftRoot(tt.langs...), Event{Action: ActionPublish, SnapshotID: "v1"})

			next, effects := mustApply(t, root, Event{Action: tt.action, SnapshotID: "v1", Language: tt.language})
			assert.Equal(t, tt.status, next.Snapshots[0].Status)
			assert.Equal(t, tt.languages, languages(next.Snapshots[0]))

			if tt.status == StatusArchived {
				require.Equal(t, 1, count(effects, EffectStatusChanged))
				for _, e := range effects {
					if e.Kind == EffectStatusChanged {
						assert.True(t, e.Forced)
						assert.Equal(t, StatusPublished, e.Prior.Status)
					}
				}
			}
		})
	}
}

func TestApply_ArchiveLastLanguageOfModified(t *testing.T) {
	root, _ := mustApply(t, draftRoot("fi"), Event{Action: ActionPublish, SnapshotID: "v1"})
	root, _ = mustApply(t, root, Event{Action: ActionSave, SnapshotID: "v2"})
	require.Equal(t, StatusModified, root.Snapshots[root.Find("v2")].Status)

	next, _ := mustApply(t, root, Event{Action: ActionArchiveLanguage, SnapshotID: "v2", Language: "fi"})
	assert.Equal(t, StatusArchived, next.Snapshots[next.Find("v2")].Status)
	assert.Equal(t, StatusPublished, next.Snapshots[next.Find("v1")].Status)
	assert.Equal(t, []string{"fi"}, next.Snapshots[next.Find("v1")].PublishedLanguages())
}

func TestApply_RestoreLanguage(t *testing.T) {
	root, _ := mustApply(t, draftRoot("fi", "sv"), Event{Action: ActionPublish, SnapshotID: "v1"})
	root, _ = mustApply(t, root, Event{Action: ActionArchiveLanguage, SnapshotID: "v1", Language: "sv"})

	next, _ := mustApply(t, root, Event{Action: ActionRestoreLanguage, SnapshotID: "v1", Language: "sv"})
	assert.Equal(t, LanguagePublished, languages(next.Snapshots[0])["sv"])

	_, _, err := Apply(next, Event{Action: ActionRestoreLanguage, SnapshotID: "v1", Language: "sv"})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, _, err = Apply(next, Event{Action: ActionArchiveLanguage, SnapshotID: "v1", Language: "de"})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestApply_ArchiveAndRestore(t *testing.T) {
	root, _ := mustApply(t, draftRoot("fi", "sv"), Event{Action: ActionPublish, SnapshotID: "v1"})
	root, _ = mustApply(t, root, Event{Action: ActionSave, SnapshotID: "v2"})

	archived, effects := mustApply(t, root, Event{Action: ActionArchive, SnapshotID: "v1"})
	assert.Equal(t, StatusArchived, archived.Snapshots[archived.Find("v1")].Status)
	assert.Equal(t, StatusDraft, archived.Snapshots[archived.Find("v2")].Status)

	var prior *PriorState
	for _, e := range effects {
		if e.Kind == EffectStatusChanged && e.SnapshotID == "v1" {
			prior = e.Prior
		}
	}
	require.NotNil(t, prior)

	restored, _ := mustApply(t, archived, Event{Action: ActionRestore, SnapshotID: "v1", Prior: prior})
	assert.Equal(t, StatusPublished, restored.Snapshots[restored.Find("v1")].Status)
	assert.Equal(t, map[string]LanguageStatus{"fi": LanguagePublished, "sv": LanguagePublished}, languages(restored.Snapshots[restored.Find("v1")]))
	assert.Equal(t, StatusModified, restored.Snapshots[restored.Find("v2")].Status)

	// without a recorded prior state v1 would come back as a second draft
	_, _, err := Apply(archived, Event{Action: ActionRestore, SnapshotID: "v1"})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestApply_DeleteAndRemove(t *testing.T) {
	root, _ := mustApply(t, draftRoot("fi"), Event{Action: ActionPublish, SnapshotID: "v1"})

	deleted, _ := mustApply(t, root, Event{Action: ActionDelete, SnapshotID: "v1"})
	assert.Equal(t, StatusDeleted, deleted.Snapshots[0].Status)
	assert.Equal(t, LanguageArchived, languages(deleted.Snapshots[0])["fi"])

	_, _, err := Apply(deleted, Event{Action: ActionDelete, SnapshotID: "v1"})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	removed, _ := mustApply(t, deleted, Event{Action: ActionRemove, SnapshotID: "v1"})
	assert.Equal(t, StatusRemoved, removed.Snapshots[0].Status)

	for _, action := range []Action{ActionPublish, ActionRestore, ActionArchive, ActionRemove} {
		_, _, err := Apply(removed, Event{Action: action, SnapshotID: "v1"})
		assert.ErrorIs(t, err, ErrInvalidStateTransition, action)
	}
}

func TestApply_RestoreReinstatesPrior(t *testing.T) {
	root, _ := mustApply(t, draftRoot("fi", "sv"), Event{Action: ActionPublish, SnapshotID: "v1"})
	root, _ = mustApply(t, root, Event{Action: ActionSave, SnapshotID: "v2"})
	root, _ = mustApply(t, root, Event{Action: ActionPublish, SnapshotID: "v2"})
	root, _ = mustApply(t, root, Event{Action: ActionSave, SnapshotID: "v3"})
	root, _ = mustApply(t, root, Event{Action: ActionDelete, SnapshotID: "v1"})

	prior := &PriorState{
		Status:    StatusOldPublished,
		Languages: map[string]LanguageStatus{"fi": LanguageOutdatedPublished, "sv": LanguageArchived},
	}
	next, _ := mustApply(t, root, Event{Action: ActionRestore, SnapshotID: "v1", Prior: prior})
	assert.Equal(t, StatusOldPublished, next.Snapshots[next.Find("v1")].Status)
	assert.Equal(t, map[string]LanguageStatus{"fi": LanguageOutdatedPublished, "sv": LanguageArchived}, languages(next.Snapshots[next.Find("v1")]))
	assert.Equal(t, StatusPublished, next.Snapshots[next.Find("v2")].Status)
	assert.Equal(t, StatusModified, next.Snapshots[next.Find("v3")].Status)

	archived, _ := mustApply(t, root, Event{Action: ActionRestore, SnapshotID: "v1", Prior: &PriorState{Status: StatusArchived}})
	assert.Equal(t, StatusArchived, archived.Snapshots[archived.Find("v1")].Status)

	_, _, err := Apply(archived, Event{Action: ActionRestore, SnapshotID: "v1", Prior: &PriorState{Status: StatusArchived}})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestApply_DropNotCommonConnections(t *testing.T) {
	_, effects := mustApply(t, draftRoot("fi"), Event{
		Action:     ActionPublish,
		SnapshotID: "v1",
		Policy:     Policy{DropNotCommonConnections: true},
	})
	assert.Equal(t, 1, count(effects, EffectRemoveNotCommonConnections))
}

func TestApply_UnknownSnapshot(t *testing.T) {
	_, _, err := Apply(draftRoot("fi"), Event{Action: ActionPublish, SnapshotID: "missing"})
	assert.ErrorIs(t, err, ErrSnapshotNotInRoot)
}

func TestApply_SaveRules(t *testing.T) {
	empty := Root{ID: "root"}
	_, _, err := Apply(empty, Event{Action: ActionSave, SnapshotID: "v1"})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	root, effects := mustApply(t, empty, Event{Action: ActionSave, SnapshotID: "v1", Languages: []string{"fi"}})
	assert.Equal(t, StatusDraft, root.Snapshots[0].Status)
	assert.Equal(t, 1, count(effects, EffectSnapshotCreated))

	root, _ = mustApply(t, root, Event{Action: ActionSave, SnapshotID: "v1", Languages: []string{"sv"}})
	assert.Equal(t, map[string]LanguageStatus{"fi": LanguageDraft, "sv": LanguageDraft}, languages(root.Snapshots[0]))

	_, _, err = Apply(root, Event{Action: ActionSave, SnapshotID: "v2"})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

// TestApply_RandomSequences drives random transitions and checks that the invariants
// hold after every accepted step.
func TestApply_RandomSequences(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	actions := []Action{
		ActionSave, ActionPublish, ActionWithdraw, ActionArchive, ActionDelete, ActionRemove,
		ActionRestore, ActionArchiveLanguage, ActionRestoreLanguage, ActionWithdrawLanguage,
	}
	codes := []string{"fi", "sv", "en"}

	for run := 0; run < 50; run++ {
		root := draftRoot("fi", "sv")
		ids := []string{"v1"}
		priors := make(map[string]*PriorState)

		for step := 0; step < 60; step++ {
			ev := Event{
				Action:     actions[rnd.Intn(len(actions))],
				SnapshotID: ids[rnd.Intn(len(ids))],
				Language:   codes[rnd.Intn(len(codes))],
			}
			if ev.Action == ActionSave && rnd.Intn(2) == 0 {
				ev.SnapshotID = "v" + string(rune('a'+len(ids)))
				ev.Languages = []string{ev.Language}
			}
			ev.Prior = priors[ev.SnapshotID]

			next, effects, err := Apply(root, ev)
			if err != nil {
				require.True(t, errors.Is(err, ErrInvalidStateTransition), "unexpected error: %v", err)
				continue
			}
			require.NoError(t, Validate(next))

			for _, e := range effects {
				if e.Kind == EffectSnapshotCreated {
					ids = append(ids, e.SnapshotID)
				}
				if e.Kind == EffectStatusChanged && (e.To == string(StatusArchived) || e.To == string(StatusDeleted)) {
					priors[e.SnapshotID] = e.Prior
				}
			}
			root = next
		}
	}
}
