package publishing

// Policy carries the per-call policy parameters of a transition.
type Policy struct {
	// DropNotCommonConnections requests removal of cross-organization connections
	// when the snapshot gets published.
	DropNotCommonConnections bool
}

// Event is a requested transition on one snapshot of a root.
type Event struct {
	Action     Action
	SnapshotID string
	// Language is the target of the per-language actions.
	Language string
	// Languages lists the languages touched by a Save.
	Languages []string
	// Prior is the state recorded before the snapshot was archived or deleted, used by Restore.
	Prior  *PriorState
	Policy Policy
}

// EffectKind enumerates the side effects a transition asks the caller to perform.
type EffectKind string

const (
	EffectSnapshotCreated            EffectKind = "SnapshotCreated"
	EffectStatusChanged              EffectKind = "StatusChanged"
	EffectLanguageChanged            EffectKind = "LanguageChanged"
	EffectBumpMajor                  EffectKind = "BumpMajor"
	EffectBumpMinor                  EffectKind = "BumpMinor"
	EffectRefreshExpiration          EffectKind = "RefreshExpiration"
	EffectRemoveNotCommonConnections EffectKind = "RemoveNotCommonConnections"
)

// Effect is one side effect of a transition.
type Effect struct {
	Kind       EffectKind
	SnapshotID string
	Language   string
	From       string
	To         string
	// Prior is set on status changes: the full state before the change.
	Prior *PriorState
	// Forced marks a status change caused by a per-language action.
	Forced bool
	// Source is the snapshot a created snapshot was copied from.
	Source string
}

// Changed returns the ids of the snapshots whose status or languages were changed.
func Changed(effects []Effect) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range effects {
		switch e.Kind {
		case EffectSnapshotCreated, EffectStatusChanged, EffectLanguageChanged:
			if _, ok := seen[e.SnapshotID]; !ok {
				seen[e.SnapshotID] = struct{}{}
				ids = append(ids, e.SnapshotID)
			}
		}
	}

	return ids
}
