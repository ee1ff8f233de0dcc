// Package publishing implements the publishing lifecycle state machine shared by every
// entity family. It is pure: Apply takes the current state of a root and an event and
// returns the next state plus the side effects the caller has to carry out. Persistence
// is handled elsewhere.
package publishing

// Status is the overall publishing status of a snapshot.
type Status string

const (
	StatusDraft        Status = "Draft"
	StatusPublished    Status = "Published"
	StatusModified     Status = "Modified"
	StatusOldPublished Status = "OldPublished"
	StatusDeleted      Status = "Deleted"
	StatusRemoved      Status = "Removed"
	StatusArchived     Status = "Archived"
)

// Editable reports whether the snapshot is the working copy of its root.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusModified
}

// Archivable reports whether the snapshot may be archived or expired.
func (s Status) Archivable() bool {
	return s == StatusDraft || s == StatusPublished || s == StatusModified
}

// Restorable reports whether Restore may be applied.
func (s Status) Restorable() bool {
	return s == StatusDeleted || s == StatusArchived
}

// LanguageStatus is the publication sub-state of one language of a snapshot.
type LanguageStatus string

const (
	LanguageDraft             LanguageStatus = "Draft"
	LanguagePublished         LanguageStatus = "Published"
	LanguageModified          LanguageStatus = "Modified"
	LanguageOutdatedPublished LanguageStatus = "OutdatedPublished"
	LanguageArchived          LanguageStatus = "Archived"
	LanguageWithdrawn         LanguageStatus = "Withdrawn"
)

// Active reports whether the language still counts as available content.
func (s LanguageStatus) Active() bool {
	return s == LanguageDraft || s == LanguagePublished || s == LanguageModified
}

// Action is a requested transition.
type Action string

const (
	ActionSave             Action = "Save"
	ActionPublish          Action = "Publish"
	ActionSchedulePublish  Action = "SchedulePublish"
	ActionWithdraw         Action = "Withdraw"
	ActionArchive          Action = "Archive"
	ActionScheduleArchive  Action = "ScheduleArchive"
	ActionExpire           Action = "Expire"
	ActionDelete           Action = "Delete"
	ActionRemove           Action = "Remove"
	ActionRestore          Action = "Restore"
	ActionArchiveLanguage  Action = "ArchiveLanguage"
	ActionRestoreLanguage  Action = "RestoreLanguage"
	ActionWithdrawLanguage Action = "WithdrawLanguage"
	ActionCopy             Action = "Copy"
)

// requested returns the overall status an action aims for, used in error reports.
func (a Action) requested() Status {
	switch a {
	case ActionPublish, ActionSchedulePublish:
		return StatusPublished
	case ActionWithdraw:
		return StatusDraft
	case ActionArchive, ActionScheduleArchive, ActionExpire:
		return StatusArchived
	case ActionDelete:
		return StatusDeleted
	case ActionRemove:
		return StatusRemoved
	}

	return ""
}
