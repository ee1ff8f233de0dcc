package publishing

import "time"

// DueAction returns the scheduled action that is due for a snapshot at now, or an empty
// action. Archiving wins when both the validity end and the publish time have passed.
func DueAction(status Status, validFrom, validTo *time.Time, now time.Time) Action {
	if validTo != nil && !now.Before(*validTo) && status.Archivable() {
		return ActionScheduleArchive
	}

	if validFrom != nil && !now.Before(*validFrom) && status.Editable() {
		return ActionSchedulePublish
	}

	return ""
}
