package publishing

// Apply computes the next state of root for the event and the effects the caller has to
// perform. The input root is never modified. On error the effects are nil.
func Apply(root Root, ev Event) (Root, []Effect, error) {
	t := &transition{root: root.Clone(), ev: ev}

	var err error
	if ev.Action == ActionSave || ev.Action == ActionCopy {
		err = t.save()
	} else {
		t.target = t.root.Find(ev.SnapshotID)
		if t.target < 0 {
			return root, nil, ErrSnapshotNotInRoot
		}

		switch ev.Action {
		case ActionPublish, ActionSchedulePublish:
			err = t.publish()
		case ActionWithdraw:
			err = t.withdraw()
		case ActionArchive, ActionScheduleArchive, ActionExpire:
			err = t.archive()
		case ActionDelete, ActionRemove:
			err = t.delete()
		case ActionRestore:
			err = t.restore()
		case ActionArchiveLanguage:
			err = t.archiveLanguage()
		case ActionRestoreLanguage:
			err = t.restoreLanguage()
		case ActionWithdrawLanguage:
			err = t.withdrawLanguage()
		default:
			err = t.reject("unsupported action")
		}
	}
	if err != nil {
		return root, nil, err
	}

	if err := Validate(t.root); err != nil {
		return root, nil, err
	}

	return t.root, t.effects, nil
}

type transition struct {
	root    Root
	ev      Event
	target  int
	effects []Effect
}

func (t *transition) snapshot() *Snapshot {
	return &t.root.Snapshots[t.target]
}

func (t *transition) reject(reason string) error {
	s := t.snapshot()
	return &TransitionError{
		SnapshotID: s.ID,
		Current:    s.Status,
		Requested:  t.ev.Action,
		Language:   t.ev.Language,
		Reason:     reason,
	}
}

func (t *transition) emit(e Effect) {
	t.effects = append(t.effects, e)
}

func (t *transition) setStatus(i int, to Status, prior *PriorState, forced bool) {
	s := &t.root.Snapshots[i]
	from := s.Status
	s.Status = to
	t.emit(Effect{
		Kind:       EffectStatusChanged,
		SnapshotID: s.ID,
		From:       string(from),
		To:         string(to),
		Prior:      prior,
		Forced:     forced,
	})
}

func (t *transition) setLanguage(i, j int, to LanguageStatus) {
	s := &t.root.Snapshots[i]
	from := s.Languages[j].Status
	if from == to {
		return
	}
	s.Languages[j].Status = to
	t.emit(Effect{
		Kind:       EffectLanguageChanged,
		SnapshotID: s.ID,
		Language:   s.Languages[j].Code,
		From:       string(from),
		To:         string(to),
	})
}

// save records an edit. The target either is the editable snapshot of the root, which
// receives a new minor version, or a new snapshot id that gets created from the latest one.
func (t *transition) save() error {
	if i := t.root.Find(t.ev.SnapshotID); i >= 0 {
		t.target = i
		s := t.snapshot()
		if !s.Status.Editable() {
			return t.reject("only the draft or modified version can be edited")
		}
		for _, code := range t.ev.Languages {
			j := s.Language(code)
			switch {
			case j < 0:
				s.Languages = append(s.Languages, LanguageState{Code: code, Status: LanguageDraft})
				t.emit(Effect{Kind: EffectLanguageChanged, SnapshotID: s.ID, Language: code, To: string(LanguageDraft)})
			case s.Languages[j].Status == LanguageWithdrawn || s.Languages[j].Status == LanguageArchived:
				t.setLanguage(t.target, j, LanguageDraft)
			}
		}
		t.emit(Effect{Kind: EffectBumpMinor, SnapshotID: s.ID})
		t.emit(Effect{Kind: EffectRefreshExpiration, SnapshotID: s.ID})

		return nil
	}

	if e := t.root.Editable(); e >= 0 {
		t.target = e
		return t.reject("root already has an editable version")
	}

	created := Snapshot{ID: t.ev.SnapshotID, Status: StatusDraft}
	if t.root.Published() >= 0 {
		created.Status = StatusModified
	}

	source := t.latest()
	if source >= 0 {
		src := &t.root.Snapshots[source]
		created.Major, created.Minor = src.Major, src.Minor
		for _, l := range src.Languages {
			status := LanguageDraft
			switch l.Status {
			case LanguagePublished:
				status = LanguageModified
			case LanguageArchived:
				status = LanguageArchived
			}
			created.Languages = append(created.Languages, LanguageState{Code: l.Code, Status: status})
		}
	}
	for _, code := range t.ev.Languages {
		if j := created.Language(code); j < 0 {
			created.Languages = append(created.Languages, LanguageState{Code: code, Status: LanguageDraft})
		} else if created.Languages[j].Status == LanguageArchived {
			created.Languages[j].Status = LanguageDraft
		}
	}
	if created.ActiveLanguages() == 0 {
		return &TransitionError{SnapshotID: created.ID, Requested: t.ev.Action, Reason: "a version needs at least one language"}
	}

	t.root.Snapshots = append(t.root.Snapshots, created)
	t.target = len(t.root.Snapshots) - 1
	from := ""
	if source >= 0 {
		from = t.root.Snapshots[source].ID
	}
	t.emit(Effect{Kind: EffectSnapshotCreated, SnapshotID: created.ID, To: string(created.Status), Source: from})
	t.emit(Effect{Kind: EffectBumpMinor, SnapshotID: created.ID})
	t.emit(Effect{Kind: EffectRefreshExpiration, SnapshotID: created.ID})

	return nil
}

// latest returns the snapshot with the highest version number that is not removed.
func (t *transition) latest() int {
	best := -1
	for i := range t.root.Snapshots {
		s := &t.root.Snapshots[i]
		if s.Status == StatusRemoved {
			continue
		}
		if best < 0 || Less(t.root.Snapshots[best].Major, t.root.Snapshots[best].Minor, s.Major, s.Minor) {
			best = i
		}
	}

	return best
}

func (t *transition) publish() error {
	s := t.snapshot()
	if !s.Status.Editable() {
		return t.reject("only draft or modified versions can be published")
	}

	publishable := 0
	for _, l := range s.Languages {
		if l.Status != LanguageArchived {
			publishable++
		}
	}
	if publishable == 0 {
		return t.reject("no publishable language")
	}

	if p := t.root.Published(); p >= 0 {
		old := &t.root.Snapshots[p]
		prior := old.Prior()
		for j, l := range old.Languages {
			if l.Status == LanguagePublished {
				t.setLanguage(p, j, LanguageOutdatedPublished)
			}
		}
		t.setStatus(p, StatusOldPublished, prior, false)
	}

	prior := s.Prior()
	for j, l := range s.Languages {
		if l.Status != LanguageArchived {
			t.setLanguage(t.target, j, LanguagePublished)
		}
	}
	t.setStatus(t.target, StatusPublished, prior, false)
	t.emit(Effect{Kind: EffectBumpMajor, SnapshotID: s.ID})
	t.emit(Effect{Kind: EffectRefreshExpiration, SnapshotID: s.ID})
	if t.ev.Policy.DropNotCommonConnections {
		t.emit(Effect{Kind: EffectRemoveNotCommonConnections, SnapshotID: s.ID})
	}

	return nil
}

func (t *transition) withdraw() error {
	s := t.snapshot()
	if s.Status != StatusPublished {
		return t.reject("only published versions can be withdrawn")
	}
	if t.root.Editable() >= 0 {
		return t.reject("root has a newer editable version")
	}

	prior := s.Prior()
	for j, l := range s.Languages {
		if l.Status == LanguagePublished {
			t.setLanguage(t.target, j, LanguageWithdrawn)
		}
	}
	t.setStatus(t.target, StatusDraft, prior, false)
	t.emit(Effect{Kind: EffectRefreshExpiration, SnapshotID: s.ID})

	return nil
}

func (t *transition) archive() error {
	s := t.snapshot()
	if !s.Status.Archivable() {
		return t.reject("only draft, published or modified versions can be archived")
	}

	t.retire(StatusArchived, false)

	return nil
}

func (t *transition) delete() error {
	s := t.snapshot()
	switch {
	case s.Status == StatusRemoved:
		return t.reject("version is already removed")
	case s.Status == StatusDeleted && t.ev.Action == ActionDelete:
		return t.reject("version is already deleted")
	}

	to := StatusDeleted
	if t.ev.Action == ActionRemove {
		to = StatusRemoved
	}
	t.retire(to, false)

	return nil
}

// retire moves the target out of the active set. Languages are archived, and when the
// published version leaves, a modified sibling loses its published base and becomes a draft.
func (t *transition) retire(to Status, forced bool) {
	s := t.snapshot()
	prior := s.Prior()
	for j, l := range s.Languages {
		if l.Status != LanguageArchived && l.Status != LanguageOutdatedPublished {
			t.setLanguage(t.target, j, LanguageArchived)
		}
	}
	t.setStatus(t.target, to, prior, forced)

	if prior.Status == StatusPublished {
		for i := range t.root.Snapshots {
			if i != t.target && t.root.Snapshots[i].Status == StatusModified {
				t.setStatus(i, StatusDraft, t.root.Snapshots[i].Prior(), false)
			}
		}
	}
}

func (t *transition) restore() error {
	s := t.snapshot()
	if !s.Status.Restorable() {
		return t.reject("only deleted or archived versions can be restored")
	}

	prior := t.ev.Prior
	if prior == nil {
		prior = &PriorState{Status: StatusDraft}
	}

	switch prior.Status {
	case StatusOldPublished, StatusArchived:
		return t.reinstate(prior)
	}

	published := t.root.Published()
	editable := t.root.Editable()

	to := prior.Status
	switch to {
	case StatusPublished:
		if published >= 0 {
			return t.reject("root already has a published version")
		}
	default:
		if editable >= 0 {
			return t.reject("root already has an editable version")
		}
		to = StatusDraft
		if published >= 0 {
			to = StatusModified
		}
	}

	current := s.Prior()
	for j, l := range s.Languages {
		status, ok := prior.Languages[l.Code]
		if !ok {
			status = LanguageDraft
		}
		switch {
		case to == StatusPublished:
		case status == LanguagePublished && to == StatusModified:
			status = LanguageModified
		case status == LanguagePublished || status == LanguageOutdatedPublished:
			status = LanguageDraft
		}
		t.setLanguage(t.target, j, status)
	}
	if to == StatusPublished && len(s.PublishedLanguages()) == 0 {
		return t.reject("no publishable language")
	}
	t.setStatus(t.target, to, current, false)

	if to == StatusPublished && editable >= 0 && t.root.Snapshots[editable].Status == StatusDraft {
		t.setStatus(editable, StatusModified, t.root.Snapshots[editable].Prior(), false)
	}

	return nil
}

// reinstate puts a superseded or archived snapshot back as it was. Neither status competes
// with the published or editable version, so siblings are left alone.
func (t *transition) reinstate(prior *PriorState) error {
	s := t.snapshot()
	if s.Status == prior.Status {
		return t.reject("version already has its prior status")
	}

	current := s.Prior()
	for j, l := range s.Languages {
		status, ok := prior.Languages[l.Code]
		switch {
		case !ok:
			status = LanguageArchived
		case prior.Status == StatusOldPublished && (status == LanguagePublished || status == LanguageModified):
			status = LanguageOutdatedPublished
		case prior.Status == StatusArchived && status.Active():
			status = LanguageArchived
		}
		t.setLanguage(t.target, j, status)
	}
	t.setStatus(t.target, prior.Status, current, false)

	return nil
}

func (t *transition) language() (int, error) {
	s := t.snapshot()
	j := s.Language(t.ev.Language)
	if j < 0 {
		return -1, t.reject("language is not available")
	}

	return j, nil
}

func (t *transition) archiveLanguage() error {
	s := t.snapshot()
	if !s.Status.Archivable() {
		return t.reject("languages can only be archived on draft, published or modified versions")
	}
	j, err := t.language()
	if err != nil {
		return err
	}
	if s.Languages[j].Status == LanguageArchived {
		return t.reject("language is already archived")
	}

	prior := s.Prior()
	t.setLanguage(t.target, j, LanguageArchived)
	t.forceWhenEmpty(prior)

	return nil
}

func (t *transition) restoreLanguage() error {
	s := t.snapshot()
	if !s.Status.Archivable() {
		return t.reject("restore the version before restoring its languages")
	}
	j, err := t.language()
	if err != nil {
		return err
	}
	if l := s.Languages[j].Status; l != LanguageArchived && l != LanguageWithdrawn {
		return t.reject("only archived or withdrawn languages can be restored")
	}

	to := LanguageDraft
	if s.Status == StatusPublished {
		to = LanguagePublished
	}
	t.setLanguage(t.target, j, to)

	return nil
}

func (t *transition) withdrawLanguage() error {
	s := t.snapshot()
	if s.Status != StatusPublished {
		return t.reject("languages can only be withdrawn from published versions")
	}
	j, err := t.language()
	if err != nil {
		return err
	}
	if s.Languages[j].Status != LanguagePublished {
		return t.reject("only published languages can be withdrawn")
	}

	prior := s.Prior()
	t.setLanguage(t.target, j, LanguageWithdrawn)
	t.forceWhenEmpty(prior)

	return nil
}

// forceWhenEmpty archives the whole snapshot once its last active language is gone.
func (t *transition) forceWhenEmpty(prior *PriorState) {
	s := t.snapshot()
	if s.ActiveLanguages() > 0 {
		return
	}

	from := s.Status
	s.Status = StatusArchived
	t.emit(Effect{
		Kind:       EffectStatusChanged,
		SnapshotID: s.ID,
		From:       string(from),
		To:         string(StatusArchived),
		Prior:      prior,
		Forced:     true,
	})

	if from == StatusPublished {
		for i := range t.root.Snapshots {
			if i != t.target && t.root.Snapshots[i].Status == StatusModified {
				t.setStatus(i, StatusDraft, t.root.Snapshots[i].Prior(), false)
			}
		}
	}
}
