package publishing

import "fmt"

// LanguageState is one language entry of a snapshot.
type LanguageState struct {
	Code   string
	Status LanguageStatus
}

// Snapshot is the state of one version of a root.
type Snapshot struct {
	ID        string
	Status    Status
	Major     int
	Minor     int
	Languages []LanguageState
}

func (s *Snapshot) clone() Snapshot {
	c := *s
	c.Languages = append([]LanguageState(nil), s.Languages...)
	return c
}

// Language returns the index of the language entry, or -1.
func (s *Snapshot) Language(code string) int {
	for i, l := range s.Languages {
		if l.Code == code {
			return i
		}
	}

	return -1
}

// ActiveLanguages counts the languages that still carry available content.
func (s *Snapshot) ActiveLanguages() int {
	n := 0
	for _, l := range s.Languages {
		if l.Status.Active() {
			n++
		}
	}

	return n
}

// PublishedLanguages returns the codes of the published languages, in entry order.
func (s *Snapshot) PublishedLanguages() []string {
	var codes []string
	for _, l := range s.Languages {
		if l.Status == LanguagePublished {
			codes = append(codes, l.Code)
		}
	}

	return codes
}

// Prior captures the snapshot state so it can be recorded and later restored.
func (s *Snapshot) Prior() *PriorState {
	prior := &PriorState{
		Status:    s.Status,
		Languages: make(map[string]LanguageStatus, len(s.Languages)),
	}
	for _, l := range s.Languages {
		prior.Languages[l.Code] = l.Status
	}

	return prior
}

// PriorState is the state a snapshot held before a transition.
type PriorState struct {
	Status    Status                    `json:"status"`
	Languages map[string]LanguageStatus `json:"languages"`
}

// Root is the set of snapshots that share one root identifier.
type Root struct {
	ID        string
	Snapshots []Snapshot
}

// Clone returns a deep copy of the root.
func (r Root) Clone() Root {
	c := Root{ID: r.ID, Snapshots: make([]Snapshot, len(r.Snapshots))}
	for i := range r.Snapshots {
		c.Snapshots[i] = r.Snapshots[i].clone()
	}

	return c
}

// Find returns the index of the snapshot with the given id, or -1.
func (r Root) Find(id string) int {
	for i := range r.Snapshots {
		if r.Snapshots[i].ID == id {
			return i
		}
	}

	return -1
}

// Published returns the index of the published snapshot, or -1.
func (r Root) Published() int {
	return r.first(func(s *Snapshot) bool { return s.Status == StatusPublished })
}

// Editable returns the index of the draft or modified snapshot, or -1.
func (r Root) Editable() int {
	return r.first(func(s *Snapshot) bool { return s.Status.Editable() })
}

func (r Root) first(match func(s *Snapshot) bool) int {
	for i := range r.Snapshots {
		if match(&r.Snapshots[i]) {
			return i
		}
	}

	return -1
}

// Validate checks the invariants every root must hold between transitions.
func Validate(r Root) error {
	published, editable := 0, 0
	for i := range r.Snapshots {
		s := &r.Snapshots[i]
		switch {
		case s.Status == StatusPublished:
			published++
			if len(s.PublishedLanguages()) == 0 {
				return fmt.Errorf("%w: published snapshot %s has no published language", ErrInvariantViolated, s.ID)
			}
		case s.Status.Editable():
			editable++
		}

		if s.Status != StatusPublished && s.Status != StatusModified && len(s.PublishedLanguages()) > 0 {
			return fmt.Errorf("%w: snapshot %s in status %s has published languages", ErrInvariantViolated, s.ID, s.Status)
		}
	}

	if published > 1 {
		return fmt.Errorf("%w: root %s has %d published snapshots", ErrInvariantViolated, r.ID, published)
	}
	if editable > 1 {
		return fmt.Errorf("%w: root %s has %d editable snapshots", ErrInvariantViolated, r.ID, editable)
	}

	return nil
}
