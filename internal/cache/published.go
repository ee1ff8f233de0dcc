package cache

import (
	"context"
	"sync"

	"github.com/emrgen/servicecatalog/internal/domain"
)

// PublishedVersionCache maps a root to its currently published version. It is updated
// after a transition commits and may lag behind the database.
type PublishedVersionCache interface {
	// GetPublishedVersion returns the published version id of a root, or "" when unknown.
	GetPublishedVersion(ctx context.Context, family domain.Family, rootID string) (string, error)
	// SetPublishedVersion records the published version of a root.
	SetPublishedVersion(ctx context.Context, family domain.Family, rootID, versionID string) error
	// DeletePublishedVersion forgets the published version of a root.
	DeletePublishedVersion(ctx context.Context, family domain.Family, rootID string) error
}

var _ PublishedVersionCache = (*Nop)(nil)

type Nop struct{}

func NewNop() *Nop {
	return &Nop{}
}

func (n *Nop) GetPublishedVersion(ctx context.Context, family domain.Family, rootID string) (string, error) {
	return "", nil
}

func (n *Nop) SetPublishedVersion(ctx context.Context, family domain.Family, rootID, versionID string) error {
	return nil
}

func (n *Nop) DeletePublishedVersion(ctx context.Context, family domain.Family, rootID string) error {
	return nil
}

var _ PublishedVersionCache = (*Memory)(nil)

// Memory is an in-process cache used by tests and the CLI.
type Memory struct {
	mu       sync.RWMutex
	versions map[string]string
}

func NewMemory() *Memory {
	return &Memory{versions: make(map[string]string)}
}

func (m *Memory) GetPublishedVersion(ctx context.Context, family domain.Family, rootID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.versions[publishedVersionField(family, rootID)], nil
}

func (m *Memory) SetPublishedVersion(ctx context.Context, family domain.Family, rootID, versionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[publishedVersionField(family, rootID)] = versionID
	return nil
}

func (m *Memory) DeletePublishedVersion(ctx context.Context, family domain.Family, rootID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.versions, publishedVersionField(family, rootID))
	return nil
}

func publishedVersionField(family domain.Family, rootID string) string {
	return family.String() + ":" + rootID
}
