package service

import (
	"context"
	"time"

	"github.com/emrgen/servicecatalog/internal/cache"
	"github.com/emrgen/servicecatalog/internal/compress"
	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/lookup"
	"github.com/emrgen/servicecatalog/internal/metrics"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/queue"
	"github.com/emrgen/servicecatalog/internal/store"
	"github.com/sirupsen/logrus"
)

// TranslationOrderProvider resolves the translation order a language change belongs to.
// It is only used to annotate availability entries and history.
type TranslationOrderProvider interface {
	GetTranslationOrderID(ctx context.Context, versionID, language string) (*string, error)
}

type noTranslationOrders struct{}

func (noTranslationOrders) GetTranslationOrderID(ctx context.Context, versionID, language string) (*string, error) {
	return nil, nil
}

// ExpirationDefaults are the lifetimes used when an organization has no policy.
type ExpirationDefaults struct {
	DraftLifetimeMonths     int
	PublishedLifetimeMonths int
}

type Option func(*PublishingService)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *PublishingService) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *PublishingService) {
		s.metrics = m
	}
}

func WithTranslationOrders(p TranslationOrderProvider) Option {
	return func(s *PublishingService) {
		s.translations = p
	}
}

func WithExpirationDefaults(defaults ExpirationDefaults) Option {
	return func(s *PublishingService) {
		s.defaults = defaults
	}
}

// NewPublishingService creates a new PublishingService.
func NewPublishingService(compress compress.Compress, store store.Store, cache cache.PublishedVersionCache, queue queue.TransitionQueue, languages *lookup.Holder, opts ...Option) *PublishingService {
	service := &PublishingService{
		compress:     compress,
		store:        store,
		cache:        cache,
		queue:        queue,
		languages:    languages,
		translations: noTranslationOrders{},
		defaults:     ExpirationDefaults{DraftLifetimeMonths: 6, PublishedLifetimeMonths: 12},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(service)
	}

	return service
}

// PublishingService runs the publishing lifecycle of every entity family on top of a Store.
// Each operation is one unit of work; cache and queue updates happen after it committed.
type PublishingService struct {
	compress     compress.Compress
	store        store.Store
	cache        cache.PublishedVersionCache
	queue        queue.TransitionQueue
	languages    *lookup.Holder
	metrics      *metrics.Metrics
	translations TranslationOrderProvider
	defaults     ExpirationDefaults
	now          func() time.Time
}

// Request carries the caller of an operation.
type Request struct {
	Actor string
	// LockVersion, when set, is the lock version the caller read the version with.
	LockVersion *int64
}

func (r Request) check(v *model.EntityVersion) error {
	if r.LockVersion != nil && *r.LockVersion != v.LockVersion {
		return store.ErrStaleState
	}

	return nil
}

// outbox collects what has to be announced once the unit of work committed.
type outbox struct {
	events    []queue.TransitionEvent
	published map[publishedKey]string
}

type publishedKey struct {
	family domain.Family
	rootID string
}

func newOutbox() *outbox {
	return &outbox{published: make(map[publishedKey]string)}
}

func (o *outbox) merge(other *outbox) {
	o.events = append(o.events, other.events...)
	for k, v := range other.published {
		o.published[k] = v
	}
}

func (s *PublishingService) flush(ctx context.Context, out *outbox) {
	if len(out.events) > 0 {
		if err := s.queue.Publish(ctx, out.events...); err != nil {
			logrus.Errorf("failed to publish %d transition events: %v", len(out.events), err)
		}
	}

	for key, versionID := range out.published {
		var err error
		if versionID == "" {
			err = s.cache.DeletePublishedVersion(ctx, key.family, key.rootID)
		} else {
			err = s.cache.SetPublishedVersion(ctx, key.family, key.rootID, versionID)
		}
		if err != nil {
			logrus.Errorf("failed to update published version cache of %s %s: %v", key.family, key.rootID, err)
		}
	}
}

func (s *PublishingService) observe(family domain.Family, action string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = ReasonCode(err)
	}
	s.metrics.ObserveTransition(family.String(), action, outcome, start)
}
