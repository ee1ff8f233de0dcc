package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Reloader refreshes a read-mostly lookup.
type Reloader interface {
	Reload(ctx context.Context) error
}

// LanguageReloader reloads the language table on an interval until stopped.
type LanguageReloader struct {
	languages Reloader
	interval  time.Duration
	done      chan struct{}
}

func NewLanguageReloader(languages Reloader, interval time.Duration) *LanguageReloader {
	return &LanguageReloader{
		languages: languages,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (l *LanguageReloader) Stop() {
	close(l.done)
}

func (l *LanguageReloader) Run() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.interval)
			if err := l.languages.Reload(ctx); err != nil {
				logrus.Errorf("failed to reload languages: %v", err)
			}
			cancel()
		}
	}
}
