// Package lookup holds the immutable language table used to validate language codes and
// to order availability lists.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/sirupsen/logrus"
)

var ErrUnknownLanguage = errors.New("unknown language")

// Table is an immutable snapshot of the supported languages.
type Table struct {
	codes []string
	order map[string]int
}

func NewTable(languages []*model.Language) *Table {
	t := &Table{order: make(map[string]int, len(languages))}
	for _, l := range languages {
		if _, ok := t.order[l.Code]; ok {
			continue
		}
		t.order[l.Code] = len(t.codes)
		t.codes = append(t.codes, l.Code)
	}

	return t
}

// Codes returns the language codes in display order.
func (t *Table) Codes() []string {
	return append([]string(nil), t.codes...)
}

func (t *Table) Contains(code string) bool {
	_, ok := t.order[code]
	return ok
}

// Validate returns ErrUnknownLanguage for the first unsupported code.
func (t *Table) Validate(codes ...string) error {
	for _, code := range codes {
		if !t.Contains(code) {
			return fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
		}
	}

	return nil
}

// Order returns the display position of the code; unknown codes sort last.
func (t *Table) Order(code string) int {
	if i, ok := t.order[code]; ok {
		return i
	}

	return len(t.codes)
}

// Source loads the language rows a table is built from.
type Source interface {
	ListLanguages(ctx context.Context) ([]*model.Language, error)
}

// Holder publishes the current table. Readers always see a complete table; Reload swaps
// it atomically.
type Holder struct {
	source Source
	table  atomic.Pointer[Table]
}

func NewHolder(source Source) *Holder {
	h := &Holder{source: source}
	h.table.Store(NewTable(nil))
	return h
}

// NewStaticHolder returns a holder that serves the given table and cannot be reloaded.
func NewStaticHolder(table *Table) *Holder {
	h := &Holder{}
	h.table.Store(table)
	return h
}

func (h *Holder) Get() *Table {
	return h.table.Load()
}

func (h *Holder) Reload(ctx context.Context) error {
	if h.source == nil {
		return nil
	}

	languages, err := h.source.ListLanguages(ctx)
	if err != nil {
		return err
	}

	table := NewTable(languages)
	h.table.Store(table)
	logrus.Infof("loaded %d languages", len(table.codes))

	return nil
}
