// Package history builds presentation-ready candidate listings from a
// store's snapshot chains.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/keshon/savepoint/internal/config"
	"github.com/keshon/savepoint/internal/store"
)

// Candidate pairs a display label with the snapshot id it resolves to. The
// id rides out of band: selection resolves by ID alone, labels are never
// parsed, so free-form messages cannot collide with each other.
type Candidate struct {
	Label string
	ID    string
}

// Builder renders snapshot listings using a display template.
// Template tokens: %cd is the absolute committer date (formatted with
// Layout), %cr the relative age.
type Builder struct {
	Template string
	Layout   string
	Now      func() time.Time
}

// NewBuilder returns a Builder; empty template or layout fall back to the
// configured defaults.
func NewBuilder(template, layout string) *Builder {
	if template == "" {
		template = config.DefaultTimeTemplate
	}
	if layout == "" {
		layout = config.DefaultDateLayout
	}
	return &Builder{Template: template, Layout: layout, Now: time.Now}
}

// List returns one candidate per snapshot of key, newest first. The time
// column is padded to the widest rendering so messages line up.
func (b *Builder) List(ctx context.Context, st *store.Store, key string) ([]Candidate, error) {
	snaps, err := st.ListSnapshots(ctx, key)
	if err != nil {
		return nil, err
	}

	times := make([]string, len(snaps))
	width := 0
	for i, sn := range snaps {
		times[i] = b.DisplayTime(sn.Time)
		if len(times[i]) > width {
			width = len(times[i])
		}
	}

	cands := make([]Candidate, len(snaps))
	for i, sn := range snaps {
		cands[i] = Candidate{
			Label: fmt.Sprintf("%-*s  %s", width, times[i], sn.Message),
			ID:    sn.ID,
		}
	}
	return cands, nil
}

// DisplayTime renders one timestamp through the template.
func (b *Builder) DisplayTime(t time.Time) string {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	out := strings.ReplaceAll(b.Template, "%cd", t.Format(b.Layout))
	out = strings.ReplaceAll(out, "%cr", humanize.RelTime(t, now(), "ago", "from now"))
	return out
}
