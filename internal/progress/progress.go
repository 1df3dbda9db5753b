// Package progress holds the merge rules for per-template completion
// records and the statistics derived from them.
//
// Apply is where the "one record per (user, template)" invariant lives:
// it finds the existing record or appends a new one, never both.
package progress

import (
	"fmt"
	"slices"
	"time"

	"github.com/sakif/code-compass/internal/model"
)

// MergeMode decides what happens to steps that were already stored.
type MergeMode string

const (
	// Replace stores exactly the submitted steps (shrinking is allowed).
	Replace MergeMode = "replace"
	// Union keeps stored steps and adds the submitted ones.
	Union MergeMode = "union"
)

func ParseMergeMode(s string) (MergeMode, error) {
	switch MergeMode(s) {
	case "", Replace:
		return Replace, nil
	case Union:
		return Union, nil
	}
	return "", fmt.Errorf("progress: unknown merge mode %q", s)
}

// Update is one client submission for a template.
type Update struct {
	TemplateID     string
	CompletedSteps []string
	TimeSpent      int // minutes to add, ignored when not positive
	At             time.Time
}

// Apply merges u into records and returns the new slice together with the
// saved record. records is not modified. LastAccessedAt never moves
// backwards, even if u.At is older than the stored timestamp.
func Apply(records []model.UserProgress, u Update, mode MergeMode) ([]model.UserProgress, model.UserProgress) {
	out := slices.Clone(records)
	steps := Normalize(u.CompletedSteps)

	idx := slices.IndexFunc(out, func(p model.UserProgress) bool { return p.TemplateID == u.TemplateID })
	if idx < 0 {
		rec := model.UserProgress{
			TemplateID:     u.TemplateID,
			CompletedSteps: steps,
			LastAccessedAt: u.At,
			TimeSpent:      max(u.TimeSpent, 0),
		}
		out = append(out, rec)
		return out, rec
	}

	rec := out[idx]
	if mode == Union {
		steps = Normalize(append(slices.Clone(rec.CompletedSteps), steps...))
	}
	rec.CompletedSteps = steps
	if u.At.After(rec.LastAccessedAt) {
		rec.LastAccessedAt = u.At
	}
	if u.TimeSpent > 0 {
		rec.TimeSpent += u.TimeSpent
	}
	out[idx] = rec
	return out, rec
}

// Find returns the record for templateID.
func Find(records []model.UserProgress, templateID string) (model.UserProgress, bool) {
	for _, p := range records {
		if p.TemplateID == templateID {
			return p, true
		}
	}
	return model.UserProgress{}, false
}

// Normalize de-duplicates steps, drops empty IDs and sorts the result.
// It never returns nil so that an empty set serialises as [].
func Normalize(steps []string) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Stats derives a user's summary. categories maps template IDs to their
// category; templates missing from it do not contribute a category.
func Stats(records []model.UserProgress, categories map[string]model.Category) model.UserStats {
	stats := model.UserStats{
		TotalTemplatesStarted: len(records),
		CategoriesExplored:    []model.Category{},
	}
	seen := make(map[model.Category]bool)
	for _, p := range records {
		stats.TotalStepsCompleted += len(p.CompletedSteps)
		if c, ok := categories[p.TemplateID]; ok && !seen[c] {
			seen[c] = true
			stats.CategoriesExplored = append(stats.CategoriesExplored, c)
		}
		if stats.LastActivity == nil || p.LastAccessedAt.After(*stats.LastActivity) {
			at := p.LastAccessedAt
			stats.LastActivity = &at
		}
	}
	slices.Sort(stats.CategoriesExplored)
	if stats.TotalTemplatesStarted > 0 {
		stats.AverageProgress = float64(stats.TotalStepsCompleted) / float64(stats.TotalTemplatesStarted)
	}
	return stats
}

// TemplateIDs lists the templates a user has touched, in record order.
func TemplateIDs(records []model.UserProgress) []string {
	ids := make([]string, len(records))
	for i, p := range records {
		ids[i] = p.TemplateID
	}
	return ids
}
