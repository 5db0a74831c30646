package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

// History is what the version viewer shows for one document.
type History struct {
	DocumentID int64
	// Versions are newest first.
	Versions []models.DocumentVersion
	// Activities are in server order.
	Activities []models.DocumentActivity
}

// Version looks up a version by number.
func (h *History) Version(n int) (models.DocumentVersion, bool) {
	i := slices.IndexFunc(h.Versions, func(v models.DocumentVersion) bool { return v.VersionNumber == n })
	if i < 0 {
		return models.DocumentVersion{}, false
	}
	return h.Versions[i], true
}

type VersionHistory struct {
	client client.Client
	log    logging.Logger
}

func NewVersionHistory(c client.Client, log logging.Logger) *VersionHistory {
	return &VersionHistory{client: c, log: log}
}

// Load fetches versions and activities in parallel.
func (h *VersionHistory) Load(ctx context.Context, docID int64) (*History, error) {
	var (
		versions   []models.DocumentVersion
		activities []models.DocumentActivity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := h.client.ListVersions(gctx, docID)
		if err != nil {
			return fmt.Errorf("list versions: %w", err)
		}
		versions = v
		return nil
	})
	g.Go(func() error {
		a, err := h.client.ListActivities(gctx, docID)
		if err != nil {
			return fmt.Errorf("list activities: %w", err)
		}
		activities = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("history of document %d: %w", docID, err)
	}

	slices.SortStableFunc(versions, func(a, b models.DocumentVersion) int {
		return cmp.Compare(b.VersionNumber, a.VersionNumber)
	})

	h.log.Debug(ctx, "history loaded", "document_id", docID, "versions", len(versions), "activities", len(activities))
	return &History{DocumentID: docID, Versions: versions, Activities: activities}, nil
}

// MaxSelected is how many versions can be picked for comparison.
const MaxSelected = 2

// Selection holds up to MaxSelected version numbers in the order they
// were picked. Adding beyond the cap is refused, nothing is evicted.
// It is not safe for concurrent use.
type Selection struct {
	items []int
}

func (s *Selection) Contains(n int) bool {
	return slices.Contains(s.items, n)
}

// Select adds n. It reports false only when the selection is full and n is
// not already in it.
func (s *Selection) Select(n int) bool {
	if s.Contains(n) {
		return true
	}
	if len(s.items) >= MaxSelected {
		return false
	}
	s.items = append(s.items, n)
	return true
}

func (s *Selection) Deselect(n int) {
	s.items = slices.DeleteFunc(s.items, func(v int) bool { return v == n })
}

// Toggle deselects a selected version and selects any other. It reports
// whether the selection changed; a third version is a no-op.
func (s *Selection) Toggle(n int) bool {
	if s.Contains(n) {
		s.Deselect(n)
		return true
	}
	return s.Select(n)
}

func (s *Selection) Clear() {
	s.items = nil
}

func (s *Selection) Items() []int {
	return slices.Clone(s.items)
}

func (s *Selection) Len() int {
	return len(s.items)
}

// Ready reports whether two versions are selected.
func (s *Selection) Ready() bool {
	return len(s.items) == MaxSelected
}

// Pair returns the selected versions, older first.
func (s *Selection) Pair() (older, newer int, ok bool) {
	if !s.Ready() {
		return 0, 0, false
	}
	return min(s.items[0], s.items[1]), max(s.items[0], s.items[1]), true
}
