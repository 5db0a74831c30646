package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/diff"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

type Comparison struct {
	DocumentID int64
	Older      int
	Newer      int
	OlderText  string
	NewerText  string
	Segments   []diff.Segment
}

func (c *Comparison) Stats() diff.Stats {
	return diff.Summarize(c.Segments)
}

// VersionComparer downloads two versions of a document and diffs them.
type VersionComparer struct {
	client client.Client
	log    logging.Logger
}

func NewVersionComparer(c client.Client, log logging.Logger) *VersionComparer {
	return &VersionComparer{client: c, log: log}
}

// Compare diffs versions a and b of doc, in either order. Non-text
// content fails with common.ErrUnsupportedContentType.
func (vc *VersionComparer) Compare(ctx context.Context, doc models.Document, a, b int) (*Comparison, error) {
	if a == b {
		return nil, fmt.Errorf("compare: %w: pick two different versions", common.ErrValidation)
	}
	older, newer := min(a, b), max(a, b)

	var left, right *models.Blob
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		blob, err := vc.client.DownloadVersion(gctx, doc.ID, older)
		left = blob
		return err
	})
	g.Go(func() error {
		blob, err := vc.client.DownloadVersion(gctx, doc.ID, newer)
		right = blob
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compare v%d and v%d: %w", older, newer, err)
	}

	for _, blob := range []*models.Blob{left, right} {
		if blob.ContentType == "" {
			blob.ContentType = doc.MimeType
		}
	}

	segments, err := diff.Compare(*left, *right)
	if err != nil {
		return nil, fmt.Errorf("compare v%d and v%d: %w", older, newer, err)
	}

	vc.log.Debug(ctx, "versions compared", "document_id", doc.ID, "older", older, "newer", newer, "segments", len(segments))
	return &Comparison{
		DocumentID: doc.ID,
		Older:      older,
		Newer:      newer,
		OlderText:  string(left.Data),
		NewerText:  string(right.Data),
		Segments:   segments,
	}, nil
}

// CompareSelection compares the two versions held by sel.
func (vc *VersionComparer) CompareSelection(ctx context.Context, doc models.Document, sel *Selection) (*Comparison, error) {
	older, newer, ok := sel.Pair()
	if !ok {
		return nil, fmt.Errorf("compare: %w: select two versions first", common.ErrValidation)
	}
	return vc.Compare(ctx, doc, older, newer)
}
