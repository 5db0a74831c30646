package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
)

var errNoDocument = errors.New("no document is open, use: open <id>")

var listColumns = []int{6, 32, 9, 28}

func (a *App) List(ctx context.Context) error {
	docs, err := a.docs.List(ctx)
	if err != nil {
		return a.fail(err)
	}
	if len(docs) == 0 {
		a.println("No documents.")
		return nil
	}

	a.println(headerStyle.Render(row(listColumns, "ID", "Title", "Version", "Status", "Updated")))
	for _, d := range docs {
		a.println(row(listColumns,
			strconv.FormatInt(d.ID, 10),
			d.Title,
			"v"+strconv.Itoa(d.Version),
			lockLabel(d),
			d.UpdatedAt.Format("2006-01-02 15:04"),
		))
	}
	return nil
}

// Open makes a document current. Opening a different document drops the
// viewer and the version selection of the previous one.
func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.fail(fmt.Errorf("%w: usage: open <id>", common.ErrValidation))
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return a.fail(fmt.Errorf("%w: invalid document id %q", common.ErrValidation, args[0]))
	}

	prev, hadPrev := a.docs.Current()
	doc, err := a.docs.Open(ctx, id)
	if err != nil {
		return a.fail(err)
	}
	if !hadPrev || prev.ID != doc.ID {
		a.resetView()
	}

	a.println(formatDocument(*doc))
	return nil
}

func (a *App) currentDoc() (models.Document, error) {
	doc, ok := a.docs.Current()
	if !ok {
		return models.Document{}, errNoDocument
	}
	return doc, nil
}

// versionArg resolves the optional version argument of view, download and
// select. An explicit version is checked against a freshly fetched
// document so versions checked in by others are accepted right away.
func (a *App) versionArg(ctx context.Context, args []string) (models.Document, int, error) {
	doc, err := a.currentDoc()
	if err != nil || len(args) == 0 {
		return doc, 0, err
	}
	fresh, err := a.docs.Get(ctx, doc.ID)
	if err != nil {
		return doc, 0, err
	}
	n, err := parseVersion(args, *fresh)
	return *fresh, n, err
}

// parseVersion reads an optional version argument; 0 means latest.
func parseVersion(args []string, doc models.Document) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(args[0], "v"))
	if err != nil || n < 1 || n > doc.Version {
		return 0, fmt.Errorf("%w: version must be between 1 and %d", common.ErrValidation, doc.Version)
	}
	return n, nil
}

func (a *App) Upload(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Enter file path", a.out)
	if err != nil {
		return err
	}
	file, err := models.ReadFileContent(path)
	if err != nil {
		return a.fail(err)
	}

	title, err := getSimpleText(a.reader, fmt.Sprintf("Enter title [%s]", filepath.Base(path)), a.out)
	if err != nil {
		return err
	}
	if title == "" {
		title = filepath.Base(path)
	}
	description, err := getMultiline(a.reader, "Enter description (optional)", a.out)
	if err != nil {
		return err
	}
	tags, err := getSimpleText(a.reader, "Enter tags, comma separated (optional)", a.out)
	if err != nil {
		return err
	}

	doc, err := a.docs.Upload(ctx, models.DocumentUpload{
		Title:       title,
		Description: description,
		Tags:        ParseTags(tags),
		File:        *file,
	})
	if err != nil {
		return a.fail(err)
	}

	a.success("Uploaded #%d %s (v%d).", doc.ID, doc.Title, doc.Version)
	return nil
}

// Download saves the current document, or one of its versions, into the
// configured download directory.
func (a *App) Download(ctx context.Context, args []string) error {
	doc, n, err := a.versionArg(ctx, args)
	if err != nil {
		return a.fail(err)
	}

	path, err := a.content.Export(ctx, doc, n, a.config.DownloadDir)
	if err != nil {
		return a.fail(err)
	}
	a.success("Saved to %s", path)
	return nil
}
