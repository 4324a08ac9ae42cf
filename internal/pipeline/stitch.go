package pipeline

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"bookforge/internal/book"
	"bookforge/internal/compose"
	"bookforge/internal/document"
	"bookforge/internal/language"
	"bookforge/internal/logging"
	"bookforge/internal/services"
)

// stitch lays out the cover and every approved spread, assembles the document,
// and appends a layout entry to the session's workflow log.
func (p *Producer) stitch(ctx context.Context, sess *book.Session, spec book.ProductSpec, order book.Order) (*book.StitchedResult, error) {
	started := time.Now()
	result, err := p.layoutAll(ctx, sess, spec, order)
	entry := book.WorkflowLog{
		Stage:     StageLayout,
		Attempt:   1,
		Timestamp: time.Now().UTC(),
		Status:    book.LogSucceeded,
		Duration:  time.Since(started),
		Input:     book.Snapshot(map[string]any{"productId": spec.ID, "dpi": p.engine.Resolver().DPI}),
	}
	if err != nil {
		entry.Status = book.LogFailed
		entry.Error = err.Error()
		entry.ErrorKind = services.Kind(err)
	} else {
		entry.Output = book.Snapshot(map[string]any{"documentPages": result.DocumentPages(), "spreads": len(result.Spreads())})
	}
	sess.AppendLog(entry)
	return result, err
}

func (p *Producer) layoutAll(ctx context.Context, sess *book.Session, spec book.ProductSpec, order book.Order) (*book.StitchedResult, error) {
	blueprint, plan, _ := sess.Approved()
	pages := sess.Pages()
	if len(plan) == 0 || len(pages) != len(plan) {
		return nil, services.Wrap(services.ErrPrerequisite, StageLayout, "collect pages",
			fmt.Sprintf("have %d pages for %d approved spreads", len(pages), len(plan)), nil)
	}

	coverArt, err := compose.DecodeImage(sess.Cover())
	if err != nil {
		return nil, services.Wrap(services.ErrPrerequisite, StageLayout, "decode cover", "", err)
	}
	title := strings.TrimSpace(order.Title)
	if title == "" && blueprint != nil {
		title = blueprint.Title
	}
	cover, err := p.engine.LayoutCover(ctx, coverArt, spec, order.ID, language.Title(order.Language, title), order.Direction)
	if err != nil {
		return nil, err
	}

	spreads := make([]image.Image, 0, len(pages))
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		art, err := compose.DecodeImage(page.Illustration)
		if err != nil {
			return nil, services.Wrap(services.ErrPrerequisite, StageLayout, "decode spread", fmt.Sprintf("spread %d", page.Number), err)
		}
		composed, err := p.engine.LayoutSpread(ctx, art, page, spec, i+1, order.ID, order.Direction)
		if err != nil {
			return nil, err
		}
		spreads = append(spreads, composed)
	}
	p.logger.Debug("layout complete",
		logging.Int("spreads", len(spreads)),
		logging.Int("cover_width_px", cover.Bounds().Dx()),
	)

	doc, err := document.Assemble(cover, spreads, document.SizesFor(spec, p.engine.StripWidthCm()))
	if err != nil {
		return nil, err
	}
	return book.NewStitchedResult(cover, spreads, len(plan), &spec, order.ID, doc.Data, doc.Pages)
}
