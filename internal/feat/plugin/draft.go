package plugin

import (
	"strconv"

	"github.com/cliossg/pagekit/internal/feat/page"
	"github.com/cliossg/pagekit/pkg/cl/logger"
)

// DraftKey is the metadata key that keeps a page out of the build.
const DraftKey = "draft"

// Draft discards pages whose header says "draft: true". The page is still
// rendered, so later hooks and templates see it.
type Draft struct {
	log logger.Logger
}

func NewDraft(log logger.Logger) *Draft {
	return &Draft{log: log}
}

func (d *Draft) Name() string { return "draft" }

func (d *Draft) PreBuildPage(site page.Site, p *page.Page, ctx page.Context, body string) (page.Context, string) {
	v, ok := ctx[DraftKey].(string)
	if !ok {
		return ctx, body
	}
	if draft, err := strconv.ParseBool(v); err == nil && draft {
		d.log.Infof("Skipping draft %s", p.SourcePath())
		p.Discard()
	}
	return ctx, body
}
