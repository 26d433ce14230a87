package capture

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/webclip/pkg/core"
)

// UntitledText replaces an empty capture title.
const UntitledText = "Untitled"

// Builder lays a capture payload out as content nodes under an anchor record.
type Builder struct {
	config config
}

// NewBuilder creates an outline builder.
func NewBuilder(opts ...Option) *Builder {
	return &Builder{config: newConfig(opts)}
}

// line is a child node to create under the title, in order.
type line struct {
	kind     core.NodeKind
	segments []core.Segment
}

// Insert appends the capture after the anchor's last root-level node and
// returns the title node. Only a failed title creation is fatal; children the
// host declines are skipped.
func (b *Builder) Insert(ctx context.Context, p core.CapturePayload, anchor core.Record) (*core.ContentNode, error) {
	if anchor == nil {
		return nil, core.ErrDestinationNotFound
	}

	nodes, err := anchor.Nodes(ctx)
	if err != nil {
		return nil, core.Collaborator("list nodes", err)
	}
	last := core.LastChild(nodes, anchor.GUID())

	title, err := anchor.CreateNode(ctx, anchor.GUID(), last, core.KindText)
	if err != nil {
		return nil, core.Collaborator("create title", err)
	}
	if title == nil {
		return nil, core.ErrNodeCreationFailed
	}
	if err := anchor.SetSegments(ctx, title.GUID, b.titleSegments(p)); err != nil {
		return nil, core.Collaborator("set title", err)
	}

	// The cursor only advances past nodes that were actually created.
	var cursor *core.ContentNode
	for i, l := range childLines(p) {
		node, err := anchor.CreateNode(ctx, title.GUID, cursor, l.kind)
		if err != nil {
			return nil, core.Collaborator(fmt.Sprintf("create line %d", i), err)
		}
		if node == nil {
			b.config.logger.Debug("host declined line, skipping", "index", i, "kind", l.kind)
			continue
		}
		if err := anchor.SetSegments(ctx, node.GUID, l.segments); err != nil {
			return nil, core.Collaborator(fmt.Sprintf("set line %d", i), err)
		}
		cursor = node
	}
	return title, nil
}

func (b *Builder) titleSegments(p core.CapturePayload) []core.Segment {
	title := p.Title
	if title == "" {
		title = UntitledText
	}
	segs := []core.Segment{core.Bold(title)}
	if p.Destination.Type != core.DestinationJournal {
		segs = append(segs, core.Text(" — "), core.Text(b.config.now().Format(TimestampLayout)))
	}
	if len(p.Tags) > 0 {
		segs = append(segs, core.Text(" "))
		for _, tag := range p.Tags {
			segs = append(segs, core.Hashtag(tag), core.Text(" "))
		}
	}
	return segs
}

// childLines lists the nodes nested under the title. Link captures only carry
// the URL; selections add quoted text and image links.
func childLines(p core.CapturePayload) []line {
	var lines []line
	if p.URL != "" {
		lines = append(lines, line{kind: core.KindText, segments: []core.Segment{core.Text("URL: "), core.Link(p.URL)}})
	}
	if p.Mode == core.ModeLink {
		return lines
	}

	for _, text := range contentLines(p.Content) {
		lines = append(lines, line{kind: core.KindQuote, segments: []core.Segment{core.Text(text)}})
	}

	images := p.Images
	if len(images) > MaxImages {
		images = images[:MaxImages]
	}
	for _, src := range images {
		if core.IsInlineImage(src) {
			continue
		}
		lines = append(lines, line{kind: core.KindText, segments: []core.Segment{core.Link(src)}})
	}
	return lines
}

// contentLines splits content into trimmed, non-blank lines, capped.
func contentLines(content string) []string {
	var out []string
	for _, l := range strings.Split(content, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l)
		if len(out) == MaxContentLines {
			break
		}
	}
	return out
}

// toast builds the confirmation shown after a capture.
func toast(p core.CapturePayload) (string, string) {
	title := p.Title
	if title == "" {
		title = UntitledText
	}
	if r := []rune(title); len(r) > toastTitleLength {
		title = string(r[:toastTitleLength]) + "..."
	}
	dest := "selected page"
	if p.Destination.Type == core.DestinationJournal {
		dest = "Journal"
	}
	return "Captured!", `"` + title + `" added to ` + dest
}
