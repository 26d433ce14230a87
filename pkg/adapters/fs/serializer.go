package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/webclip/pkg/core"
)

// OutlineMarker separates hand-written text from the rendered outline.
// Everything below it is regenerated on every write.
const OutlineMarker = "<!-- webclip:outline -->"

// recordFile is the on-disk form of a record. The frontmatter is the source
// of truth; the markdown outline below the marker is a rendering of Lines.
type recordFile struct {
	GUID  string             `yaml:"guid"`
	Name  string             `yaml:"name"`
	Lines []core.ContentNode `yaml:"lines,omitempty"`

	// Preamble is the body text above the marker, kept verbatim.
	Preamble string `yaml:"-"`
}

// parseRecord reads a record file. Files without frontmatter are plain notes:
// their guid derives from relPath and their text becomes the preamble.
func parseRecord(r io.Reader, relPath string) (*recordFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	rf := &recordFile{}
	body := data
	if bytes.HasPrefix(data, []byte("---\n")) || bytes.HasPrefix(data, []byte("---\r\n")) {
		rest := data[3:]
		parts := bytes.SplitN(rest, []byte("\n---"), 2)
		if len(parts) == 1 {
			return nil, errors.New("frontmatter started but no closing delimiter found")
		}
		if err := yaml.Unmarshal(parts[0], rf); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		body = bytes.TrimPrefix(parts[1], []byte("\r"))
		body = bytes.TrimPrefix(body, []byte("\n"))
	}

	text := string(body)
	if i := strings.Index(text, OutlineMarker); i >= 0 {
		text = text[:i]
	}
	rf.Preamble = strings.TrimRight(text, "\r\n")

	stem := strings.TrimSuffix(relPath, path.Ext(relPath))
	if rf.GUID == "" {
		rf.GUID = stem
	}
	if rf.Name == "" {
		rf.Name = path.Base(stem)
	}
	return rf, nil
}

// serializeRecord renders the frontmatter, the preamble and the outline.
func serializeRecord(rf *recordFile) ([]byte, error) {
	meta, err := yaml.Marshal(rf)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n")
	if rf.Preamble != "" {
		buf.WriteString(rf.Preamble)
		buf.WriteString("\n\n")
	}
	buf.WriteString(OutlineMarker)
	buf.WriteString("\n")
	renderOutline(&buf, rf.GUID, rf.Lines)
	return buf.Bytes(), nil
}

func renderOutline(buf *bytes.Buffer, rootGUID string, nodes []core.ContentNode) {
	depth := core.Depths(nodes, rootGUID)
	for _, n := range nodes {
		buf.WriteString(strings.Repeat("  ", depth[n.GUID]))
		buf.WriteString("- ")
		if n.Kind == core.KindQuote {
			buf.WriteString("> ")
		}
		buf.WriteString(renderSegments(n.Segments))
		buf.WriteString("\n")
	}
}

func renderSegments(segs []core.Segment) string {
	var sb strings.Builder
	for _, s := range segs {
		switch s.Type {
		case core.SegmentBold:
			sb.WriteString("**" + s.Text + "**")
		case core.SegmentHashtag:
			if !strings.HasPrefix(s.Text, "#") {
				sb.WriteString("#")
			}
			sb.WriteString(s.Text)
		case core.SegmentLink, core.SegmentLinkObj:
			sb.WriteString("<" + s.Text + ">")
		default:
			// Line breaks would split the bullet.
			sb.WriteString(strings.ReplaceAll(s.Text, "\n", " "))
		}
	}
	return sb.String()
}
