package core

import (
	"fmt"
	"strings"
)

// NodeKind is the rendering kind of a content node.
type NodeKind string

const (
	KindText  NodeKind = "text"
	KindQuote NodeKind = "quote"
)

// SegmentType is the inline formatting of a segment.
type SegmentType string

const (
	SegmentText    SegmentType = "text"
	SegmentBold    SegmentType = "bold"
	SegmentHashtag SegmentType = "hashtag"
	SegmentLink    SegmentType = "link"
	SegmentLinkObj SegmentType = "linkobj"
)

// Segment is one inline run of text inside a node.
type Segment struct {
	Type SegmentType `json:"type" yaml:"type"`
	Text string      `json:"text" yaml:"text"`
}

// Text, Bold, Hashtag and Link build segments.
func Text(s string) Segment    { return Segment{Type: SegmentText, Text: s} }
func Bold(s string) Segment    { return Segment{Type: SegmentBold, Text: s} }
func Hashtag(s string) Segment { return Segment{Type: SegmentHashtag, Text: s} }
func Link(s string) Segment    { return Segment{Type: SegmentLink, Text: s} }

// ContentNode is a line in a record's outline.
// Root-level nodes carry the record's guid as ParentGUID.
type ContentNode struct {
	GUID       string    `json:"guid" yaml:"guid"`
	ParentGUID string    `json:"parentGuid" yaml:"parent"`
	Kind       NodeKind  `json:"kind" yaml:"kind"`
	Segments   []Segment `json:"segments,omitempty" yaml:"segments,omitempty"`
}

// PlainText concatenates the node's segment texts.
func (n ContentNode) PlainText() string {
	var sb strings.Builder
	for _, s := range n.Segments {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// SearchText is the text matched by full-text search. Hashtags keep their '#'
// so "#tag" queries find them.
func (n ContentNode) SearchText() string {
	var sb strings.Builder
	for _, s := range n.Segments {
		if s.Type == SegmentHashtag && !strings.HasPrefix(s.Text, "#") {
			sb.WriteString("#")
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// LastChild returns the last direct child of parentGUID in document order.
func LastChild(nodes []ContentNode, parentGUID string) *ContentNode {
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].ParentGUID == parentGUID {
			n := nodes[i]
			return &n
		}
	}
	return nil
}

// Children returns the direct children of parentGUID in document order.
func Children(nodes []ContentNode, parentGUID string) []ContentNode {
	var out []ContentNode
	for _, n := range nodes {
		if n.ParentGUID == parentGUID {
			out = append(out, n)
		}
	}
	return out
}

// Depths maps every node guid to its nesting level; root-level nodes are 0.
func Depths(nodes []ContentNode, rootGUID string) map[string]int {
	depth := make(map[string]int, len(nodes))
	for _, n := range nodes {
		if n.ParentGUID == rootGUID {
			depth[n.GUID] = 0
			continue
		}
		depth[n.GUID] = depth[n.ParentGUID] + 1
	}
	return depth
}

// InsertNode places node into a pre-order node list.
// With after == nil the node becomes the first child of its parent. Otherwise
// it lands right after the subtree of after, which must be a sibling.
func InsertNode(nodes []ContentNode, rootGUID string, node ContentNode, after *ContentNode) ([]ContentNode, error) {
	var at int
	if after == nil {
		if node.ParentGUID != rootGUID {
			p := indexOf(nodes, node.ParentGUID)
			if p < 0 {
				return nil, fmt.Errorf("parent %s not found", node.ParentGUID)
			}
			at = p + 1
		}
	} else {
		a := indexOf(nodes, after.GUID)
		if a < 0 {
			return nil, fmt.Errorf("sibling %s not found", after.GUID)
		}
		if nodes[a].ParentGUID != node.ParentGUID {
			return nil, fmt.Errorf("node %s is not a child of %s", after.GUID, node.ParentGUID)
		}
		at = subtreeEnd(nodes, a)
	}

	out := make([]ContentNode, 0, len(nodes)+1)
	out = append(out, nodes[:at]...)
	out = append(out, node)
	out = append(out, nodes[at:]...)
	return out, nil
}

func indexOf(nodes []ContentNode, guid string) int {
	for i, n := range nodes {
		if n.GUID == guid {
			return i
		}
	}
	return -1
}

// subtreeEnd returns the index just past the descendants of nodes[i].
func subtreeEnd(nodes []ContentNode, i int) int {
	inside := map[string]bool{nodes[i].GUID: true}
	j := i + 1
	for ; j < len(nodes) && inside[nodes[j].ParentGUID]; j++ {
		inside[nodes[j].GUID] = true
	}
	return j
}
