package capture

import (
	"context"
	"strings"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/webclip/pkg/bridge"
	"github.com/aretw0/webclip/pkg/core"
	"github.com/aretw0/webclip/pkg/git"
)

// Service answers the host-side requests against one workspace.
type Service struct {
	workspace core.Workspace
	notifier  core.Notifier
	resolver  *Resolver
	builder   *Builder
	config    config

	mu       sync.Mutex
	captures uint64
	failures uint64
}

// NewService wires a resolver and builder over ws. panel and notifier may be nil.
func NewService(ws core.Workspace, panel core.Panel, notifier core.Notifier, opts ...Option) *Service {
	return &Service{
		workspace: ws,
		notifier:  notifier,
		resolver:  NewResolver(ws, panel, opts...),
		builder:   NewBuilder(opts...),
		config:    newConfig(opts),
	}
}

// Routes is the dispatch table served by a bridge.Host.
func (s *Service) Routes() bridge.Routes {
	return bridge.Routes{
		core.TypePing: func(ctx context.Context, _ core.Message) (any, error) {
			return s.Ping(ctx), nil
		},
		core.TypeCapture: func(ctx context.Context, msg core.Message) (any, error) {
			return s.Capture(ctx, *msg.Payload)
		},
		core.TypeSearch: func(ctx context.Context, msg core.Message) (any, error) {
			refs, err := s.Search(ctx, msg.Query)
			if err != nil {
				// Autocomplete callers expect a list, never an error.
				s.config.logger.Warn("search failed", "query", msg.Query, "error", err)
				return []core.PageRef{}, nil
			}
			return refs, nil
		},
		core.TypeGetTags: func(ctx context.Context, msg core.Message) (any, error) {
			tags, err := s.Tags(ctx, msg.Query)
			if err != nil {
				s.config.logger.Warn("tag search failed", "query", msg.Query, "error", err)
				return []string{}, nil
			}
			return tags, nil
		},
	}
}

// Ping has no side effects.
func (s *Service) Ping(context.Context) core.PingReply {
	return core.PingReply{Connected: true}
}

// Capture resolves the destination and inserts the payload.
func (s *Service) Capture(ctx context.Context, p core.CapturePayload) (core.CaptureReply, error) {
	if err := p.Validate(); err != nil {
		return core.CaptureReply{}, err
	}

	reply, err := s.capture(ctx, p)

	s.mu.Lock()
	if err != nil {
		s.failures++
	} else {
		s.captures++
	}
	s.mu.Unlock()

	if err != nil {
		s.config.logger.Warn("capture failed", "destination", p.Destination.Type, "error", err)
		return core.CaptureReply{}, err
	}
	return reply, nil
}

func (s *Service) capture(ctx context.Context, p core.CapturePayload) (core.CaptureReply, error) {
	anchor, err := s.resolver.Resolve(ctx, p.Destination)
	if err != nil {
		return core.CaptureReply{}, err
	}

	title, err := s.builder.Insert(ctx, p, anchor)
	if err != nil {
		return core.CaptureReply{}, err
	}
	s.config.logger.Info("captured", "mode", p.Mode, "record", anchor.Name(), "node", title.GUID)

	s.checkpoint(ctx, p)
	s.notify(ctx, p)

	return core.CaptureReply{Success: true, RecordGUID: anchor.GUID(), NodeGUID: title.GUID}, nil
}

func (s *Service) checkpoint(ctx context.Context, p core.CapturePayload) {
	v, ok := s.workspace.(core.Versioned)
	if !ok {
		return
	}
	subject := p.Title
	if subject == "" {
		subject = p.URL
	}
	reason := git.FormatChangeReason(git.CommitTypeDocs, "capture", subject, p.URL)
	if err := v.Checkpoint(context.WithValue(ctx, core.ChangeReasonKey, reason)); err != nil {
		s.config.logger.Warn("checkpoint failed", "error", err)
	}
}

func (s *Service) notify(ctx context.Context, p core.CapturePayload) {
	if s.notifier == nil {
		return
	}
	title, message := toast(p)
	if err := s.notifier.Notify(ctx, title, message); err != nil {
		s.config.logger.Warn("notification failed", "error", err)
	}
}

// Search returns destination pages whose name contains query, falling back to
// the workspace's full-text search. Queries shorter than MinQueryLength return
// nothing without touching the workspace.
func (s *Service) Search(ctx context.Context, query string) ([]core.PageRef, error) {
	refs := []core.PageRef{}
	if len([]rune(query)) < MinQueryLength {
		return refs, nil
	}

	names, err := s.recordCollections(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.workspace.Records(ctx)
	if err != nil {
		return nil, core.Collaborator("list records", err)
	}

	needle := strings.ToLower(query)
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Name()), needle) {
			refs = append(refs, core.PageRef{GUID: rec.GUID(), Name: rec.Name(), Collection: names[rec.GUID()]})
			if len(refs) == MaxSearchResults {
				return refs, nil
			}
		}
	}
	if len(refs) > 0 {
		return refs, nil
	}

	found, err := s.workspace.Search(ctx, query, MaxSearchResults)
	if err != nil {
		return nil, core.Collaborator("search", err)
	}
	for _, rec := range found.Records {
		refs = append(refs, core.PageRef{GUID: rec.GUID(), Name: rec.Name(), Collection: names[rec.GUID()]})
	}
	return refs, nil
}

// recordCollections maps record guids to their collection name.
func (s *Service) recordCollections(ctx context.Context) (map[string]string, error) {
	collections, err := s.workspace.Collections(ctx)
	if err != nil {
		return nil, core.Collaborator("list collections", err)
	}
	names := make(map[string]string)
	for _, c := range collections {
		records, err := c.Records(ctx)
		if err != nil {
			return nil, core.Collaborator("list collection records", err)
		}
		for _, rec := range records {
			names[rec.GUID()] = c.Name()
		}
	}
	return names, nil
}

// Tags suggests hashtags found in lines matching query.
func (s *Service) Tags(ctx context.Context, query string) ([]string, error) {
	tags := []string{}
	if query == "" {
		return tags, nil
	}

	hashQuery := query
	if !strings.HasPrefix(hashQuery, "#") {
		hashQuery = "#" + hashQuery
	}
	found, err := s.workspace.Search(ctx, hashQuery, tagSearchLimit)
	if err != nil {
		return nil, core.Collaborator("search tags", err)
	}
	seen := make(map[string]bool)
	collect := func(lines []core.ContentNode, keep func(string) bool) {
		for _, l := range lines {
			for _, seg := range l.Segments {
				if seg.Type != core.SegmentHashtag {
					continue
				}
				tag := normalizeTag(seg.Text)
				if keep(tag) && !seen[tag] {
					seen[tag] = true
					tags = append(tags, tag)
				}
			}
		}
	}
	collect(found.Lines, func(string) bool { return true })

	if len(tags) == 0 {
		plain := strings.TrimPrefix(query, "#")
		found, err := s.workspace.Search(ctx, plain, tagSearchLimit)
		if err != nil {
			return nil, core.Collaborator("search tags", err)
		}
		needle := strings.ToLower(plain)
		collect(found.Lines, func(tag string) bool {
			return strings.Contains(strings.ToLower(tag), needle)
		})
	}

	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	return tags, nil
}

func normalizeTag(t string) string {
	if strings.HasPrefix(t, "#") {
		return t
	}
	return "#" + t
}

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Captures      uint64 `json:"captures"`
	Failures      uint64 `json:"failures"`
	WorkspaceType string `json:"workspace_type"`
	Versioned     bool   `json:"versioned"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	wsType := "workspace"
	if comp, ok := s.workspace.(introspection.Component); ok {
		wsType = comp.ComponentType()
	}
	_, versioned := s.workspace.(core.Versioned)

	s.mu.Lock()
	defer s.mu.Unlock()
	return ServiceState{
		Captures:      s.captures,
		Failures:      s.failures,
		WorkspaceType: wsType,
		Versioned:     versioned,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "capture-service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
