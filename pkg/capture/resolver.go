package capture

import (
	"context"
	"errors"
	"strings"

	"github.com/aretw0/webclip/pkg/core"
)

// JournalCollection is the case-insensitive name of the journal collection.
const JournalCollection = "journal"

// Resolver locates the record a capture is anchored at.
type Resolver struct {
	workspace core.Workspace
	panel     core.Panel
	config    config
}

// NewResolver creates a resolver. panel may be nil when the host has no UI.
func NewResolver(ws core.Workspace, panel core.Panel, opts ...Option) *Resolver {
	return &Resolver{workspace: ws, panel: panel, config: newConfig(opts)}
}

// Resolve returns the anchor record for dest or ErrDestinationNotFound.
func (r *Resolver) Resolve(ctx context.Context, dest core.DestinationRef) (core.Record, error) {
	switch dest.Type {
	case core.DestinationPage:
		return r.page(ctx, dest.PageGUID)
	case core.DestinationJournal:
		return r.journal(ctx)
	}
	return nil, core.ErrDestinationNotFound
}

func (r *Resolver) page(ctx context.Context, guid string) (core.Record, error) {
	if guid == "" {
		return nil, core.ErrDestinationNotFound
	}
	rec, err := r.workspace.Record(ctx, guid)
	if errors.Is(err, core.ErrRecordNotFound) || (err == nil && rec == nil) {
		return nil, core.ErrDestinationNotFound
	}
	if err != nil {
		return nil, core.Collaborator("get record", err)
	}
	return rec, nil
}

// journalScope is the state shared by the journal strategies.
type journalScope struct {
	dates   journalDates
	journal core.Collection
	records []core.Record
}

// journalStrategy is one step of the journal fallback chain.
type journalStrategy struct {
	name string
	find func(ctx context.Context, r *Resolver, s *journalScope) (core.Record, bool, error)
}

// journalStrategies run in order; the first hit wins.
var journalStrategies = []journalStrategy{
	{name: "journal-match", find: matchToday},
	{name: "journal-create", find: createToday},
	{name: "journal-latest", find: latestDated},
	{name: "active-record", find: activeRecord},
	{name: "guid-scan", find: scanAll},
}

func (r *Resolver) journal(ctx context.Context) (core.Record, error) {
	scope := &journalScope{dates: datesFor(r.config.now())}

	collections, err := r.workspace.Collections(ctx)
	if err != nil {
		return nil, core.Collaborator("list collections", err)
	}
	for _, c := range collections {
		if strings.EqualFold(c.Name(), JournalCollection) {
			scope.journal = c
			break
		}
	}
	if scope.journal != nil {
		if scope.records, err = scope.journal.Records(ctx); err != nil {
			return nil, core.Collaborator("list journal records", err)
		}
	}

	for _, s := range journalStrategies {
		rec, ok, err := s.find(ctx, r, scope)
		if err != nil {
			return nil, err
		}
		if ok {
			r.config.logger.Debug("journal resolved", "strategy", s.name, "guid", rec.GUID(), "name", rec.Name())
			return rec, nil
		}
	}
	r.config.logger.Debug("journal lookup failed", "date", scope.dates.compact)
	return nil, core.ErrDestinationNotFound
}

func matchToday(_ context.Context, _ *Resolver, s *journalScope) (core.Record, bool, error) {
	for _, rec := range s.records {
		if strings.HasSuffix(rec.GUID(), s.dates.compact) {
			return rec, true, nil
		}
		name := rec.Name()
		if strings.Contains(name, s.dates.monthDay) || strings.Contains(name, s.dates.compact) {
			return rec, true, nil
		}
	}
	return nil, false, nil
}

func createToday(ctx context.Context, r *Resolver, s *journalScope) (core.Record, bool, error) {
	if s.journal == nil {
		return nil, false, nil
	}
	guid, err := s.journal.CreateRecord(ctx, s.dates.full)
	if err != nil || guid == "" {
		r.config.logger.Debug("journal entry not created", "name", s.dates.full, "error", err)
		return nil, false, nil
	}
	rec, err := r.workspace.Record(ctx, guid)
	if err != nil || rec == nil {
		r.config.logger.Debug("created journal entry not found", "guid", guid, "error", err)
		return nil, false, nil
	}
	return rec, true, nil
}

// latestDated picks the journal record with the greatest guid date suffix,
// falling back to the first record when none carries a date.
func latestDated(_ context.Context, _ *Resolver, s *journalScope) (core.Record, bool, error) {
	if len(s.records) == 0 {
		return nil, false, nil
	}
	latest, latestDate := s.records[0], ""
	for _, rec := range s.records {
		if d, ok := guidDate(rec.GUID()); ok && d > latestDate {
			latest, latestDate = rec, d
		}
	}
	return latest, true, nil
}

func activeRecord(ctx context.Context, r *Resolver, _ *journalScope) (core.Record, bool, error) {
	if r.panel == nil {
		return nil, false, nil
	}
	rec, err := r.panel.ActiveRecord(ctx)
	if err != nil {
		return nil, false, core.Collaborator("active record", err)
	}
	return rec, rec != nil, nil
}

func scanAll(ctx context.Context, r *Resolver, s *journalScope) (core.Record, bool, error) {
	records, err := r.workspace.Records(ctx)
	if err != nil {
		return nil, false, core.Collaborator("list records", err)
	}
	for _, rec := range records {
		if strings.HasSuffix(rec.GUID(), s.dates.compact) {
			return rec, true, nil
		}
	}
	return nil, false, nil
}
