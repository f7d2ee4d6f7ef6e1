package issues

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/findwork/internal/data"
	"github.com/jpalmerr/findwork/internal/github"
)

const defaultMaxConcurrency = 8

// Tracker is the upstream issue tracker.
type Tracker interface {
	// Issues lists issues of repo carrying all labels, optionally restricted
	// to a milestone number (zero means no restriction).
	Issues(ctx context.Context, repo string, labels []string, milestone int) ([]github.Issue, error)

	// Milestones returns milestone numbers of repo keyed by title.
	Milestones(ctx context.Context, repo string) (map[string]int, error)
}

// Data maps an association key to its non-empty issue list.
type Data map[data.Key][]github.Issue

// Option configures a [Fetcher].
type Option func(*Fetcher)

// WithMaxConcurrency limits the number of associations fetched at once.
// Values below one are ignored.
func WithMaxConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxConcurrency = n
		}
	}
}

// WithLogger sets the logger used for per-association debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Fetcher queries a [Tracker] for every association of a [data.StructuralData].
type Fetcher struct {
	tracker        Tracker
	maxConcurrency int
	logger         *slog.Logger
}

// NewFetcher creates a [Fetcher] backed by tracker.
func NewFetcher(tracker Tracker, opts ...Option) *Fetcher {
	f := &Fetcher{
		tracker:        tracker,
		maxConcurrency: defaultMaxConcurrency,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch queries the tracker for every association of sd.
//
// Associations are independent and fetched concurrently. Milestone titles are
// resolved through a cache that lives for this call only, so each repository's
// milestone list is requested at most once per Fetch. The first error cancels
// the remaining requests and is returned.
func (f *Fetcher) Fetch(ctx context.Context, sd *data.StructuralData) (Data, error) {
	assocs := sd.AllAssociations()
	results := make([][]github.Issue, len(assocs))
	milestones := newMilestoneCache(f.tracker)

	cats := make([]data.Category, len(assocs))
	for i, tc := range assocs {
		cat, ok := sd.Category(tc.Category)
		if !ok {
			return nil, fmt.Errorf("%w %q", data.ErrUnknownCategory, tc.Category)
		}
		cats[i] = cat
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxConcurrency)

	for i, tc := range assocs {
		g.Go(func() error {
			issues, err := f.fetchOne(ctx, milestones, cats[i], tc)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", tc.Tab, tc.Category, err)
			}
			results[i] = issues
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(Data, len(assocs))
	for i, tc := range assocs {
		if len(results[i]) == 0 {
			continue
		}
		out[tc.Key()] = results[i]
	}
	return out, nil
}

// fetchOne queries the issues of a single association and applies its
// negative label filter.
func (f *Fetcher) fetchOne(ctx context.Context, milestones *milestoneCache, cat data.Category, tc data.TabCategory) ([]github.Issue, error) {
	labels := EffectiveLabels(cat.Labels, tc.Labels)

	number := 0
	if tc.Milestone != "" {
		n, err := milestones.resolve(ctx, cat.Repository, tc.Milestone)
		if err != nil {
			return nil, err
		}
		number = n
	}

	fetched, err := f.tracker.Issues(ctx, cat.Repository, labels, number)
	if err != nil {
		return nil, err
	}

	issues := FilterNegative(fetched, tc.NegativeLabels)
	f.logger.Debug("fetched association issues",
		"tab", tc.Tab,
		"category", tc.Category,
		"repository", cat.Repository,
		"fetched", len(fetched),
		"kept", len(issues),
	)
	return issues, nil
}

// EffectiveLabels returns the sorted, deduplicated union of the category and
// association label filters.
func EffectiveLabels(categoryLabels, associationLabels []string) []string {
	out := make([]string, 0, len(categoryLabels)+len(associationLabels))
	out = append(out, categoryLabels...)
	out = append(out, associationLabels...)
	slices.Sort(out)
	return slices.Compact(out)
}

// FilterNegative drops every issue carrying at least one of the negative labels.
// The input slice is not modified.
func FilterNegative(issues []github.Issue, negative []string) []github.Issue {
	if len(negative) == 0 {
		return issues
	}

	exclude := make(map[string]struct{}, len(negative))
	for _, l := range negative {
		exclude[l] = struct{}{}
	}

	out := make([]github.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.HasAnyLabel(exclude) {
			continue
		}
		out = append(out, issue)
	}
	return out
}

// milestoneCache memoizes per-repository milestone lookups for one fetch cycle.
// Concurrent callers for the same repository share a single request.
type milestoneCache struct {
	tracker Tracker

	mu      sync.Mutex
	entries map[string]*milestoneEntry
}

type milestoneEntry struct {
	once    sync.Once
	byTitle map[string]int
	err     error
}

func newMilestoneCache(tracker Tracker) *milestoneCache {
	return &milestoneCache{
		tracker: tracker,
		entries: make(map[string]*milestoneEntry),
	}
}

func (c *milestoneCache) resolve(ctx context.Context, repo, title string) (int, error) {
	c.mu.Lock()
	entry, ok := c.entries[repo]
	if !ok {
		entry = &milestoneEntry{}
		c.entries[repo] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.byTitle, entry.err = c.tracker.Milestones(ctx, repo)
	})
	if entry.err != nil {
		return 0, entry.err
	}

	n, ok := entry.byTitle[title]
	if !ok {
		return 0, fmt.Errorf("%w %q in %s", github.ErrUnknownMilestone, title, repo)
	}
	return n, nil
}
