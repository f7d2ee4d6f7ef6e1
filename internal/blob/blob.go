package blob

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jpalmerr/findwork/internal/data"
	"github.com/jpalmerr/findwork/internal/github"
	"github.com/jpalmerr/findwork/internal/issues"
)

// RepositoryLinkText is the text of the link synthesized for every category.
const RepositoryLinkText = "repository"

var (
	// ErrIntegrity reports inconsistent inputs: an association naming an
	// unknown category, or an issue entry that is present but empty.
	ErrIntegrity = errors.New("blob integrity violation")

	// ErrTabNotFound is returned by [ByTab] for an unknown tab id.
	ErrTabNotFound = errors.New("tab not found")
)

// Blob is the served document.
type Blob struct {
	Tabs []Tab `json:"tabs"`
}

// Tab is a tab view inside a [Blob].
type Tab struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Categories  []Category `json:"categories"`

	// Tags is the sorted union of the included categories' tags.
	Tags []string `json:"tags"`
}

// Category is a category view inside a [Tab].
type Category struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Links       []data.Link    `json:"links"`
	Tags        []string       `json:"tags"`
	Issues      []github.Issue `json:"issues"`
}

// RepoURLFunc maps a repository identifier such as "org/name" to its web URL.
type RepoURLFunc func(repository string) string

// GitHubRepoURL returns a [RepoURLFunc] rooted at webURL, for example
// "https://github.com".
func GitHubRepoURL(webURL string) RepoURLFunc {
	return func(repository string) string {
		return webURL + "/" + repository
	}
}

// Build joins structural data with fetched issues.
//
// Tabs keep their declared order and are never omitted. A category appears in
// a tab only when issue data holds its (tab, category) key. Links are merged
// as: association link, repository link, category links.
func Build(sd *data.StructuralData, issueData issues.Data, repoURL RepoURLFunc) (*Blob, error) {
	tabs := sd.Tabs()
	out := &Blob{Tabs: make([]Tab, 0, len(tabs))}

	for _, t := range tabs {
		tab := Tab{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Categories:  []Category{},
		}
		tags := make(map[string]struct{})

		for _, tc := range sd.Associations(t.ID) {
			cat, ok := sd.Category(tc.Category)
			if !ok {
				return nil, fmt.Errorf("%w: tab %q references unknown category %q", ErrIntegrity, t.ID, tc.Category)
			}

			found, ok := issueData[tc.Key()]
			if !ok {
				continue
			}
			if len(found) == 0 {
				return nil, fmt.Errorf("%w: empty issue list stored for %s/%s", ErrIntegrity, tc.Tab, tc.Category)
			}

			tab.Categories = append(tab.Categories, Category{
				ID:          cat.ID,
				Title:       cat.Title,
				Description: cat.Description,
				Links:       mergeLinks(tc.Link, repoURL(cat.Repository), cat.Links),
				Tags:        nonNil(cat.Tags),
				Issues:      withLabels(found),
			})
			for _, tag := range cat.Tags {
				tags[tag] = struct{}{}
			}
		}

		tab.Tags = sortedKeys(tags)
		out.Tabs = append(out.Tabs, tab)
	}

	return out, nil
}

// ByTab returns a view of b in which only the tab with id tabID keeps its
// categories and tags. Every other tab is present with empty sequences.
// b is not modified.
func ByTab(b *Blob, tabID string) (*Blob, error) {
	idx := slices.IndexFunc(b.Tabs, func(t Tab) bool { return t.ID == tabID })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrTabNotFound, tabID)
	}

	out := &Blob{Tabs: make([]Tab, len(b.Tabs))}
	for i, t := range b.Tabs {
		if i != idx {
			t.Categories = []Category{}
			t.Tags = []string{}
		}
		out.Tabs[i] = t
	}
	return out, nil
}

// TabIDs returns the tab ids in order.
func (b *Blob) TabIDs() []string {
	ids := make([]string, len(b.Tabs))
	for i, t := range b.Tabs {
		ids[i] = t.ID
	}
	return ids
}

// NumIssues returns the number of issues across all tabs. An issue listed
// under several categories is counted once per listing.
func (b *Blob) NumIssues() int {
	n := 0
	for _, t := range b.Tabs {
		for _, c := range t.Categories {
			n += len(c.Issues)
		}
	}
	return n
}

func mergeLinks(assoc *data.Link, repoURL string, own []data.Link) []data.Link {
	links := make([]data.Link, 0, len(own)+2)
	if assoc != nil {
		links = append(links, *assoc)
	}
	links = append(links, data.Link{Text: RepositoryLinkText, URL: repoURL})
	return append(links, own...)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// withLabels returns issues with every nil label list replaced by an empty
// one. The input is copied only when a replacement is needed.
func withLabels(in []github.Issue) []github.Issue {
	out, copied := in, false
	for i, issue := range in {
		if issue.Labels != nil {
			continue
		}
		if !copied {
			out, copied = slices.Clone(in), true
		}
		out[i].Labels = []github.Label{}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
