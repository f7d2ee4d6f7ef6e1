package data

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// File names of the structural documents, relative to the data directory.
const (
	TabsFile        = "tabs.json"
	CategoriesFile  = "categories.json"
	TabCategoryFile = "tab-category.json"
)

// Construction errors. Both indicate a configuration bug in tab-category.json.
var (
	ErrUnknownTab      = errors.New("association references unknown tab")
	ErrUnknownCategory = errors.New("association references unknown category")
)

// Tab is a top-level grouping shown to users.
type Tab struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Link is a titled hyperlink.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Category is a unit of work backed by one upstream repository.
type Category struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Repository  string   `json:"repository"`
	Labels      []string `json:"labels"`
	Links       []Link   `json:"links"`
	Tags        []string `json:"tags"`
}

// TabCategory associates a category with a tab and carries the issue filters
// used for that pairing.
type TabCategory struct {
	Tab      string `json:"tab"`
	Category string `json:"category"`

	// Labels are unioned with the category's own labels.
	Labels []string `json:"labels"`

	// NegativeLabels exclude any fetched issue carrying one of them.
	NegativeLabels []string `json:"negative_labels,omitempty"`

	// Milestone is a milestone title, resolved to its number upstream.
	Milestone string `json:"milestone,omitempty"`

	Link *Link `json:"link,omitempty"`
}

// Key identifies an association.
type Key struct {
	Tab      string
	Category string
}

// Key returns the (tab, category) key of the association.
func (tc TabCategory) Key() Key {
	return Key{Tab: tc.Tab, Category: tc.Category}
}

// StructuralData is the validated, indexed form of the structural documents.
//
// StructuralData is immutable after [Parse] returns. Tabs and associations
// keep their declaration order.
type StructuralData struct {
	tabs         []Tab
	categories   map[string]Category
	associations []TabCategory
	byTab        map[string][]int
}

// Parse decodes and validates the three structural documents.
//
// Every association must reference a declared tab and category; tab ids,
// category ids and (tab, category) pairs must be unique.
func Parse(tabs, categories, tabCategory []byte) (*StructuralData, error) {
	var rawTabs []Tab
	if err := json.Unmarshal(tabs, &rawTabs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", TabsFile, err)
	}
	var rawCategories []Category
	if err := json.Unmarshal(categories, &rawCategories); err != nil {
		return nil, fmt.Errorf("parse %s: %w", CategoriesFile, err)
	}
	var rawAssociations []TabCategory
	if err := json.Unmarshal(tabCategory, &rawAssociations); err != nil {
		return nil, fmt.Errorf("parse %s: %w", TabCategoryFile, err)
	}
	return New(rawTabs, rawCategories, rawAssociations)
}

// New indexes already-decoded structural records, applying the same
// validation as [Parse].
func New(tabs []Tab, categories []Category, associations []TabCategory) (*StructuralData, error) {
	sd := &StructuralData{
		tabs:         make([]Tab, 0, len(tabs)),
		categories:   make(map[string]Category, len(categories)),
		associations: make([]TabCategory, 0, len(associations)),
		byTab:        make(map[string][]int, len(tabs)),
	}

	for i, t := range tabs {
		if t.ID == "" {
			return nil, fmt.Errorf("tabs[%d]: id is required", i)
		}
		if _, exists := sd.byTab[t.ID]; exists {
			return nil, fmt.Errorf("tabs[%d]: duplicate tab id %q", i, t.ID)
		}
		sd.byTab[t.ID] = nil
		sd.tabs = append(sd.tabs, t)
	}

	for i, c := range categories {
		if c.ID == "" {
			return nil, fmt.Errorf("categories[%d]: id is required", i)
		}
		if _, exists := sd.categories[c.ID]; exists {
			return nil, fmt.Errorf("categories[%d]: duplicate category id %q", i, c.ID)
		}
		if c.Repository == "" {
			return nil, fmt.Errorf("categories[%d] (%s): repository is required", i, c.ID)
		}
		sd.categories[c.ID] = c
	}

	seen := make(map[Key]struct{}, len(associations))
	for i, tc := range associations {
		if _, ok := sd.byTab[tc.Tab]; !ok {
			return nil, fmt.Errorf("tab-category[%d]: %w %q", i, ErrUnknownTab, tc.Tab)
		}
		if _, ok := sd.categories[tc.Category]; !ok {
			return nil, fmt.Errorf("tab-category[%d]: %w %q", i, ErrUnknownCategory, tc.Category)
		}
		if _, dup := seen[tc.Key()]; dup {
			return nil, fmt.Errorf("tab-category[%d]: duplicate association %s/%s", i, tc.Tab, tc.Category)
		}
		seen[tc.Key()] = struct{}{}

		sd.byTab[tc.Tab] = append(sd.byTab[tc.Tab], len(sd.associations))
		sd.associations = append(sd.associations, tc)
	}

	return sd, nil
}

// Tabs returns the tabs in declaration order.
// The returned slice is a copy.
func (sd *StructuralData) Tabs() []Tab {
	out := make([]Tab, len(sd.tabs))
	copy(out, sd.tabs)
	return out
}

// Category looks up a category by id.
func (sd *StructuralData) Category(id string) (Category, bool) {
	c, ok := sd.categories[id]
	return c, ok
}

// Associations returns the associations of one tab in declaration order.
func (sd *StructuralData) Associations(tabID string) []TabCategory {
	idx := sd.byTab[tabID]
	out := make([]TabCategory, len(idx))
	for i, j := range idx {
		out[i] = sd.associations[j]
	}
	return out
}

// AllAssociations returns every association in declaration order.
func (sd *StructuralData) AllAssociations() []TabCategory {
	out := make([]TabCategory, len(sd.associations))
	copy(out, sd.associations)
	return out
}

// NumCategories returns the number of declared categories.
func (sd *StructuralData) NumCategories() int {
	return len(sd.categories)
}
