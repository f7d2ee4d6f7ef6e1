package blob

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"testing"

	"github.com/goccy/go-json"
	"pgregory.net/rapid"

	"github.com/jpalmerr/findwork/internal/data"
	"github.com/jpalmerr/findwork/internal/github"
	"github.com/jpalmerr/findwork/internal/issues"
)

var testRepoURL = GitHubRepoURL("https://github.com")

func mockStructData(t *testing.T) *data.StructuralData {
	t.Helper()
	sd, err := data.New(
		[]data.Tab{{ID: "foo", Title: "Foo", Description: "A Foo for foos"}},
		[]data.Category{{
			ID:         "rustfmt",
			Title:      "Rustfmt",
			Repository: "org/rustfmt",
			Labels:     []string{"p-high"},
			Tags:       []string{"b", "a"},
		}},
		[]data.TabCategory{{Tab: "foo", Category: "rustfmt", Labels: []string{"bug"}}},
	)
	if err != nil {
		t.Fatalf("data.New() error = %v", err)
	}
	return sd
}

func mockIssueData() issues.Data {
	return issues.Data{
		{Tab: "foo", Category: "rustfmt"}: {{Number: 42, Title: "Title", Body: "body/description"}},
	}
}

func TestBuild_ConcreteScenario(t *testing.T) {
	b, err := Build(mockStructData(t), mockIssueData(), testRepoURL)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(b.Tabs) != 1 {
		t.Fatalf("len(Tabs) = %d, want 1", len(b.Tabs))
	}
	tab := b.Tabs[0]
	if tab.ID != "foo" || tab.Title != "Foo" {
		t.Errorf("tab = %s/%s", tab.ID, tab.Title)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(tab.Tags, want) {
		t.Errorf("Tags = %v, want %v", tab.Tags, want)
	}
	if len(tab.Categories) != 1 {
		t.Fatalf("len(Categories) = %d, want 1", len(tab.Categories))
	}

	cat := tab.Categories[0]
	if cat.ID != "rustfmt" || cat.Title != "Rustfmt" {
		t.Errorf("category = %s/%s", cat.ID, cat.Title)
	}
	wantLinks := []data.Link{{Text: "repository", URL: "https://github.com/org/rustfmt"}}
	if !reflect.DeepEqual(cat.Links, wantLinks) {
		t.Errorf("Links = %v, want %v", cat.Links, wantLinks)
	}
	if len(cat.Issues) != 1 || cat.Issues[0].Number != 42 {
		t.Errorf("Issues = %+v, want [#42]", cat.Issues)
	}
	// category tags stay as declared
	if want := []string{"b", "a"}; !reflect.DeepEqual(cat.Tags, want) {
		t.Errorf("category Tags = %v, want %v", cat.Tags, want)
	}
}

func TestBuild_LinkOrder(t *testing.T) {
	sd, err := data.New(
		[]data.Tab{{ID: "t"}},
		[]data.Category{{
			ID:         "c",
			Repository: "o/r",
			Links:      []data.Link{{Text: "docs", URL: "d"}, {Text: "chat", URL: "z"}},
		}},
		[]data.TabCategory{{Tab: "t", Category: "c", Link: &data.Link{Text: "tracking", URL: "tr"}}},
	)
	if err != nil {
		t.Fatalf("data.New() error = %v", err)
	}

	b, err := Build(sd, issues.Data{{Tab: "t", Category: "c"}: {{Number: 1}}}, testRepoURL)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []data.Link{
		{Text: "tracking", URL: "tr"},
		{Text: "repository", URL: "https://github.com/o/r"},
		{Text: "docs", URL: "d"},
		{Text: "chat", URL: "z"},
	}
	if got := b.Tabs[0].Categories[0].Links; !reflect.DeepEqual(got, want) {
		t.Errorf("Links = %v, want %v", got, want)
	}
}

func TestBuild_TabWithoutIssuesKeptEmpty(t *testing.T) {
	b, err := Build(mockStructData(t), issues.Data{}, testRepoURL)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(b.Tabs) != 1 {
		t.Fatalf("len(Tabs) = %d, want 1", len(b.Tabs))
	}
	if len(b.Tabs[0].Categories) != 0 || len(b.Tabs[0].Tags) != 0 {
		t.Errorf("tab = %+v, want no categories and no tags", b.Tabs[0])
	}

	// empty sequences serialize as [] rather than null
	encoded, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	want := `{"tabs":[{"id":"foo","title":"Foo","description":"A Foo for foos","categories":[],"tags":[]}]}`
	if string(encoded) != want {
		t.Errorf("json = %s\nwant   %s", encoded, want)
	}
}

func TestBuild_EmptyIssueEntryIsIntegrityError(t *testing.T) {
	_, err := Build(mockStructData(t), issues.Data{{Tab: "foo", Category: "rustfmt"}: {}}, testRepoURL)
	if !errors.Is(err, ErrIntegrity) {
		t.Errorf("Build() error = %v, want ErrIntegrity", err)
	}
}

func TestBuild_IssueURLSerializedAsHTMLURL(t *testing.T) {
	issueData := issues.Data{
		{Tab: "foo", Category: "rustfmt"}: {{Number: 2, URL: "https://github.com/org/rustfmt/issues/2"}},
	}
	b, err := Build(mockStructData(t), issueData, testRepoURL)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	encoded, err := json.Marshal(b.Tabs[0].Categories[0].Issues[0])
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(encoded, &raw); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if raw["html_url"] != "https://github.com/org/rustfmt/issues/2" {
		t.Errorf("html_url = %v", raw["html_url"])
	}
}

func TestBuild_NilLabelsEncodeAsEmptyList(t *testing.T) {
	input := []github.Issue{
		{Number: 1, Labels: []github.Label{{Name: "bug"}}},
		{Number: 2},
	}
	issueData := issues.Data{{Tab: "foo", Category: "rustfmt"}: input}

	b, err := Build(mockStructData(t), issueData, testRepoURL)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	encoded, err := json.Marshal(b.Tabs[0].Categories[0].Issues[1])
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &raw); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got := string(raw["labels"]); got != "[]" {
		t.Errorf("labels = %s, want []", got)
	}
	if input[1].Labels != nil {
		t.Error("Build() modified its input issues")
	}
}

func TestByTab(t *testing.T) {
	b := &Blob{Tabs: []Tab{
		{ID: "a", Categories: []Category{{ID: "c1"}}, Tags: []string{"x"}},
		{ID: "b", Categories: []Category{{ID: "c2"}}, Tags: []string{"y"}},
	}}

	view, err := ByTab(b, "b")
	if err != nil {
		t.Fatalf("ByTab() error = %v", err)
	}

	if len(view.Tabs) != 2 {
		t.Fatalf("len(Tabs) = %d, want 2", len(view.Tabs))
	}
	if len(view.Tabs[0].Categories) != 0 || len(view.Tabs[0].Tags) != 0 {
		t.Errorf("unselected tab kept content: %+v", view.Tabs[0])
	}
	if view.Tabs[0].Categories == nil || view.Tabs[0].Tags == nil {
		t.Error("cleared sequences should be empty, not nil")
	}
	if len(view.Tabs[1].Categories) != 1 || view.Tabs[1].Tags[0] != "y" {
		t.Errorf("selected tab lost content: %+v", view.Tabs[1])
	}

	// source blob untouched
	if len(b.Tabs[0].Categories) != 1 || len(b.Tabs[0].Tags) != 1 {
		t.Errorf("ByTab mutated its input: %+v", b.Tabs[0])
	}
}

func TestByTab_NotFound(t *testing.T) {
	b := &Blob{Tabs: []Tab{{ID: "a", Categories: []Category{{ID: "c1"}}, Tags: []string{"x"}}}}

	view, err := ByTab(b, "missing")
	if !errors.Is(err, ErrTabNotFound) {
		t.Errorf("ByTab() error = %v, want ErrTabNotFound", err)
	}
	if view != nil {
		t.Errorf("ByTab() view = %+v, want nil", view)
	}
	if len(b.Tabs[0].Categories) != 1 {
		t.Error("ByTab mutated its input on failure")
	}
}

func TestBlob_Counters(t *testing.T) {
	b := &Blob{Tabs: []Tab{
		{ID: "a", Categories: []Category{{Issues: make([]github.Issue, 2)}, {Issues: make([]github.Issue, 1)}}},
		{ID: "b"},
	}}

	if got := b.TabIDs(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("TabIDs() = %v", got)
	}
	if got := b.NumIssues(); got != 3 {
		t.Errorf("NumIssues() = %d, want 3", got)
	}
}

// genInputs draws random structural data and issue data. Ids are generated
// from indices so they are always unique.
func genInputs(t *rapid.T) (*data.StructuralData, issues.Data) {
	tagPool := []string{"a", "b", "c", "d", "e"}

	numTabs := rapid.IntRange(0, 5).Draw(t, "numTabs")
	numCats := rapid.IntRange(1, 5).Draw(t, "numCats")

	var tabs []data.Tab
	for i := 0; i < numTabs; i++ {
		tabs = append(tabs, data.Tab{ID: fmt.Sprintf("tab%d", i)})
	}
	// declare tabs in a shuffled order so declared order differs from id order
	if len(tabs) > 1 {
		tabs = rapid.Permutation(tabs).Draw(t, "tabOrder")
	}

	var cats []data.Category
	for i := 0; i < numCats; i++ {
		cats = append(cats, data.Category{
			ID:         fmt.Sprintf("cat%d", i),
			Repository: fmt.Sprintf("org/repo%d", i),
			Tags:       rapid.SliceOfN(rapid.SampledFrom(tagPool), 0, 3).Draw(t, "tags"),
		})
	}

	var assocs []data.TabCategory
	issueData := issues.Data{}
	for _, tab := range tabs {
		for _, cat := range cats {
			if !rapid.Bool().Draw(t, "associated") {
				continue
			}
			tc := data.TabCategory{Tab: tab.ID, Category: cat.ID}
			if rapid.Bool().Draw(t, "hasLink") {
				tc.Link = &data.Link{Text: "extra", URL: "x"}
			}
			assocs = append(assocs, tc)
			if rapid.Bool().Draw(t, "hasIssues") {
				issueData[tc.Key()] = []github.Issue{{Number: rapid.IntRange(1, 1000).Draw(t, "number")}}
			}
		}
	}

	sd, err := data.New(tabs, cats, assocs)
	if err != nil {
		t.Fatalf("data.New() error = %v", err)
	}
	return sd, issueData
}

func TestBuild_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sd, issueData := genInputs(t)

		b, err := Build(sd, issueData, testRepoURL)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}

		tabs := sd.Tabs()
		if len(b.Tabs) != len(tabs) {
			t.Fatalf("len(Tabs) = %d, want %d", len(b.Tabs), len(tabs))
		}

		for i, tab := range b.Tabs {
			if tab.ID != tabs[i].ID {
				t.Fatalf("Tabs[%d] = %s, want declared %s", i, tab.ID, tabs[i].ID)
			}

			// categories are exactly the associations with an issue key
			var wantCats []string
			wantTags := map[string]struct{}{}
			for _, tc := range sd.Associations(tab.ID) {
				if _, ok := issueData[tc.Key()]; ok {
					wantCats = append(wantCats, tc.Category)
					cat, _ := sd.Category(tc.Category)
					for _, tag := range cat.Tags {
						wantTags[tag] = struct{}{}
					}
				}
			}
			var gotCats []string
			for _, c := range tab.Categories {
				gotCats = append(gotCats, c.ID)
			}
			if !slices.Equal(gotCats, wantCats) {
				t.Fatalf("tab %s categories = %v, want %v", tab.ID, gotCats, wantCats)
			}

			// tags are the sorted, deduplicated union of included categories
			if !slices.IsSorted(tab.Tags) {
				t.Fatalf("tab %s tags not sorted: %v", tab.ID, tab.Tags)
			}
			if len(slices.Compact(slices.Clone(tab.Tags))) != len(tab.Tags) {
				t.Fatalf("tab %s tags not deduplicated: %v", tab.ID, tab.Tags)
			}
			if len(tab.Tags) != len(wantTags) {
				t.Fatalf("tab %s tags = %v, want set %v", tab.ID, tab.Tags, wantTags)
			}
			for _, tag := range tab.Tags {
				if _, ok := wantTags[tag]; !ok {
					t.Fatalf("tab %s leaked tag %q", tab.ID, tag)
				}
			}

			// repository link always present, after the optional association link
			for j, c := range tab.Categories {
				repoIdx := 0
				if c.Links[0].Text == "extra" {
					repoIdx = 1
				}
				if c.Links[repoIdx].Text != RepositoryLinkText {
					t.Fatalf("tab %s category %d links = %v, repository link misplaced", tab.ID, j, c.Links)
				}
			}
		}
	})
}

func TestByTab_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sd, issueData := genInputs(t)
		b, err := Build(sd, issueData, testRepoURL)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		before, _ := json.Marshal(b)

		if len(b.Tabs) == 0 {
			if _, err := ByTab(b, "tab0"); !errors.Is(err, ErrTabNotFound) {
				t.Fatalf("ByTab() on empty blob error = %v", err)
			}
			return
		}

		selected := rapid.SampledFrom(b.TabIDs()).Draw(t, "selected")
		view, err := ByTab(b, selected)
		if err != nil {
			t.Fatalf("ByTab() error = %v", err)
		}
		if len(view.Tabs) != len(b.Tabs) {
			t.Fatalf("view has %d tabs, want %d", len(view.Tabs), len(b.Tabs))
		}
		for i, tab := range view.Tabs {
			if tab.ID != b.Tabs[i].ID {
				t.Fatalf("view tab order changed")
			}
			if tab.ID == selected {
				if !reflect.DeepEqual(tab, b.Tabs[i]) {
					t.Fatalf("selected tab changed")
				}
				continue
			}
			if len(tab.Categories) != 0 || len(tab.Tags) != 0 {
				t.Fatalf("tab %s not cleared", tab.ID)
			}
		}

		if _, err := ByTab(b, "no-such-tab"); !errors.Is(err, ErrTabNotFound) {
			t.Fatalf("ByTab(unknown) error = %v", err)
		}

		after, _ := json.Marshal(b)
		if string(before) != string(after) {
			t.Fatal("ByTab mutated the source blob")
		}
	})
}
