package github

// Issue is an issue as returned by the GitHub issues API.
//
// Issues are served verbatim in the blob and are immutable once fetched.
type Issue struct {
	Number int     `json:"number"`
	URL    string  `json:"html_url"`
	Title  string  `json:"title"`
	Body   string  `json:"body"`
	Labels []Label `json:"labels"`
}

// HasAnyLabel reports whether the issue carries one of the named labels.
func (i Issue) HasAnyLabel(names map[string]struct{}) bool {
	for _, l := range i.Labels {
		if _, ok := names[l.Name]; ok {
			return true
		}
	}
	return false
}

// Label is an issue label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	URL   string `json:"url"`
}

type milestoneRecord struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// contentFile is the contents API representation of a repository file.
type contentFile struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}
