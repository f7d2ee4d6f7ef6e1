package main

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

type mockLabel struct {
	Name string `json:"name"`
}

type mockIssue struct {
	Number int         `json:"number"`
	URL    string      `json:"html_url"`
	Title  string      `json:"title"`
	Body   string      `json:"body"`
	Labels []mockLabel `json:"labels"`
}

var mockLabelPool = []string{"E-easy", "E-mentor", "E-help-wanted", "A-docs", "A-diagnostics", "T-compiler", "T-libs"}

var mockMilestones = []map[string]any{
	{"number": 1, "title": "1.0"},
	{"number": 2, "title": "impl period"},
}

// StartMockGitHub serves the subset of the GitHub REST API findwork uses.
//
// Structural data files are read from dataDir and returned through the
// contents API. Every repository gets a generated set of issues that grows by
// one every 30-90 seconds, so refreshes have something to pick up.
func StartMockGitHub(addr, dataDir string) {
	var (
		mu     sync.Mutex
		issues = make(map[string][]mockIssue)
		next   = make(map[string]time.Time)
	)

	issuesFor := func(repo string) []mockIssue {
		mu.Lock()
		defer mu.Unlock()

		list, ok := issues[repo]
		if !ok {
			for i := 1; i <= 6; i++ {
				list = append(list, newMockIssue(repo, i))
			}
			next[repo] = time.Now().Add(time.Duration(30+rand.Intn(61)) * time.Second)
		}
		if time.Now().After(next[repo]) {
			issue := newMockIssue(repo, len(list)+1)
			list = append(list, issue)
			next[repo] = time.Now().Add(time.Duration(30+rand.Intn(61)) * time.Second)
			slog.Info("issue opened", "repo", repo, "number", issue.Number)
		}
		issues[repo] = list
		return append([]mockIssue(nil), list...)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		// the repository name is ignored, every repo shares dataDir
		name := filepath.Base(r.PathValue("path"))
		content, err := os.ReadFile(filepath.Join(dataDir, name))
		if err != nil {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		writeMockJSON(w, map[string]string{
			"type":     "file",
			"name":     name,
			"encoding": "base64",
			"content":  wrapBase64(base64.StdEncoding.EncodeToString(content), 60),
		})
	})

	mux.HandleFunc("GET /repos/{owner}/{repo}/issues", func(w http.ResponseWriter, r *http.Request) {
		repo := r.PathValue("owner") + "/" + r.PathValue("repo")
		var want []string
		if labels := r.URL.Query().Get("labels"); labels != "" {
			want = strings.Split(labels, ",")
		}

		// simulate API latency
		time.Sleep(time.Duration(20+rand.Intn(80)) * time.Millisecond)

		matched := []mockIssue{}
		for _, issue := range issuesFor(repo) {
			if hasAllLabels(issue, want) {
				matched = append(matched, issue)
			}
		}
		writeMockJSON(w, matched)
	})

	mux.HandleFunc("GET /repos/{owner}/{repo}/milestones", func(w http.ResponseWriter, r *http.Request) {
		writeMockJSON(w, mockMilestones)
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock github error", "error", err)
	}
}

func newMockIssue(repo string, n int) mockIssue {
	labels := []mockLabel{{Name: mockLabelPool[n%len(mockLabelPool)]}, {Name: mockLabelPool[(n*3)%len(mockLabelPool)]}}
	return mockIssue{
		Number: n,
		URL:    fmt.Sprintf("https://github.com/%s/issues/%d", repo, n),
		Title:  fmt.Sprintf("Mock issue %d in %s", n, repo),
		Body:   "Generated by the example mock GitHub server.",
		Labels: labels,
	}
}

func hasAllLabels(issue mockIssue, want []string) bool {
	for _, w := range want {
		found := false
		for _, l := range issue.Labels {
			if l.Name == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func wrapBase64(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}

func writeMockJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
