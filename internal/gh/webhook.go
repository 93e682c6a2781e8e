// Package gh wraps the GitHub boundary: webhook payload verification and
// the documentation-repository content and pull request APIs.
package gh

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
)

var (
	// ErrInvalidSignature reports a webhook delivery whose HMAC signature
	// does not match the shared secret.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrUnparseablePayload reports a correctly signed delivery whose body
	// could not be decoded into a known event type.
	ErrUnparseablePayload = errors.New("unparseable webhook payload")
)

// ValidateAndParse verifies the webhook signature against secret and parses
// the payload into a typed event.
func ValidateAndParse(r *http.Request, secret string) (any, error) {
	payload, err := github.ValidatePayload(r, []byte(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseablePayload, err)
	}
	return event, nil
}

// PushChangedPaths extracts the repository-relative paths touched by a push
// event: added, modified, and removed files across all commits, deduplicated
// in first-seen order. Removed paths are included; the updater skips files
// that no longer exist on disk.
func PushChangedPaths(event *github.PushEvent) []string {
	seen := make(map[string]bool)
	var paths []string

	add := func(list []string) {
		for _, p := range list {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, commit := range event.Commits {
		add(commit.Added)
		add(commit.Modified)
		add(commit.Removed)
	}
	return paths
}

// IsMergedPR reports whether a pull request event represents a merge into
// the base branch.
func IsMergedPR(event *github.PullRequestEvent) bool {
	return event.GetAction() == "closed" && event.GetPullRequest().GetMerged()
}
