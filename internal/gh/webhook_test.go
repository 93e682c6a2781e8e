package gh

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedRequest(t *testing.T, secret, eventType string, payload []byte) *http.Request {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	sig := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	r := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-GitHub-Event", eventType)
	r.Header.Set("X-Hub-Signature-256", sig)
	return r
}

func TestValidateAndParsePush(t *testing.T) {
	payload := []byte(`{"ref":"refs/heads/main","commits":[{"id":"abc","added":["a.go"],"modified":["b.md"]}]}`)

	event, err := ValidateAndParse(signedRequest(t, "s3cret", "push", payload), "s3cret")
	require.NoError(t, err)

	push, ok := event.(*github.PushEvent)
	require.True(t, ok)
	assert.Equal(t, "refs/heads/main", push.GetRef())
}

func TestValidateAndParseBadSignature(t *testing.T) {
	payload := []byte(`{"ref":"refs/heads/main"}`)
	r := signedRequest(t, "wrong-secret", "push", payload)

	_, err := ValidateAndParse(r, "s3cret")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateAndParseBadPayload(t *testing.T) {
	r := signedRequest(t, "s3cret", "push", []byte(`{not json`))

	_, err := ValidateAndParse(r, "s3cret")
	assert.ErrorIs(t, err, ErrUnparseablePayload)
}

func TestPushChangedPaths(t *testing.T) {
	event := &github.PushEvent{
		Commits: []*github.HeadCommit{
			{
				Added:    []string{"src/new.ts"},
				Modified: []string{"src/app.ts", "README.md"},
			},
			{
				Modified: []string{"src/app.ts"}, // duplicate across commits
				Removed:  []string{"src/old.ts"},
			},
		},
	}

	paths := PushChangedPaths(event)
	assert.Equal(t, []string{"src/new.ts", "src/app.ts", "README.md", "src/old.ts"}, paths)
}

func TestPushChangedPathsEmpty(t *testing.T) {
	assert.Empty(t, PushChangedPaths(&github.PushEvent{}))
}

func TestIsMergedPR(t *testing.T) {
	merged := &github.PullRequestEvent{
		Action:      github.String("closed"),
		PullRequest: &github.PullRequest{Merged: github.Bool(true)},
	}
	closedUnmerged := &github.PullRequestEvent{
		Action:      github.String("closed"),
		PullRequest: &github.PullRequest{Merged: github.Bool(false)},
	}
	opened := &github.PullRequestEvent{
		Action:      github.String("opened"),
		PullRequest: &github.PullRequest{},
	}

	assert.True(t, IsMergedPR(merged))
	assert.False(t, IsMergedPR(closedUnmerged))
	assert.False(t, IsMergedPR(opened))
}
