package generation

import (
	"fmt"
	"strings"
)

// Prompt templates for the documentation pipeline. Kept as plain constants;
// the retrieval context and file lists are interpolated by the builders.

const selectPagesSystem = `You are a technical documentation maintainer.
Given a list of changed source files, a summary of the change, and a list of
existing documentation pages, identify which pages need updating.
Respond with one page path per line and nothing else. If no pages are
affected, respond with NONE.`

const draftPageSystem = `You are a technical documentation maintainer.
Rewrite the given documentation page so it stays accurate after the
described source changes. Preserve the page's structure, tone, and front
matter. Respond with the complete updated page content and nothing else.`

// BuildSelectPagesPrompt assembles the affected-pages selection prompt.
func BuildSelectPagesPrompt(changedFiles, docPages []string, codeContext string) (system, prompt string) {
	var b strings.Builder
	b.WriteString("Changed source files:\n")
	for _, f := range changedFiles {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\nExisting documentation pages:\n")
	for _, p := range docPages {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	b.WriteString("\nRelevant code context:\n")
	b.WriteString(codeContext)
	return selectPagesSystem, b.String()
}

// BuildDraftPagePrompt assembles the page-drafting prompt.
func BuildDraftPagePrompt(pagePath, pageContent string, changedFiles []string, codeContext string) (system, prompt string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Documentation page: %s\n\n", pagePath)
	b.WriteString("Current page content:\n")
	b.WriteString(pageContent)
	b.WriteString("\n\nChanged source files:\n")
	for _, f := range changedFiles {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\nRelevant code context:\n")
	b.WriteString(codeContext)
	return draftPageSystem, b.String()
}

// ParseSelectedPages parses the selection response: one page path per line,
// or NONE. Paths not present in known are dropped so a hallucinated page
// never produces a commit.
func ParseSelectedPages(response string, known []string) []string {
	knownSet := make(map[string]bool, len(known))
	for _, p := range known {
		knownSet[p] = true
	}

	var pages []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line == "" || strings.EqualFold(line, "NONE") {
			continue
		}
		if knownSet[line] {
			pages = append(pages, line)
		}
	}
	return pages
}
