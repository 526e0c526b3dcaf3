// Package notify renders release notifications. Everything here is pure:
// no I/O, and identical input always yields an identical payload.
package notify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/waabox/shipwatch/internal/domain"
)

// style is the fixed look of a phase.
type style struct {
	Emoji string
	Label string
	Color string
}

var styles = map[domain.Phase]style{
	domain.PhasePending: {Emoji: ":hourglass:", Label: "In Progress", Color: "#3AA3E3"},
	domain.PhaseSuccess: {Emoji: ":white_check_mark:", Label: "Success", Color: "#36a64f"},
	domain.PhaseFailure: {Emoji: ":x:", Label: "Failed", Color: "#E01E5A"},
}

// styleFor returns the style of phase; unknown phases render as failures.
func styleFor(phase domain.Phase) style {
	if s, ok := styles[phase]; ok {
		return s
	}
	return styles[domain.PhaseFailure]
}

// Emoji returns the emoji shown for phase.
func Emoji(phase domain.Phase) string { return styleFor(phase).Emoji }

// Color returns the attachment color for phase.
func Color(phase domain.Phase) string { return styleFor(phase).Color }

// Headline returns the status line text for phase, without the emoji.
func Headline(info domain.ReleaseInfo, phase domain.Phase) string {
	switch phase {
	case domain.PhasePending:
		return fmt.Sprintf("Releasing *%s* `v%s`", info.PackageName, info.Version)
	case domain.PhaseSuccess:
		return fmt.Sprintf("Released *%s* `v%s`", info.PackageName, info.Version)
	default:
		return fmt.Sprintf("Release failed for *%s*", info.PackageName)
	}
}

var prNumberPattern = regexp.MustCompile(`\(#(\d+)\)$`)

// ExtractPRNumber returns the pull request number from a trailing "(#123)" in title.
func ExtractPRNumber(title string) (string, bool) {
	m := prNumberPattern.FindStringSubmatch(title)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// WorkflowURL links to the CI run driving the release.
func WorkflowURL(ci domain.CIContext) string {
	return fmt.Sprintf("%s/%s/actions/runs/%s", ci.ServerURL, ci.Repository, ci.RunID)
}

// PRURL links to pull request number of repository. An empty number yields the base link.
func PRURL(repository, number string) string {
	return fmt.Sprintf("https://github.com/%s/pull/%s", repository, number)
}

// ReleaseLinks turns published artifacts into links, newest first.
// Artifacts without a name or URL are skipped; any name containing "npm" is shortened to "npm".
// The input slice is not modified.
func ReleaseLinks(artifacts []domain.ReleaseArtifact) []domain.ReleaseLink {
	links := make([]domain.ReleaseLink, 0, len(artifacts))
	for i := len(artifacts) - 1; i >= 0; i-- {
		a := artifacts[i]
		if a.URL == "" || a.Name == "" {
			continue
		}
		text := a.Name
		if strings.Contains(a.Name, "npm") {
			text = "npm"
		}
		links = append(links, domain.ReleaseLink{Text: text, URL: a.URL})
	}
	return links
}

// Links returns every link shown for phase: release links on success, then the workflow link.
func Links(info domain.ReleaseInfo, phase domain.Phase) []domain.ReleaseLink {
	workflow := domain.ReleaseLink{Text: "workflow", URL: WorkflowURL(info.CI)}
	if phase != domain.PhaseSuccess {
		return []domain.ReleaseLink{workflow}
	}
	return append(ReleaseLinks(info.Releases), workflow)
}

// Render builds the message payload for info in the given phase.
// The payload always has exactly two sections: status with links, then the PR line.
func Render(info domain.ReleaseInfo, phase domain.Phase) domain.MessagePayload {
	st := styleFor(phase)

	links := Links(info, phase)
	formatted := make([]string, len(links))
	for i, l := range links {
		formatted[i] = fmt.Sprintf("<%s|%s>", l.URL, l.Text)
	}

	prNumber, _ := ExtractPRNumber(info.CommitTitle)
	prLine := fmt.Sprintf("*PR:* <%s|%s>", PRURL(info.CI.Repository, prNumber), info.CommitTitle)

	return domain.MessagePayload{
		Color:    st.Color,
		Fallback: fmt.Sprintf("%s v%s - %s", info.PackageName, info.Version, st.Label),
		Sections: []domain.Section{
			{Fields: []string{
				st.Emoji + " " + Headline(info, phase),
				"🔗 " + strings.Join(formatted, " | "),
			}},
			{Text: prLine},
		},
	}
}
