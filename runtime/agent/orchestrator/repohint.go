package orchestrator

import "regexp"

// repoHintPatterns extracts a likely repository name from a free-form
// prompt, tried in order before falling back to the Router (§4.6
// Discovery, §4.7 step 1). Each pattern's first capture group is the
// candidate repo name.
var repoHintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bin\s+([\w-]+-(?:service|bff|api|dashboard))\b`),
	regexp.MustCompile(`(?i)\b([\w-]+-(?:service|bff|api|dashboard))\s+repo(?:sitory)?\b`),
	regexp.MustCompile(`(?i)\brepo(?:sitory)?\s+([\w-]+-(?:service|bff|api|dashboard))\b`),
}

// ExtractRepoHint returns the first repo-shaped name found in prompt, if
// any.
func ExtractRepoHint(prompt string) (string, bool) {
	for _, re := range repoHintPatterns {
		if m := re.FindStringSubmatch(prompt); m != nil {
			return m[1], true
		}
	}
	return "", false
}
