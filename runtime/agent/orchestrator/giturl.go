package orchestrator

import "strings"

// splitGitHubURL extracts the "owner" and "name" path segments from a
// GitHub URL such as "https://github.com/acme/payments-service". Returns
// ("", "") for anything that doesn't have at least two trailing path
// segments.
func splitGitHubURL(url string) (owner, name string) {
	trimmed := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", ""
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}
