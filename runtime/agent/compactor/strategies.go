package compactor

import (
	"fmt"
	"sort"
	"strings"
)

const (
	keyPointLimit   = 20
	sourceFileLimit = 15
	referenceLimit  = 20
	categoryTopN    = 5
	truncateChars   = 200
	detailsTruncate = 300
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func summarize(findings []Finding) []string {
	points := make([]string, 0, keyPointLimit)
	seenFiles := make(map[string]struct{})
	var files []string

	for _, f := range findings {
		if len(points) < keyPointLimit {
			points = append(points, fmt.Sprintf("%s (%s)", truncate(f.Content, truncateChars), f.Source))
		}
		if _, ok := seenFiles[f.Source]; !ok && len(files) < sourceFileLimit {
			seenFiles[f.Source] = struct{}{}
			files = append(files, f.Source)
		}
	}

	out := make([]string, 0, len(points)+len(files)+1)
	out = append(out, points...)
	if len(files) > 0 {
		out = append(out, "Source files: "+strings.Join(files, ", "))
	}
	return out
}

func extract(findings []Finding) *ExtractResult {
	result := &ExtractResult{}

	for i, f := range findings {
		if i < referenceLimit {
			result.References = append(result.References, fmt.Sprintf("%s: %s", f.Source, truncate(f.Content, truncateChars)))
		}
		lower := strings.ToLower(f.Content)
		if containsAny(lower, "must", "required", "constraint", "cannot") {
			result.Constraints = append(result.Constraints, truncate(f.Content, truncateChars))
		}
		if containsAny(lower, "import", "require", "depends", "uses") {
			result.Dependencies = append(result.Dependencies, truncate(f.Content, truncateChars))
		}
	}
	return result
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hierarchical(categoryIndex map[string][]Finding) []string {
	categories := make([]string, 0, len(categoryIndex))
	for cat := range categoryIndex {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var out []string
	for _, cat := range categories {
		items := make([]Finding, len(categoryIndex[cat]))
		copy(items, categoryIndex[cat])
		sort.SliceStable(items, func(i, j int) bool { return items[i].RelevanceScore > items[j].RelevanceScore })
		if len(items) > categoryTopN {
			items = items[:categoryTopN]
		}
		for _, f := range items {
			line := fmt.Sprintf("[%s] %s (%s", cat, truncate(f.Content, truncateChars), f.Source)
			if len(f.LineNumbers) > 0 {
				line += fmt.Sprintf(":%d", f.LineNumbers[0])
			}
			line += ")"
			out = append(out, line)
		}
	}
	return out
}

func buildPlan(findings []Finding, objective, testCommand string) *Plan {
	bySource := make(map[string][]Finding)
	var order []string
	for _, f := range findings {
		if _, ok := bySource[f.Source]; !ok {
			order = append(order, f.Source)
		}
		bySource[f.Source] = append(bySource[f.Source], f)
	}

	steps := make([]PlanStep, 0, len(order))
	for i, source := range order {
		items := bySource[source]
		n := len(items)
		if n > 3 {
			n = 3
		}
		parts := make([]string, 0, n)
		for _, f := range items[:n] {
			parts = append(parts, f.Content)
		}
		steps = append(steps, PlanStep{
			ID:          fmt.Sprintf("step_%d", i),
			Description: fmt.Sprintf("Modify %s", source),
			TargetFile:  source,
			Action:      "modify",
			Details:     truncate(strings.Join(parts, " "), detailsTruncate),
			TestCommand: testCommand,
		})
	}

	return &Plan{
		Objective:    objective,
		Steps:        steps,
		TargetFiles:  append([]string{}, order...),
		TestCommands: []string{testCommand},
	}
}
