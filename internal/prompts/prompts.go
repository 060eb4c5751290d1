// Package prompts holds the fixed prompt templates offered to agents.
package prompts

type Template struct {
	Name        string
	Description string
	Text        string
}

var templates = []Template{
	{
		Name:        "analyze_ci_results",
		Description: "Summarize CI failures from recent events",
		Text:        "Analyze the latest CI/CD events and summarize failures with actionable insights.",
	},
	{
		Name:        "create_deployment_summary",
		Description: "Draft a deployment summary for the team",
		Text:        "Create a team-friendly deployment summary based on recent CI/CD results.",
	},
	{
		Name:        "generate_pr_status_report",
		Description: "Report on pull request changes alongside CI status",
		Text:        "Generate a combined report of PR changes and CI/CD status.",
	},
	{
		Name:        "troubleshoot_workflow_failure",
		Description: "Walk through debugging the latest failed workflow",
		Text:        "Systematically debug the most recent workflow failure.",
	},
}

// All returns the templates in a stable order.
func All() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// Get returns the text of the named template.
func Get(name string) (string, bool) {
	for _, t := range templates {
		if t.Name == name {
			return t.Text, true
		}
	}
	return "", false
}
