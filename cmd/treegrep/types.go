package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string   `json:"command"`
	Results    any      `json:"results"`
	TotalCount *int     `json:"total_count,omitempty"`
	RunID      string   `json:"run_id,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// CLIRun is a JSON-friendly scan run.
type CLIRun struct {
	ID         string `json:"id"`
	Root       string `json:"root"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	FileCount  int    `json:"file_count"`
	MatchCount int    `json:"match_count"`
	ErrorCount int    `json:"error_count"`
}

// CLIRuleCount is a per-rule finding count.
type CLIRuleCount struct {
	RuleID string `json:"rule_id"`
	Count  int    `json:"count"`
}

// CLIKinds lists the node kinds of one language.
type CLIKinds struct {
	Language string   `json:"language"`
	Kinds    []string `json:"kinds"`
}

