// Package observability provides structured logging setup and formatted
// output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/interview-coach/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

// writeList renders at most limit items as bullets, noting how many were hidden.
func writeList(sb *strings.Builder, items []string, limit int) {
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
}

// PrintResume outputs a human-readable summary of the parsed resume.
func (p *Printer) PrintResume(resume *types.ResumeData) {
	if resume == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Candidate: %s\n", resume.Name))
	sb.WriteString(fmt.Sprintf("Summary:   %s\n", truncate(resume.ExperienceSummary, 44)))
	sb.WriteString("\n")

	if len(resume.Skills) > 0 {
		sb.WriteString(fmt.Sprintf("Skills (%d):\n", len(resume.Skills)))
		writeList(&sb, resume.Skills, maxItemsToShow)
		sb.WriteString("\n")
	}

	if len(resume.SuggestedQuestions) > 0 {
		sb.WriteString("Suggested questions:\n")
		writeList(&sb, resume.SuggestedQuestions, 3)
	}

	p.printBox("PARSED RESUME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintInterviewConfig outputs the chosen interview parameters.
func (p *Printer) PrintInterviewConfig(cfg types.InterviewConfig) {
	content := fmt.Sprintf("Level:    %s\nDuration: %d minutes\nFocus:    %s", cfg.Level, cfg.Duration, cfg.Focus)
	p.printBox("INTERVIEW SETUP", content)
}

// PrintTranscript outputs the last few transcript turns.
func (p *Printer) PrintTranscript(items []types.TranscriptionItem) {
	if len(items) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total entries: %d\n\n", len(items)))

	start := 0
	if len(items) > 2*maxItemsToShow {
		start = len(items) - 2*maxItemsToShow
		sb.WriteString(fmt.Sprintf("... %d earlier entries\n", start))
	}
	for _, item := range items[start:] {
		if item.Text == "" {
			continue
		}
		sb.WriteString(item.Line() + "\n")
	}

	p.printBox("TRANSCRIPT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFeedback outputs the feedback report with a score bar.
func (p *Printer) PrintFeedback(fb *types.FeedbackData) {
	if fb == nil {
		return
	}

	filled := max(0, min(fb.Score, 100)) / 5
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 20-filled)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Score: %3d/100  %s\n\n", fb.Score, bar))

	if len(fb.Strengths) > 0 {
		sb.WriteString("Strengths:\n")
		writeList(&sb, fb.Strengths, maxItemsToShow)
		sb.WriteString("\n")
	}
	if len(fb.AreasForImprovement) > 0 {
		sb.WriteString("Areas for improvement:\n")
		writeList(&sb, fb.AreasForImprovement, maxItemsToShow)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Technical:     %s\n", truncate(fb.TechnicalAccuracy, 40)))
	sb.WriteString(fmt.Sprintf("Communication: %s\n", truncate(fb.CommunicationSkills, 40)))
	sb.WriteString(fmt.Sprintf("Summary:       %s", truncate(fb.OverallSummary, 40)))

	p.printBox("FEEDBACK REPORT", sb.String())
}
