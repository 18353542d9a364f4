package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	schemafiles "github.com/jonathan/interview-coach/schemas"

	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/observability"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Generate a feedback report for a saved interview transcript",
	Long:  "Read a transcript JSON array (speaker, text, timestamp) and generate the structured FeedbackData report.",
	RunE:  runFeedback,
}

var (
	feedbackTranscript string
	feedbackName       string
	feedbackOutput     string
	feedbackLevel      string
	feedbackDuration   int
	feedbackFocus      string
	feedbackAPIKey     string
)

func init() {
	feedbackCmd.Flags().StringVarP(&feedbackTranscript, "transcript", "t", "", "Path to transcript JSON file")
	feedbackCmd.Flags().StringVarP(&feedbackName, "name", "n", "", "Candidate name")
	feedbackCmd.Flags().StringVarP(&feedbackOutput, "out", "o", "", "Path to output JSON file (default stdout)")
	feedbackCmd.Flags().StringVar(&feedbackLevel, "level", "", "Interview level (Beginner, Intermediate, Advanced, Expert)")
	feedbackCmd.Flags().IntVar(&feedbackDuration, "duration", 0, "Interview duration in minutes")
	feedbackCmd.Flags().StringVar(&feedbackFocus, "focus", "", "Interview focus area")
	feedbackCmd.Flags().StringVar(&feedbackAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	_ = feedbackCmd.MarkFlagRequired("transcript")
	_ = feedbackCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(_ *cobra.Command, _ []string) error {
	transcript, err := loadTranscript(feedbackTranscript)
	if err != nil {
		return err
	}
	interviewConfig, err := buildInterviewConfig(feedbackLevel, feedbackDuration, feedbackFocus)
	if err != nil {
		return err
	}
	apiKey, err := requireAPIKey(feedbackAPIKey)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := llm.NewClient(ctx, llm.DefaultConfig(), apiKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	report, err := feedback.NewGenerator(client).Generate(ctx, feedback.Input{
		CandidateName: feedbackName,
		Config:        interviewConfig,
		Transcript:    transcript,
	})
	if err != nil {
		return fmt.Errorf("failed to generate feedback: %w", err)
	}

	if appConfig != nil && appConfig.Verbose {
		printer := observability.NewPrinter(os.Stderr)
		printer.PrintInterviewConfig(interviewConfig)
		printer.PrintTranscript(transcript)
		printer.PrintFeedback(report)
	}

	jsonBytes, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeOutput(feedbackOutput, jsonBytes)
}

// loadTranscript reads and schema-checks a transcript file.
func loadTranscript(path string) ([]types.TranscriptionItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}
	if err := schemas.ValidateEmbedded(schemafiles.Transcript, data); err != nil {
		return nil, fmt.Errorf("transcript does not match schema: %w", err)
	}

	var transcript []types.TranscriptionItem
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}
	return transcript, nil
}

// buildInterviewConfig applies flag overrides on top of the configured defaults.
func buildInterviewConfig(level string, duration int, focus string) (types.InterviewConfig, error) {
	cfg := types.DefaultInterviewConfig()
	if appConfig != nil {
		cfg = appConfig.InterviewDefaults()
	}
	if level != "" {
		cfg.Level = types.SkillLevel(level)
	}
	if duration != 0 {
		cfg.Duration = duration
	}
	if focus != "" {
		cfg.Focus = focus
	}
	if err := cfg.Validate(); err != nil {
		return types.InterviewConfig{}, fmt.Errorf("invalid interview config: %w", err)
	}
	return cfg, nil
}
