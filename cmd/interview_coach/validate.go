package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	schemafiles "github.com/jonathan/interview-coach/schemas"

	"github.com/jonathan/interview-coach/internal/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON file against a schema",
	Long: "Validate a JSON file against a JSON Schema. --schema accepts an embedded schema name (" +
		strings.Join(schemafiles.Names(), ", ") + ") or a path to a schema file.",
	RunE: runValidate,
}

var (
	validateSchema string
	validateJSON   string
)

func init() {
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "Embedded schema name or path to schema file")
	validateCmd.Flags().StringVar(&validateJSON, "json", "", "Path to JSON file to validate")
	_ = validateCmd.MarkFlagRequired("schema")
	_ = validateCmd.MarkFlagRequired("json")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	if err := schemas.ValidateJSON(validateSchema, validateJSON); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			_, _ = fmt.Fprint(os.Stderr, validationErr.Error())
			return fmt.Errorf("validation failed with %d error(s)", len(validationErr.Errors))
		}
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Validation passed: %s matches %s\n", validateJSON, validateSchema)
	return nil
}
