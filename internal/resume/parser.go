// Package resume extracts a structured candidate profile from an uploaded
// resume document using a multimodal LLM call.
package resume

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	schemafiles "github.com/jonathan/interview-coach/schemas"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
)

// MaxDocumentBytes is the largest accepted upload.
const MaxDocumentBytes = 5 << 20

// DefaultQuestionCount is how many suggested questions the model is asked for.
const DefaultQuestionCount = 5

var acceptedTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

// Document is an uploaded resume file.
type Document struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Parser turns resume documents into ResumeData.
type Parser struct {
	client        llm.Client
	tier          llm.ModelTier
	questionCount int
}

// NewParser creates a parser backed by client.
func NewParser(client llm.Client) *Parser {
	return &Parser{
		client:        client,
		tier:          llm.TierStandard,
		questionCount: DefaultQuestionCount,
	}
}

// Parse makes a single extraction attempt. It never returns partially
// populated data: any failure yields a nil result and a typed error.
func (p *Parser) Parse(ctx context.Context, doc Document) (*types.ResumeData, error) {
	mimeType, err := DetectMIMEType(doc)
	if err != nil {
		return nil, err
	}

	schema := llm.ResumeDataSchema()
	responseText, err := p.client.GenerateStructured(ctx, llm.Request{
		Prompt:      buildExtractionPrompt(p.questionCount),
		Attachments: []llm.Attachment{{MIMEType: mimeType, Data: doc.Data}},
		Schema:      &schema,
	}, p.tier)
	if err != nil {
		return nil, &APICallError{
			Message: "failed to generate content from LLM",
			Cause:   err,
		}
	}

	return parseResponse(responseText)
}

// DetectMIMEType checks the document size and resolves its content type,
// sniffing the bytes when the declared type is missing or generic.
func DetectMIMEType(doc Document) (string, error) {
	if len(doc.Data) == 0 {
		return "", &DocumentError{Filename: doc.Filename, Message: "file is empty"}
	}
	if len(doc.Data) > MaxDocumentBytes {
		return "", &DocumentError{
			Filename: doc.Filename,
			Message:  "file exceeds " + strconv.Itoa(MaxDocumentBytes>>20) + " MiB",
		}
	}

	mimeType := normalizeMIME(doc.MIMEType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalizeMIME(mime.TypeByExtension(strings.ToLower(filepath.Ext(doc.Filename))))
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalizeMIME(http.DetectContentType(doc.Data))
	}

	if !acceptedTypes[mimeType] {
		return "", &DocumentError{Filename: doc.Filename, Message: "unsupported content type " + mimeType}
	}
	return mimeType, nil
}

func normalizeMIME(value string) string {
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

func buildExtractionPrompt(questionCount int) string {
	return prompts.MustRender("resume.json", "extract-resume", map[string]string{
		"QuestionCount": strconv.Itoa(questionCount),
	})
}

func parseResponse(responseText string) (*types.ResumeData, error) {
	cleaned := llm.CleanJSONBlock(responseText)
	if !json.Valid([]byte(cleaned)) {
		return nil, &ParseError{Message: "response is not valid JSON"}
	}

	if err := schemas.ValidateEmbedded(schemafiles.ResumeData, []byte(cleaned)); err != nil {
		var verr *schemas.ValidationError
		if errors.As(err, &verr) && len(verr.Errors) > 0 {
			return nil, &ValidationError{
				Field:   verr.Errors[0].Field,
				Message: verr.Errors[0].Message,
				Cause:   err,
			}
		}
		return nil, &ValidationError{Message: "response does not match resume schema", Cause: err}
	}

	var data types.ResumeData
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, &ParseError{
			Message: "failed to parse JSON response",
			Cause:   err,
		}
	}

	if err := data.Validate(); err != nil {
		return nil, &ValidationError{Message: "resume data failed validation", Cause: err}
	}
	return &data, nil
}
