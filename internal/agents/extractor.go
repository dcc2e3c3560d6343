package agents

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spec-kit/refund-claim-service/internal/config"
	"github.com/spec-kit/refund-claim-service/internal/domain"
	"github.com/spec-kit/refund-claim-service/internal/gemini"
)

// Extractor is the evidence-collection stage: it sends the case's evidence
// and notes to the model and receives structured claim facts.
type Extractor struct {
	invoker     gemini.Invoker
	model       string
	temperature float64
}

// NewExtractor builds the stage from configuration.
func NewExtractor(invoker gemini.Invoker, cfg config.GeminiConfig) *Extractor {
	return &Extractor{
		invoker:     invoker,
		model:       cfg.ExtractionModel,
		temperature: cfg.ExtractionTemperature,
	}
}

// Extract runs one extraction call. With useSearch the request enables the
// search tool and demands strict raw JSON (the service offers no schema
// enforcement alongside search); otherwise a response schema is enforced.
func (e *Extractor) Extract(ctx context.Context, items []domain.EvidenceItem, userNotes string, useSearch bool) (*domain.ExtractedFacts, error) {
	parts, links, err := evidenceParts(items)
	if err != nil {
		return nil, err
	}

	prompt := extractionPrompt(userNotes, links, useSearch)
	parts = append(parts, gemini.Part{Text: prompt})

	req := gemini.Request{
		Model:       e.model,
		Parts:       parts,
		Temperature: e.temperature,
	}
	if useSearch {
		req.UseSearch = true
	} else {
		req.ResponseSchema = extractionSchema()
	}

	resp, err := e.invoker.GenerateContent(ctx, req)
	if err != nil {
		return nil, err
	}

	var facts domain.ExtractedFacts
	if err := SanitizeJSON(resp.Text, &facts); err != nil {
		return nil, err
	}

	if useSearch {
		for _, src := range resp.Sources {
			facts.SearchSources = append(facts.SearchSources, domain.SearchSource{
				Title: src.Title,
				URI:   src.URI,
			})
		}
	}
	return &facts, nil
}

// evidenceParts converts encoded binary evidence into inline request parts
// and collects link references for the prompt. Items whose encoding has not
// finished are excluded.
func evidenceParts(items []domain.EvidenceItem) ([]gemini.Part, []string, error) {
	var parts []gemini.Part
	var links []string
	for i := range items {
		item := &items[i]
		binary, err := item.IsBinary()
		if err != nil {
			return nil, nil, err
		}
		if !binary {
			links = append(links, item.LinkURL)
			continue
		}
		if item.UploadStatus != domain.UploadDone || item.Base64Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(item.Base64Data)
		if err != nil {
			return nil, nil, fmt.Errorf("decode evidence %s: %w", item.ID, err)
		}
		parts = append(parts, gemini.Part{Data: data, MIMEType: item.MIMEType})
	}
	return parts, links, nil
}

func extractionPrompt(userNotes string, links []string, useSearch bool) string {
	linkList := "None"
	if len(links) > 0 {
		linkList = strings.Join(links, "\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert Data Extraction Agent.
Analyze the provided evidence and the user's notes.

User Notes: %q
URLs/Links provided: %s

Extraction Rules:
1. **Hierarchy of Truth**: PRIORITIZE official documents (Receipts, Invoices, Tickets) over User Notes for factual data.
2. **Issue Description**: Summarize *why* the refund is needed.
3. **Contact Info**: Look carefully for "support@", "help@" emails.
`, userNotes, linkList)

	if useSearch {
		b.WriteString(`
**CRITICAL INSTRUCTION**:
- Use web search to verify specific details if unclear.
- **Output strictly VALID JSON**.
- No markdown formatting like ` + "```json" + `.
- No conversational filler.

Format: {"merchantName": "...", "merchantEmail": "...", "transactionDate": "...", "amount": "...", "currency": "...", "bookingReference": "...", "issueDescription": "..."}
`)
	} else {
		b.WriteString("\nExtract the key details strictly into JSON format.")
	}
	return b.String()
}

func extractionSchema() *gemini.Schema {
	return &gemini.Schema{
		Type: gemini.TypeObject,
		Properties: map[string]*gemini.Schema{
			"merchantName": {
				Type:        gemini.TypeString,
				Description: "Name of airline, hotel, or travel agency",
			},
			"merchantEmail": {
				Type:        gemini.TypeString,
				Description: "Customer service or support email address found in documents (e.g. support@airline.com)",
			},
			"transactionDate": {
				Type:        gemini.TypeString,
				Description: "Date of transaction or booking in YYYY-MM-DD format",
			},
			"amount": {
				Type:        gemini.TypeString,
				Description: "Total amount paid (numeric value)",
			},
			"currency": {
				Type:        gemini.TypeString,
				Description: "Currency code (e.g. USD, CNY)",
			},
			"bookingReference": {
				Type:        gemini.TypeString,
				Description: "Booking ID, PNR, or Ticket Number if visible",
			},
			"issueDescription": {
				Type:        gemini.TypeString,
				Description: "Summary of what went wrong based on visual evidence, audio transcripts, or notes",
			},
		},
		Required: []string{"merchantName", "amount", "issueDescription"},
	}
}
