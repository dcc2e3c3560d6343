package gemini

import (
	"context"
	"errors"

	genai "google.golang.org/genai"

	"github.com/spec-kit/refund-claim-service/internal/config"
)

// Client is the production Invoker backed by the Gemini API.
type Client struct {
	api *genai.Client
}

// NewClient connects to the Gemini API using the configured key.
func NewClient(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY not configured")
	}
	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// safetySettings blocks medium-and-above content on all harm categories for
// every request.
func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}

// GenerateContent implements Invoker.
func (c *Client) GenerateContent(ctx context.Context, req Request) (*Response, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := genai.RoleUser
		if turn.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, genai.Role(role)))
	}

	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, part := range req.Parts {
		if len(part.Data) > 0 {
			parts = append(parts, genai.NewPartFromBytes(part.Data, part.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(part.Text))
	}
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		SafetySettings: safetySettings(),
	}
	if req.Temperature > 0 {
		temperature := float32(req.Temperature)
		cfg.Temperature = &temperature
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.ResponseSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toSchema(req.ResponseSchema)
	}
	if req.UseSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	result, err := c.api.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, err
	}

	resp := &Response{Text: result.Text()}
	for _, candidate := range result.Candidates {
		if candidate.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" || chunk.Web.Title == "" {
				continue
			}
			resp.Sources = append(resp.Sources, Source{
				Title: chunk.Web.Title,
				URI:   chunk.Web.URI,
			})
		}
	}
	return resp, nil
}

func toSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toSchemaType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	return out
}

func toSchemaType(t string) genai.Type {
	switch t {
	case TypeObject:
		return genai.TypeObject
	case TypeString:
		return genai.TypeString
	case TypeInteger:
		return genai.TypeInteger
	case TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}
