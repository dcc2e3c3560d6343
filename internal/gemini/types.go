package gemini

import "context"

// Roles used in chat history turns.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Schema value types, mirroring the generative service's schema vocabulary.
const (
	TypeObject  = "OBJECT"
	TypeString  = "STRING"
	TypeInteger = "INTEGER"
	TypeBoolean = "BOOLEAN"
)

// Part is one content part of a request: either text or inline binary data.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// Turn is one prior exchange in a chat conversation.
type Turn struct {
	Role string
	Text string
}

// Schema describes a structured-output constraint for a request.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Required    []string
}

// Request is one generation call. Setting ResponseSchema demands
// schema-conformant JSON output; UseSearch enables search augmentation.
// The service does not support both on the same request.
type Request struct {
	Model             string
	SystemInstruction string
	History           []Turn
	Parts             []Part
	Temperature       float64
	ResponseSchema    *Schema
	UseSearch         bool
}

// Source is one web citation from a search-augmented response.
type Source struct {
	Title string
	URI   string
}

// Response carries the model's text plus any citation metadata.
type Response struct {
	Text    string
	Sources []Source
}

// Invoker abstracts the generative service for the pipeline stages.
type Invoker interface {
	GenerateContent(ctx context.Context, req Request) (*Response, error)
}
