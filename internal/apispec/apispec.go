// Package apispec embeds the OpenAPI contract of the HTTP surface and
// validates request bodies against it.
package apispec

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var document []byte

// Spec is the loaded and validated contract.
type Spec struct {
	doc  *openapi3.T
	json []byte
}

// Load parses and validates the embedded document.
func Load() (*Spec, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode openapi document: %w", err)
	}
	return &Spec{doc: doc, json: data}, nil
}

// JSON returns the document encoded as JSON.
func (s *Spec) JSON() []byte {
	return s.json
}

// ValidateRequestBody checks body against the JSON request schema of POST path.
func (s *Spec) ValidateRequestBody(path string, body []byte) error {
	schema, err := s.requestSchema(path)
	if err != nil {
		return err
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("request body is not valid JSON: %w", err)
	}
	if err := schema.VisitJSON(value); err != nil {
		return fmt.Errorf("request body does not match schema: %w", err)
	}
	return nil
}

func (s *Spec) requestSchema(path string) (*openapi3.Schema, error) {
	item := s.doc.Paths.Value(path)
	if item == nil || item.Post == nil {
		return nil, fmt.Errorf("no POST operation for %s", path)
	}
	body := item.Post.RequestBody
	if body == nil || body.Value == nil {
		return nil, fmt.Errorf("no request body for %s", path)
	}
	media := body.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil, fmt.Errorf("no JSON schema for %s", path)
	}
	return media.Schema.Value, nil
}
