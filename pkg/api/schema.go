package api

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
)

//go:embed schemas/star.schema.json
var starSchema []byte

const starSchemaURL = "https://notary.schemas.local/star.schema.json"

// StarValidator checks submitted star payloads.
type StarValidator struct {
	schema *jsonschema.Schema
}

func NewStarValidator() (*StarValidator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(starSchemaURL, bytes.NewReader(starSchema)); err != nil {
		return nil, fmt.Errorf("star schema load failed: %w", err)
	}
	compiled, err := c.Compile(starSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("star schema compile failed: %w", err)
	}
	return &StarValidator{schema: compiled}, nil
}

// Decode parses raw and validates it, returning the generic value that is
// recorded on the chain. Stars the chain could not store unchanged, such as
// ones carrying integers beyond 2^53, are rejected here.
func (v *StarValidator) Decode(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("star is required")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var star any
	if err := dec.Decode(&star); err != nil {
		return nil, fmt.Errorf("star is not valid JSON: %w", err)
	}
	if err := v.schema.Validate(star); err != nil {
		return nil, fmt.Errorf("star is invalid: %w", err)
	}
	if _, err := block.Encode(star); err != nil {
		return nil, fmt.Errorf("star is invalid: %w", err)
	}
	return star, nil
}
