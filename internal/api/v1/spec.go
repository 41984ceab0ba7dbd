package apiv1

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

//go:embed openapi.yml
var openAPIDocument []byte

var (
	specOnce sync.Once
	spec     *openapi3.T
	specErr  error
)

// LoadSpec parses and validates the embedded API description. The result
// is cached; a malformed document is a programming error surfaced on
// first use.
func LoadSpec() (*openapi3.T, error) {
	specOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(openAPIDocument)
		if err != nil {
			specErr = fmt.Errorf("parse openapi document: %w", err)
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			specErr = fmt.Errorf("validate openapi document: %w", err)
			return
		}
		spec = doc
	})
	return spec, specErr
}

// GetOpenAPISpec serves the raw API description document
func (s *APIServer) GetOpenAPISpec(c *fiber.Ctx) error {
	if _, err := LoadSpec(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "api description unavailable",
		})
	}
	c.Set(fiber.HeaderContentType, "application/yaml")
	return c.Send(openAPIDocument)
}
