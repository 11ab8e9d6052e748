// Package openapi serves the embedded API document and registers it with swag
// so the swagger UI can load it.
package openapi

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var specYAML []byte

var registerOnce sync.Once

// Document parses the embedded document. A non-empty basePath is advertised
// as the server URL.
func Document(basePath string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(specYAML, &doc); err != nil {
		return nil, fmt.Errorf("parsing openapi document: %w", err)
	}
	url := basePath
	if url == "" {
		url = "/"
	}
	doc["servers"] = []map[string]string{{"url": url}}
	return doc, nil
}

// JSON renders Document as JSON.
func JSON(basePath string) ([]byte, error) {
	doc, err := Document(basePath)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding openapi document: %w", err)
	}
	return b, nil
}

// Register installs the document as the default swag instance. swag panics on
// a second registration, so only the first call has any effect.
func Register(doc []byte) {
	registerOnce.Do(func() {
		swag.Register(swag.Name, &swag.Spec{
			InfoInstanceName: swag.Name,
			SwaggerTemplate:  string(doc),
			LeftDelim:        "{{",
			RightDelim:       "}}",
		})
	})
}
