package http_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

// loadOpenAPI finds api/openapi.yaml by walking up from the test directory.
func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	dir, _ := os.Getwd()

	var specPath string
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "api", "openapi.yaml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			specPath = candidate
			break
		}
		dir = filepath.Dir(dir)
	}
	if specPath == "" {
		t.Fatalf("could not find api/openapi.yaml")
	}

	data, err := os.ReadFile(specPath)
	if err != nil {
		t.Fatalf("failed to read openapi.yaml: %v", err)
	}
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI document: %v", err)
	}
	return spec
}

func TestOpenAPIDocument(t *testing.T) {
	spec := loadOpenAPI(t)

	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI validation failed: %v", err)
	}

	expectedPaths := []string{
		"/v1/health",
		"/v1/ready",
		"/v1/geo/project",
		"/v1/geo/distance",
		"/v1/zones",
		"/v1/zones/resolve",
		"/v1/zones/{code}",
		"/v1/shelters/nearest",
		"/v1/hospitals/nearby",
		"/v1/alerts",
		"/v1/status",
		"/graphql",
	}
	for _, path := range expectedPaths {
		if item := spec.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found", path)
		}
	}

	expectedSchemas := []string{
		"GeoPoint",
		"ProjectedPoint",
		"AlertZone",
		"ZoneStatus",
		"Status",
		"Shelter",
		"Hospital",
		"Alert",
		"APIError",
		"Pagination",
	}
	for _, schema := range expectedSchemas {
		if spec.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}
}

func TestOpenAPIInfo(t *testing.T) {
	spec := loadOpenAPI(t)

	if spec.Info.Title != "SafeZone API" {
		t.Errorf("expected title 'SafeZone API', got %q", spec.Info.Title)
	}
	if spec.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", spec.Info.Version)
	}
	if len(spec.Servers) == 0 {
		t.Error("expected at least one server")
	}
}
