package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestIndexSpec_Body(t *testing.T) {
	data, err := DefaultIndexSpec().Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	knn := got["settings"].(map[string]any)["index"].(map[string]any)["knn"]
	if knn != true {
		t.Errorf("expected settings.index.knn=true, got %v", knn)
	}

	props := got["mappings"].(map[string]any)["properties"].(map[string]any)
	vec := props[VectorField].(map[string]any)
	if vec["type"] != "knn_vector" || vec["dimension"] != float64(1024) {
		t.Errorf("unexpected vector mapping %v", vec)
	}
	method := vec["method"].(map[string]any)
	if method["name"] != "hnsw" || method["space_type"] != "cosinesimil" || method["engine"] != "faiss" {
		t.Errorf("unexpected method %v", method)
	}
	params := method["parameters"].(map[string]any)
	if params["m"] != float64(16) || params["ef_construction"] != float64(512) {
		t.Errorf("unexpected parameters %v", params)
	}
	if props[TextField].(map[string]any)["type"] != "text" {
		t.Errorf("unexpected text mapping %v", props[TextField])
	}
	meta := props[MetadataField].(map[string]any)
	if meta["type"] != "object" || meta["enabled"] != true {
		t.Errorf("unexpected metadata mapping %v", meta)
	}
}

func TestIndexSpec_BodyTypedMetadata(t *testing.T) {
	spec := DefaultIndexSpec()
	spec.Parameters = HNSWParameters{}
	spec.MetadataFields = map[string]string{"city": "keyword", "event_epoch": "long"}

	data, err := spec.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	var got struct {
		Mappings struct {
			Properties struct {
				Vector struct {
					Method map[string]any `json:"method"`
				} `json:"vector"`
				Metadata struct {
					Enabled    *bool                        `json:"enabled"`
					Properties map[string]map[string]string `json:"properties"`
				} `json:"metadata"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	meta := got.Mappings.Properties.Metadata
	if meta.Enabled != nil {
		t.Error("typed metadata must not set enabled")
	}
	if meta.Properties["city"]["type"] != "keyword" || meta.Properties["event_epoch"]["type"] != "long" {
		t.Errorf("unexpected metadata properties %v", meta.Properties)
	}
	if _, ok := got.Mappings.Properties.Vector.Method["parameters"]; ok {
		t.Error("zero HNSW parameters must be omitted")
	}
}

func TestIndexSpec_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*IndexSpec)
	}{
		{"zero dimension", func(s *IndexSpec) { s.Dimension = 0 }},
		{"unknown space", func(s *IndexSpec) { s.SpaceType = "hamming" }},
		{"unknown engine", func(s *IndexSpec) { s.Engine = "annoy" }},
		{"unknown method", func(s *IndexSpec) { s.Method = "ivf" }},
		{"negative m", func(s *IndexSpec) { s.Parameters.M = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec := DefaultIndexSpec()
			tc.mutate(&spec)
			if err := spec.Validate(); !errors.Is(err, ErrInvalidSchema) {
				t.Errorf("expected ErrInvalidSchema, got %v", err)
			}
			if _, err := spec.Body(); err == nil {
				t.Error("Body must refuse an invalid spec")
			}
		})
	}
}
