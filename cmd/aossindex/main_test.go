package main

import (
	"testing"
	"time"

	"github.com/kailas-cloud/aossindex/internal/config"
)

func TestIndexSpec_KeepsHNSWDefaults(t *testing.T) {
	var cfg config.Config
	cfg.ApplyDefaults()

	spec := indexSpec(cfg.Index)
	if err := spec.Validate(); err != nil {
		t.Fatalf("default spec invalid: %v", err)
	}
	if spec.Dimension != 1024 || spec.Parameters.M != 16 || spec.Parameters.EFConstruction != 512 {
		t.Errorf("unexpected spec %+v", spec)
	}
}

func TestIndexSpec_Overrides(t *testing.T) {
	spec := indexSpec(config.IndexConfig{
		Dimension:      256,
		SpaceType:      "l2",
		Engine:         "lucene",
		HNSWM:          32,
		MetadataFields: map[string]string{"city": "keyword"},
	})
	if spec.Dimension != 256 || spec.SpaceType != "l2" || spec.Engine != "lucene" {
		t.Errorf("unexpected vector settings %+v", spec)
	}
	if spec.Parameters.M != 32 || spec.Parameters.EFConstruction != 512 {
		t.Errorf("unexpected parameters %+v", spec.Parameters)
	}
	if spec.MetadataFields["city"] != "keyword" {
		t.Errorf("metadata fields not carried: %v", spec.MetadataFields)
	}
}

func TestPolicy(t *testing.T) {
	p := policy(config.BackoffConfig{InitialMs: 1000, Multiplier: 1.6, MaxMs: 12000, Jitter: 0.1}, 15)
	if p.Initial != time.Second || p.Max != 12*time.Second || p.MaxAttempts != 15 || p.Jitter != 0.1 {
		t.Errorf("unexpected policy %+v", p)
	}
}
