package domain

import (
	"encoding/json"
	"fmt"
)

// Fixed field names of the vector index. The knowledge base field mapping must use the same names.
const (
	VectorField   = "vector"
	TextField     = "text"
	MetadataField = "metadata"
)

// Space types accepted by the k-NN plugin.
const (
	SpaceCosine = "cosinesimil"
	SpaceL2     = "l2"
	SpaceIP     = "innerproduct"
)

// ANN engines.
const (
	EngineFaiss  = "faiss"
	EngineNMSLIB = "nmslib"
	EngineLucene = "lucene"
)

// MethodHNSW is the only ANN method this module provisions.
const MethodHNSW = "hnsw"

// HNSWParameters are the graph construction parameters.
// Zero values are omitted from the schema and the engine default applies.
type HNSWParameters struct {
	M              int
	EFConstruction int
}

// IndexSpec is the desired index schema.
//
// Dimension must equal the embedding model's output width. That is enforced
// by configuration agreement only, not checked here.
type IndexSpec struct {
	Dimension  int
	SpaceType  string
	Engine     string
	Method     string
	Parameters HNSWParameters

	// MetadataFields, when non-empty, maps metadata sub-fields to mapping types
	// (e.g. "city": "keyword"). Empty means an open object with enabled=true.
	MetadataFields map[string]string
}

// DefaultIndexSpec matches Titan Text Embeddings V2 (1024 dims) with cosine similarity on faiss.
func DefaultIndexSpec() IndexSpec {
	return IndexSpec{
		Dimension: 1024,
		SpaceType: SpaceCosine,
		Engine:    EngineFaiss,
		Method:    MethodHNSW,
		Parameters: HNSWParameters{
			M:              16,
			EFConstruction: 512,
		},
	}
}

// Validate checks the spec for obviously broken values.
func (s IndexSpec) Validate() error {
	if s.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d: %w", s.Dimension, ErrInvalidSchema)
	}
	switch s.SpaceType {
	case SpaceCosine, SpaceL2, SpaceIP:
	default:
		return fmt.Errorf("unknown space type %q: %w", s.SpaceType, ErrInvalidSchema)
	}
	switch s.Engine {
	case EngineFaiss, EngineNMSLIB, EngineLucene:
	default:
		return fmt.Errorf("unknown engine %q: %w", s.Engine, ErrInvalidSchema)
	}
	if s.Method != MethodHNSW {
		return fmt.Errorf("unsupported method %q: %w", s.Method, ErrInvalidSchema)
	}
	if s.Parameters.M < 0 || s.Parameters.EFConstruction < 0 {
		return fmt.Errorf("hnsw parameters must not be negative: %w", ErrInvalidSchema)
	}
	return nil
}

type indexBody struct {
	Settings indexSettings `json:"settings"`
	Mappings indexMappings `json:"mappings"`
}

type indexSettings struct {
	Index struct {
		KNN bool `json:"knn"`
	} `json:"index"`
}

type indexMappings struct {
	Properties indexProperties `json:"properties"`
}

type indexProperties struct {
	Vector   vectorMapping   `json:"vector"`
	Text     typeMapping     `json:"text"`
	Metadata metadataMapping `json:"metadata"`
}

type typeMapping struct {
	Type string `json:"type"`
}

type vectorMapping struct {
	Type      string       `json:"type"`
	Dimension int          `json:"dimension"`
	Method    vectorMethod `json:"method"`
}

type vectorMethod struct {
	Name       string         `json:"name"`
	SpaceType  string         `json:"space_type"`
	Engine     string         `json:"engine"`
	Parameters map[string]int `json:"parameters,omitempty"`
}

type metadataMapping struct {
	Type       string                 `json:"type"`
	Enabled    *bool                  `json:"enabled,omitempty"`
	Properties map[string]typeMapping `json:"properties,omitempty"`
}

// Body renders the PUT /{index} request document.
func (s IndexSpec) Body() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var b indexBody
	b.Settings.Index.KNN = true

	params := make(map[string]int, 2)
	if s.Parameters.M > 0 {
		params["m"] = s.Parameters.M
	}
	if s.Parameters.EFConstruction > 0 {
		params["ef_construction"] = s.Parameters.EFConstruction
	}
	if len(params) == 0 {
		params = nil
	}

	b.Mappings.Properties.Vector = vectorMapping{
		Type:      "knn_vector",
		Dimension: s.Dimension,
		Method: vectorMethod{
			Name:       s.Method,
			SpaceType:  s.SpaceType,
			Engine:     s.Engine,
			Parameters: params,
		},
	}
	b.Mappings.Properties.Text = typeMapping{Type: "text"}

	meta := metadataMapping{Type: "object"}
	if len(s.MetadataFields) == 0 {
		enabled := true
		meta.Enabled = &enabled
	} else {
		meta.Properties = make(map[string]typeMapping, len(s.MetadataFields))
		for name, typ := range s.MetadataFields {
			meta.Properties[name] = typeMapping{Type: typ}
		}
	}
	b.Mappings.Properties.Metadata = meta

	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal index body: %w", err)
	}
	return data, nil
}
