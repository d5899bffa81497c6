package domain

// Event is one source record of the ingestion feed.
type Event struct {
	City        string   `json:"city"`
	Name        string   `json:"event_name"`
	Date        string   `json:"event_date"` // YYYY-MM-DD
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// AttributeKind is the value type of a document metadata attribute.
type AttributeKind string

const (
	// AttributeString is a single string value.
	AttributeString AttributeKind = "STRING"
	// AttributeNumber is a float64 value.
	AttributeNumber AttributeKind = "NUMBER"
	// AttributeStringList is a list of strings.
	AttributeStringList AttributeKind = "STRING_LIST"
)

// Attribute is a typed metadata attribute attached to a knowledge base document.
type Attribute struct {
	Key        string
	Kind       AttributeKind
	String     string
	Number     float64
	StringList []string
}

// Metadata attribute keys written by ingestion and read by retrieval.
const (
	AttrCity      = "city"
	AttrDateISO   = "event_date_iso"
	AttrEpoch     = "event_epoch"
	AttrTags      = "tags"
	AttrEventName = "event_name"
)

// KBDocument is an inline text document for direct knowledge base ingestion.
type KBDocument struct {
	ID         string
	Text       string
	Attributes []Attribute
}

// DocumentStatus is the per-document ingestion status returned by the service.
type DocumentStatus struct {
	ID     string
	Status string
	Reason string
}

// RetrievalFilter narrows a retrieve call by structured metadata.
type RetrievalFilter struct {
	City      string
	FromEpoch *float64
}

// IsZero reports whether the filter has no conditions.
func (f RetrievalFilter) IsZero() bool {
	return f.City == "" && f.FromEpoch == nil
}

// RetrievalQuery is one retrieve call.
type RetrievalQuery struct {
	Text   string
	TopK   int
	Filter RetrievalFilter
}

// RetrievalHit is one retrieved chunk with its metadata.
type RetrievalHit struct {
	Text     string
	Score    float64
	Metadata map[string]any
}
