package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

const dateLayout = "2006-01-02"

// BuildDocument turns one event into an inline knowledge base document.
// Metadata carries the structured fields so retrieval can filter and display
// them without parsing the text. A missing or unparsable date yields epoch 0
// and a non-nil error; the document is still usable.
func BuildDocument(ev domain.Event) (domain.KBDocument, error) {
	city := strings.TrimSpace(ev.City)
	name := strings.TrimSpace(ev.Name)
	date := strings.TrimSpace(ev.Date)
	desc := strings.TrimSpace(ev.Description)

	var dateErr error
	epoch := 0.0
	if date != "" {
		t, err := time.ParseInLocation(dateLayout, date, time.UTC)
		if err != nil {
			dateErr = fmt.Errorf("event %q: invalid date %q: %w", name, date, err)
		} else {
			epoch = float64(t.Unix())
		}
	}

	attrs := []domain.Attribute{
		{Key: domain.AttrCity, Kind: domain.AttributeString, String: city},
		{Key: domain.AttrDateISO, Kind: domain.AttributeString, String: date},
		{Key: domain.AttrEpoch, Kind: domain.AttributeNumber, Number: epoch},
		{Key: domain.AttrEventName, Kind: domain.AttributeString, String: name},
	}
	if len(ev.Tags) > 0 {
		attrs = append(attrs, domain.Attribute{Key: domain.AttrTags, Kind: domain.AttributeStringList, StringList: ev.Tags})
	}

	return domain.KBDocument{
		ID:         city + "|" + date + "|" + name,
		Text:       strings.TrimSpace(fmt.Sprintf("%s in %s on %s: %s", name, city, date, desc)),
		Attributes: attrs,
	}, dateErr
}
