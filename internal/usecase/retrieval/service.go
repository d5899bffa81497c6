// Package retrieval answers event questions from the knowledge base.
package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/domain"
	"github.com/kailas-cloud/aossindex/internal/logger"
)

const (
	defaultTopK         = 5
	defaultPreviewChars = 200
	defaultMaxPreviews  = 3
	ellipsis            = "…"
	dateLayout          = "2006-01-02"
)

// MsgMissingInput is returned when a request carries neither a question nor a city.
const MsgMissingInput = "Provide 'city' and/or free-form 'question'."

// documentText matches the inline text written at ingestion time.
var documentText = regexp.MustCompile(`^(.+?) in (.+?) on (\d{4}-\d{2}-\d{2}):`)

// Request is the retrieval input as sent by clients.
type Request struct {
	Question string `json:"question,omitempty"`
	City     string `json:"city,omitempty"`
	FromDate string `json:"from_date,omitempty"`
}

// Item is one structured hit.
type Item struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	City  string  `json:"city,omitempty"`
	Date  string  `json:"date,omitempty"`
	Name  string  `json:"name,omitempty"`
}

// Answer is the retrieval output. Events is a newline-joined preview.
type Answer struct {
	Events  string `json:"events"`
	Results []Item `json:"results,omitempty"`
}

// Options tunes retrieval. Zero values take defaults.
type Options struct {
	TopK         int
	PreviewChars int
	MaxPreviews  int
}

// Service answers retrieval requests.
type Service struct {
	retriever Retriever
	opts      Options
}

// New creates a Service.
func New(retriever Retriever, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = defaultPreviewChars
	}
	if opts.MaxPreviews <= 0 {
		opts.MaxPreviews = defaultMaxPreviews
	}
	return &Service{retriever: retriever, opts: opts}
}

// Answer validates req, runs the retrieve call and reshapes the hits.
// Invalid input wraps domain.ErrInvalidQuery; a failed call wraps domain.ErrRetrieve.
func (s *Service) Answer(ctx context.Context, req Request) (Answer, error) {
	q, err := s.query(req)
	if err != nil {
		return Answer{}, err
	}

	hits, err := s.retriever.Retrieve(ctx, q)
	if err != nil {
		return Answer{}, err
	}
	logger.FromContext(ctx).Debug("retrieved",
		zap.String("query", q.Text),
		zap.Int("hits", len(hits)),
	)

	city := q.Filter.City
	if len(hits) == 0 {
		return Answer{Events: noEvents(city)}, nil
	}

	items := make([]Item, 0, len(hits))
	for _, h := range hits {
		items = append(items, toItem(h))
	}

	var lines []string
	for _, it := range items[:min(s.opts.MaxPreviews, len(items))] {
		txt := strings.TrimSpace(it.Text)
		if txt == "" {
			continue
		}
		lines = append(lines, preview(txt, s.opts.PreviewChars))
	}
	if len(lines) == 0 {
		return Answer{Events: noEvents(city), Results: items}, nil
	}
	return Answer{Events: strings.Join(lines, "\n"), Results: items}, nil
}

func (s *Service) query(req Request) (domain.RetrievalQuery, error) {
	question := strings.TrimSpace(req.Question)
	city := strings.TrimSpace(req.City)
	if question == "" && city == "" {
		return domain.RetrievalQuery{}, fmt.Errorf("%w: %s", domain.ErrInvalidQuery, MsgMissingInput)
	}
	if question == "" {
		question = "events in " + city
	}

	q := domain.RetrievalQuery{Text: question, TopK: s.opts.TopK, Filter: domain.RetrievalFilter{City: city}}
	if from := strings.TrimSpace(req.FromDate); from != "" {
		t, err := time.ParseInLocation(dateLayout, from, time.UTC)
		if err != nil {
			return domain.RetrievalQuery{}, fmt.Errorf("%w: from_date must be YYYY-MM-DD, got %q", domain.ErrInvalidQuery, from)
		}
		epoch := float64(t.Unix())
		q.Filter.FromEpoch = &epoch
	}
	return q, nil
}

func noEvents(city string) string {
	if city == "" {
		city = "the query"
	}
	return fmt.Sprintf("No upcoming events found for %s.", city)
}

// preview cuts txt to n runes, marking the cut with an ellipsis.
func preview(txt string, n int) string {
	if utf8.RuneCountInString(txt) <= n {
		return txt
	}
	return string([]rune(txt)[:n]) + ellipsis
}

// toItem prefers metadata and parses the document text only for missing fields.
func toItem(h domain.RetrievalHit) Item {
	it := Item{
		Text:  h.Text,
		Score: h.Score,
		City:  metaString(h.Metadata, domain.AttrCity),
		Date:  metaString(h.Metadata, domain.AttrDateISO),
		Name:  metaString(h.Metadata, domain.AttrEventName),
	}
	if it.City != "" && it.Date != "" && it.Name != "" {
		return it
	}
	m := documentText.FindStringSubmatch(strings.TrimSpace(h.Text))
	if m == nil {
		return it
	}
	if it.Name == "" {
		it.Name = m[1]
	}
	if it.City == "" {
		it.City = m[2]
	}
	if it.Date == "" {
		it.Date = m[3]
	}
	return it
}

func metaString(md map[string]any, key string) string {
	if s, ok := md[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
