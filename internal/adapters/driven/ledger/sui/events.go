package sui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure EventReader implements the interface.
var _ driven.LedgerEventReader = (*EventReader)(nil)

const querySubmittedEvent = "QuerySubmitted"

// EventReader lists QuerySubmitted events and resolves each query's document
// object to its blob id.
type EventReader struct {
	client    *Client
	eventType string

	mu    sync.Mutex
	blobs map[string]string
}

// NewEventReader creates a reader for {packageID}::{module}::QuerySubmitted.
func NewEventReader(client *Client, packageID, module string) *EventReader {
	if module == "" {
		module = DefaultModule
	}
	return &EventReader{
		client:    client,
		eventType: fmt.Sprintf("%s::%s::%s", packageID, module, querySubmittedEvent),
		blobs:     make(map[string]string),
	}
}

type eventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

type eventPage struct {
	Data []struct {
		ID         eventID `json:"id"`
		ParsedJSON struct {
			QueryID    string          `json:"query_id"`
			DocumentID string          `json:"document_id"`
			Question   json.RawMessage `json:"question"`
			Requester  string          `json:"requester"`
		} `json:"parsedJson"`
	} `json:"data"`
	NextCursor  *eventID `json:"nextCursor"`
	HasNextPage bool     `json:"hasNextPage"`
}

type objectResponse struct {
	Data *struct {
		Content *struct {
			Fields map[string]json.RawMessage `json:"fields"`
		} `json:"content"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// QueryEvents returns events after cursor in ascending order.
func (r *EventReader) QueryEvents(ctx context.Context, cursor string, limit int) ([]domain.QueryEvent, string, error) {
	var cur any
	if cursor != "" {
		id, err := parseCursor(cursor)
		if err != nil {
			return nil, cursor, err
		}
		cur = id
	}

	var page eventPage
	err := r.client.Call(ctx, "suix_queryEvents", []any{
		map[string]string{"MoveEventType": r.eventType},
		cur,
		limit,
		false,
	}, &page)
	if err != nil {
		return nil, cursor, fmt.Errorf("query events: %w", err)
	}

	events := make([]domain.QueryEvent, 0, len(page.Data))
	for _, e := range page.Data {
		question, err := decodeText(e.ParsedJSON.Question)
		if err != nil {
			return nil, cursor, fmt.Errorf("event %s: question: %w", formatCursor(e.ID), err)
		}
		blobID, err := r.blobID(ctx, e.ParsedJSON.DocumentID)
		if err != nil {
			return nil, cursor, fmt.Errorf("event %s: %w", formatCursor(e.ID), err)
		}
		events = append(events, domain.QueryEvent{
			QueryID:        e.ParsedJSON.QueryID,
			DocumentBlobID: blobID,
			Question:       question,
			Requester:      e.ParsedJSON.Requester,
			Cursor:         formatCursor(e.ID),
		})
	}

	next := cursor
	if page.NextCursor != nil {
		next = formatCursor(*page.NextCursor)
	} else if len(events) > 0 {
		next = events[len(events)-1].Cursor
	}
	return events, next, nil
}

// blobID reads the document object's blob id field, caching the result.
// Document objects are immutable once registered.
func (r *EventReader) blobID(ctx context.Context, documentID string) (string, error) {
	r.mu.Lock()
	cached, ok := r.blobs[documentID]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	var obj objectResponse
	err := r.client.Call(ctx, "sui_getObject", []any{
		documentID,
		map[string]bool{"showContent": true},
	}, &obj)
	if err != nil {
		return "", fmt.Errorf("get document %s: %w", documentID, err)
	}
	if obj.Error != nil || obj.Data == nil || obj.Data.Content == nil {
		return "", fmt.Errorf("get document %s: %w", documentID, domain.ErrNotFound)
	}

	for _, field := range []string{"walrus_blob_id", "blob_id"} {
		raw, ok := obj.Data.Content.Fields[field]
		if !ok {
			continue
		}
		blobID, err := decodeText(raw)
		if err != nil {
			return "", fmt.Errorf("document %s: %s: %w", documentID, field, err)
		}
		r.mu.Lock()
		r.blobs[documentID] = blobID
		r.mu.Unlock()
		return blobID, nil
	}
	return "", fmt.Errorf("document %s: no blob id field", documentID)
}

// decodeText accepts a Move String (JSON string) or vector<u8> (number array).
func decodeText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var nums []int
	if err := json.Unmarshal(raw, &nums); err != nil {
		return "", fmt.Errorf("unsupported encoding: %w", err)
	}
	b := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return "", fmt.Errorf("byte value %d out of range", n)
		}
		b[i] = byte(n)
	}
	return string(b), nil
}

func formatCursor(id eventID) string {
	return id.TxDigest + ":" + id.EventSeq
}

func parseCursor(s string) (eventID, error) {
	digest, seq, ok := strings.Cut(s, ":")
	if !ok || digest == "" || seq == "" {
		return eventID{}, fmt.Errorf("sui: invalid event cursor %q", s)
	}
	return eventID{TxDigest: digest, EventSeq: seq}, nil
}
