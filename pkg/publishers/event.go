package publishers

import (
	"time"

	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
)

// Event represents a successful API write published downstream.
type Event struct {
	ClientID     string    `json:"client_id"`
	Method       string    `json:"method"`
	Endpoint     string    `json:"endpoint"`
	ResourcePath string    `json:"resource_path"`
	Invalidated  int       `json:"invalidated_entries"`
	RequestKey   string    `json:"request_key"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewEvent constructs an Event for the given client + mutation.
func NewEvent(clientID string, m apiclient.Mutation) Event {
	occurred := m.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return Event{
		ClientID:     clientID,
		Method:       m.Method,
		Endpoint:     m.Endpoint,
		ResourcePath: m.ResourcePath,
		Invalidated:  m.Invalidated,
		RequestKey:   m.RequestKey,
		OccurredAt:   occurred.UTC(),
	}
}

// attributes are the routing attributes attached to queue messages.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"client_id":     e.ClientID,
		"method":        e.Method,
		"resource_path": e.ResourcePath,
	}
	for k, v := range attrs {
		if v == "" {
			delete(attrs, k)
		}
	}
	return attrs
}
