package publishers

import (
	"context"

	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
)

// Notifier forwards client mutations to a Fanout.
type Notifier struct {
	clientID string
	fanout   *Fanout
	log      Logger
}

var _ apiclient.MutationNotifier = (*Notifier)(nil)

// NewNotifier returns a notifier that tags events with clientID.
func NewNotifier(clientID string, fanout *Fanout, log Logger) *Notifier {
	return &Notifier{clientID: clientID, fanout: fanout, log: ensureLogger(log)}
}

// NotifyMutation publishes the mutation to every publisher. A partial
// failure is reported with the number of successful deliveries.
func (n *Notifier) NotifyMutation(ctx context.Context, m apiclient.Mutation) error {
	if n == nil || n.fanout.Size() == 0 {
		return nil
	}

	evt := NewEvent(n.clientID, m)
	delivered, err := n.fanout.Publish(ctx, evt)
	n.log.DebugObj("mutation event published", "mutation_event", map[string]any{
		"method":        evt.Method,
		"resource_path": evt.ResourcePath,
		"request_key":   evt.RequestKey,
		"delivered":     delivered,
		"publishers":    n.fanout.Size(),
	})
	return err
}
