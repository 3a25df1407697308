package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcDeliversToEveryGroup(t *testing.T) {
	b := NewInProc(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 2)
	for _, group := range []string{"confirmations", "audit"} {
		group := group
		go b.Consume(ctx, TopicOrdersPlaced, group, func(ctx context.Context, payload []byte) error {
			var v map[string]string
			if err := json.Unmarshal(payload, &v); err != nil {
				return err
			}
			got <- group + ":" + v["number"]
			return nil
		})
	}
	require.Eventually(t, func() bool {
		return b.Subscribed(TopicOrdersPlaced, "confirmations") && b.Subscribed(TopicOrdersPlaced, "audit")
	}, time.Second, time.Millisecond)

	require.NoError(t, b.PublishEvent(ctx, TopicOrdersPlaced, "1", map[string]string{"number": "ORD-2025-001"}))

	var seen []string
	for i := 0; i < 2; i++ {
		select {
		case s := <-got:
			seen = append(seen, s)
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
	assert.ElementsMatch(t, []string{"confirmations:ORD-2025-001", "audit:ORD-2025-001"}, seen)
}

func TestInProcWithoutConsumers(t *testing.T) {
	b := NewInProc(nil)
	assert.NoError(t, b.PublishEvent(context.Background(), TopicOrdersConfirmed, "1", struct{}{}))
	assert.False(t, b.Subscribed(TopicOrdersConfirmed, "any"))
}
