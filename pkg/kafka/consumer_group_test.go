package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func newClaim(offsets ...int64) *fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(offsets))
	for _, off := range offsets {
		ch <- &sarama.ConsumerMessage{Topic: "order_events", Offset: off}
	}
	close(ch)
	return &fakeClaim{messages: ch}
}

func TestConsumeClaim_StopsAtFailedMessage(t *testing.T) {
	var seen []int64
	h := &saramaHandler{
		handler: func(_ context.Context, msg *sarama.ConsumerMessage) error {
			seen = append(seen, msg.Offset)
			if msg.Offset == 11 {
				return errors.New("smtp down")
			}
			return nil
		},
		logger: zap.NewNop(),
	}
	session := &fakeSession{ctx: context.Background()}

	err := h.ConsumeClaim(session, newClaim(10, 11, 12))
	require.Error(t, err)

	assert.Equal(t, []int64{10, 11}, seen, "messages after the failure must not be handled")
	assert.Equal(t, []int64{10}, session.marked)
}

func TestConsumeClaim_MarksAll(t *testing.T) {
	h := &saramaHandler{
		handler: func(context.Context, *sarama.ConsumerMessage) error { return nil },
		logger:  zap.NewNop(),
	}
	session := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(session, newClaim(1, 2, 3)))
	assert.Equal(t, []int64{1, 2, 3}, session.marked)
}
