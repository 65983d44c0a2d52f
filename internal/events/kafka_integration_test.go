//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"cardvault/internal/events"
	id "cardvault/pkg/domain"
	"cardvault/pkg/testutil/containers"
)

func TestKafkaPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	broker := containers.GetManager().GetRedpanda(t).Broker
	topic := "cardvault.transactions.test"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	publisher, err := events.NewKafka(ctx, []string{broker}, topic, logger)
	require.NoError(t, err)

	amount := decimal.NewFromInt(42)
	event := events.Event{
		Type:         events.TypeTransactionApproved,
		Timestamp:    time.Now().UTC(),
		UserID:       id.UserID(uuid.New()),
		CardID:       id.NewCardID(),
		Amount:       &amount,
		MerchantName: "Coffee Shop",
	}
	publisher.Emit(ctx, event)
	require.NoError(t, publisher.Close(ctx)) // flush

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(pollCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, event.CardID.String(), string(records[0].Key))

	var got events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, events.TypeTransactionApproved, got.Type)
	require.Equal(t, event.CardID, got.CardID)
	require.NotNil(t, got.Amount)
	require.True(t, got.Amount.Equal(amount))
}
