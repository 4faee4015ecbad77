package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willrp/willstores-ws/internal/engine/memory"
	"github.com/willrp/willstores-ws/internal/event"
	"github.com/willrp/willstores-ws/internal/service"
	pkgkafka "github.com/willrp/willstores-ws/pkg/kafka"
)

// memoryStore records index lifecycle calls on top of the memory engine.
type memoryStore struct {
	*memory.Engine
	calls     []string
	ensureErr error
}

func (m *memoryStore) EnsureIndices(context.Context) error {
	m.calls = append(m.calls, "ensure")
	return m.ensureErr
}

func (m *memoryStore) DeleteIndices(context.Context) error {
	m.calls = append(m.calls, "delete")
	return nil
}

type fakePublisher struct {
	topic  string
	events []*pkgkafka.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, ev *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.topic = topic
	f.events = append(f.events, ev)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bundledCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := readCatalog(bytes.NewReader(defaultCatalog))
	require.NoError(t, err)
	return cat
}

func TestReadCatalog_BundledFixture(t *testing.T) {
	cat := bundledCatalog(t)

	assert.Len(t, cat.Sessions, 4)
	assert.Len(t, cat.Products, 10)
	for _, p := range cat.Products {
		assert.Positive(t, p.Price.Retail, p.ID)
		assert.NotEmpty(t, p.Images, p.ID)
	}
}

func TestReadCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"products": [`, "decode catalog"},
		{"unknown field", `{"items": []}`, "decode catalog"},
		{"session without id", `{"sessions": [{"name": "SALE"}]}`, "session #0 has no id"},
		{"duplicate session", `{"sessions": [{"id": "s"}, {"id": "s"}]}`, `duplicate session id "s"`},
		{"product without id", `{"sessions": [{"id": "s"}], "products": [{"sessionid": "s"}]}`, "product #0 has no id"},
		{"duplicate product", `{"sessions": [{"id": "s"}], "products": [{"id": "p", "sessionid": "s"}, {"id": "p", "sessionid": "s"}]}`, `duplicate product id "p"`},
		{"unknown session", `{"products": [{"id": "p", "sessionid": "missing"}]}`, `unknown session "missing"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := readCatalog(strings.NewReader(tt.body))

			assert.Nil(t, cat)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSeeder_Run_IndexesCatalog(t *testing.T) {
	store := &memoryStore{Engine: memory.New()}
	s := &seeder{store: store, topic: event.TopicCatalog, logger: discardLogger()}

	require.NoError(t, s.Run(context.Background(), bundledCatalog(t), false))

	assert.Equal(t, []string{"ensure"}, store.calls)

	ctx := context.Background()
	count, err := service.NewCatalogService(store, discardLogger()).TotalProductCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	sessions, err := service.NewSessionService(store, discardLogger()).ListSessions(ctx, nil, nil)
	require.NoError(t, err)
	totals := make(map[string]int, len(sessions))
	for _, st := range sessions {
		totals[st.ID] = st.Total
	}
	assert.Equal(t, map[string]int{
		"ses-men-new":       2,
		"ses-men-shirts":    3,
		"ses-women-dresses": 3,
		"ses-women-shoes":   2,
	}, totals)
}

func TestSeeder_Run_ResetDeletesFirst(t *testing.T) {
	store := &memoryStore{Engine: memory.New()}
	s := &seeder{store: store, topic: event.TopicCatalog, logger: discardLogger()}

	require.NoError(t, s.Run(context.Background(), bundledCatalog(t), true))

	assert.Equal(t, []string{"delete", "ensure"}, store.calls)
}

func TestSeeder_Run_EnsureFailure(t *testing.T) {
	store := &memoryStore{Engine: memory.New(), ensureErr: errors.New("cluster red")}
	pub := &fakePublisher{}
	s := &seeder{store: store, pub: pub, topic: event.TopicCatalog, logger: discardLogger()}

	err := s.Run(context.Background(), bundledCatalog(t), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure indices")
	assert.Empty(t, pub.events)
}

func TestSeeder_Run_PublishesCatalogChange(t *testing.T) {
	store := &memoryStore{Engine: memory.New()}
	pub := &fakePublisher{}
	s := &seeder{store: store, pub: pub, topic: event.TopicCatalog, logger: discardLogger()}

	require.NoError(t, s.Run(context.Background(), bundledCatalog(t), false))

	require.Len(t, pub.events, 1)
	assert.Equal(t, event.TopicCatalog, pub.topic)

	ev := pub.events[0]
	assert.Equal(t, event.EventCatalogCrawled, ev.EventType)
	assert.Equal(t, "willstores", ev.AggregateID)
	assert.Equal(t, "seed", ev.Source)

	var data event.CatalogChangeData
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	assert.Equal(t, event.CatalogChangeData{StoreName: "willstores", Products: 10, Sessions: 4}, data)
}

func TestSeeder_Run_PublishFailure(t *testing.T) {
	store := &memoryStore{Engine: memory.New()}
	pub := &fakePublisher{err: errors.New("no brokers")}
	s := &seeder{store: store, pub: pub, topic: event.TopicCatalog, logger: discardLogger()}

	err := s.Run(context.Background(), bundledCatalog(t), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
}
