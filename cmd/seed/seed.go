package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/willrp/willstores-ws/internal/domain"
	"github.com/willrp/willstores-ws/internal/engine"
	"github.com/willrp/willstores-ws/internal/event"
	pkgkafka "github.com/willrp/willstores-ws/pkg/kafka"
)

// Catalog is the on-disk seed format.
type Catalog struct {
	Products []domain.Product `json:"products"`
	Sessions []domain.Session `json:"sessions"`
}

// indexStore is an engine that can (re)create its indices before loading.
type indexStore interface {
	engine.Indexer
	EnsureIndices(ctx context.Context) error
	DeleteIndices(ctx context.Context) error
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// readCatalog decodes a seed file and checks every document has an id.
func readCatalog(r io.Reader) (*Catalog, error) {
	var cat Catalog
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	sessions := make(map[string]struct{}, len(cat.Sessions))
	for i, s := range cat.Sessions {
		if s.ID == "" {
			return nil, fmt.Errorf("session #%d has no id", i)
		}
		if _, dup := sessions[s.ID]; dup {
			return nil, fmt.Errorf("duplicate session id %q", s.ID)
		}
		sessions[s.ID] = struct{}{}
	}

	products := make(map[string]struct{}, len(cat.Products))
	for i, p := range cat.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("product #%d has no id", i)
		}
		if _, dup := products[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		if _, ok := sessions[p.SessionID]; !ok {
			return nil, fmt.Errorf("product %q references unknown session %q", p.ID, p.SessionID)
		}
		products[p.ID] = struct{}{}
	}
	return &cat, nil
}

type seeder struct {
	store  indexStore
	pub    publisher // nil when Kafka is not configured
	topic  string
	logger *slog.Logger
}

// Run loads the catalog into the store and announces the change so running
// catalog services drop their cached responses.
func (s *seeder) Run(ctx context.Context, cat *Catalog, reset bool) error {
	if reset {
		if err := s.store.DeleteIndices(ctx); err != nil {
			return fmt.Errorf("delete indices: %w", err)
		}
		s.logger.InfoContext(ctx, "indices deleted")
	}
	if err := s.store.EnsureIndices(ctx); err != nil {
		return fmt.Errorf("ensure indices: %w", err)
	}

	if err := s.store.IndexSessions(ctx, cat.Sessions); err != nil {
		return fmt.Errorf("index sessions: %w", err)
	}
	if err := s.store.IndexProducts(ctx, cat.Products); err != nil {
		return fmt.Errorf("index products: %w", err)
	}
	s.logger.InfoContext(ctx, "catalog indexed",
		slog.Int("sessions", len(cat.Sessions)),
		slog.Int("products", len(cat.Products)),
	)

	if s.pub == nil {
		return nil
	}

	store := storeName(cat)
	ev, err := pkgkafka.NewEvent(event.EventCatalogCrawled, store, "catalog", "seed", event.CatalogChangeData{
		StoreName: store,
		Products:  len(cat.Products),
		Sessions:  len(cat.Sessions),
	})
	if err != nil {
		return fmt.Errorf("build catalog event: %w", err)
	}
	if err := s.pub.Publish(ctx, s.topic, ev); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "catalog change published",
		slog.String("topic", s.topic),
		slog.String("event_id", ev.EventID),
	)
	return nil
}

func storeName(cat *Catalog) string {
	for _, p := range cat.Products {
		if p.StoreName != "" {
			return p.StoreName
		}
	}
	for _, s := range cat.Sessions {
		if s.StoreName != "" {
			return s.StoreName
		}
	}
	return ""
}
