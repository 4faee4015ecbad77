// Command seed loads a catalog fixture into the Elasticsearch indices the
// catalog service reads, then announces the change on Kafka when brokers are
// configured.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	esengine "github.com/willrp/willstores-ws/internal/engine/elasticsearch"
	"github.com/willrp/willstores-ws/internal/event"
	pkgconfig "github.com/willrp/willstores-ws/pkg/config"
	pkgkafka "github.com/willrp/willstores-ws/pkg/kafka"
	"github.com/willrp/willstores-ws/pkg/logger"
)

//go:embed catalog.json
var defaultCatalog []byte

type seedConfig struct {
	LogLevel                   string   `env:"LOG_LEVEL" envDefault:"info"`
	ElasticsearchURL           string   `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchProductsIndex string   `env:"ELASTICSEARCH_PRODUCTS_INDEX" envDefault:"store_products"`
	ElasticsearchSessionsIndex string   `env:"ELASTICSEARCH_SESSIONS_INDEX" envDefault:"store_sessions"`
	KafkaBrokers               []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic                 string   `env:"KAFKA_TOPIC"`
}

func main() {
	file := flag.String("file", "", "catalog JSON file (defaults to the bundled fixture)")
	reset := flag.Bool("reset", false, "delete and recreate the indices before loading")
	flag.Parse()

	if err := pkgconfig.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cfg seedConfig
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = event.TopicCatalog
	}

	log := logger.New("catalog-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *file, *reset, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg seedConfig, file string, reset bool, log *slog.Logger) error {
	var src io.Reader = bytes.NewReader(defaultCatalog)
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()
		src = f
	}

	cat, err := readCatalog(src)
	if err != nil {
		return err
	}

	store, err := esengine.New(cfg.ElasticsearchURL, esengine.Indices{
		Products: cfg.ElasticsearchProductsIndex,
		Sessions: cfg.ElasticsearchSessionsIndex,
	}, log)
	if err != nil {
		return fmt.Errorf("init elasticsearch engine: %w", err)
	}

	s := &seeder{store: store, topic: cfg.KafkaTopic, logger: log}
	if len(cfg.KafkaBrokers) > 0 {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
		defer producer.Close()
		s.pub = producer
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	return s.Run(ctx, cat, reset)
}
