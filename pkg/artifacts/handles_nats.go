package artifacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
)

// NATSKVConfig configures the NATS JetStream KV handle store.
type NATSKVConfig struct {
	// URL is the NATS server URL. Defaults to nats.DefaultURL.
	URL string
	// Bucket is the KV bucket name. Defaults to "artifacts-operations".
	Bucket string
	// TTL bounds how long a handle is retained. Defaults to 24h.
	TTL time.Duration
	// Options are passed to nats.Connect.
	Options []nats.Option
}

// NATSHandleStore stores resume tokens in a JetStream key-value bucket.
type NATSHandleStore struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSHandleStore connects to NATS and opens, or creates, the bucket.
func NewNATSHandleStore(ctx context.Context, config *NATSKVConfig) (*NATSHandleStore, error) {
	url := config.URL
	if url == "" {
		url = nats.DefaultURL
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultHandleBucket
	}

	ttl := config.TTL
	if ttl == 0 {
		ttl = constants.DefaultHandleTTL
	}

	conn, err := nats.Connect(url, config.Options...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "artifacts long-running operation handles",
			TTL:         ttl,
		})
	}

	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening KV bucket %s: %w", bucket, err)
	}

	return &NATSHandleStore{conn: conn, kv: kv}, nil
}

// Save implements HandleStore.
func (s *NATSHandleStore) Save(ctx context.Context, id, token string) error {
	_, err := s.kv.Put(ctx, id, []byte(token))
	if err != nil {
		return fmt.Errorf("saving handle %s: %w", id, err)
	}

	return nil
}

// Load implements HandleStore.
func (s *NATSHandleStore) Load(ctx context.Context, id string) (string, error) {
	entry, err := s.kv.Get(ctx, id)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrHandleNotFound, id)
	}

	if err != nil {
		return "", fmt.Errorf("loading handle %s: %w", id, err)
	}

	return string(entry.Value()), nil
}

// Delete implements HandleStore.
func (s *NATSHandleStore) Delete(ctx context.Context, id string) error {
	err := s.kv.Delete(ctx, id)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("deleting handle %s: %w", id, err)
	}

	return nil
}

// Close drains the NATS connection.
func (s *NATSHandleStore) Close() error {
	err := s.conn.Drain()
	if err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}

	return nil
}
