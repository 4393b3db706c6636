//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopqa/shopqa/internal/config"
	"github.com/shopqa/shopqa/internal/storage"
)

func TestStoreRoundTripAgainstMinIO(t *testing.T) {
	endpoint := envOr("SHOPQA_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("SHOPQA_TEST_S3_ENDPOINT is not set")
	}

	cfg := config.ObjectStoreConfig{
		Endpoint:         endpoint,
		Region:           envOr("SHOPQA_TEST_S3_REGION", "us-east-1"),
		Bucket:           envOr("SHOPQA_TEST_S3_BUCKET", "shopqa-it"),
		AccessKeyID:      envOr("SHOPQA_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey:  envOr("SHOPQA_TEST_S3_SECRET_KEY", "miniostorage"),
		Prefix:           "integration-tests",
		AutoCreateBucket: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key, err := storage.TablePath("it-snapshot", "orders")
	if err != nil {
		t.Fatalf("TablePath() error = %v", err)
	}
	payload := []byte("shopqa-integration")

	if _, err := store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{ContentType: storage.ContentTypeParquet}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	objects, err := store.List(ctx, "it-snapshot/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 1 || objects[0].Key != key {
		t.Fatalf("List() = %+v", objects)
	}

	reader, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	readPayload, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("reader.Close() error = %v", err)
	}
	if !bytes.Equal(readPayload, payload) {
		t.Fatalf("Get() payload = %q, want %q", string(readPayload), string(payload))
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Stat(ctx, key); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() after delete error = %v, want ErrObjectNotFound", err)
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
