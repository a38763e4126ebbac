package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

// Kinds of stored operation handles.
const (
	handleKindNotebook = "notebook"
	handleKindNone     = "none"
)

const handleIDLength = 36

// processHandles backs the memory handle store for the lifetime of the process.
var processHandles = artifacts.NewMemoryHandleStore()

// storedHandle is the record kept in the handle store.
type storedHandle struct {
	Kind      string `json:"kind"`
	Operation string `json:"operation"`
	Name      string `json:"name"`
	Token     string `json:"token"`
}

func openHandleStore(ctx context.Context) (artifacts.HandleStore, error) {
	config := &artifacts.HandleStoreConfig{
		Type: artifacts.HandleStoreType(viper.GetString("handle-store")),
	}

	switch config.Type {
	case artifacts.HandleStoreMemory, "":
		return processHandles, nil
	case artifacts.HandleStoreNATS:
		config.NATS = &artifacts.NATSKVConfig{
			URL:    viper.GetString("nats-url"),
			Bucket: viper.GetString("nats-bucket"),
		}
	}

	store, err := artifacts.NewHandleStoreFromConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open handle store: %w", err)
	}

	return store, nil
}

// saveHandle stores a resume token and returns the handle id.
func saveHandle(ctx context.Context, handle storedHandle) (string, error) {
	store, err := openHandleStore(ctx)
	if err != nil {
		return "", err
	}

	defer func() { _ = store.Close() }()

	raw, err := json.Marshal(handle)
	if err != nil {
		return "", fmt.Errorf("encoding handle: %w", err)
	}

	id := artifacts.NewHandleID()

	err = store.Save(ctx, id, string(raw))
	if err != nil {
		return "", fmt.Errorf("failed to save handle: %w", err)
	}

	return id, nil
}

// loadHandle resolves a handle id, falling back to treating ref as a literal
// resume token of the given kind.
func loadHandle(ctx context.Context, ref, kind string) (storedHandle, string, error) {
	if !looksLikeHandleID(ref) {
		return storedHandle{Kind: kind, Token: ref}, "", nil
	}

	store, err := openHandleStore(ctx)
	if err != nil {
		return storedHandle{}, "", err
	}

	defer func() { _ = store.Close() }()

	raw, err := store.Load(ctx, ref)
	if err != nil {
		return storedHandle{}, "", fmt.Errorf("failed to load handle: %w", err)
	}

	var handle storedHandle

	err = json.Unmarshal([]byte(raw), &handle)
	if err != nil || handle.Token == "" {
		return storedHandle{}, "", fmt.Errorf("%w: %s", ErrInvalidHandle, ref)
	}

	return handle, ref, nil
}

func forgetHandle(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	store, err := openHandleStore(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = store.Close() }()

	err = store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete handle: %w", err)
	}

	return nil
}

func looksLikeHandleID(ref string) bool {
	if len(ref) != handleIDLength {
		return false
	}

	_, err := uuid.Parse(ref)

	return err == nil
}
