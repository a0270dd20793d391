package storage

import (
	"context"
	"time"

	"github.com/sakuffo/sakwatch/internal/output"
)

// DocumentInfo represents metadata about a stored document
type DocumentInfo struct {
	ID        string
	Index     string
	Type      string
	Kind      string
	Size      int64
	Checksum  string // hex sha256 of the source
	CreatedAt time.Time
}

// Storage archives exported documents by index and ID
type Storage interface {
	// Write stores a document; it satisfies output.Output
	Write(ctx context.Context, doc output.Document) error

	// Get returns the stored source and its metadata
	Get(ctx context.Context, index, id string) ([]byte, *DocumentInfo, error)

	// List returns metadata of every document in an index, oldest first
	List(ctx context.Context, index string) ([]*DocumentInfo, error)

	// Indices returns the names of all indices holding documents
	Indices(ctx context.Context) ([]string, error)

	// Delete removes a document
	Delete(ctx context.Context, index, id string) error

	// Close closes the storage
	Close() error
}

// StorageConfig holds configuration for a storage implementation
type StorageConfig struct {
	BasePath        string
	MaxDocumentSize int64 // 0 = unlimited
}

// DefaultConfig returns the default storage configuration
func DefaultConfig() *StorageConfig {
	return &StorageConfig{
		BasePath:        "data",
		MaxDocumentSize: 1024 * 1024,
	}
}
