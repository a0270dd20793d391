package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakuffo/sakwatch/internal/output"
	"github.com/sakuffo/sakwatch/internal/xcontent"
)

const docExt = ".json"

// LocalStorage keeps one file per document under <base>/<index>/<id>.json.
// Metadata for documents written by this process is cached; documents found
// on disk are described from the file itself.
type LocalStorage struct {
	config     *StorageConfig
	basePath   string
	metadata   map[string]*DocumentInfo // key: index/id
	metaMutex  sync.RWMutex
	closed     bool
	closeMutex sync.RWMutex
}

var _ Storage = (*LocalStorage)(nil)
var _ output.Output = (*LocalStorage)(nil)

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg *StorageConfig) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	return &LocalStorage{
		config:   cfg,
		basePath: cfg.BasePath,
		metadata: make(map[string]*DocumentInfo),
	}, nil
}

// Write stores doc.Source. A document without an ID is given a random one.
func (ls *LocalStorage) Write(ctx context.Context, doc output.Document) error {
	if err := ls.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if err := validName(doc.ID); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDocumentID, doc.ID)
	}
	if err := validName(doc.Index); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidIndex, doc.Index)
	}
	if limit := ls.config.MaxDocumentSize; limit > 0 && int64(len(doc.Source)) > limit {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrDocumentTooLarge, len(doc.Source), limit)
	}

	indexDir := filepath.Join(ls.basePath, doc.Index)
	if err := os.MkdirAll(indexDir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial document
	tmp, err := os.CreateTemp(indexDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(doc.Source); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), ls.docPath(doc.Index, doc.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store document: %w", err)
	}

	createdAt := time.Now().UTC()
	if doc.Timestamp > 0 {
		createdAt = time.UnixMilli(doc.Timestamp).UTC()
	}
	info := &DocumentInfo{
		ID:        doc.ID,
		Index:     doc.Index,
		Type:      doc.Type,
		Kind:      doc.Kind,
		Size:      int64(len(doc.Source)),
		Checksum:  checksum(doc.Source),
		CreatedAt: createdAt,
	}

	ls.metaMutex.Lock()
	ls.metadata[metaKey(doc.Index, doc.ID)] = info
	ls.metaMutex.Unlock()

	return nil
}

// Get reads a document and verifies it against the recorded checksum
func (ls *LocalStorage) Get(ctx context.Context, index, id string) ([]byte, *DocumentInfo, error) {
	if err := ls.checkOpen(); err != nil {
		return nil, nil, err
	}
	if err := ls.validate(index, id); err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(ls.docPath(index, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrDocumentNotFound
		}
		return nil, nil, fmt.Errorf("failed to read document: %w", err)
	}

	sum := checksum(data)
	ls.metaMutex.RLock()
	info, ok := ls.metadata[metaKey(index, id)]
	ls.metaMutex.RUnlock()
	if ok {
		if info.Checksum != sum {
			return nil, nil, ErrInvalidChecksum
		}
		copied := *info
		return data, &copied, nil
	}

	fi, err := os.Stat(ls.docPath(index, id))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat document: %w", err)
	}
	return data, describe(index, id, data, sum, fi.ModTime()), nil
}

// describe builds metadata for a document this process did not write. JSON
// documents give up their type, kind and event time; anything else falls
// back to the file's modification time.
func describe(index, id string, data []byte, sum string, modTime time.Time) *DocumentInfo {
	info := &DocumentInfo{
		ID:        id,
		Index:     index,
		Size:      int64(len(data)),
		Checksum:  sum,
		CreatedAt: modTime.UTC(),
	}
	var head struct {
		Timestamp string `json:"@timestamp"`
		Type      string `json:"type"`
		Event     string `json:"event"`
	}
	if json.Unmarshal(data, &head) != nil {
		return info
	}
	info.Type = head.Type
	info.Kind = head.Event
	if ts, err := time.Parse(xcontent.DateFormat, head.Timestamp); err == nil {
		info.CreatedAt = ts
	}
	return info
}

// List returns every document of an index ordered by creation time
func (ls *LocalStorage) List(ctx context.Context, index string) ([]*DocumentInfo, error) {
	if err := ls.checkOpen(); err != nil {
		return nil, err
	}
	if err := validName(index); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIndex, index)
	}

	entries, err := os.ReadDir(filepath.Join(ls.basePath, index))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list index: %w", err)
	}

	var infos []*DocumentInfo
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, docExt) {
			continue
		}
		_, info, err := ls.Get(ctx, index, strings.TrimSuffix(name, docExt))
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos, nil
}

// Indices returns the index directories in lexical (and so date) order
func (ls *LocalStorage) Indices(ctx context.Context) ([]string, error) {
	if err := ls.checkOpen(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list indices: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Delete removes a document and its metadata
func (ls *LocalStorage) Delete(ctx context.Context, index, id string) error {
	if err := ls.checkOpen(); err != nil {
		return err
	}
	if err := ls.validate(index, id); err != nil {
		return err
	}

	if err := os.Remove(ls.docPath(index, id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}

	ls.metaMutex.Lock()
	delete(ls.metadata, metaKey(index, id))
	ls.metaMutex.Unlock()
	return nil
}

// Close marks the storage closed; later calls fail with ErrStorageClosed
func (ls *LocalStorage) Close() error {
	ls.closeMutex.Lock()
	defer ls.closeMutex.Unlock()
	ls.closed = true
	return nil
}

func (ls *LocalStorage) checkOpen() error {
	ls.closeMutex.RLock()
	defer ls.closeMutex.RUnlock()
	if ls.closed {
		return ErrStorageClosed
	}
	return nil
}

func (ls *LocalStorage) validate(index, id string) error {
	if err := validName(index); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidIndex, index)
	}
	if err := validName(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDocumentID, id)
	}
	return nil
}

func (ls *LocalStorage) docPath(index, id string) string {
	return filepath.Join(ls.basePath, index, id+docExt)
}

// validName rejects names that would escape or collide within the base path
func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return errors.New("invalid name")
	}
	return nil
}

func metaKey(index, id string) string {
	return index + "/" + id
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
