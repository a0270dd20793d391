package storage

import "errors"

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidDocumentID = errors.New("invalid document ID")
	ErrInvalidIndex      = errors.New("invalid index name")
	ErrDocumentTooLarge  = errors.New("document too large")
	ErrInvalidChecksum   = errors.New("invalid checksum")
	ErrStorageClosed     = errors.New("storage is closed")
)
