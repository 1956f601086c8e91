package storage

import (
	"context"
	"time"
)

// NoopDeliveryArchive discards deliveries. Used when archiving is disabled.
type NoopDeliveryArchive struct{}

// NewNoopDeliveryArchive creates a NoopDeliveryArchive
func NewNoopDeliveryArchive() *NoopDeliveryArchive {
	return &NoopDeliveryArchive{}
}

// Archive returns an empty key and never fails
func (NoopDeliveryArchive) Archive(_ context.Context, _ string, _ time.Time, _ []byte) (string, error) {
	return "", nil
}

// Fetch always reports the delivery as missing
func (NoopDeliveryArchive) Fetch(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrArchiveKeyRequired
	}
	return nil, ErrArchiveNotFound
}
