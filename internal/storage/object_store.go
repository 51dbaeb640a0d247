package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ObjectStore is the attachment store contract: put bytes under a unique
// key, delete them again (compensation when the ticket insert fails after a
// successful upload), and resolve the public address of a key.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// AttachmentKey derives a unique object key from the original filename by
// prefixing the current millisecond timestamp.
func AttachmentKey(fileName string) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "attachment"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '-'
		}
		return r
	}, name)
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), name)
}
