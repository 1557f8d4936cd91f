package storage

import (
	"context"
	"fmt"
)

// Tee writes to a primary sink and then to each mirror. The primary
// location is returned; the first mirror failure is returned as an error
// after the primary write has succeeded.
type Tee struct {
	Primary *LocalSink
	Mirrors []Sink
}

// Put implements Sink.
func (t *Tee) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	location, err := t.Primary.Put(ctx, name, data, contentType)
	if err != nil {
		return "", err
	}
	for _, m := range t.Mirrors {
		if _, err := m.Put(ctx, name, data, contentType); err != nil {
			return location, fmt.Errorf("mirror: %w", err)
		}
	}
	return location, nil
}

// Exists reports whether the primary sink already holds name.
func (t *Tee) Exists(name string) bool {
	return t.Primary.Exists(name)
}
