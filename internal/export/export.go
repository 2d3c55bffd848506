// Package export writes a snapshot view to a zstd-compressed JSON file and
// reads it back.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/deploymenttheory/go-ffsp/internal/navigator"
	"github.com/deploymenttheory/go-ffsp/pkg/app/inspect"
)

// Format identifies the export layout.
const Format = "ffsp-inspect/v1"

// Document is the top-level export object.
type Document struct {
	Format     string            `json:"format"`
	ExportedAt time.Time         `json:"exported_at"`
	Snapshot   *inspect.Response `json:"snapshot"`
}

// Write encodes v to w.
func Write(w io.Writer, v *navigator.View) error {
	if v == nil || v.Snapshot == nil {
		return fmt.Errorf("nothing to export: no snapshot loaded")
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	doc := Document{
		Format:     Format,
		ExportedAt: time.Now().UTC(),
		Snapshot:   inspect.FromView(v),
	}
	if err := json.NewEncoder(enc).Encode(doc); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return enc.Close()
}

// Read decodes an export written by Write.
func Read(r io.Reader) (*Document, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	var doc Document
	if err := json.NewDecoder(dec).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if doc.Format != Format {
		return nil, fmt.Errorf("unsupported export format %q", doc.Format)
	}
	if doc.Snapshot == nil {
		return nil, fmt.Errorf("export has no snapshot")
	}
	return &doc, nil
}
