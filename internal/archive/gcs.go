package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Archiver keeps a long-term copy of each generated report in a GCS
// bucket. It is an optional side channel: an empty bucket name disables it
// and failures never affect the business flow.
type Archiver struct {
	bucket    string
	credsFile string
	log       zerolog.Logger
}

func New(bucket, credsFile string, log zerolog.Logger) *Archiver {
	return &Archiver{bucket: bucket, credsFile: credsFile, log: log}
}

// Enabled reports whether a destination bucket is configured.
func (a *Archiver) Enabled() bool {
	return a.bucket != ""
}

// Store writes content to the bucket under objectName.
func (a *Archiver) Store(ctx context.Context, objectName string, content []byte) error {
	if !a.Enabled() {
		return nil
	}

	var opts []option.ClientOption
	if a.credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(a.credsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("Store: creating storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(content)); err != nil {
		_ = w.Close()
		return fmt.Errorf("Store: writing object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Store: finalizing object %q: %w", objectName, err)
	}

	a.log.Info().
		Str("bucket", a.bucket).
		Str("object", objectName).
		Int("bytes", len(content)).
		Msg("Report archived")
	return nil
}
