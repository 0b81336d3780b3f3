package artifact

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

const stagingPrefix = "staging/"

// Store writes, checks, and cleans up per-item artifacts in one bucket.
// It is safe for concurrent use.
type Store struct {
	bucket *blob.Bucket
	owned  bool
}

// Open opens the bucket at urlstr (file://, s3://, mem://; the driver
// must be linked into the binary).
func Open(ctx context.Context, urlstr string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, urlstr)
	if err != nil {
		return nil, fmt.Errorf("open artifact bucket: %w", err)
	}
	return &Store{bucket: bucket, owned: true}, nil
}

// NewStore wraps an already-open bucket. The caller retains ownership.
func NewStore(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

// FinalKey returns the bucket key of item's published artifact.
func FinalKey(item string) string {
	return item + ".json"
}

// stagingKey returns a key unique per item, attempt, and call.
func stagingKey(item string, attempt int) (string, error) {
	var nonce [8]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("staging nonce: %w", err)
	}
	return fmt.Sprintf("%s%s.%d.%s.json", stagingPrefix, item, attempt, hex.EncodeToString(nonce[:])), nil
}

// Publish makes data visible at item's final key. The payload is staged
// first; the final key is written only by copying the fully-written
// staged object, so partial content is never observable there.
func (s *Store) Publish(ctx context.Context, item string, attempt int, data []byte) error {
	staged, err := stagingKey(item, attempt)
	if err != nil {
		return err
	}

	w, err := s.bucket.NewWriter(ctx, staged, &blob.WriterOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("stage %s: %w", item, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("stage %s: %w", item, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("stage %s: %w", item, err)
	}

	if err := s.bucket.Copy(ctx, FinalKey(item), staged, nil); err != nil {
		return fmt.Errorf("publish %s: %w", item, err)
	}

	// The copy made the artifact visible, so the publish has happened:
	// failing it now would leave the caller believing the item failed
	// while its artifact is observable. The staged key is removed on a
	// detached context and best-effort; CleanStaging sweeps leftovers.
	s.dropStaged(staged)
	return nil
}

// dropStaged removes a staged key whose copy already completed. Errors
// (including caller cancellation) are swallowed.
func (s *Store) dropStaged(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.bucket.Delete(ctx, key)
}

// Exists reports whether item's final artifact is present.
func (s *Store) Exists(ctx context.Context, item string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, FinalKey(item))
	if err != nil {
		return false, fmt.Errorf("check %s: %w", item, err)
	}
	return ok, nil
}

// Read returns the published payload for item.
func (s *Store) Read(ctx context.Context, item string) ([]byte, error) {
	r, err := s.bucket.NewReader(ctx, FinalKey(item), nil)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", item, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", item, err)
	}
	return data, nil
}

// CleanStaging deletes every staged object, returning how many were
// removed. Objects already gone are not an error, so repeated calls are
// harmless.
func (s *Store) CleanStaging(ctx context.Context) (int, error) {
	removed := 0
	iter := s.bucket.List(&blob.ListOptions{Prefix: stagingPrefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			return removed, nil
		}
		if err != nil {
			return removed, fmt.Errorf("list staging: %w", err)
		}
		if err := s.bucket.Delete(ctx, obj.Key); err != nil {
			if gcerrors.Code(err) == gcerrors.NotFound {
				continue
			}
			return removed, fmt.Errorf("delete staged %s: %w", obj.Key, err)
		}
		removed++
	}
}

// Close releases the bucket, if the Store owns it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.bucket.Close()
}
