package content

import (
	"context"

	"github.com/user/article-crawler/internal/repository"
)

// DuplicateReason says which key matched an earlier record of the run.
type DuplicateReason string

const (
	NotDuplicate     DuplicateReason = ""
	DuplicateURL     DuplicateReason = "url"
	DuplicateContent DuplicateReason = "content_hash"
)

const (
	urlKeyPrefix         = "url:"
	contentHashKeyPrefix = "hash:"
)

// Deduplicator suppresses records whose canonical URL or content hash was
// already seen during the current run.
type Deduplicator struct {
	seen repository.SeenSet
}

func NewDeduplicator(seen repository.SeenSet) *Deduplicator {
	return &Deduplicator{seen: seen}
}

// Check reports whether a record repeats an earlier record of the run. It
// records nothing; call Mark once the record is stored.
func (d *Deduplicator) Check(ctx context.Context, canonicalURL, contentHash string) (DuplicateReason, error) {
	if canonicalURL != "" {
		seen, err := d.seen.Contains(ctx, urlKeyPrefix+canonicalURL)
		if err != nil {
			return NotDuplicate, err
		}
		if seen {
			return DuplicateURL, nil
		}
	}
	if contentHash != "" {
		seen, err := d.seen.Contains(ctx, contentHashKeyPrefix+contentHash)
		if err != nil {
			return NotDuplicate, err
		}
		if seen {
			return DuplicateContent, nil
		}
	}
	return NotDuplicate, nil
}

// Mark remembers the keys of a stored record so later records of the run
// that repeat them are reported by Check.
func (d *Deduplicator) Mark(ctx context.Context, canonicalURL, contentHash string) error {
	if canonicalURL != "" {
		if _, err := d.seen.Add(ctx, urlKeyPrefix+canonicalURL); err != nil {
			return err
		}
	}
	if contentHash != "" {
		if _, err := d.seen.Add(ctx, contentHashKeyPrefix+contentHash); err != nil {
			return err
		}
	}
	return nil
}

// Reset forgets everything seen so far.
func (d *Deduplicator) Reset(ctx context.Context) error {
	return d.seen.Reset(ctx)
}
