package signvault

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/SignVault/internal/metrics"
	"github.com/himanishpuri/SignVault/pkg/models"
	"github.com/himanishpuri/SignVault/pkg/signvault/blob"
	"github.com/himanishpuri/SignVault/pkg/signvault/storage"
	"github.com/himanishpuri/SignVault/pkg/utils"
)

const rollbackTimeout = 5 * time.Second

// ContentStore keeps clip payloads in a blob store and their metadata in
// the catalog. A clip is visible once its catalog row exists, and the row
// is written only after the payload.
type ContentStore struct {
	catalog Catalog
	blobs   blob.Store
	log     Logger
}

func NewContentStore(catalog Catalog, blobs blob.Store, log Logger) *ContentStore {
	return &ContentStore{catalog: catalog, blobs: blobs, log: log}
}

// Put stores clip.Data and fills in ID, Seq, Checksum, SizeBytes and
// CreatedAt. Any failure is wrapped in ErrStorageFailure and leaves nothing
// behind.
func (cs *ContentStore) Put(ctx context.Context, clip *models.Clip) error {
	sum := sha256.Sum256(clip.Data)
	id := utils.NewClipID()
	size := int64(len(clip.Data))

	if err := cs.writeBlob(ctx, id, clip.Data); err != nil {
		return newError(ErrStorageFailure, "failed to store clip", err)
	}

	rec := &storage.ClipRecord{
		ID:          id,
		Owner:       clip.Owner,
		Label:       clip.Label,
		RawLabel:    clip.RawLabel,
		MimeType:    clip.MimeType,
		SizeBytes:   size,
		Checksum:    hex.EncodeToString(sum[:]),
		BlobBackend: cs.blobs.Name(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := cs.catalog.InsertClip(ctx, rec); err != nil {
		cs.rollback(ctx, id)
		return newError(ErrStorageFailure, "failed to record clip", err)
	}

	clip.ID = rec.ID
	clip.Seq = rec.Seq
	clip.Checksum = rec.Checksum
	clip.SizeBytes = size
	clip.CreatedAt = rec.CreatedAt
	cs.log.Debugf("stored clip %s (%s) in %s", id, humanize.IBytes(uint64(size)), cs.blobs.Name())
	return nil
}

// writeBlob retries a failed write once unless the context is already done.
func (cs *ContentStore) writeBlob(ctx context.Context, id string, data []byte) error {
	err := cs.blobs.Put(ctx, id, bytes.NewReader(data), int64(len(data)))
	if err == nil || ctx.Err() != nil {
		return err
	}
	cs.log.Warnf("blob write for %s failed, retrying: %v", id, err)
	metrics.BlobRetries.Inc()
	return cs.blobs.Put(ctx, id, bytes.NewReader(data), int64(len(data)))
}

func (cs *ContentStore) rollback(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := cs.blobs.Delete(ctx, id); err != nil {
		cs.log.Errorf("rollback of blob %s failed: %v", id, err)
	}
}

// Get loads a clip with its payload and verifies the stored checksum.
func (cs *ContentStore) Get(ctx context.Context, id string) (*models.Clip, error) {
	rec, err := cs.catalog.GetClip(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrClipNotFound) {
			return nil, newError(ErrNotFound, "clip not found", err)
		}
		return nil, newError(ErrStorageFailure, "failed to read clip", err)
	}

	var buf bytes.Buffer
	buf.Grow(int(rec.SizeBytes))
	if err := cs.blobs.Get(ctx, id, &buf); err != nil {
		return nil, newError(ErrStorageFailure, "failed to read clip", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	if got := hex.EncodeToString(sum[:]); got != rec.Checksum {
		return nil, newError(ErrStorageFailure, "clip is corrupted",
			fmt.Errorf("checksum mismatch for %s: have %s, want %s", id, got, rec.Checksum))
	}

	clip := rec.Clip()
	clip.Data = buf.Bytes()
	return &clip, nil
}

// Walk calls fn with the metadata of every stored clip in submission order.
func (cs *ContentStore) Walk(ctx context.Context, fn func(models.Clip) error) error {
	return cs.catalog.EachClip(ctx, 500, func(rec storage.ClipRecord) error {
		return fn(rec.Clip())
	})
}
