package signvault

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/himanishpuri/SignVault/internal/metrics"
	"github.com/himanishpuri/SignVault/pkg/models"
	"github.com/himanishpuri/SignVault/pkg/signvault/index"
)

const fetchTimeout = 30 * time.Second

// cachedClip holds a clip with its payload already base64 encoded. Clips
// never change after they are stored, so entries need no invalidation.
type cachedClip struct {
	clip    models.Clip
	encoded string
}

// Find returns the most recently stored clip for word. A word with no clips
// yields StatusNotFound, which callers should treat as an ordinary answer.
func (s *service) Find(ctx context.Context, word string) LookupResult {
	label := index.Normalize(word)
	if label == "" {
		return s.lookupFailed(newError(ErrInvalidInput, "word required", nil))
	}

	id, ok := s.index.Latest(label)
	if !ok {
		metrics.LookupsTotal.WithLabelValues(string(KindNotFound)).Inc()
		return LookupResult{
			Status: StatusNotFound,
			Label:  label,
			Reason: fmt.Sprintf("no sign found for %q", strings.TrimSpace(word)),
			Code:   KindNotFound,
			Err:    ErrNotFound,
		}
	}

	cc, err := s.fetchClip(ctx, id)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Errorf("lookup of %q (clip %s) failed: %v", label, id, err)
		}
		return s.lookupFailed(err)
	}

	metrics.LookupsTotal.WithLabelValues(StatusSuccess).Inc()
	return LookupResult{
		Status:    StatusSuccess,
		VideoData: cc.encoded,
		MimeType:  cc.clip.MimeType,
		ClipID:    cc.clip.ID,
		Label:     cc.clip.Label,
		Owner:     cc.clip.Owner,
		CreatedAt: cc.clip.CreatedAt,
	}
}

// fetchClip serves from the cache, collapsing concurrent misses for the same
// clip into a single content store read. The shared read is detached from
// every caller's context and bounded by fetchTimeout; each caller stops
// waiting when its own context ends.
func (s *service) fetchClip(ctx context.Context, id string) (*cachedClip, error) {
	if s.cache != nil {
		if cc, ok := s.cache.Get(id); ok {
			metrics.ClipCacheHits.Inc()
			return cc, nil
		}
		metrics.ClipCacheMisses.Inc()
	}

	ch := s.group.DoChan(id, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		clip, err := s.content.Get(fetchCtx, id)
		if err != nil {
			return nil, err
		}
		cc := &cachedClip{clip: *clip, encoded: base64.StdEncoding.EncodeToString(clip.Data)}
		cc.clip.Data = nil
		if s.cache != nil {
			s.cache.Add(id, cc)
		}
		return cc, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*cachedClip), nil
	}
}

func (s *service) lookupFailed(err error) LookupResult {
	kind := KindOf(err)
	metrics.LookupsTotal.WithLabelValues(string(kind)).Inc()
	return LookupResult{
		Status: StatusError,
		Reason: ReasonOf(err),
		Code:   kind,
		Err:    err,
	}
}
