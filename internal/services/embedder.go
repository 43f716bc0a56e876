package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/maxaizer/vacancy-matcher/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

// Embedder converts text into a dense vector of the dimensionality of the candidate index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CachedEmbedder remembers embeddings of recently seen texts, so repeated interactive
// match views of the same vacancy do not call the provider again.
type CachedEmbedder struct {
	embedder Embedder
	cache    *gocache.Cache
}

func NewCachedEmbedder(embedder Embedder, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{embedder: embedder, cache: gocache.New(ttl, 2*ttl)}
}

// Embed returns the cached vector for text or asks the provider. Provider failures
// are reported as entities.ErrServiceUnavailable.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {

	cacheID := createEmbeddingCacheID(text)
	if cached, found := c.cache.Get(cacheID); found {
		return cached.([]float32), nil
	}

	start := time.Now()
	vector, err := c.embedder.Embed(ctx, text)
	metrics.MatchStepDuration.WithLabelValues("embedding").Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %v", entities.ErrServiceUnavailable, err)
	}

	if cacheErr := c.cache.Add(cacheID, vector, gocache.DefaultExpiration); cacheErr != nil {
		log.Debugf("embedding already cached: %v", cacheErr)
	}
	return vector, nil
}

func createEmbeddingCacheID(text string) string {
	textHash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(textHash[:])
}
