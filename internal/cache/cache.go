package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CachedAnswer is an advisory answer for one digest and question pair.
type CachedAnswer struct {
	Answer    string    `json:"answer"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AdvisoryCache interface {
	Get(ctx context.Context, key string) (*CachedAnswer, bool, error)
	Set(ctx context.Context, key string, value *CachedAnswer, ttl time.Duration) error
}

// AdvisoryKey hashes the digest together with the question, so a new sale or
// stock movement never serves an answer computed from older figures.
func AdvisoryKey(digest, question string) string {
	sum := sha256.Sum256([]byte(digest + "\x00" + question))
	return "bangunanpro:advisor:" + hex.EncodeToString(sum[:])
}

type NoopAdvisoryCache struct{}

func (NoopAdvisoryCache) Get(_ context.Context, _ string) (*CachedAnswer, bool, error) {
	return nil, false, nil
}

func (NoopAdvisoryCache) Set(_ context.Context, _ string, _ *CachedAnswer, _ time.Duration) error {
	return nil
}
