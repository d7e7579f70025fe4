// Package advisor sends the business digest to a language model and keeps
// the answer shown on the dashboard.
package advisor

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"bangunanpro/backend/internal/cache"
	"bangunanpro/backend/internal/domain"
)

var (
	ErrConfigurationMissing = errors.New("advisor api key is not configured")
	ErrUpstreamFailure      = errors.New("advisor upstream failure")
	ErrEmptyAnswer          = errors.New("advisor returned an empty answer")
)

const (
	MessageConfigurationMissing = "Error: API Key is missing. Please check your configuration."
	MessageEmptyAnswer          = "Maaf, saya tidak dapat menganalisis data saat ini."
	MessageUpstreamFailure      = "Terjadi kesalahan saat menghubungi asisten AI."
)

type Advisor interface {
	Ask(ctx context.Context, digest, question string) (string, error)
}

// FallbackMessage maps an advisor error to the text shown instead of an
// answer.
func FallbackMessage(err error) string {
	switch {
	case errors.Is(err, ErrConfigurationMissing):
		return MessageConfigurationMissing
	case errors.Is(err, ErrEmptyAnswer):
		return MessageEmptyAnswer
	default:
		return MessageUpstreamFailure
	}
}

type AssistantOptions struct {
	Cache    cache.AdvisoryCache
	CacheTTL time.Duration
	Model    string
}

// Assistant numbers every question. When answers arrive out of order only
// the newest question's answer becomes the displayed one.
type Assistant struct {
	advisor  Advisor
	cache    cache.AdvisoryCache
	cacheTTL time.Duration
	model    string
	now      func() time.Time

	seq    atomic.Uint64
	mu     sync.Mutex
	latest domain.AssistantResponse
}

func NewAssistant(advisor Advisor, opts AssistantOptions) *Assistant {
	if opts.Cache == nil {
		opts.Cache = cache.NoopAdvisoryCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &Assistant{
		advisor:  advisor,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		model:    opts.Model,
		now:      time.Now,
	}
}

// Latest is the answer currently on display.
func (a *Assistant) Latest() domain.AssistantResponse {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}

// Ask never fails: errors become fallback text. An empty question changes
// nothing and returns what is on display.
func (a *Assistant) Ask(ctx context.Context, digest, question string) domain.AssistantResponse {
	question = strings.TrimSpace(question)
	if question == "" {
		return a.Latest()
	}

	resp := domain.AssistantResponse{Sequence: a.seq.Add(1)}
	key := cache.AdvisoryKey(digest, question)

	cached, hit, err := a.cache.Get(ctx, key)
	if err != nil {
		log.Printf("[advisor] WARN: cache get failed: %v", err)
	}
	if hit && cached != nil {
		resp.Answer = cached.Answer
		resp.Cached = true
		return a.publish(resp)
	}

	answer, err := a.advisor.Ask(ctx, digest, question)
	if err != nil {
		if !errors.Is(err, ErrConfigurationMissing) {
			log.Printf("[advisor] WARN: request %d failed: %v", resp.Sequence, err)
		}
		resp.Answer = FallbackMessage(err)
		resp.Fallback = true
		return a.publish(resp)
	}

	resp.Answer = answer
	if err := a.cache.Set(ctx, key, &cache.CachedAnswer{Answer: answer, Model: a.model, CreatedAt: a.now().UTC()}, a.cacheTTL); err != nil {
		log.Printf("[advisor] WARN: cache set failed: %v", err)
	}
	return a.publish(resp)
}

func (a *Assistant) publish(resp domain.AssistantResponse) domain.AssistantResponse {
	a.mu.Lock()
	defer a.mu.Unlock()

	if resp.Sequence < a.latest.Sequence {
		resp.Superseded = true
		return resp
	}
	a.latest = resp
	return resp
}
