package advisor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bangunanpro/backend/internal/cache"
)

type stubAdvisor struct {
	mu     sync.Mutex
	calls  int
	answer string
	err    error
}

func (s *stubAdvisor) Ask(_ context.Context, _, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.answer, s.err
}

func (s *stubAdvisor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// gatedAdvisor blocks each question until the test releases it.
type gatedAdvisor struct {
	started chan string
	release map[string]chan struct{}
}

func (g *gatedAdvisor) Ask(_ context.Context, _, question string) (string, error) {
	g.started <- question
	<-g.release[question]
	return "jawaban untuk " + question, nil
}

func TestAssistantAnswersAndRemembers(t *testing.T) {
	stub := &stubAdvisor{answer: "Stok paku menipis."}
	a := NewAssistant(stub, AssistantOptions{})

	resp := a.Ask(context.Background(), "digest", "Bagaimana stok?")
	assert.Equal(t, "Stok paku menipis.", resp.Answer)
	assert.Equal(t, uint64(1), resp.Sequence)
	assert.False(t, resp.Fallback)
	assert.Equal(t, resp, a.Latest())
}

func TestAssistantEmptyQuestionKeepsDisplay(t *testing.T) {
	stub := &stubAdvisor{answer: "A"}
	a := NewAssistant(stub, AssistantOptions{})
	first := a.Ask(context.Background(), "digest", "q1")

	resp := a.Ask(context.Background(), "digest", "   ")
	assert.Equal(t, first, resp)
	assert.Equal(t, 1, stub.callCount())
}

func TestAssistantFallbacks(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrConfigurationMissing, MessageConfigurationMissing},
		{ErrEmptyAnswer, MessageEmptyAnswer},
		{ErrUpstreamFailure, MessageUpstreamFailure},
	}
	for _, tc := range cases {
		a := NewAssistant(&stubAdvisor{err: tc.err}, AssistantOptions{})
		resp := a.Ask(context.Background(), "digest", "q")
		assert.True(t, resp.Fallback)
		assert.Equal(t, tc.want, resp.Answer)
	}
}

func TestAssistantUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCache := cache.NewRedisAdvisoryCache(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = redisCache.Close() })

	stub := &stubAdvisor{answer: "Tambah stok semen."}
	a := NewAssistant(stub, AssistantOptions{Cache: redisCache, CacheTTL: time.Minute, Model: DefaultModel})

	first := a.Ask(context.Background(), "digest-1", "Saran?")
	second := a.Ask(context.Background(), "digest-1", "Saran?")
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, 1, stub.callCount())

	// new figures, new key
	a.Ask(context.Background(), "digest-2", "Saran?")
	assert.Equal(t, 2, stub.callCount())
}

func TestAssistantDoesNotCacheFallbacks(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCache := cache.NewRedisAdvisoryCache(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = redisCache.Close() })

	stub := &stubAdvisor{err: ErrUpstreamFailure}
	a := NewAssistant(stub, AssistantOptions{Cache: redisCache})
	a.Ask(context.Background(), "d", "q")
	a.Ask(context.Background(), "d", "q")
	assert.Equal(t, 2, stub.callCount())
}

func TestAssistantDiscardsSupersededAnswer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	gate := &gatedAdvisor{
		started: make(chan string),
		release: map[string]chan struct{}{"lama": make(chan struct{}), "baru": make(chan struct{})},
	}
	a := NewAssistant(gate, AssistantOptions{})

	var wg sync.WaitGroup
	results := make(map[string]chan uint64)
	ask := func(q string) {
		done := make(chan uint64, 1)
		results[q] = done
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := a.Ask(context.Background(), "digest", q)
			done <- resp.Sequence
		}()
		require.Equal(t, q, <-gate.started)
	}

	ask("lama")
	ask("baru")

	close(gate.release["baru"])
	newer := <-results["baru"]
	close(gate.release["lama"])
	older := <-results["lama"]
	wg.Wait()

	assert.Less(t, older, newer)
	latest := a.Latest()
	assert.Equal(t, newer, latest.Sequence)
	assert.Equal(t, "jawaban untuk baru", latest.Answer)
}
