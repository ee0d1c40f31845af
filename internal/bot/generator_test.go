package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStreamsPartials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/stream+json")
		_, _ = w.Write([]byte(`{"text":"Bonjour","is_finished":false}` + "\n"))
		_, _ = w.Write([]byte(`{"text":" toi","is_finished":false}` + "\n"))
		_, _ = w.Write([]byte(`{"is_finished":true,"finish_reason":"COMPLETE"}` + "\n"))
	}))
	defer srv.Close()

	g := NewCohereGenerator("test-key", srv.URL, 5*time.Second)

	var partials []string
	text := g.Generate(context.Background(), Jester, "salut", "Jester's Asylum", func(s string) {
		partials = append(partials, s)
	})

	assert.Equal(t, "Bonjour toi", text)
	assert.Equal(t, []string{"Bonjour", "Bonjour toi"}, partials)
}

func TestGenerateMissingCredentialNeverCallsBackend(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	g := NewCohereGenerator("", srv.URL, time.Second)
	text := g.Generate(context.Background(), Jester, "salut", "", nil)

	assert.Contains(t, Jester.Fallbacks, text)
	assert.Equal(t, int32(0), calls.Load())
}

func TestGenerateServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewCohereGenerator("test-key", srv.URL, time.Second)
	text := g.Generate(context.Background(), Grok, "salut", "", nil)
	assert.Contains(t, Grok.Fallbacks, text)
}

func TestGenerateMalformedStreamFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not json\n"))
	}))
	defer srv.Close()

	g := NewCohereGenerator("test-key", srv.URL, time.Second)
	text := g.Generate(context.Background(), Jester, "salut", "", nil)
	assert.Contains(t, Jester.Fallbacks, text)
}

func TestGenerateEmptyStreamFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"is_finished":true}` + "\n"))
	}))
	defer srv.Close()

	g := NewCohereGenerator("test-key", srv.URL, time.Second)
	text := g.Generate(context.Background(), Jester, "salut", "", nil)
	assert.Contains(t, Jester.Fallbacks, text)
}

func TestGenerateTimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	g := NewCohereGenerator("test-key", srv.URL, 10*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	text := g.Generate(ctx, Grok, "salut", "", nil)
	require.Less(t, time.Since(start), 2*time.Second)
	assert.Contains(t, Grok.Fallbacks, text)
}

func TestGenerateFallbackIsAlwaysFromPersonaSet(t *testing.T) {
	g := NewCohereGenerator("", "http://127.0.0.1:0", time.Second)
	for i := 0; i < 20; i++ {
		text := g.Generate(context.Background(), Jester, "salut", "", nil)
		assert.Contains(t, Jester.Fallbacks, text)
	}
}
