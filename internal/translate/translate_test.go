package translate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibreServer(t *testing.T, calls *int32, handler func(w http.ResponseWriter, req translateReq)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/translate", r.URL.Path)
		var req translateReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTranslate_IdentityWithoutCall(t *testing.T) {
	var calls int32
	srv := newLibreServer(t, &calls, func(w http.ResponseWriter, req translateReq) {
		_, _ = io.WriteString(w, `{"translatedText":"should not happen"}`)
	})
	tr := New(srv.URL, "", nil, nil)

	for _, x := range []string{"", "hello", "সড়ক", "multi\nline"} {
		out, outcome := tr.Translate(context.Background(), x, "en", "en")
		assert.Equal(t, x, out)
		assert.Equal(t, OutcomeSkipped, outcome)

		out, outcome = tr.Translate(context.Background(), x, "hi", "en")
		assert.Equal(t, x, out)
		assert.Equal(t, OutcomeSkipped, outcome)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestTranslate_UnsupportedPassThrough(t *testing.T) {
	var calls int32
	srv := newLibreServer(t, &calls, func(w http.ResponseWriter, req translateReq) {
		_, _ = io.WriteString(w, `{"translatedText":"bonjour"}`)
	})
	tr := New(srv.URL, "", nil, nil)

	for _, target := range []string{"fr", "kn", "ta", "te", "ml"} {
		out, outcome := tr.Translate(context.Background(), "hello", "en", target)
		assert.Equal(t, "hello", out)
		assert.Equal(t, OutcomeUnsupported, outcome)
		assert.True(t, outcome.Degraded())
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestTranslate_Success(t *testing.T) {
	var calls int32
	srv := newLibreServer(t, &calls, func(w http.ResponseWriter, req translateReq) {
		assert.Equal(t, "en", req.Source)
		assert.Equal(t, "bn", req.Target)
		assert.Equal(t, "text", req.Format)
		assert.Equal(t, "secret", req.APIKey)
		_, _ = io.WriteString(w, `{"translatedText":"রিপোর্ট জমা দিন"}`)
	})
	tr := New(srv.URL, "secret", nil, nil)

	out, outcome := tr.Translate(context.Background(), "Submit a report", "en", "bn")
	assert.Equal(t, "রিপোর্ট জমা দিন", out)
	assert.Equal(t, OutcomeTranslated, outcome)
	assert.False(t, outcome.Degraded())
}

func TestTranslate_FailuresDegrade(t *testing.T) {
	cases := map[string]func(w http.ResponseWriter, req translateReq){
		"server error": func(w http.ResponseWriter, req translateReq) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"boom"}`)
		},
		"malformed body": func(w http.ResponseWriter, req translateReq) {
			_, _ = io.WriteString(w, `<html>`)
		},
		"missing field": func(w http.ResponseWriter, req translateReq) {
			_, _ = io.WriteString(w, `{}`)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			var calls int32
			srv := newLibreServer(t, &calls, h)
			out, outcome := New(srv.URL, "", nil, nil).Translate(context.Background(), "Submit a report", "en", "hi")
			assert.Equal(t, "Submit a report", out)
			assert.Equal(t, OutcomeFailed, outcome)
			assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
		})
	}
}

func TestTranslate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, `{"translatedText":"late"}`)
	}))
	defer srv.Close()

	tr := New(srv.URL, "", nil, nil)
	tr.Client.Timeout = 20 * time.Millisecond

	out, outcome := tr.Translate(context.Background(), "hello", "en", "gu")
	assert.Equal(t, "hello", out)
	assert.Equal(t, OutcomeFailed, outcome)
}

func TestTranslate_UsesCache(t *testing.T) {
	var calls int32
	srv := newLibreServer(t, &calls, func(w http.ResponseWriter, req translateReq) {
		_, _ = io.WriteString(w, `{"translatedText":"ਸਤ ਸ੍ਰੀ ਅਕਾਲ"}`)
	})
	tr := New(srv.URL, "", NewMemoryCache(time.Minute), nil)

	for i := 0; i < 3; i++ {
		out, outcome := tr.Translate(context.Background(), "hello", "en", "pa")
		assert.Equal(t, "ਸਤ ਸ੍ਰੀ ਅਕਾਲ", out)
		assert.Equal(t, OutcomeTranslated, outcome)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCacheKey_DependsOnLanguages(t *testing.T) {
	assert.NotEqual(t, cacheKey("en", "hi", "x"), cacheKey("en", "bn", "x"))
	assert.Equal(t, cacheKey("en", "hi", "x"), cacheKey("en", "hi", "x"))
}
