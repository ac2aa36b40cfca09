package jokes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Random(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jokes/random" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"value": "Chuck Norris never needs buyback."}`))
	}))
	t.Cleanup(srv.Close)

	c := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	joke, err := c.Random(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if joke != "Chuck Norris never needs buyback." {
		t.Errorf("joke = %q", joke)
	}
}

func TestClient_EmptyBodyIsAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	c := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if _, err := c.Random(context.Background()); err == nil {
		t.Error("expected error for empty joke")
	}
}
