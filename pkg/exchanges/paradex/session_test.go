package paradex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"perptrader/pkg/exchanges/common"
)

func mintServer(t *testing.T, mints *atomic.Int32, tokenTTL time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(404)
			return
		}
		for _, h := range []string{"PARADEX-STARKNET-ACCOUNT", "PARADEX-STARKNET-SIGNATURE", "PARADEX-TIMESTAMP", "PARADEX-SIGNATURE-EXPIRATION"} {
			if r.Header.Get(h) == "" {
				t.Errorf("missing header %s", h)
			}
		}
		mints.Add(1)
		claims := jwt.MapClaims{
			"sub": "test",
			"exp": jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
		if err != nil {
			t.Errorf("sign jwt: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"jwt_token": token})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSession(t *testing.T, baseURL string) *Session {
	t.Helper()
	httpc := common.NewHTTPClient(100, 100)
	t.Cleanup(httpc.Close)
	return NewSession(testSigner(t), httpc, baseURL)
}

func TestTokenCachedWhileValid(t *testing.T) {
	var mints atomic.Int32
	srv := mintServer(t, &mints, time.Hour)
	s := testSession(t, srv.URL)

	first, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	second, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if first != second {
		t.Fatal("cached token changed between calls inside the validity window")
	}
	if mints.Load() != 1 {
		t.Fatalf("mints=%d, expected 1", mints.Load())
	}
}

func TestTokenRemintedAfterExpiry(t *testing.T) {
	var mints atomic.Int32
	srv := mintServer(t, &mints, time.Hour)
	s := testSession(t, srv.URL)

	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	// Jump the clock past the token's validity window.
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("Token after expiry: %v", err)
	}
	if mints.Load() != 2 {
		t.Fatalf("mints=%d, expected re-mint after expiry", mints.Load())
	}
}

func TestTokenRemintedInsideRefreshMargin(t *testing.T) {
	var mints atomic.Int32
	// Token expires in 10s: inside the 30s refresh margin, so every call
	// must mint fresh.
	srv := mintServer(t, &mints, 10*time.Second)
	s := testSession(t, srv.URL)

	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if mints.Load() != 2 {
		t.Fatalf("mints=%d, expected 2 for a token inside the refresh margin", mints.Load())
	}
}

func TestInvalidateForcesRemint(t *testing.T) {
	var mints atomic.Int32
	srv := mintServer(t, &mints, time.Hour)
	s := testSession(t, srv.URL)

	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	s.Invalidate()
	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("Token after invalidate: %v", err)
	}
	if mints.Load() != 2 {
		t.Fatalf("mints=%d, expected 2 after invalidation", mints.Load())
	}
}

func TestMintFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":"bad signature"}`))
	}))
	t.Cleanup(srv.Close)
	s := testSession(t, srv.URL)

	_, err := s.Token(context.Background())
	if err == nil {
		t.Fatal("expected mint failure")
	}
	var authErr *common.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err=%T, expected AuthError", err)
	}
}
