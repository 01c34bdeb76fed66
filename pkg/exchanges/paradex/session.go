package paradex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"perptrader/pkg/exchanges/common"
)

const (
	// authValidity bounds the signed expiration of a mint request. The
	// effective token lifetime comes from the JWT exp claim.
	authValidity = 5 * time.Minute

	// refreshMargin forces a re-mint this long before expiry, so a token
	// cannot lapse between signing a call and the server processing it.
	refreshMargin = 30 * time.Second
)

// Session owns the bearer token and its expiry. Token transparently
// re-authenticates when the cached token is missing or inside the refresh
// margin; Invalidate drops the cache after the server rejects a token.
type Session struct {
	signer  *Signer
	httpc   *common.HTTPClient
	baseURL string
	now     func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewSession creates a session manager. No token is minted until first use.
func NewSession(signer *Signer, httpc *common.HTTPClient, baseURL string) *Session {
	return &Session{
		signer:  signer,
		httpc:   httpc,
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Token returns a bearer token valid for at least the refresh margin, minting
// a fresh one when required.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expiry.Add(-refreshMargin)) {
		return s.token, nil
	}
	if err := s.mint(ctx); err != nil {
		return "", err
	}
	return s.token, nil
}

// Invalidate drops the cached token so the next call mints a fresh one.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiry = time.Time{}
	s.mu.Unlock()
}

// mint performs the signed token-mint flow. Caller holds the lock.
func (s *Session) mint(ctx context.Context) error {
	issuedAt := s.now().Unix()
	expiry := issuedAt + int64(authValidity/time.Second)

	sig, err := s.signer.SignAuth(issuedAt, expiry)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth", nil)
	if err != nil {
		return err
	}
	req.Header.Set("PARADEX-STARKNET-ACCOUNT", s.signer.account.Address)
	req.Header.Set("PARADEX-STARKNET-SIGNATURE", sig)
	req.Header.Set("PARADEX-TIMESTAMP", strconv.FormatInt(issuedAt, 10))
	req.Header.Set("PARADEX-SIGNATURE-EXPIRATION", strconv.FormatInt(expiry, 10))

	res, err := s.httpc.Do(req)
	if err != nil {
		return &common.RejectionError{Venue: "paradex", Op: "auth", Body: err.Error()}
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != 200 {
		if common.IsAuthStatus(res.StatusCode) {
			return &common.AuthError{Venue: "paradex", Op: "auth", Status: res.StatusCode, Body: string(body)}
		}
		return &common.RejectionError{Venue: "paradex", Op: "auth", Status: res.StatusCode, Body: string(body)}
	}

	var resp struct {
		JWTToken string `json:"jwt_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("paradex: decode auth response: %w", err)
	}
	if resp.JWTToken == "" {
		return &common.AuthError{Venue: "paradex", Op: "auth", Status: res.StatusCode, Body: "empty jwt_token"}
	}

	s.token = resp.JWTToken
	s.expiry = s.tokenExpiry(resp.JWTToken, issuedAt)
	return nil
}

// tokenExpiry reads the exp claim from the minted JWT. The signature is the
// server's, so the claims are parsed without verification; the signed
// expiration is the fallback when the claim is absent or unreadable.
func (s *Session) tokenExpiry(token string, issuedAt int64) time.Time {
	fallback := time.Unix(issuedAt, 0).Add(authValidity)

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	return exp.Time
}
