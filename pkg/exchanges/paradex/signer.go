package paradex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"perptrader/pkg/exchanges/common"
)

// Signer signs canonical payloads with the sub-account key. Signatures are
// transmitted as a JSON array of the two hex-encoded scalar halves, matching
// the venue's header and order formats.
type Signer struct {
	account *Account
	chainID string
}

// NewSigner binds the account to the chain id announced by the venue's system
// config. The chain id is part of every signed payload, so signatures cannot
// be replayed across environments.
func NewSigner(account *Account, chainID string) *Signer {
	return &Signer{account: account, chainID: chainID}
}

func (s *Signer) signPayload(payload string) (string, error) {
	sig, err := crypto.Sign(crypto.Keccak256([]byte(payload)), s.account.priv)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	// Drop the recovery byte; the venue verifies against the registered key.
	return fmt.Sprintf(`["0x%x","0x%x"]`, sig[:32], sig[32:64]), nil
}

// authPayload is the canonical form of a token-mint request. Timestamps are
// unix seconds; the server rejects the mint when the expiration has passed.
func (s *Signer) authPayload(issuedAt, expiry int64) string {
	return strings.Join([]string{
		"chain=" + s.chainID,
		"method=POST",
		"path=/auth",
		"timestamp=" + strconv.FormatInt(issuedAt, 10),
		"expiration=" + strconv.FormatInt(expiry, 10),
	}, "&")
}

// SignAuth signs a token-mint request valid between issuedAt and expiry.
func (s *Signer) SignAuth(issuedAt, expiry int64) (string, error) {
	return s.signPayload(s.authPayload(issuedAt, expiry))
}

// onboardingPayload is the canonical form of the one-time account
// registration request.
func (s *Signer) onboardingPayload() string {
	return strings.Join([]string{
		"chain=" + s.chainID,
		"method=POST",
		"path=/onboarding",
	}, "&")
}

// SignOnboarding signs the account registration request.
func (s *Signer) SignOnboarding() (string, error) {
	return s.signPayload(s.onboardingPayload())
}

// orderPayload is the canonical form of an order. Every field participates in
// a fixed position; absent numeric fields render as "0" so the form stays
// unambiguous.
func (s *Signer) orderPayload(o common.Order, timestampMs int64) string {
	return strings.Join([]string{
		"chain=" + s.chainID,
		"market=" + o.Symbol,
		"side=" + string(o.Side),
		"type=" + string(o.Type),
		"size=" + o.Quantity.String(),
		"price=" + o.Price.String(),
		"triggerPrice=" + o.TriggerPrice.String(),
		"clientId=" + o.ClientID,
		"timestamp=" + strconv.FormatInt(timestampMs, 10),
	}, "&")
}

// SignOrder signs an order at the given signature timestamp (unix
// milliseconds). The identical timestamp must be transmitted with the order.
func (s *Signer) SignOrder(o common.Order, timestampMs int64) (string, error) {
	return s.signPayload(s.orderPayload(o, timestampMs))
}
