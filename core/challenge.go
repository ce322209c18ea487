package core

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// ChallengeDomain is the origin the challenge message is issued for.
	ChallengeDomain = "drip.lunark.dev"

	// FreshnessWindow is the maximum age of a signed challenge accepted at
	// verification time.
	FreshnessWindow = 5 * time.Minute

	// ClockSkewAllowance bounds how far in the future a challenge timestamp
	// may sit before it is rejected.
	ClockSkewAllowance = time.Minute

	challengeStatement = "Signing this message proves you own this wallet. It is free and will never trigger a transaction."
	nonceLength        = 32
)

// Challenge is the ephemeral value a wallet signs to authenticate. It is not
// stored server-side; verification re-derives it from the signed message.
type Challenge struct {
	Address  string
	Nonce    string
	IssuedAt time.Time
}

// NewChallenge issues a challenge for the given (already validated) address.
func NewChallenge(address string, now time.Time) (*Challenge, error) {
	nonce, err := generateNonce(nonceLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &Challenge{
		Address:  address,
		Nonce:    nonce,
		IssuedAt: now.Truncate(time.Millisecond),
	}, nil
}

// Message renders the fixed human-auditable template the wallet signs.
func (c *Challenge) Message() string {
	return fmt.Sprintf(
		"%s wants you to sign in with your Solana account:\n%s\n\n%s\n\nNonce: %s\nIssued At: %d",
		ChallengeDomain, c.Address, challengeStatement, c.Nonce, c.IssuedAt.UnixMilli(),
	)
}

// ParseChallengeMessage reconstructs a Challenge from a signed message.
// Any deviation from the template is ErrInvalidMessageFormat.
func ParseChallengeMessage(message string) (*Challenge, error) {
	lines := strings.Split(message, "\n")
	if len(lines) != 7 {
		return nil, ErrInvalidMessageFormat
	}

	if lines[0] != ChallengeDomain+" wants you to sign in with your Solana account:" {
		return nil, ErrInvalidMessageFormat
	}
	if lines[2] != "" || lines[3] != challengeStatement || lines[4] != "" {
		return nil, ErrInvalidMessageFormat
	}

	nonce, ok := strings.CutPrefix(lines[5], "Nonce: ")
	if !ok || nonce == "" {
		return nil, ErrInvalidMessageFormat
	}

	millisStr, ok := strings.CutPrefix(lines[6], "Issued At: ")
	if !ok {
		return nil, ErrInvalidMessageFormat
	}
	millis, err := strconv.ParseInt(millisStr, 10, 64)
	if err != nil {
		return nil, ErrInvalidMessageFormat
	}

	address := lines[1]
	if address == "" {
		return nil, ErrInvalidMessageFormat
	}

	return &Challenge{
		Address:  address,
		Nonce:    nonce,
		IssuedAt: time.UnixMilli(millis),
	}, nil
}

// Fresh checks the challenge timestamp against the freshness window. Stale
// and too-far-future challenges both fail with ErrInvalidTimestamp.
func (c *Challenge) Fresh(now time.Time) error {
	age := now.Sub(c.IssuedAt)
	if age > FreshnessWindow {
		return ErrInvalidTimestamp
	}
	if age < -ClockSkewAllowance {
		return ErrInvalidTimestamp
	}
	return nil
}

func generateNonce(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
