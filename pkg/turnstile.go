package pkg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const turnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// TurnstileVerifier checks anti-bot challenge tokens against the Cloudflare
// siteverify endpoint. The token is opaque here: the widget lifecycle is the
// front-end's business, the backend only sees the final token.
type TurnstileVerifier struct {
	client    *http.Client
	secretKey string
	verifyURL string
}

func NewTurnstileVerifier(secretKey string) *TurnstileVerifier {
	return &TurnstileVerifier{
		client:    &http.Client{},
		secretKey: secretKey,
		verifyURL: turnstileVerifyURL,
	}
}

// Enabled reports whether verification is configured. Without a secret the
// verifier accepts everything.
func (v *TurnstileVerifier) Enabled() bool {
	return v.secretKey != ""
}

// Verify checks a challenge token. A disabled verifier always succeeds.
func (v *TurnstileVerifier) Verify(ctx context.Context, token string) error {
	if !v.Enabled() {
		return nil
	}
	if token == "" {
		return errors.New("missing challenge token")
	}

	form := url.Values{}
	form.Set("secret", v.secretKey)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to verify challenge token: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode verify response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("challenge verification failed: %s", strings.Join(result.ErrorCodes, ", "))
	}
	return nil
}
