// Package verify implements the phone verification gate for public order
// submissions. A strategy is picked once from configuration at startup:
// either a shared static code, or Firebase ID token verification.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Verification modes.
const (
	ModeStaticCode = "static_code"
	ModeFirebase   = "firebase"
)

// New builds the verifier selected by configuration. Unknown modes fall
// back to the static code, mirroring how the shop always ran.
func New(mode, staticCode, firebaseAPIKey string) Verifier {
	if strings.TrimSpace(strings.ToLower(mode)) == ModeFirebase {
		return &FirebaseVerifier{APIKey: firebaseAPIKey}
	}
	return StaticCode{Expected: staticCode}
}

// ErrVerification is the single user-facing verification failure. Detail
// (wrong code, bad token, provider outage) stays in server logs; the caller
// must never create an order after receiving it.
var ErrVerification = errors.New("could not verify phone number")

// Submission carries the untrusted credentials of a public order form.
type Submission struct {
	Phone string // customer-entered phone
	Code  string // static-code mode
	Token string // firebase mode: ID token minted client-side
}

// Verifier decides whether a public submission may create an order and
// yields the phone number to record on it.
type Verifier interface {
	Verify(ctx context.Context, sub Submission) (phone string, err error)
}

// StaticCode matches a submitted code against a configured shared secret.
// It fails closed when no code is configured.
type StaticCode struct {
	Expected string
}

func (s StaticCode) Verify(_ context.Context, sub Submission) (string, error) {
	expected := strings.TrimSpace(s.Expected)
	if expected == "" {
		return "", fmt.Errorf("%w: no verification code configured", ErrVerification)
	}
	if strings.TrimSpace(sub.Code) != expected {
		return "", fmt.Errorf("%w: code mismatch", ErrVerification)
	}
	return strings.TrimSpace(sub.Phone), nil
}

// FirebaseVerifier checks a Firebase Authentication ID token through the
// Identity Toolkit accounts:lookup endpoint and returns the phone number the
// provider attests. That number overrides whatever the form submitted.
type FirebaseVerifier struct {
	APIKey   string
	Endpoint string // override for tests; defaults to the Google endpoint
	Client   *http.Client
}

const defaultEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:lookup"

func (f *FirebaseVerifier) Verify(ctx context.Context, sub Submission) (string, error) {
	token := strings.TrimSpace(sub.Token)
	if token == "" {
		return "", fmt.Errorf("%w: missing id token", ErrVerification)
	}
	endpoint := f.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	body, err := json.Marshal(map[string]string{"idToken": token})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerification, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+f.APIKey, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerification, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerification, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: provider status %d", ErrVerification, resp.StatusCode)
	}

	var decoded struct {
		Users []struct {
			PhoneNumber string `json:"phoneNumber"`
		} `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if len(decoded.Users) == 0 || decoded.Users[0].PhoneNumber == "" {
		return "", fmt.Errorf("%w: token carries no verified phone", ErrVerification)
	}
	return decoded.Users[0].PhoneNumber, nil
}
