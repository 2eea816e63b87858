// Package messaging implements webhook.Sender against the WhatsApp
// messaging vendor's REST API (spec §4.9, §6 "messaging vendor credentials
// and sender id"), grounded on the teacher's telegram outbound-message HTTP
// calls (internal/ledger/real_deposit_telegram.go): a plain net/http POST,
// no vendor SDK.
package messaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ttb-broker/internal/apperr"
)

const requestTimeout = 10 * time.Second

// Sender posts outbound messages through the vendor's Messages API
// (basic-auth account SID/auth token, form-encoded body — the Twilio
// WhatsApp API shape).
type Sender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

func New(accountSID, authToken, from string) *Sender {
	return &Sender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    "https://api.twilio.com/2010-04-01",
		client:     &http.Client{Timeout: requestTimeout},
	}
}

// Send implements webhook.Sender.
func (s *Sender) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("messaging: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return apperr.Upstream("messaging: send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return apperr.Upstream(fmt.Sprintf("messaging: vendor status %d", resp.StatusCode), fmt.Errorf("%s", respBody))
	}
	return nil
}
