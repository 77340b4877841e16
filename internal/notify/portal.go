// Package notify delivers downstream notifications for the import
// engine. The engine treats every notifier call as fire-and-forget:
// failures are logged by the caller and never affect import results.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// PortalClient sends customer-portal invitations through the hosted
// portal service.
type PortalClient struct {
	baseURL string
	client  *http.Client
}

// NewPortalClient creates a portal notifier against the given base URL.
func NewPortalClient(baseURL string, timeout time.Duration) *PortalClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PortalClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type inviteRequest struct {
	TenantID string `json:"tenantId"`
	Email    string `json:"email"`
}

// SendPortalInvite asks the portal service to invite the email address
// for the tenant.
func (c *PortalClient) SendPortalInvite(ctx context.Context, tenantID uuid.UUID, email string) error {
	body, err := json.Marshal(inviteRequest{TenantID: tenantID.String(), Email: email})
	if err != nil {
		return fmt.Errorf("encode invite: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/invitations", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build invite request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send invite: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("send invite: portal responded %d", resp.StatusCode)
	}
	return nil
}
