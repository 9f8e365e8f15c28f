package identitysvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkjwt "github.com/clerk/clerk-sdk-go/v2/jwt"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/pkg/errors"
	svix "github.com/svix/svix-webhooks/go"

	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/user"
)

// Service delegates identity to Clerk: session-token verification, role
// claims in public metadata, and svix-signed lifecycle webhooks.
type Service struct {
	wh *svix.Webhook
}

var (
	_ core.IdentityService = (*Service)(nil)
	_ user.EventParser     = (*Service)(nil)
)

func NewService(conf *core.Config) (*Service, error) {
	clerk.SetKey(conf.Clerk.SecretKey)

	wh, err := svix.NewWebhook(conf.Clerk.WebhookSecret)
	if err != nil {
		return nil, errors.Wrap(err, "configuring webhook verification")
	}
	return &Service{wh: wh}, nil
}

func (svc *Service) VerifySession(ctx context.Context, token string) (core.Session, error) {
	claims, err := clerkjwt.Verify(ctx, &clerkjwt.VerifyParams{Token: token})
	if err != nil {
		return core.Session{}, errors.Wrap(err, "verifying session token")
	}
	return core.Session{UserID: claims.RegisteredClaims.Subject}, nil
}

type publicMetadata struct {
	Role string `json:"role"`
}

func (svc *Service) Role(ctx context.Context, userID string) (string, error) {
	usr, err := clerkuser.Get(ctx, userID)
	if err != nil {
		return "", errors.Wrap(err, "fetching provider user")
	}
	if usr.PublicMetadata == nil {
		return "", nil
	}
	var md publicMetadata
	if err = json.Unmarshal(usr.PublicMetadata, &md); err != nil {
		return "", errors.Wrap(err, "decoding provider user metadata")
	}
	return md.Role, nil
}

func (svc *Service) SetEducatorRole(ctx context.Context, userID string) error {
	raw, _ := json.Marshal(publicMetadata{Role: user.RoleEducator})
	md := json.RawMessage(raw)
	if _, err := clerkuser.UpdateMetadata(ctx, userID, &clerkuser.UpdateMetadataParams{
		PublicMetadata: &md,
	}); err != nil {
		return errors.Wrap(err, "updating provider user metadata")
	}
	return nil
}

// ParseEvent verifies a lifecycle webhook against the svix signature headers
// (over the raw body) and decodes it into a user.Event. The payload is never
// parsed before the signature checks out.
func (svc *Service) ParseEvent(payload []byte, header http.Header) (user.Event, error) {
	if err := svc.wh.Verify(payload, header); err != nil {
		return user.Event{}, fmt.Errorf("%w: %v", core.ErrEventSignature, err)
	}

	var body struct {
		Type string `json:"type"`
		Data struct {
			ID             string `json:"id"`
			FirstName      string `json:"first_name"`
			LastName       string `json:"last_name"`
			ImageURL       string `json:"image_url"`
			EmailAddresses []struct {
				EmailAddress string `json:"email_address"`
			} `json:"email_addresses"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return user.Event{}, core.NewValidationError(errors.Wrap(err, "decoding identity event"))
	}

	evt := user.Event{
		Type:      user.EventType(body.Type),
		ID:        body.Data.ID,
		FirstName: body.Data.FirstName,
		LastName:  body.Data.LastName,
		ImageURL:  body.Data.ImageURL,
	}
	if len(body.Data.EmailAddresses) > 0 {
		evt.Email = body.Data.EmailAddresses[0].EmailAddress
	}
	return evt, nil
}
