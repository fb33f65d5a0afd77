package oauth

import (
	"context"
	"time"

	"github.com/pixelbridge/pixelbridge-backend/internal/shopify"
	"github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
)

// TokenExchanger is the slice of the Shopify client the install flow
// needs.
type TokenExchanger interface {
	ExchangeToken(ctx context.Context, shop, code string) (*shopify.AccessToken, error)
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Exchanger TokenExchanger
	States    *StateSigner
	Sessions  *SessionRepository
	Logg      *logger.Logger
	APIKey    string
	Scopes    string
	AppURL    string
}

// Service runs the two halves of the OAuth install flow.
type Service struct {
	exchanger TokenExchanger
	states    *StateSigner
	sessions  *SessionRepository
	logg      *logger.Logger
	apiKey    string
	scopes    string
	appURL    string
	now       func() time.Time
}

func NewService(params ServiceParams) *Service {
	return &Service{
		exchanger: params.Exchanger,
		states:    params.States,
		sessions:  params.Sessions,
		logg:      params.Logg,
		apiKey:    params.APIKey,
		scopes:    params.Scopes,
		appURL:    params.AppURL,
		now:       time.Now,
	}
}

// Begin starts the install flow for a shop and returns the consent URL
// to redirect the merchant to.
func (s *Service) Begin(ctx context.Context, shop string) (string, error) {
	if !shopify.ValidShopDomain(shop) {
		return "", errors.New(errors.CodeValidation, "invalid shop domain")
	}
	state, err := s.states.Issue(shop)
	if err != nil {
		return "", err
	}
	s.logg.Debug(s.logg.WithShop(ctx, shop), "oauth flow started")
	return shopify.AuthorizeURL(shop, s.apiKey, s.scopes, s.redirectURI(), state), nil
}

// Callback completes the flow: verifies the state token, exchanges the
// authorization code, persists the session, and returns the app home
// URL inside the shop admin.
func (s *Service) Callback(ctx context.Context, shop, code, state string) (string, error) {
	if !shopify.ValidShopDomain(shop) {
		return "", errors.New(errors.CodeValidation, "invalid shop domain")
	}
	if code == "" {
		return "", errors.New(errors.CodeValidation, "missing authorization code")
	}
	if err := s.states.Verify(state, shop); err != nil {
		return "", err
	}

	token, err := s.exchanger.ExchangeToken(ctx, shop, code)
	if err != nil {
		return "", err
	}

	session := &Session{
		Shop:        shop,
		AccessToken: token.Token,
		Scope:       token.Scope,
		InstalledAt: s.now().UTC(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return "", err
	}

	s.logg.Info(s.logg.WithShop(ctx, shop), "oauth flow completed")
	return shopify.AppHomeURL(shop, s.apiKey), nil
}

func (s *Service) redirectURI() string {
	return s.appURL + "/api/v1/auth/callback"
}
