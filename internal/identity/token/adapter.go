package token

import (
	"turnstile/internal/platform/middleware"
)

// Adapter satisfies the middleware TokenValidator interface.
type Adapter struct {
	service *Service
}

func NewAdapter(service *Service) *Adapter {
	return &Adapter{service: service}
}

func (a *Adapter) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{
		IdentityID: claims.IdentityID,
		Handle:     claims.Handle,
	}, nil
}
