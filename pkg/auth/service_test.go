package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// mockJWKSClient is a mock implementation of JWKSClientInterface for testing.
type mockJWKSClient struct {
	claims    *Claims
	err       error
	lastToken string
}

func (m *mockJWKSClient) ValidateToken(tokenString string) (*Claims, error) {
	m.lastToken = tokenString
	if m.err != nil {
		return nil, m.err
	}
	return m.claims, nil
}

func (m *mockJWKSClient) Close() {}

func subjectClaims(sub string) *Claims {
	return &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}
}

func requestWithAuth(header string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/content/generate", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req
}

func TestAuthService_ValidateRequest_Bearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"canonical scheme", "Bearer my-jwt-token"},
		{"lowercase scheme", "bearer my-jwt-token"},
		{"trailing space", "Bearer my-jwt-token "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwks := &mockJWKSClient{claims: subjectClaims("user-2")}
			service := NewAuthService(jwks, zap.NewNop())

			claims, err := service.ValidateRequest(requestWithAuth(tt.header))
			if err != nil {
				t.Fatalf("ValidateRequest failed: %v", err)
			}
			if jwks.lastToken != "my-jwt-token" {
				t.Errorf("expected token 'my-jwt-token', got %q", jwks.lastToken)
			}
			if claims.Subject != "user-2" {
				t.Errorf("expected subject 'user-2', got %q", claims.Subject)
			}
		})
	}
}

func TestAuthService_ValidateRequest_MissingAuth(t *testing.T) {
	service := NewAuthService(&mockJWKSClient{}, zap.NewNop())

	_, err := service.ValidateRequest(requestWithAuth(""))
	if !errors.Is(err, ErrMissingAuthorization) {
		t.Errorf("expected ErrMissingAuthorization, got %v", err)
	}
}

func TestAuthService_ValidateRequest_InvalidAuthFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"no token", "Bearer"},
		{"empty token", "Bearer "},
		{"extra parts", "Bearer a b"},
	}

	jwks := &mockJWKSClient{}
	service := NewAuthService(jwks, zap.NewNop())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateRequest(requestWithAuth(tt.header))
			if !errors.Is(err, ErrInvalidAuthFormat) {
				t.Errorf("expected ErrInvalidAuthFormat, got %v", err)
			}
		})
	}
	if jwks.lastToken != "" {
		t.Errorf("malformed headers must not reach token validation, got %q", jwks.lastToken)
	}
}

func TestAuthService_ValidateRequest_TokenValidationError(t *testing.T) {
	validationErr := errors.New("token expired")
	service := NewAuthService(&mockJWKSClient{err: validationErr}, zap.NewNop())

	_, err := service.ValidateRequest(requestWithAuth("Bearer expired-token"))
	if !errors.Is(err, validationErr) {
		t.Errorf("expected validation error, got %v", err)
	}
}
