package auth

import (
	"context"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/floroz/motorbid/pkg/testhelpers"
)

func TestAuthMiddleware(t *testing.T) {
	privPEM, pubPEM := testhelpers.GenerateTestKeys(t)
	signer, _ := NewSigner(privPEM, pubPEM, "test-issuer")

	token, _ := signer.GenerateToken("bob", time.Hour)

	interceptor := NewAuthInterceptor(signer)
	dummyHandler := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		username, ok := GetUsername(ctx)
		if !ok || username != "bob" {
			t.Errorf("Context missing correct username. Got %v", username)
		}
		return connect.NewResponse(&struct{}{}), nil
	}

	// 1. Test Valid Request
	req := connect.NewRequest(&struct{}{})
	req.Header().Set("Authorization", "Bearer "+token)

	_, err := interceptor(dummyHandler)(context.Background(), req)
	if err != nil {
		t.Errorf("Unexpected error on valid request: %v", err)
	}

	// 2. Test Missing Header
	reqMissing := connect.NewRequest(&struct{}{})
	_, err = interceptor(dummyHandler)(context.Background(), reqMissing)
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("Expected unauthenticated for missing header, got %v", err)
	}

	// 3. Test Invalid Header Format
	reqBadFormat := connect.NewRequest(&struct{}{})
	reqBadFormat.Header().Set("Authorization", token) // Missing "Bearer "
	_, err = interceptor(dummyHandler)(context.Background(), reqBadFormat)
	if err == nil {
		t.Error("Expected error for bad header format, got nil")
	}

	// 4. Test Garbage Token
	reqGarbage := connect.NewRequest(&struct{}{})
	reqGarbage.Header().Set("Authorization", "Bearer garbage")
	_, err = interceptor(dummyHandler)(context.Background(), reqGarbage)
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("Expected unauthenticated for garbage token, got %v", err)
	}
}

func TestGetUsername(t *testing.T) {
	if _, ok := GetUsername(context.Background()); ok {
		t.Error("empty context should carry no username")
	}

	ctx := WithUsername(context.Background(), "carol")
	username, ok := GetUsername(ctx)
	if !ok || username != "carol" {
		t.Errorf("got %q, want carol", username)
	}
}
