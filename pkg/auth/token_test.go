package auth

import (
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/floroz/motorbid/pkg/testhelpers"
)

func TestTokenLifecycle(t *testing.T) {
	privPEM, pubPEM := testhelpers.GenerateTestKeys(t)
	signer, err := NewSigner(privPEM, pubPEM, "test-issuer")
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}

	// 1. Generate
	token, err := signer.GenerateToken("alice", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	// 2. Validate with a verify-only signer
	verifier, err := NewSignerFromPublicKey(pubPEM, "test-issuer")
	if err != nil {
		t.Fatalf("NewSignerFromPublicKey failed: %v", err)
	}
	claims, err := verifier.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	// 3. Verify Claims
	if claims.Username != "alice" {
		t.Errorf("got username %s, want alice", claims.Username)
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("got issuer %s, want test-issuer", claims.Issuer)
	}

	// 4. Verify-only signer cannot sign
	if _, err := verifier.GenerateToken("alice", time.Hour); err == nil {
		t.Error("verify-only signer should not generate tokens")
	}
}

func TestSecurityScenarios(t *testing.T) {
	privPEM, pubPEM := testhelpers.GenerateTestKeys(t)
	signer, _ := NewSigner(privPEM, pubPEM, "test-issuer")

	block, _ := pem.Decode(privPEM)
	serverKey, _ := x509.ParsePKCS1PrivateKey(block.Bytes)

	claimsFor := func(username, issuer string, expiresIn time.Duration) *Claims {
		return &Claims{
			Username: username,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   username,
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			},
		}
	}
	validClaims := claimsFor("mallory", "test-issuer", time.Hour)

	t.Run("Rejects Expired Token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claimsFor("mallory", "test-issuer", -time.Hour))
		tokenString, _ := token.SignedString(serverKey)

		_, err := signer.ValidateToken(tokenString)
		if err == nil {
			t.Error("ValidateToken should have rejected expired token")
		}
	})

	t.Run("Rejects Foreign Issuer", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claimsFor("mallory", "someone-else", time.Hour))
		tokenString, _ := token.SignedString(serverKey)

		_, err := signer.ValidateToken(tokenString)
		if err == nil {
			t.Error("ValidateToken should have rejected a token from another issuer")
		}
	})

	t.Run("Rejects Missing Username", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claimsFor("", "test-issuer", time.Hour))
		tokenString, _ := token.SignedString(serverKey)

		_, err := signer.ValidateToken(tokenString)
		if err == nil {
			t.Error("ValidateToken should have rejected a token without username")
		}
	})

	t.Run("Rejects Wrong Key Signature", func(t *testing.T) {
		attackerPriv, _ := testhelpers.GenerateTestKeys(t)
		block, _ := pem.Decode(attackerPriv)
		attackerPK, _ := x509.ParsePKCS1PrivateKey(block.Bytes)

		token := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims)
		tokenString, _ := token.SignedString(attackerPK)

		_, err := signer.ValidateToken(tokenString)
		if err == nil {
			t.Error("ValidateToken should have rejected token signed by wrong key")
		}
	})

	t.Run("Rejects HMAC Algorithm Confusion", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims)
		tokenString, _ := token.SignedString([]byte("some-secret"))

		_, err := signer.ValidateToken(tokenString)
		if err == nil {
			t.Fatal("ValidateToken should have rejected HS256 algorithm")
		}
		expectedError := "unexpected signing method: HS256"
		if !strings.Contains(err.Error(), expectedError) {
			t.Errorf("Expected error containing %q, got: %v", expectedError, err)
		}
	})

	t.Run("Rejects Malformed Token", func(t *testing.T) {
		_, err := signer.ValidateToken("this.is.garbage")
		if err == nil {
			t.Error("Should reject malformed string")
		}
	})
}

func TestNewSignerValidation(t *testing.T) {
	_, pubPEM := testhelpers.GenerateTestKeys(t)

	t.Run("Fails on invalid private key", func(t *testing.T) {
		_, err := NewSigner([]byte("not-a-pem"), pubPEM, "test-issuer")
		if err == nil {
			t.Error("Should fail on invalid private key")
		}
	})

	t.Run("Fails on invalid public key", func(t *testing.T) {
		_, err := NewSignerFromPublicKey([]byte("not-a-pem"), "test-issuer")
		if err == nil {
			t.Error("Should fail on invalid public key")
		}
	})
}
