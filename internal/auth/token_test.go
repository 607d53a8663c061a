package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) (privatePEM, publicPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	return privatePEM, publicPEM
}

func TestIssueAndValidate(t *testing.T) {
	priv, pub := testKeys(t)
	issuer, err := NewIssuer(priv, "phfolio-idp", time.Minute)
	require.NoError(t, err)
	verifier, err := NewVerifier(pub, "phfolio-idp")
	require.NoError(t, err)

	token, err := issuer.IssueAccessToken(42, "jane")
	require.NoError(t, err)

	claims, err := verifier.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "jane", claims.Username)
	assert.Equal(t, "42", claims.Subject)
}

func TestValidateRejects(t *testing.T) {
	priv, pub := testKeys(t)
	otherPriv, _ := testKeys(t)

	verifier, err := NewVerifier(pub, "phfolio-idp")
	require.NoError(t, err)

	_, err = verifier.ValidateToken("")
	assert.ErrorIs(t, err, ErrEmptyToken)

	wrongIssuer, err := NewIssuer(priv, "someone-else", time.Minute)
	require.NoError(t, err)
	token, err := wrongIssuer.IssueAccessToken(1, "")
	require.NoError(t, err)
	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	forged, err := NewIssuer(otherPriv, "phfolio-idp", time.Minute)
	require.NoError(t, err)
	token, err = forged.IssueAccessToken(1, "")
	require.NoError(t, err)
	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	key, err := jwt.ParseRSAPrivateKeyFromPEM(priv)
	require.NoError(t, err)
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodRS256, TokenClaims{
		UserID:    1,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "phfolio-idp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(key)
	require.NoError(t, err)
	_, err = verifier.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodRS256, TokenClaims{
		UserID:    1,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "phfolio-idp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString(key)
	require.NoError(t, err)
	_, err = verifier.ValidateToken(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{TokenType: TokenTypeAccess}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = verifier.ValidateToken(hmac)
	assert.Error(t, err)
}

func TestNewVerifierRequiresKey(t *testing.T) {
	_, err := NewVerifier(nil, "")
	assert.Error(t, err)
	_, err = NewVerifier([]byte("not a pem"), "")
	assert.Error(t, err)
}
