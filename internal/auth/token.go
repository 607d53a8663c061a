package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTypeAccess 是访问令牌的 token_type。
const TokenTypeAccess = "access"

var (
	// ErrEmptyToken 表示请求未携带令牌。
	ErrEmptyToken = errors.New("token string is empty")
	// ErrWrongTokenType 表示令牌不是访问令牌。
	ErrWrongTokenType = errors.New("access token required")
)

// TokenClaims 表示 JWT 中的业务字段，便于中间件读取用户信息。
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Verifier 校验外部身份服务签发的 RS256 令牌，本服务不持有私钥。
type Verifier struct {
	publicKey *rsa.PublicKey
	issuer    string
}

// NewVerifier 解析 PEM 公钥并构造校验器；issuer 非空时要求 iss 匹配。
func NewVerifier(publicKeyPEM []byte, issuer string) (*Verifier, error) {
	if len(publicKeyPEM) == 0 {
		return nil, errors.New("public key pem is required")
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}
	return &Verifier{publicKey: publicKey, issuer: issuer}, nil
}

// LoadVerifier 从文件读取公钥。
func LoadVerifier(path, issuer string) (*Verifier, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return NewVerifier(pem, issuer)
}

// ValidateToken 解析并验证 JWT。
func (v *Verifier) ValidateToken(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, ErrEmptyToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.publicKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateAccessToken 在 ValidateToken 基础上要求 token_type 为 access。
func (v *Verifier) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	claims, err := v.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("%w: got %q", ErrWrongTokenType, claims.TokenType)
	}
	return claims, nil
}

// Issuer 用私钥签发访问令牌，仅供本地开发与管理工具使用。
type Issuer struct {
	privateKey *rsa.PrivateKey
	issuer     string
	ttl        time.Duration
}

// NewIssuer 解析 PEM 私钥。
func NewIssuer(privateKeyPEM []byte, issuer string, ttl time.Duration) (*Issuer, error) {
	if len(privateKeyPEM) == 0 {
		return nil, errors.New("private key pem is required")
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa private key: %w", err)
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Issuer{privateKey: privateKey, issuer: issuer, ttl: ttl}, nil
}

// IssueAccessToken 为用户签发访问令牌。
func (i *Issuer) IssueAccessToken(userID uint, username string) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID:    userID,
		Username:  username,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(i.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
