// Package auth работает с access-токенами RS256. Сервис чата только проверяет их;
// подпись нужна для dev-утилиты `token` и тестов.
package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
)

type AccessClaims struct {
	jwt.StandardClaims // Issuer, Audience, ExpiresAt, NotBefore, IssuedAt, Subject
}

// JWT выпускает и проверяет токены; private может быть nil: тогда только проверка.
type JWT struct {
	private   *rsa.PrivateKey
	public    *rsa.PublicKey
	issuer    string
	audience  string
	ttl       time.Duration
	clockSkew time.Duration

	now func() time.Time
}

func New(private *rsa.PrivateKey, public *rsa.PublicKey, issuer, audience string, ttl, clockSkew time.Duration) *JWT {
	if public == nil && private != nil {
		public = &private.PublicKey
	}
	return &JWT{
		private:   private,
		public:    public,
		issuer:    issuer,
		audience:  audience,
		ttl:       ttl,
		clockSkew: clockSkew,
		now:       time.Now,
	}
}

func (j *JWT) TTL() time.Duration {
	return j.ttl
}

// Sign выпускает токен с sub=userID и exp=now+ttl.
func (j *JWT) Sign(userID int64, now time.Time) (string, error) {
	if j.private == nil {
		return "", ErrNoSigningKey
	}
	claims := AccessClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    j.issuer,
			Audience:  j.audience,
			IssuedAt:  now.Unix(),
			NotBefore: now.Add(-j.clockSkew).Unix(),
			ExpiresAt: now.Add(j.ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(j.private)
}

// Verify проверяет подпись, issuer, audience и срок действия, возвращает id пользователя.
func (j *JWT) Verify(tokenStr string) (int64, error) {
	claims, err := j.parse(tokenStr)
	if err != nil {
		return 0, err
	}
	return subjectAsUserID(claims)
}

func (j *JWT) parse(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	// временные клеймы проверяем сами, с допуском clockSkew
	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok || t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, ErrInvalidToken
		}
		return j.public, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if !claims.VerifyIssuer(j.issuer, true) {
		return nil, ErrInvalidIssuer
	}
	if !claims.VerifyAudience(j.audience, true) {
		return nil, ErrInvalidAudience
	}

	now := j.now()
	nbf := time.Unix(claims.NotBefore, 0).Add(-j.clockSkew)
	exp := time.Unix(claims.ExpiresAt, 0).Add(j.clockSkew)
	if claims.ExpiresAt == 0 || now.Before(nbf) || now.After(exp) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

func subjectAsUserID(claims *AccessClaims) (int64, error) {
	if claims == nil || claims.Subject == "" {
		return 0, ErrInvalidSubject
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidSubject
	}
	return id, nil
}

func LoadRSAPrivateKeyFromPEM(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRSAPrivateKey(b)
}

func ParseRSAPrivateKey(b []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, fmt.Errorf("no PEM block")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not RSA private key")
	}
	return pk, nil
}

func LoadRSAPublicKeyFromPEM(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(b)
}
