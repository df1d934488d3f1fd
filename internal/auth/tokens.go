package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
	RoleQR    = "qr"

	issuer = "classtrade"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrWrongRole     = errors.New("token role not allowed here")
	ErrClassMismatch = errors.New("token belongs to another class")
)

// Session is what login endpoints hand back to clients.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        string    `json:"role"`
	SubjectID   int64     `json:"subject_id"`
	ClassID     int64     `json:"class_id,omitempty"`
}

// Claims carries the principal of every token kind.
type Claims struct {
	Role    string `json:"role"`
	ClassID int64  `json:"cid,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID parses the numeric subject.
func (c Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

type Issuer struct {
	secret     []byte
	sessionTTL time.Duration
	qrTTL      time.Duration
	now        func() time.Time
}

func NewIssuer(secret string, sessionTTL, qrTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		qrTTL:      qrTTL,
		now:        time.Now,
	}
}

func (i *Issuer) AdminSession(adminID int64) (Session, error) {
	return i.session(RoleAdmin, adminID, 0, i.sessionTTL)
}

func (i *Issuer) GuestSession(guestID, classID int64) (Session, error) {
	return i.session(RoleGuest, guestID, classID, i.sessionTTL)
}

// QRToken issues a short-lived token that lets one guest enter one class.
func (i *Issuer) QRToken(guestID, classID int64) (Session, error) {
	return i.session(RoleQR, guestID, classID, i.qrTTL)
}

func (i *Issuer) session(role string, subject, classID int64, ttl time.Duration) (Session, error) {
	now := i.now()
	exp := now.Add(ttl)
	claims := Claims{
		Role:    role,
		ClassID: classID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(subject, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
		ExpiresAt:   exp,
		Role:        role,
		SubjectID:   subject,
		ClassID:     classID,
	}, nil
}

// Parse verifies signature, issuer, expiry and role.
func (i *Issuer) Parse(token, role string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Role != role {
		return Claims{}, ErrWrongRole
	}
	if _, err := claims.SubjectID(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// VerifyQR checks a QR login token against the class id from the login URL.
func (i *Issuer) VerifyQR(token string, classID int64) (guestID int64, err error) {
	claims, err := i.Parse(token, RoleQR)
	if err != nil {
		return 0, err
	}
	if claims.ClassID != classID {
		return 0, ErrClassMismatch
	}
	return claims.SubjectID()
}
