package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"bangunanpro/backend/internal/domain"
)

var errInvalidCredentials = errors.New("invalid credentials")

// StaffDirectory resolves the role picker entries a token can be issued for.
type StaffDirectory interface {
	FindStaff(ctx context.Context, id string) (domain.StaffUser, error)
}

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	pinHash  string
	staff    StaffDirectory
	now      func() time.Time
}

type staffClaims struct {
	jwtlib.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// NewAuthManager issues tokens for staff picked from the directory. When
// accessPIN is empty the picker alone is enough to sign in.
func NewAuthManager(secret string, tokenTTL time.Duration, accessPIN string, staff StaffDirectory) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	var pinHash string
	if pin := strings.TrimSpace(accessPIN); pin != "" {
		hashed, err := hashPassword(pin)
		if err == nil {
			pinHash = hashed
		}
	}

	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		pinHash:  pinHash,
		staff:    staff,
		now:      time.Now,
	}
}

// PINRequired reports whether login needs the shared access PIN.
func (a *AuthManager) PINRequired() bool {
	return a.pinHash != ""
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if a.PINRequired() && !verifyPassword(a.pinHash, req.PIN) {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	user, err := a.staff.FindStaff(ctx, userID)
	if err != nil {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	expiresAt := a.now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		User:        user,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &staffClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}

	role := domain.Role(claims.Role)
	switch role {
	case domain.RoleAdmin, domain.RoleKasir, domain.RoleGudang:
	default:
		return domain.Actor{}, errors.New("invalid token role")
	}
	return domain.Actor{UserID: sub, Name: claims.Name, Role: role}, nil
}

func (a *AuthManager) sign(user domain.StaffUser, expiresAt time.Time) (string, error) {
	claims := staffClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "bangunanpro",
		},
		Name: user.Name,
		Role: string(user.Role),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(strings.TrimSpace(input))) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
