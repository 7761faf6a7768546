package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/utils"
)

var (
	errMissingSubject = errors.New("token subject missing")
	errUnknownRole    = errors.New("token role not recognised")
)

// AccountClaims are the claims carried by StudyPlan access tokens.
// The subject holds the numeric user id.
type AccountClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the numeric subject.
func (c AccountClaims) UserID() (uint, error) {
	subject := strings.TrimSpace(c.Subject)
	if subject == "" {
		return 0, errMissingSubject
	}
	parsed, err := strconv.ParseUint(subject, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid subject %q", subject)
	}
	return uint(parsed), nil
}

// AccountRole resolves the role claim to a known account role.
func (c AccountClaims) AccountRole() (models.Role, error) {
	role, ok := models.ParseRole(c.Role)
	if !ok {
		return "", errUnknownRole
	}
	return role, nil
}

// JWTProtected validates HS256 bearer tokens and stores user_id and user_role in locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, "missing or malformed bearer token", nil)
		}

		claims := &AccountClaims{}
		if _, err := parser.ParseWithClaims(tokenString, claims, keyFunc); err != nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid token", nil)
		}

		userID, err := claims.UserID()
		if err != nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid token subject", nil)
		}
		role, err := claims.AccountRole()
		if err != nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid token role", nil)
		}

		c.Locals("user_id", userID)
		c.Locals("user_role", string(role))
		return c.Next()
	}
}

// IssueToken signs claims for a user with HS256. The subject is set from userID.
func IssueToken(secret string, userID uint, role models.Role, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = strconv.FormatUint(uint64(userID), 10)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccountClaims{Role: string(role), RegisteredClaims: claims})
	return token.SignedString([]byte(secret))
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
