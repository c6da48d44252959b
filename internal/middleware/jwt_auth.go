package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/snapgram/backend/internal/models"
)

// JWTAuthMiddleware checks for a valid JWT and extracts user claims.
// Websocket clients cannot set headers, so a `token` query parameter is
// accepted as a fallback.
func JWTAuthMiddleware(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := ""

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader != "" {
				// Expecting "Bearer <token>"
				parts := strings.Split(authHeader, " ")
				if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
				}
				tokenString = parts[1]
			} else {
				tokenString = c.QueryParam("token")
			}

			if tokenString == "" || tokenString == "null" || tokenString == "undefined" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}
			// an access token has three dot-separated parts; reject
			// clearly malformed values before calling the parser
			if strings.Count(tokenString, ".") != 2 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})

			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			// Store user claims in context
			c.Set("user", claims)

			return next(c)
		}
	}
}

// UserIDFromContext returns the authenticated user's id, or "" when the
// request carries no valid claims.
func UserIDFromContext(c echo.Context) string {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok {
		return ""
	}
	return claims.UserID
}

// UsernameFromContext returns the authenticated username, if any.
func UsernameFromContext(c echo.Context) string {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok {
		return ""
	}
	return claims.Username
}
