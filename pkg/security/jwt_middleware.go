package security

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/roles"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWTMiddleware validates the bearer token and stores the resolved actor
// in the request context.
func JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return jwtSecret, nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		actor, err := actorFromClaims(claims)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Set("actor", actor)
		c.Set("userID", actor.UserID)
		c.Set("role", string(actor.Role))
		c.Next()
	}
}

func actorFromClaims(claims jwt.MapClaims) (models.Actor, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return models.Actor{}, fmt.Errorf("role claim is not a string")
	}

	userID, err := intClaim(claims, "userID")
	if err != nil {
		return models.Actor{}, err
	}
	departmentID, err := intClaim(claims, "departmentID")
	if err != nil {
		return models.Actor{}, err
	}
	hospitalID, err := intClaim(claims, "hospitalID")
	if err != nil {
		return models.Actor{}, err
	}
	organizationID, err := intClaim(claims, "organizationID")
	if err != nil {
		return models.Actor{}, err
	}

	return models.Actor{
		UserID:         userID,
		Role:           roles.Role(role),
		DepartmentID:   departmentID,
		HospitalID:     hospitalID,
		OrganizationID: organizationID,
	}, nil
}

// JSON numbers arrive as float64 in MapClaims.
func intClaim(claims jwt.MapClaims, key string) (int, error) {
	value, ok := claims[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%s claim is not a number", key)
	}
	return int(value), nil
}

// ActorFromContext returns the actor put in place by JWTMiddleware.
func ActorFromContext(c *gin.Context) (models.Actor, error) {
	value, exists := c.Get("actor")
	if !exists {
		return models.Actor{}, fmt.Errorf("no authenticated actor in context")
	}
	actor, ok := value.(models.Actor)
	if !ok {
		return models.Actor{}, fmt.Errorf("invalid actor in context")
	}
	return actor, nil
}

// Authorize ensures the actor holds at least the required role.
func Authorize(requiredRole roles.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := ActorFromContext(c)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient permissions"})
			c.Abort()
			return
		}

		if !actor.Role.HasPermission(requiredRole) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}
