package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/util"
)

const (
	HeaderUserID     = "X-User-ID"
	HeaderUserGroups = "X-User-Groups"

	contextGroups = "userGroups"
)

// Identity reads the caller identity placed in trusted headers by the
// gateway in front of the service. Requests without a user id get 401.
func Identity(adminGroup string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			logger.Warn("No user identity provided", zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		groups := parseGroups(c.GetHeader(HeaderUserGroups))
		c.Set(util.ContextUserID, userID)
		c.Set(contextGroups, groups)
		c.Set(util.ContextIsAdmin, isUserInGroups(groups, []string{adminGroup}))
		c.Next()
	}
}

// GroupAuthMiddleware rejects callers that belong to none of requiredGroups.
// It must run after Identity.
func GroupAuthMiddleware(requiredGroups []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		groups, _ := c.Get(contextGroups)
		userGroups, _ := groups.([]string)
		if !isUserInGroups(userGroups, requiredGroups) {
			logger.Warn("User does not have the required groups",
				zap.String("userID", c.GetString(util.ContextUserID)),
				zap.Strings("requiredGroups", requiredGroups))
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func parseGroups(header string) []string {
	var groups []string
	for _, g := range strings.Split(header, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

func isUserInGroups(userGroups, requiredGroups []string) bool {
	for _, group := range requiredGroups {
		for _, userGroup := range userGroups {
			if userGroup == group {
				return true
			}
		}
	}
	return false
}
