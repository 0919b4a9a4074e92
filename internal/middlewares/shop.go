package middlewares

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaarma/tour-site-sub000/pkg/auth"
)

// ShopMembership answers whether a user belongs to a shop.
type ShopMembership interface {
	Member(ctx context.Context, shopID, userID string) (bool, error)
}

// RequireShopAccess admits admins unconditionally and managers only for
// the shop the request targets; resolve extracts the shop id from the
// request (path param, or a lookup through the addressed resource).
func RequireShopAccess(members ShopMembership, resolve func(*gin.Context) (string, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get("role")
		role, _ := v.(string)
		if role == auth.RoleAdmin {
			c.Next()
			return
		}
		if role != auth.RoleManager {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		shopID, err := resolve(c)
		if err != nil {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		sub, _ := c.Get("sub")
		userID, _ := sub.(string)
		ok, err := members.Member(c.Request.Context(), shopID, userID)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if !ok {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
