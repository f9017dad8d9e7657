package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// OwnerIDHeader carries the id of the owner every /api/v1 call acts for
	OwnerIDHeader = "X-Owner-ID"

	OwnerIDKey = "owner_id"
)

// Owner rejects requests without a valid owner id. Authentication happens
// upstream; the header is trusted as-is.
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(OwnerIDHeader)
		ownerID, err := uuid.Parse(raw)
		if raw == "" || err != nil || ownerID == uuid.Nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid "+OwnerIDHeader+" header")
			return
		}

		c.Set(OwnerIDKey, ownerID)
		c.Next()
	}
}

// GetOwnerID returns the owner set by the Owner middleware, or uuid.Nil
func GetOwnerID(c *gin.Context) uuid.UUID {
	if v, exists := c.Get(OwnerIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
