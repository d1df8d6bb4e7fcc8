package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	MerchantHeader = "X-Merchant-ID"
	merchantKey    = "merchantID"
)

// MerchantScope требует заголовок X-Merchant-ID. Все запросы ядра выполняются
// в рамках одного салона.
func MerchantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(MerchantHeader))
		if err != nil || id == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				gin.H{"error": "missing or invalid " + MerchantHeader + " header"},
			)
			return
		}
		c.Set(merchantKey, id)
		c.Next()
	}
}

// MerchantID возвращает салон, выставленный MerchantScope.
func MerchantID(c *gin.Context) uuid.UUID {
	v, _ := c.Get(merchantKey)
	id, _ := v.(uuid.UUID)
	return id
}
