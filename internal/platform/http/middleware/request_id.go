package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
)

// HeaderRequestID はリクエストIDをやり取りするHTTPヘッダーです。
const HeaderRequestID = "X-Request-ID"

type ctxKeyRequestID struct{}

// RequestID は X-Request-ID ヘッダーを読み、空なら xid で生成します。
// IDはリクエストのcontextとレスポンスヘッダーに設定されます。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = xid.New().String()
		}
		c.Request = c.Request.WithContext(NewContextWithRequestID(c.Request.Context(), id))
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// NewContextWithRequestID creates a new context with request id.
func NewContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// GetRequestIDFromContext extracts request id from the context. 無ければ空文字を返します。
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}
