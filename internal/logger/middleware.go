package logger

import "github.com/gin-gonic/gin"

// RequestIDHeader carries the request ID to and from clients.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware attaches a request ID to the request context so every
// log line emitted through WithContext carries it. A client-supplied ID is
// kept, otherwise one is generated; the ID is echoed back on the response.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = GenerateRequestID()
		}

		ctx := WithRequestID(c.Request.Context(), requestID)
		ctx = WithOperation(ctx, c.FullPath())
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}
