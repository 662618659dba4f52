package handlers

import (
	"io"
	"time"

	"fintrack/api/logger"
	"fintrack/api/sse"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleEventStream streams the caller's domain events as server-sent
// events until the client disconnects or the broker closes. A ping event is
// written every keepAlive so proxies keep the connection open.
func HandleEventStream(broker *sse.Broker, keepAlive time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		stream, cancel := broker.Subscribe(userID)
		defer cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		c.SSEvent("ready", gin.H{"userId": userID})
		c.Writer.Flush()

		c.Stream(func(w io.Writer) bool {
			select {
			case event, ok := <-stream.Events:
				if !ok {
					return false
				}
				c.SSEvent(string(event.Type), event)
				return true
			case <-ticker.C:
				c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
				return true
			case <-c.Request.Context().Done():
				logger.Get().Debug("event stream client gone", zap.String("user_id", userID))
				return false
			}
		})
	}
}
