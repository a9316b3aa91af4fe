package handler

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
)

// bindOptionalJSON binds the body when there is one. An empty POST keeps the defaults in obj.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// queryTrimmed returns the trimmed query value
func queryTrimmed(c *gin.Context, key string) string {
	return strings.TrimSpace(c.Query(key))
}
