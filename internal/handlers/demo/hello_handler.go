// internal/handlers/demo/hello_handler.go
package demo

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Hello is the sample protected endpoint.
func Hello(c *gin.Context) {
	c.String(http.StatusOK, "world")
}
