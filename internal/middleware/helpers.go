// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// GetSubject gets the token subject from context
func GetSubject(c *gin.Context) (string, bool) {
	subject, exists := c.Get("subject")
	if !exists {
		return "", false
	}

	s, ok := subject.(string)
	return s, ok
}

// MustGetSubject gets the token subject from context or panics
func MustGetSubject(c *gin.Context) string {
	subject, exists := GetSubject(c)
	if !exists {
		panic("subject not found in context")
	}
	return subject
}

// GetClaims gets the custom token claims from context
func GetClaims(c *gin.Context) map[string]interface{} {
	claims, exists := c.Get("claims")
	if !exists {
		return map[string]interface{}{}
	}

	m, ok := claims.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return m
}

// GetRequestID gets the request id set by RequestIDMiddleware
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
