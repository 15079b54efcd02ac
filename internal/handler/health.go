package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Welcome handles GET /
func Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the AI Chatbot Code Challenge API!"})
}

// HealthCheck handles GET /health
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
