package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APITest lets the frontend check that the backend answers.
func APITest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "L'API backend fonctionne !"})
}
