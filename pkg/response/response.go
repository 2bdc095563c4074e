package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Result is the JSON envelope every endpoint answers with.
type Result struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	NewBalance *float64    `json:"new_balance,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Result{Success: true, Data: data})
}

// Balance reports a settled seat's new balance.
func Balance(c *gin.Context, newBalance float64) {
	c.JSON(http.StatusOK, Result{Success: true, NewBalance: &newBalance})
}

func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Result{Error: msg})
}

// Text writes a fixed plain-text body, used for form validation failures.
func Text(c *gin.Context, status int, msg string) {
	c.String(status, msg)
}
