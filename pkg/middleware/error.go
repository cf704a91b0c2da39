package middleware

import (
	"errors"
	"net/http"

	"cleancare-loyalty/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Error converts errors attached to the gin context into structured
// JSON responses. Workflow failures never leak as bare 500 strings.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if errors.As(err.Err, &be) {
			c.JSON(be.Code.HTTPStatus(), be.JSON())
			return
		}

		var ve validator.ValidationErrors
		if errors.As(err.Err, &ve) || err.IsType(gin.ErrorTypeBind) {
			c.JSON(http.StatusBadRequest, errutil.BaseError{
				Code:    errutil.StatusValidationFailed,
				Message: err.Error(),
			}.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, errutil.BaseError{
			Code:    errutil.StatusInternal,
			Message: err.Error(),
		}.JSON())
	}
}
