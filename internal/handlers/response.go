package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"marketplace-chat/internal/apperrors"
	"marketplace-chat/internal/middleware"
)

// respondError renders err as {success:false, message}. Server-side
// failures are logged and their detail withheld from the client.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	appErr := apperrors.From(err)
	message := appErr.Message
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"kind", appErr.Kind,
			"request_id", c.GetString("request_id"),
			"error", err,
		)
		if appErr.Kind == apperrors.KindStorage {
			message = "Server error"
		}
	}
	c.JSON(appErr.Status, gin.H{"success": false, "message": message})
}

// bindError turns a binding failure into an InvalidRequest naming the first
// offending field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required", "required_without":
			return apperrors.InvalidRequest(fmt.Sprintf("%s is required", fe.Field()))
		default:
			return apperrors.InvalidRequest(fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return apperrors.InvalidRequest("invalid request body")
}

func init() {
	// report json field names in validation errors
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	}
}

func caller(c *gin.Context) (string, bool) {
	id := middleware.Identity(c)
	return id.UserID, id.IsAdmin()
}
