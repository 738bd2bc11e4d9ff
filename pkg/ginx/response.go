package ginx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/filerelay/internel/pkg/code"
	"github.com/campuslink/filerelay/pkg/ginx/errors"
	"github.com/campuslink/filerelay/pkg/log"
)

// WriteResponse shapes every handler reply. Coded errors become their mapped
// status with an {"error": msg} body; uncoded errors are logged with full
// detail and reported as a generic 500 so internals never leak to clients.
func WriteResponse(ctx *gin.Context, err error, data any) {
	if err != nil {
		c := errors.Code(err)
		msg := err.Error()
		if c == 0 {
			c = code.ErrInternal
			msg = "Upload failed on server"
		}
		log.WithError(err).WithField("code", c).
			WithField("path", ctx.Request.URL.Path).
			Error("request failed")
		ctx.JSON(code.HTTPStatus(c), gin.H{"error": msg})
		return
	}
	if data == nil {
		data = gin.H{}
	}
	ctx.JSON(http.StatusOK, data)
}
