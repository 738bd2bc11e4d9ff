package web

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/filerelay/internel/config"
	"github.com/campuslink/filerelay/internel/domain"
	"github.com/campuslink/filerelay/internel/pkg/code"
	"github.com/campuslink/filerelay/internel/service"
	"github.com/campuslink/filerelay/internel/web/middleware"
	"github.com/campuslink/filerelay/pkg/ginx"
	"github.com/campuslink/filerelay/pkg/ginx/errors"
)

// FileFieldName is the multipart field the upload must arrive under.
const FileFieldName = "file"

const defaultListLimit = 50

type FileHandler struct {
	uploadSvc service.UploadService
	maxBytes  int64
}

func NewFileHandler(uploadSvc service.UploadService, cfg *config.Config) *FileHandler {
	return &FileHandler{
		uploadSvc: uploadSvc,
		maxBytes:  cfg.MaxUploadBytes,
	}
}

func (h *FileHandler) RegisterRoutes(server *gin.Engine) {
	server.GET("/health", h.Health)
	server.POST("/upload", h.Upload)
	server.GET(domain.MountPrefix+":name", h.Serve)
	server.GET("/files", h.List)
}

func (h *FileHandler) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *FileHandler) Upload(ctx *gin.Context) {
	// Cap the whole body before any multipart parsing touches it, so an
	// oversized upload is refused without buffering it all.
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxBytes)

	fileHeader, err := ctx.FormFile(FileFieldName)
	if err != nil {
		var mbe *http.MaxBytesError
		if stderrors.As(err, &mbe) {
			ginx.WriteResponse(ctx, errors.WithCode(code.ErrPayloadTooLarge,
				"File exceeds the %d byte upload limit.", h.maxBytes), nil)
			return
		}
		ginx.WriteResponse(ctx, errors.WithCode(code.ErrNoFile,
			`No file received. Form field must be named "file".`), nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrBind,
			"Failed to read the uploaded file."), nil)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		var mbe *http.MaxBytesError
		if stderrors.As(err, &mbe) {
			ginx.WriteResponse(ctx, errors.WithCode(code.ErrPayloadTooLarge,
				"File exceeds the %d byte upload limit.", h.maxBytes), nil)
			return
		}
		ginx.WriteResponse(ctx, errors.WrapC(err, code.ErrBind,
			"Failed to read the uploaded file."), nil)
		return
	}

	rec, err := h.uploadSvc.Upload(ctx, domain.UploadRequest{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Content:     content,
		Principal:   ctx.GetString(middleware.KeyPrincipal),
	})
	if err != nil {
		ginx.WriteResponse(ctx, err, nil)
		return
	}

	ginx.WriteResponse(ctx, nil, gin.H{
		"message": "File uploaded successfully",
		"file":    rec,
	})
}

func (h *FileHandler) Serve(ctx *gin.Context) {
	name := ctx.Param("name")
	f, info, err := h.uploadSvc.Fetch(ctx, name)
	if err != nil {
		ginx.WriteResponse(ctx, err, nil)
		return
	}
	defer f.Close()

	// ServeContent picks the content type from the name extension and
	// falls back to sniffing, and handles range requests for free.
	http.ServeContent(ctx.Writer, ctx.Request, info.Name(), info.ModTime(), f)
}

func (h *FileHandler) List(ctx *gin.Context) {
	limit := defaultListLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			ginx.WriteResponse(ctx, errors.WithCode(code.ErrBind,
				"limit must be a positive integer"), nil)
			return
		}
		limit = n
	}

	recs, err := h.uploadSvc.List(ctx, limit)
	if err != nil {
		ginx.WriteResponse(ctx, err, nil)
		return
	}
	if recs == nil {
		recs = []domain.UploadRecord{}
	}
	ginx.WriteResponse(ctx, nil, gin.H{"files": recs})
}
