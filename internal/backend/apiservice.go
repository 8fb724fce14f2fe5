package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/senthil524/retroframe-v2-sub000/internal/backend/database"
	"github.com/senthil524/retroframe-v2-sub000/internal/backend/source"
	"github.com/senthil524/retroframe-v2-sub000/internal/backend/storage"
	"github.com/senthil524/retroframe-v2-sub000/internal/core"
	"github.com/senthil524/retroframe-v2-sub000/internal/editor"
	"github.com/senthil524/retroframe-v2-sub000/internal/effects"
	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
	"github.com/senthil524/retroframe-v2-sub000/internal/photo"
	"github.com/senthil524/retroframe-v2-sub000/internal/printing"
)

const (
	mimePNG = "image/png"
	mimePDF = "application/pdf"

	HeaderPrintSkipped = "X-Print-Skipped"
	HeaderPrintLowRes  = "X-Print-Low-Res"
	HeaderEffectiveDPI = "X-Effective-DPI"
)

type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
	}
}

type importRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type surfaceRequest struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// dispatchResponse carries the session even when an event failed, so the
// client can resync to the events that were applied.
type dispatchResponse struct {
	Session *editor.Session `json:"session"`
	Error   string          `json:"error,omitempty"`
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", s.probeHandler)

	e.GET("/api/orders/:orderId/photos", s.listPhotosHandler)
	e.POST("/api/orders/:orderId/photos", s.uploadPhotoHandler)
	e.POST("/api/orders/:orderId/photos/import", s.importPhotoHandler)
	e.GET("/api/orders/:orderId/print.pdf", s.printOrderHandler)

	e.GET("/api/photos/:id", s.getPhotoHandler)
	e.DELETE("/api/photos/:id", s.deletePhotoHandler)
	e.POST("/api/photos/:id/measure", s.measurePhotoHandler)
	e.PUT("/api/photos/:id/display", s.updateDisplayHandler)
	e.POST("/api/photos/:id/move", s.movePhotoHandler)
	e.GET("/api/photos/:id/preview", s.previewHandler)
	e.GET("/api/photos/:id/card.png", s.cardHandler)
	e.POST("/api/photos/:id/edit", s.beginEditHandler)

	e.GET("/api/edit/:sessionId", s.getEditHandler)
	e.POST("/api/edit/:sessionId/events", s.editEventsHandler)
	e.POST("/api/edit/:sessionId/confirm", s.confirmEditHandler)
	e.POST("/api/edit/:sessionId/cancel", s.cancelEditHandler)

	e.GET("/blobs/:key", s.blobHandler)
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "API Service is running")
}

func (s *APIService) listPhotosHandler(ctx echo.Context) error {
	photos, err := s.coreService.ListPhotos(ctx.Request().Context(), ctx.Param("orderId"))
	if err != nil {
		return s.fail(ctx, "listPhotosHandler", "failed to list photos", err)
	}
	return ctx.JSON(http.StatusOK, photos)
}

func (s *APIService) uploadPhotoHandler(ctx echo.Context) error {
	file, err := ctx.FormFile("image")
	if err != nil {
		slog.Warn("uploadPhotoHandler: failed to get uploaded file", "status", http.StatusBadRequest, "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "missing image file"})
	}
	src, err := file.Open()
	if err != nil {
		return s.fail(ctx, "uploadPhotoHandler", "failed to open uploaded file", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("uploadPhotoHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	p, err := s.coreService.AddPhoto(ctx.Request().Context(), ctx.Param("orderId"), src)
	if err != nil {
		return s.fail(ctx, "uploadPhotoHandler", "failed to add photo", err)
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (s *APIService) importPhotoHandler(ctx echo.Context) error {
	var req importRequest
	if err := s.bind(ctx, &req); err != nil {
		return err
	}
	p, err := s.coreService.ImportPhoto(ctx.Request().Context(), ctx.Param("orderId"), req.URL)
	if err != nil {
		return s.fail(ctx, "importPhotoHandler", "failed to import photo", err)
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (s *APIService) getPhotoHandler(ctx echo.Context) error {
	p, err := s.coreService.GetPhoto(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return s.fail(ctx, "getPhotoHandler", "failed to get photo", err)
	}
	return ctx.JSON(http.StatusOK, p)
}

func (s *APIService) deletePhotoHandler(ctx echo.Context) error {
	if err := s.coreService.DeletePhoto(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return s.fail(ctx, "deletePhotoHandler", "failed to delete photo", err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *APIService) measurePhotoHandler(ctx echo.Context) error {
	p, err := s.coreService.MeasurePhoto(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return s.fail(ctx, "measurePhotoHandler", "failed to measure photo", err)
	}
	return ctx.JSON(http.StatusOK, p)
}

func (s *APIService) updateDisplayHandler(ctx echo.Context) error {
	var req core.DisplayUpdate
	if err := s.bind(ctx, &req); err != nil {
		return err
	}
	p, err := s.coreService.UpdateDisplay(ctx.Request().Context(), ctx.Param("id"), req)
	if err != nil {
		return s.fail(ctx, "updateDisplayHandler", "failed to update display", err)
	}
	return ctx.JSON(http.StatusOK, p)
}

func (s *APIService) movePhotoHandler(ctx echo.Context) error {
	photos, err := s.coreService.MovePhoto(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("dir"))
	if err != nil {
		return s.fail(ctx, "movePhotoHandler", "failed to move photo", err)
	}
	return ctx.JSON(http.StatusOK, photos)
}

func (s *APIService) previewHandler(ctx echo.Context) error {
	width, err := queryFloat(ctx, "width")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	height, err := queryFloat(ctx, "height")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	loaded := ctx.QueryParam("loaded") != "false"
	failed := ctx.QueryParam("failed") == "true"

	_, layout, err := s.coreService.PreviewLayout(ctx.Request().Context(), ctx.Param("id"),
		geometry.Size{Width: width, Height: height}, loaded, failed)
	if err != nil {
		return s.fail(ctx, "previewHandler", "failed to lay out preview", err)
	}
	setNoCache(ctx)
	return ctx.JSON(http.StatusOK, layout)
}

func (s *APIService) cardHandler(ctx echo.Context) error {
	data, dpi, err := s.coreService.RenderCard(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return s.fail(ctx, "cardHandler", "failed to render card", err)
	}
	ctx.Response().Header().Set(HeaderEffectiveDPI, strconv.FormatFloat(dpi, 'f', 1, 64))
	setNoCache(ctx)
	return ctx.Blob(http.StatusOK, mimePNG, data)
}

func (s *APIService) beginEditHandler(ctx echo.Context) error {
	var req surfaceRequest
	if err := s.bind(ctx, &req); err != nil {
		return err
	}
	session, err := s.coreService.BeginEdit(ctx.Request().Context(), ctx.Param("id"),
		geometry.Size{Width: req.Width, Height: req.Height})
	if err != nil {
		return s.fail(ctx, "beginEditHandler", "failed to start editing", err)
	}
	return ctx.JSON(http.StatusCreated, session)
}

func (s *APIService) getEditHandler(ctx echo.Context) error {
	session, err := s.coreService.GetEdit(ctx.Request().Context(), ctx.Param("sessionId"))
	if err != nil {
		return s.fail(ctx, "getEditHandler", "failed to get edit session", err)
	}
	return ctx.JSON(http.StatusOK, session)
}

func (s *APIService) editEventsHandler(ctx echo.Context) error {
	var events []editor.Event
	if err := s.bind(ctx, &events); err != nil {
		return err
	}
	session, err := s.coreService.DispatchEdit(ctx.Request().Context(), ctx.Param("sessionId"), events)
	if err != nil && session == nil {
		return s.fail(ctx, "editEventsHandler", "failed to apply events", err)
	}
	if err != nil {
		status := statusFor(err)
		slog.Warn("editEventsHandler: event rejected", "status", status, "session", session.ID, "error", err)
		return ctx.JSON(status, dispatchResponse{Session: session, Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, dispatchResponse{Session: session})
}

func (s *APIService) confirmEditHandler(ctx echo.Context) error {
	p, err := s.coreService.ConfirmEdit(ctx.Request().Context(), ctx.Param("sessionId"))
	if err != nil {
		return s.fail(ctx, "confirmEditHandler", "failed to confirm edit", err)
	}
	return ctx.JSON(http.StatusOK, p)
}

func (s *APIService) cancelEditHandler(ctx echo.Context) error {
	session, err := s.coreService.CancelEdit(ctx.Request().Context(), ctx.Param("sessionId"))
	if err != nil {
		return s.fail(ctx, "cancelEditHandler", "failed to cancel edit", err)
	}
	return ctx.JSON(http.StatusOK, session)
}

func (s *APIService) printOrderHandler(ctx echo.Context) error {
	orderID := ctx.Param("orderId")
	job, err := s.coreService.PrintOrder(ctx.Request().Context(), orderID)
	if err != nil {
		return s.fail(ctx, "printOrderHandler", "failed to print order", err)
	}
	defer func() {
		if cerr := job.Close(); cerr != nil {
			slog.Error("printOrderHandler: failed to release print job", "order", orderID, "error", cerr)
		}
	}()

	header := ctx.Response().Header()
	header.Set(echo.HeaderContentType, mimePDF)
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "order-"+orderID+".pdf"))
	header.Set(HeaderPrintLowRes, strconv.Itoa(job.Report.LowResCount()))
	if len(job.Report.Skipped) > 0 {
		header.Set(HeaderPrintSkipped, job.Report.SkippedHeader())
	}
	setNoCache(ctx)
	ctx.Response().WriteHeader(http.StatusOK)

	if err := job.Compose(ctx.Response()); err != nil {
		// Headers are already sent; the client sees a truncated body.
		slog.Error("printOrderHandler: failed to write print document", "order", orderID, "error", err)
		return nil
	}
	return nil
}

func (s *APIService) blobHandler(ctx echo.Context) error {
	data, contentType, err := s.coreService.Blob(ctx.Request().Context(), ctx.Param("key"))
	if err != nil {
		return s.fail(ctx, "blobHandler", "failed to load blob", err)
	}
	// Blob keys are immutable.
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, contentType, data)
}

// bind decodes and validates the request body into v. Failures are
// returned as HTTP errors for echo's error handler.
func (s *APIService) bind(ctx echo.Context, v interface{}) error {
	if err := ctx.Bind(v); err != nil {
		slog.Warn("APIService: failed to bind request body", "path", ctx.Path(), "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := ctx.Validate(v); err != nil {
		slog.Warn("APIService: invalid request body", "path", ctx.Path(), "error", err)
		return err
	}
	return nil
}

// fail logs err and answers with the status it maps to.
func (s *APIService) fail(ctx echo.Context, handler, message string, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(handler+": "+message, "status", status, "error", err)
	} else {
		slog.Warn(handler+": "+message, "status", status, "error", err)
	}
	return ctx.JSON(status, errorResponse{Error: fmt.Sprintf("%s: %v", message, err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, source.ErrNotFound),
		errors.Is(err, editor.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrNotAdjusting),
		errors.Is(err, editor.ErrNotMeasurable):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidImage):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, source.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, printing.ErrNoPages):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidDirection),
		errors.Is(err, photo.ErrInvalidBorderColor),
		errors.Is(err, effects.ErrUnknownEffect),
		errors.Is(err, editor.ErrUnknownEvent),
		errors.Is(err, editor.ErrInvalidSurface),
		errors.Is(err, source.ErrUnsupportedScheme):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func queryFloat(ctx echo.Context, name string) (float64, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

func setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}
