package frontend

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/senthil524/retroframe-v2-sub000/internal/core"
	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
	"github.com/senthil524/retroframe-v2-sub000/internal/photo"
)

const (
	mimePNG = "image/png"

	// thumbnailScale serves thumbnails denser than their container so
	// zoomed previews stay sharp.
	thumbnailScale = 2
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.GET("/orders/:orderId", service.orderPageHandler)
	e.POST("/htmx/orders/:orderId/upload", service.htmxUploadPhotoHandler)
	e.GET("/htmx/orders/:orderId/photos", service.htmxListPhotosHandler)

	e.GET("/htmx/photos/:id/thumb", service.htmxThumbnailHandler)
	e.DELETE("/htmx/photos/:id", service.htmxDeletePhotoHandler)
	e.POST("/htmx/photos/:id/move", service.htmxMovePhotoHandler)

	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) orderPageHandler(ctx echo.Context) error {
	orderID := ctx.Param("orderId")
	listHTML, err := service.buildPhotoListHTML(ctx.Request().Context(), orderID, service.timestampNanoStr())
	if err != nil {
		slog.Error("orderPageHandler: failed to list photos",
			"status", http.StatusInternalServerError, "order", orderID, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list photos")
	}
	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, renderOrderPage(orderID, listHTML))
}

func (service *FrontendService) htmxUploadPhotoHandler(ctx echo.Context) error {
	orderID := ctx.Param("orderId")
	file, err := ctx.FormFile("image")
	if err != nil {
		slog.Error("htmxUploadPhotoHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Failed to get uploaded file")
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("htmxUploadPhotoHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to open uploaded file")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("htmxUploadPhotoHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	if _, err := service.coreService.AddPhoto(ctx.Request().Context(), orderID, src); err != nil {
		slog.Error("htmxUploadPhotoHandler: failed to add uploaded photo",
			"status", http.StatusUnprocessableEntity, "error", err, "filename", file.Filename)
		return ctx.HTML(http.StatusUnprocessableEntity,
			fmt.Sprintf(`<div id="upload-result">Could not use %s</div>`, html.EscapeString(file.Filename)))
	}

	listHTML, listErr := service.buildPhotoListHTML(ctx.Request().Context(), orderID, service.timestampNanoStr())
	if listErr != nil {
		// The upload succeeded; report it even if the list cannot be rebuilt.
		slog.Error("htmxUploadPhotoHandler: failed to list photos for OOB update",
			"status", http.StatusInternalServerError, "error", listErr)
		return ctx.HTML(http.StatusOK,
			fmt.Sprintf(`<div id="upload-result">Uploaded file: %s</div>`, html.EscapeString(file.Filename)))
	}
	listOOB := fmt.Sprintf(`<div id="photo-list" hx-swap-oob="true">%s</div>`, listHTML)
	return ctx.HTML(http.StatusOK,
		fmt.Sprintf(`<div id="upload-result">Uploaded file: %s</div>%s`, html.EscapeString(file.Filename), listOOB))
}

func (service *FrontendService) htmxListPhotosHandler(ctx echo.Context) error {
	orderID := ctx.Param("orderId")
	listHTML, err := service.buildPhotoListHTML(ctx.Request().Context(), orderID, service.timestampNanoStr())
	if err != nil {
		slog.Error("htmxListPhotosHandler: failed to list photos",
			"status", http.StatusInternalServerError, "order", orderID, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list photos")
	}

	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, listHTML)
}

func (service *FrontendService) htmxThumbnailHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	thumbnail, err := service.coreService.Thumbnail(ctx.Request().Context(), id, service.config.ThumbnailWidth*thumbnailScale)
	if err != nil || len(thumbnail) == 0 {
		slog.Warn("htmxThumbnailHandler: thumbnail not available",
			"status", http.StatusNotFound, "photo_id", id, "error", err)
		return ctx.String(http.StatusNotFound, "Thumbnail not available")
	}

	service.setNoCache(ctx)
	return ctx.Blob(http.StatusOK, mimePNG, thumbnail)
}

func (service *FrontendService) htmxDeletePhotoHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	p, err := service.coreService.GetPhoto(ctx.Request().Context(), id)
	if err != nil {
		slog.Warn("htmxDeletePhotoHandler: photo not found",
			"status", http.StatusNotFound, "photo_id", id, "error", err)
		return ctx.String(http.StatusNotFound, "Photo not found")
	}

	if err := service.coreService.DeletePhoto(ctx.Request().Context(), id); err != nil {
		slog.Error("htmxDeletePhotoHandler: failed to delete photo",
			"status", http.StatusInternalServerError, "photo_id", id, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to delete photo")
	}

	listHTML, err := service.buildPhotoListHTML(ctx.Request().Context(), p.OrderID, service.timestampNanoStr())
	if err != nil {
		slog.Error("htmxDeletePhotoHandler: failed to list photos after delete",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list photos")
	}

	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, listHTML)
}

func (service *FrontendService) htmxMovePhotoHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	dir := ctx.QueryParam("dir")
	photos, err := service.coreService.MovePhoto(ctx.Request().Context(), id, dir)
	if err != nil {
		slog.Warn("htmxMovePhotoHandler: failed to move photo", "id", id, "dir", dir, "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid parameters")
	}

	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, service.renderPhotoList(photos, service.timestampNanoStr()))
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) timestampNanoStr() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

func (service *FrontendService) buildPhotoListHTML(ctx context.Context, orderID, ts string) (string, error) {
	photos, err := service.coreService.ListPhotos(ctx, orderID)
	if err != nil {
		return "", err
	}
	return service.renderPhotoList(photos, ts), nil
}

// renderPhotoList renders photos in persisted order. Each preview is laid
// out by the same crop math the print renderer uses.
func (service *FrontendService) renderPhotoList(photos []*photo.Photo, ts string) string {
	var b strings.Builder
	if len(photos) == 0 {
		b.WriteString(`<p>No photos uploaded yet.</p>`)
		return b.String()
	}

	side := float64(service.config.ThumbnailWidth)
	container := geometry.Size{Width: side, Height: side}

	b.WriteString(`<div class="vertical-list" id="photo-sort-list">`)
	for i, p := range photos {
		disableUp := ""
		disableDown := ""
		if i == 0 {
			disableUp = " disabled"
		}
		if i == len(photos)-1 {
			disableDown = " disabled"
		}

		layout := service.coreService.Layout(p, container, true, false)
		src := fmt.Sprintf("/htmx/photos/%s/thumb?ts=%s", url.PathEscape(p.ID), ts)
		id := html.EscapeString(p.ID)
		caption := html.EscapeString(p.Caption)

		b.WriteString(fmt.Sprintf(`<div class="vertical-item" data-id="%s" style="margin-bottom:1rem"><article>
	<div class="card-frame" style="background:%s;padding:0.5rem;display:inline-block">%s<p class="caption" style="color:%s">%s</p></div>
	<footer style="display:flex;gap:0.5rem;align-items:center;flex-wrap:wrap">
		<small>Card %d · %s</small>
		<div style="display:flex;gap:0.5rem">
			<button hx-post="/htmx/photos/%s/move?dir=up" hx-target="#photo-list" hx-swap="innerHTML"%s aria-label="Move up" title="Move up">
				<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16" viewBox="0 0 24 24" aria-hidden="true">
					<polygon points="12,5 19,18 5,18" />
				</svg>
			</button>
			<button hx-post="/htmx/photos/%s/move?dir=down" hx-target="#photo-list" hx-swap="innerHTML"%s aria-label="Move down" title="Move down">
				<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16" viewBox="0 0 24 24" aria-hidden="true">
					<polygon points="5,6 19,6 12,19" />
				</svg>
			</button>
			<a href="/api/photos/%s/card.png" target="_blank" role="button" class="outline">Card</a>
			<button hx-delete="/htmx/photos/%s" hx-target="#photo-list" hx-swap="innerHTML" class="secondary">Delete</button>
		</div>
	</footer>
</article></div>`,
			id,
			p.BorderColor.Hex(), layout.HTML(src, "Photo "+p.ID), textHex(p.BorderColor), caption,
			i+1, html.EscapeString(string(p.Effect)),
			id, disableUp,
			id, disableDown,
			id,
			id))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func textHex(c photo.BorderColor) string {
	t := c.TextColor()
	return fmt.Sprintf("#%02x%02x%02x", t.R, t.G, t.B)
}

func renderOrderPage(orderID, listHTML string) string {
	id := html.EscapeString(orderID)
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<title>RetroFrame order %s</title>
	<link rel="icon" href="/icon.svg" type="image/svg+xml">
	<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/@picocss/pico@2/css/pico.min.css">
	<script src="https://unpkg.com/htmx.org@2.0.4"></script>
</head>
<body>
<main class="container">
	<h1>Order %s</h1>
	<form hx-post="/htmx/orders/%s/upload" hx-encoding="multipart/form-data" hx-target="#upload-result" hx-swap="outerHTML">
		<input type="file" name="image" accept="image/*" required>
		<button type="submit">Upload</button>
	</form>
	<div id="upload-result"></div>
	<p><a href="/api/orders/%s/print.pdf" role="button">Download print PDF</a></p>
	<div id="photo-list">%s</div>
</main>
</body>
</html>`, id, id, id, id, listHTML)
}

const iconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 76"><rect width="64" height="76" rx="3" fill="#f5f0e1"/><rect x="5" y="5" width="54" height="54" fill="#4a6fa5"/></svg>`

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", []byte(iconSVG))
}
