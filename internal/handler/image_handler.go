package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"imgmeta/internal/export"
	"imgmeta/internal/service"
)

// ImageHandler handles image metadata endpoints.
type ImageHandler struct {
	imageService service.ImageService
	defaultLimit int
}

// NewImageHandler creates a new ImageHandler. defaultLimit is used when a
// list request carries no limit parameter.
func NewImageHandler(imageService service.ImageService, defaultLimit int) *ImageHandler {
	return &ImageHandler{imageService: imageService, defaultLimit: defaultLimit}
}

// decodeStrict decodes a single JSON object into dst, rejecting unknown
// fields and trailing data.
func decodeStrict(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil {
		return fmt.Errorf("request body required")
	}
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}

// Create handles POST /images
// @Summary Register an image
// @Description Persist image metadata and return a presigned URL the client uses to PUT the bytes
// @Tags images
// @Accept json
// @Produce json
// @Param body body CreateImageRequest true "Image metadata"
// @Success 201 {object} domain.CreatedImage "Record and upload URL"
// @Failure 400 {object} ErrorResponse "Invalid body or missing fields"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /images [post]
func (h *ImageHandler) Create(c *gin.Context) {
	var req CreateImageRequest
	if err := decodeStrict(c, &req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeInvalidBody, "invalid request body: "+err.Error())
		return
	}

	created, err := h.imageService.Create(c.Request.Context(), service.CreateImageInput{
		UserID:      req.UserID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Tags:        req.Tags,
		Description: req.Description,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// parseTimeParam accepts RFC 3339 or integer unix seconds.
func parseTimeParam(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC 3339 or unix seconds", name)
	}
	t = t.UTC()
	return &t, nil
}

// List handles GET /images
// @Summary List a user's images
// @Description Newest first, cursor paginated, optionally filtered by tag and creation time
// @Tags images
// @Produce json
// @Param user_id query string true "Owner"
// @Param limit query int false "Page size (max 100)" default(10)
// @Param cursor query string false "next_cursor from the previous page"
// @Param tag query string false "Only images carrying this tag"
// @Param from query string false "Created at or after (RFC 3339 or unix seconds)"
// @Param to query string false "Created at or before (RFC 3339 or unix seconds)"
// @Success 200 {object} domain.ImagePage "One page of images"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /images [get]
func (h *ImageHandler) List(c *gin.Context) {
	limit := h.defaultLimit
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			RespondError(c, http.StatusBadRequest, CodeValidation, "limit must be an integer")
			return
		}
		limit = n
	}

	from, err := parseTimeParam("from", c.Query("from"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}
	to, err := parseTimeParam("to", c.Query("to"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	page, err := h.imageService.List(c.Request.Context(), service.ListImagesInput{
		UserID: c.Query("user_id"),
		Limit:  limit,
		Cursor: c.Query("cursor"),
		Tag:    c.Query("tag"),
		From:   from,
		To:     to,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// Get handles GET /images/:image_id
// @Summary Get an image
// @Tags images
// @Produce json
// @Param image_id path string true "Image ID"
// @Success 200 {object} domain.ImageView "Record with download URL"
// @Failure 404 {object} ErrorResponse "Image not found"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /images/{image_id} [get]
func (h *ImageHandler) Get(c *gin.Context) {
	view, err := h.imageService.Get(c.Request.Context(), c.Param("image_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete handles DELETE /images/:image_id
// @Summary Delete an image
// @Description Removes the record, then the stored object on a best-effort basis
// @Tags images
// @Produce json
// @Param image_id path string true "Image ID"
// @Success 200 {object} DeleteImageResponse "Deleted"
// @Failure 404 {object} ErrorResponse "Image not found"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /images/{image_id} [delete]
func (h *ImageHandler) Delete(c *gin.Context) {
	imageID := c.Param("image_id")
	if err := h.imageService.Delete(c.Request.Context(), imageID); err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeleteImageResponse{Deleted: true, ImageID: imageID})
}

// Export handles GET /images/export
// @Summary Export a user's images
// @Description Download every record of a user as CSV or XLSX
// @Tags images
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param user_id query string true "Owner"
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file "Attachment"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /images/export [get]
func (h *ImageHandler) Export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "xlsx" {
		RespondError(c, http.StatusBadRequest, CodeValidation, "format must be csv or xlsx")
		return
	}

	userID := c.Query("user_id")
	images, err := h.imageService.Export(c.Request.Context(), userID)
	if err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if format == "xlsx" {
		err = export.WriteXLSX(&buf, images)
	} else {
		err = export.WriteCSV(&buf, images)
	}
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename(strings.TrimSpace(userID), format, time.Now().UTC())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}
