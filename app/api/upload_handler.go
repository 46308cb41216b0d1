package api

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"visamate/loader"
)

type UploadHandler struct {
	loader *loader.Loader
}

func NewUploadHandler(l *loader.Loader) *UploadHandler {
	return &UploadHandler{
		loader: l,
	}
}

func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrMissingFile()
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	contentType := fileHeader.Header.Get("Content-Type")

	resp, err := h.loader.Ingest(c.Context(), fileHeader.Filename, contentType, data)
	if err != nil {
		return err
	}

	return c.JSON(resp)
}
