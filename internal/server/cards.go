package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/pkg/errors"
)

type generateRequest struct {
	Image    string `json:"image"`
	Language string `json:"language"`
}

type manualCardRequest struct {
	Image    string `json:"image"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type updateCardRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type draftDTO struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	CardImage string `json:"cardImage"`
}

func (h *handler) handleGenerateCard(c *gin.Context) {
	var (
		photo    domain.EncodedImage
		language string
		err      error
	)
	if isMultipart(c) {
		photo, err = h.readFormImage(c, "photo")
		language = c.PostForm("language")
	} else {
		var req generateRequest
		if bindErr := h.bindImageJSON(c, &req); bindErr != nil {
			abortWithError(c, bindErr, h.logger)
			return
		}
		photo, err = domain.ParseDataURI(req.Image)
		language = req.Language
	}
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}

	draft, err := h.deps.Generator.GenerateCard(c.Request.Context(), photo, language)
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}

	if save, _ := strconv.ParseBool(c.Query("save")); save {
		card, err := h.deps.Manual.SaveDraft(c.Request.Context(), draft)
		if err != nil {
			abortWithError(c, err, h.logger)
			return
		}
		c.JSON(http.StatusCreated, card)
		return
	}

	c.JSON(http.StatusOK, draftDTO{
		Name:      draft.Name,
		Category:  draft.Category,
		CardImage: draft.CardImage.DataURI(),
	})
}

func (h *handler) handleManualCard(c *gin.Context) {
	var (
		image          domain.EncodedImage
		name, category string
		err            error
	)
	if isMultipart(c) {
		image, err = h.readFormImage(c, "image")
		name, category = c.PostForm("name"), c.PostForm("category")
	} else {
		var req manualCardRequest
		if bindErr := h.bindImageJSON(c, &req); bindErr != nil {
			abortWithError(c, bindErr, h.logger)
			return
		}
		name, category = req.Name, req.Category
		if strings.TrimSpace(req.Image) == "" {
			err = errors.NewValidationError("image is required", "image", "")
		} else {
			image, err = domain.ParseDataURI(req.Image)
		}
	}
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}

	card, err := h.deps.Manual.CreateManualCard(c.Request.Context(), image, name, category)
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *handler) handleListCards(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		cards []*domain.Card
		err   error
	)
	if favorites, _ := strconv.ParseBool(c.Query("favorites")); favorites {
		cards, err = h.deps.Library.Favorites(ctx)
	} else {
		cards, err = h.deps.Library.CardsByCategory(ctx, c.Query("category"))
	}
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	if cards == nil {
		cards = []*domain.Card{}
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

func (h *handler) handleCategories(c *gin.Context) {
	categories, err := h.deps.Library.Categories(c.Request.Context())
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *handler) handleUpdateCard(c *gin.Context) {
	var req updateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.NewValidationError("invalid request body", "body", ""), h.logger)
		return
	}

	card, err := h.deps.Library.UpdateCard(c.Request.Context(), c.Param("id"), domain.CardUpdate{
		Name:     req.Name,
		Category: req.Category,
	})
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *handler) handleToggleFavorite(c *gin.Context) {
	id := c.Param("id")
	favorite, err := h.deps.Library.ToggleFavorite(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "isFavorite": favorite})
}

func (h *handler) handleDeleteCard(c *gin.Context) {
	if err := h.deps.Library.DeleteCardRecord(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) handleBulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		abortWithError(c, errors.NewValidationError("ids are required", "ids", ""), h.logger)
		return
	}

	result, err := h.deps.Library.DeleteMany(c.Request.Context(), req.IDs)
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, result)
}

// jsonImageSlack covers the JSON envelope and data URI header around the
// base64 payload.
const jsonImageSlack = 64 << 10

// bindImageJSON decodes a JSON body carrying a data URI image. The body is
// capped at the base64 size of the image limit so oversized uploads are
// refused while reading.
func (h *handler) bindImageJSON(c *gin.Context, dst any) error {
	maxBytes := h.deps.MaxImageBytes
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, encodedImageLimit(maxBytes))
	}

	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.NewValidationError(fmt.Sprintf("image exceeds %d bytes", maxBytes), "image", tooLarge.Limit)
		}
		return errors.NewValidationError("invalid request body", "body", "")
	}
	return nil
}

func encodedImageLimit(maxBytes int64) int64 {
	return (maxBytes+2)/3*4 + jsonImageSlack
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// readFormImage loads one uploaded file, refusing anything over the size limit
// before it is fully buffered.
func (h *handler) readFormImage(c *gin.Context, field string) (domain.EncodedImage, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return domain.EncodedImage{}, errors.NewValidationError(fmt.Sprintf("%s file is required", field), field, "")
	}

	maxBytes := h.deps.MaxImageBytes
	if maxBytes > 0 && header.Size > maxBytes {
		return domain.EncodedImage{}, errors.NewValidationError(fmt.Sprintf("image exceeds %d bytes", maxBytes), field, header.Size)
	}

	file, err := header.Open()
	if err != nil {
		return domain.EncodedImage{}, errors.NewValidationError("uploaded file cannot be read", field, header.Filename)
	}
	defer file.Close()

	var reader io.Reader = file
	if maxBytes > 0 {
		reader = io.LimitReader(file, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return domain.EncodedImage{}, errors.NewValidationError("uploaded file cannot be read", field, header.Filename)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return domain.EncodedImage{}, errors.NewValidationError(fmt.Sprintf("image exceeds %d bytes", maxBytes), field, len(data))
	}

	return domain.NewEncodedImage(data, header.Header.Get("Content-Type")), nil
}
