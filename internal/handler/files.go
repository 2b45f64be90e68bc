package handler

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"faktura/internal/apierror"
	"faktura/internal/infra"

	"github.com/gin-gonic/gin"
)

type FilesHandler struct{ store infra.DocumentStore }

func NewFilesHandler(store infra.DocumentStore) *FilesHandler {
	return &FilesHandler{store: store}
}

// Download godoc
// @Summary      Dokument herunterladen
// @Description  Liefert ein gespeichertes Dokument über einen signierten, zeitlich begrenzten Link aus. exp und sig stammen aus der SignedURL der Erzeugungsantwort.
// @Tags         files
// @Produce      application/octet-stream
// @Param        path path  string true "Speicherpfad des Dokuments"
// @Param        exp  query int    true "Ablaufzeitpunkt (Unix)"
// @Param        sig  query string true "HMAC-Signatur"
// @Success      200  {file} file
// @Failure      401  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/files/{path} [get]
func (h *FilesHandler) Download(c *gin.Context) {
	storagePath := strings.TrimPrefix(c.Param("path"), "/")
	exp, err := strconv.ParseInt(c.Query("exp"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "Ungültiger Ablaufzeitpunkt"))
		return
	}

	if !h.store.VerifySignature(storagePath, exp, c.Query("sig")) {
		c.JSON(http.StatusUnauthorized,
			apierror.New(apierror.CodeUnauthorized, "Link ungültig oder abgelaufen"))
		return
	}

	data, err := h.store.Get(c.Request.Context(), storagePath)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New(apierror.CodeNotFound, "Dokument nicht gefunden"))
		return
	}

	contentType := "application/octet-stream"
	switch path.Ext(storagePath) {
	case ".xml":
		contentType = "application/xml"
	case ".pdf":
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+path.Base(storagePath)+`"`)
	c.Data(http.StatusOK, contentType, data)
}
