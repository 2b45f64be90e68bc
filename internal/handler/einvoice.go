package handler

import (
	"errors"
	"net/http"

	"faktura/internal/apierror"
	"faktura/internal/dto"
	"faktura/internal/einvoice"
	"faktura/internal/middleware"
	"faktura/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EInvoiceHandler struct{ svc service.EInvoiceService }

func NewEInvoiceHandler(svc service.EInvoiceService) *EInvoiceHandler {
	return &EInvoiceHandler{svc: svc}
}

// Generate godoc
// @Summary      E-Rechnung erzeugen
// @Description  Serialisiert eine Rechnung als XRechnung-konformes UBL-XML, legt sie im Dokumentenspeicher ab und liefert einen signierten Download-Link.
// @Tags         einvoice
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.EInvoiceRequest true "Rechnungsnummer oder vollständige Rechnungsdaten"
// @Success      201  {object} dto.EInvoiceResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/einvoice [post]
func (h *EInvoiceHandler) Generate(c *gin.Context) {
	var req dto.EInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	claims := middleware.GetClaims(c)
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New(apierror.CodeUnauthorized, "Ungültige Benutzerkennung"))
		return
	}

	resp, err := h.svc.Generate(c.Request.Context(), userID, req)
	if err != nil {
		var missing *einvoice.MissingFieldError
		switch {
		case errors.As(err, &missing):
			c.JSON(http.StatusUnprocessableEntity,
				apierror.New(apierror.CodeMissingSupplierField, missing.Error()))
		case errors.Is(err, service.ErrInvoiceNotFound), errors.Is(err, service.ErrCustomerNotFound):
			c.JSON(http.StatusNotFound, apierror.New(apierror.CodeNotFound, err.Error()))
		case errors.Is(err, service.ErrBadEInvoicePayload):
			c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, err.Error()))
		default:
			c.Error(err)
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}
