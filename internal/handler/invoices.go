package handler

import (
	"errors"
	"net/http"

	"faktura/internal/apierror"
	"faktura/internal/dto"
	"faktura/internal/middleware"
	"faktura/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InvoicesHandler struct{ cancel service.CancellationService }

func NewInvoicesHandler(cancel service.CancellationService) *InvoicesHandler {
	return &InvoicesHandler{cancel: cancel}
}

// Cancel godoc
// @Summary      Rechnung stornieren
// @Description  Erstellt die Stornorechnung mit negierten Beträgen und setzt die Originalrechnung auf Storniert. Wiederholte Aufrufe liefern dieselbe Stornorechnung.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        number path string true "Rechnungsnummer"
// @Param        body body dto.CancelInvoiceRequest false "Stornogrund"
// @Success      200  {object} dto.CancelInvoiceResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/invoices/{number}/cancel [post]
func (h *InvoicesHandler) Cancel(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "Rechnungsnummer fehlt"))
		return
	}

	var req dto.CancelInvoiceRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}

	claims := middleware.GetClaims(c)
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New(apierror.CodeUnauthorized, "Ungültige Benutzerkennung"))
		return
	}

	cancellationNumber, err := h.cancel.Cancel(c.Request.Context(), userID, number, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvoiceNotFound):
			c.JSON(http.StatusNotFound, apierror.New(apierror.CodeNotFound, err.Error()))
		case errors.Is(err, service.ErrAlreadyCancelled):
			c.JSON(http.StatusConflict, apierror.New(apierror.CodeAlreadyCancelled, err.Error()))
		case errors.Is(err, service.ErrCancelOfCancellation):
			c.JSON(http.StatusConflict, apierror.New(apierror.CodeCancelOfCancellation, err.Error()))
		default:
			c.Error(err)
		}
		return
	}

	c.JSON(http.StatusOK, dto.CancelInvoiceResponse{
		OK:                        true,
		CancellationInvoiceNumber: cancellationNumber,
	})
}
