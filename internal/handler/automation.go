package handler

import (
	"errors"
	"net/http"

	"faktura/internal/apierror"
	"faktura/internal/dto"
	"faktura/internal/service"

	"github.com/gin-gonic/gin"
)

type AutomationHandler struct{ svc service.AutomationService }

func NewAutomationHandler(svc service.AutomationService) *AutomationHandler {
	return &AutomationHandler{svc: svc}
}

// Run godoc
// @Summary      Fällige Automatisierungen ausführen
// @Description  Erzeugt für jede fällige Automatisierung eine Rechnung, versendet sie per E-Mail und schreibt den nächsten Ausführungstermin fort. Wird vom Cron-Dienst ausgelöst.
// @Tags         automations
// @Produce      json
// @Param        X-Cron-Token header string true "Shared Secret des Cron-Dienstes"
// @Success      200  {object} dto.AutomationRunResponse
// @Failure      401  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/cron/automations/run [post]
func (h *AutomationHandler) Run(c *gin.Context) {
	result, err := h.svc.RunDue(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			c.JSON(http.StatusConflict, apierror.New(apierror.CodeRateLimited, err.Error()))
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.AutomationRunResponse{
		OK:           true,
		SuccessCount: result.SuccessCount,
		ErrorCount:   result.ErrorCount,
	})
}
