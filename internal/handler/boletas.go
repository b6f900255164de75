package handler

import (
	"net/http"

	"posmarket/internal/dto"
	"posmarket/internal/service"

	"github.com/gin-gonic/gin"
)

type BoletasHandler struct{ svc service.BoletaService }

func NewBoletasHandler(svc service.BoletaService) *BoletasHandler { return &BoletasHandler{svc: svc} }

// Pendientes godoc
// @Summary Ventas en efectivo de la sesion abierta sin boleta
// @Tags boletas
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.BoletaPendienteResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/boletas/pendientes [get]
func (h *BoletasHandler) Pendientes(c *gin.Context) {
	resp, err := h.svc.PendientesBoleta(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Marcar godoc
// @Summary Registra el folio de una boleta emitida
// @Tags boletas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MarcarBoletaRequest true "Boleta"
// @Success 201 {object} dto.VentaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/boletas [post]
func (h *BoletasHandler) Marcar(c *gin.Context) {
	var req dto.MarcarBoletaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.MarcarBoleta(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
