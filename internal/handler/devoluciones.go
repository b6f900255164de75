package handler

import (
	"net/http"

	"posmarket/internal/dto"
	"posmarket/internal/service"

	"github.com/gin-gonic/gin"
)

type DevolucionesHandler struct{ svc service.DevolucionService }

func NewDevolucionesHandler(svc service.DevolucionService) *DevolucionesHandler {
	return &DevolucionesHandler{svc: svc}
}

// Devolver godoc
// @Summary      Devolución parcial o total
// @Description  Reembolsa a precio de venta original por el medio indicado.
// @Tags         devoluciones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de venta"
// @Param        body body dto.DevolucionRequest true "Productos a devolver"
// @Success      201  {object} dto.DevolucionResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ventas/{id}/devoluciones [post]
func (h *DevolucionesHandler) Devolver(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.DevolucionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.DevolverParcial(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cambio godoc
// @Summary      Cambio de productos
// @Description  La diferencia nunca puede ser a favor del cliente.
// @Tags         devoluciones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de venta"
// @Param        body body dto.CambioRequest true "Devueltos y entregados"
// @Success      201  {object} dto.CambioResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ventas/{id}/cambios [post]
func (h *DevolucionesHandler) Cambio(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.CambioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearCambio(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Historial godoc
// @Summary      Devoluciones y cambios de una venta
// @Tags         devoluciones
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de venta"
// @Success      200  {object} dto.HistorialDevolucionesResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/ventas/{id}/devoluciones [get]
func (h *DevolucionesHandler) Historial(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Historial(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
