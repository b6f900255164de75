package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"posmarket/internal/dto"
	"posmarket/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct{ svc service.VentaService }

func NewVentasHandler(svc service.VentaService) *VentasHandler { return &VentasHandler{svc: svc} }

// Crear godoc
// @Summary      Registrar venta
// @Description  Precios y exento se resuelven desde el catálogo. La suma de pagos debe igualar el total.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearVentaRequest true "Venta"
// @Success      201  {object} dto.VentaResponse
// @Failure      400  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ventas [post]
func (h *VentasHandler) Crear(c *gin.Context) {
	var req dto.CrearVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearVenta(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CrearPos godoc
// @Summary      Registrar venta POS con combos
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.VentaPosRequest true "Venta POS"
// @Success      201  {object} dto.VentaResponse
// @Failure      400  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ventas/pos [post]
func (h *VentasHandler) CrearPos(c *gin.Context) {
	var req dto.VentaPosRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearVentaPos(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Preview godoc
// @Summary      Previsualizar venta POS
// @Description  Calcula líneas y totales sin registrar nada.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.PreviewPosRequest true "Items y combos"
// @Success      200  {object} dto.PreviewResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/ventas/pos/preview [post]
func (h *VentasHandler) Preview(c *gin.Context) {
	var req dto.PreviewPosRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.PreviewVentaPos(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Anular godoc
// @Summary      Anular venta
// @Description  Solo ventas de la sesión abierta y sin boleta.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de venta"
// @Param        body body dto.AnularVentaRequest false "Motivo"
// @Success      200  {object} dto.VentaResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/ventas/{id}/anular [post]
func (h *VentasHandler) Anular(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.AnularVentaRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AnularVenta(c.Request.Context(), actor(c), id, req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary      Listar ventas
// @Description  Los cajeros solo ven sus propias ventas.
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        fecha          query string false "Fecha YYYY-MM-DD"
// @Param        sesion_caja_id query string false "Sesión de caja"
// @Param        usuario_id     query string false "Usuario (solo admin)"
// @Param        estado         query string false "activas | anuladas | all"
// @Param        page           query int    false "Página (default 1)"
// @Param        limit          query int    false "Registros por página (default 50)"
// @Success      200  {object} dto.VentaListResponse
// @Router       /v1/ventas [get]
func (h *VentasHandler) Listar(c *gin.Context) {
	var filter dto.VentaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarVentas(c.Request.Context(), actor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Detalle godoc
// @Summary      Detalle de una venta propia
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID de venta"
// @Success      200 {object} dto.VentaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/ventas/{id} [get]
func (h *VentasHandler) Detalle(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.DetalleVenta(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DetalleAdmin godoc
// @Summary      Detalle de cualquier venta
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID de venta"
// @Success      200 {object} dto.VentaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/admin/ventas/{id} [get]
func (h *VentasHandler) DetalleAdmin(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.DetalleVentaAdmin(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Voucher godoc
// @Summary      Copia de la solicitud original de la venta
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID de venta"
// @Success      200 {object} dto.VoucherResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/ventas/{id}/voucher [get]
func (h *VentasHandler) Voucher(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Voucher(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VoucherPDF godoc
// @Summary      Reimpresión de la venta en PDF
// @Tags         ventas
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id path string true "ID de venta"
// @Success      200 {file} binary
// @Failure      404 {object} apierror.APIError
// @Router       /v1/ventas/{id}/voucher.pdf [get]
func (h *VentasHandler) VoucherPDF(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.VoucherPDF(c.Request.Context(), actor(c), id, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=venta_%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
