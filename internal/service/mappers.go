package service

import (
	"time"

	"posmarket/internal/dto"
	"posmarket/internal/model"

	"github.com/google/uuid"
)

func fecha(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func fechaPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fecha(*t)
	return &s
}

func uuidPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func sesionToResponse(s *model.SesionCaja) *dto.SesionCajaResponse {
	return &dto.SesionCajaResponse{
		ID:                s.ID.String(),
		Estado:            string(s.Estado),
		UsuarioAperturaID: s.UsuarioAperturaID.String(),
		UsuarioCierreID:   uuidPtr(s.UsuarioCierreID),
		OpenedAt:          fecha(s.OpenedAt),
		ClosedAt:          fechaPtr(s.ClosedAt),
		InicialLocal:      s.InicialLocal,
		InicialVecina:     s.InicialVecina,
		Totales: dto.TotalesCanalResponse{
			Efectivo:      s.TotalEfectivo,
			Debito:        s.TotalDebito,
			Credito:       s.TotalCredito,
			Transferencia: s.TotalTransferencia,
		},
		TotalExento:       s.TotalExento,
		IngresosExtra:     s.IngresosExtra,
		Egresos:           s.Egresos,
		MovimientosVecina: s.MovimientosVecina,
		Tickets: dto.TicketsResponse{
			Efectivo:      s.TicketsEfectivo,
			Debito:        s.TicketsDebito,
			Credito:       s.TicketsCredito,
			Transferencia: s.TicketsTransferencia,
		},
		EsperadoLocal:    s.EsperadoLocal,
		EsperadoVecina:   s.EsperadoVecina,
		RealLocal:        s.RealLocal,
		RealVecina:       s.RealVecina,
		DiferenciaLocal:  s.DiferenciaLocal,
		DiferenciaVecina: s.DiferenciaVecina,
	}
}

func movimientoToResponse(m *model.MovimientoCaja) dto.MovimientoCajaResponse {
	return dto.MovimientoCajaResponse{
		ID:           m.ID.String(),
		Tipo:         string(m.Tipo),
		Categoria:    m.Categoria,
		Monto:        m.Monto,
		Descripcion:  m.Descripcion,
		ProveedorID:  uuidPtr(m.ProveedorID),
		Sistema:      m.Sistema,
		ReferenciaID: uuidPtr(m.ReferenciaID),
		UsuarioID:    m.UsuarioID.String(),
		CreatedAt:    fecha(m.CreatedAt),
	}
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	resp := &dto.VentaResponse{
		ID:              v.ID.String(),
		Tipo:            string(v.Tipo),
		SesionCajaID:    v.SesionCajaID.String(),
		UsuarioID:       v.UsuarioID.String(),
		Items:           make([]dto.ItemVentaResponse, 0, len(v.Items)),
		Pagos:           make([]dto.PagoResponse, 0, len(v.Pagos)),
		Boletas:         make([]dto.BoletaResponse, 0, len(v.Boletas)),
		Total:           v.Total,
		TotalAfecto:     v.TotalAfecto,
		TotalExento:     v.TotalExento,
		DescuentoPromos: v.DescuentoPromos,
		MontoEfectivo:   v.MontoEfectivo,
		NotaInterna:     v.NotaInterna,
		Anulada:         v.Anulada,
		MotivoAnulacion: v.MotivoAnulacion,
		AnuladaAt:       fechaPtr(v.AnuladaAt),
		CreatedAt:       fecha(v.CreatedAt),
	}
	if v.Usuario != nil {
		resp.Usuario = v.Usuario.Nombre
	}
	for _, it := range v.Items {
		resp.Items = append(resp.Items, dto.ItemVentaResponse{
			ProductoID:     it.ProductoID.String(),
			Producto:       it.NombreProducto,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Subtotal:       it.Subtotal,
			Exento:         it.Exento,
			Mayorista:      it.Mayorista,
			EsPromo:        it.EsPromo,
			PromoID:        uuidPtr(it.PromocionID),
		})
	}
	for _, p := range v.Pagos {
		resp.Pagos = append(resp.Pagos, dto.PagoResponse{Metodo: string(p.Metodo), Monto: p.Monto})
	}
	for _, b := range v.Boletas {
		resp.Boletas = append(resp.Boletas, dto.BoletaResponse{
			Tipo:      string(b.Tipo),
			Folio:     b.Folio,
			CreatedAt: fecha(b.CreatedAt),
		})
	}
	return resp
}

func lineasToResponse(lineas []LineaResuelta) []dto.ItemVentaResponse {
	out := make([]dto.ItemVentaResponse, 0, len(lineas))
	for _, l := range lineas {
		out = append(out, dto.ItemVentaResponse{
			ProductoID:     l.ProductoID.String(),
			Producto:       l.Nombre,
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.PrecioUnitario,
			Subtotal:       l.Subtotal,
			Exento:         l.Exento,
			Mayorista:      l.Mayorista,
			EsPromo:        l.EsPromo,
			PromoID:        uuidPtr(l.PromoID),
		})
	}
	return out
}

func devolucionToResponse(d *model.Devolucion) *dto.DevolucionResponse {
	resp := &dto.DevolucionResponse{
		ID:            d.ID.String(),
		VentaID:       d.VentaID.String(),
		SesionCajaID:  d.SesionCajaID.String(),
		MetodoPago:    string(d.MetodoPago),
		TotalDevuelto: d.TotalDevuelto,
		TotalExento:   d.TotalExento,
		Motivo:        d.Motivo,
		Items:         make([]dto.LineaDevolucionResponse, 0, len(d.Items)),
		CreatedAt:     fecha(d.CreatedAt),
	}
	for _, it := range d.Items {
		resp.Items = append(resp.Items, dto.LineaDevolucionResponse{
			ProductoID:     it.ProductoID.String(),
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Subtotal:       it.Subtotal,
			Exento:         it.Exento,
		})
	}
	return resp
}

func cambioToResponse(c *model.Cambio) *dto.CambioResponse {
	resp := &dto.CambioResponse{
		ID:            c.ID.String(),
		VentaID:       c.VentaID.String(),
		SesionCajaID:  c.SesionCajaID.String(),
		TotalDevuelto: c.TotalDevuelto,
		TotalNuevo:    c.TotalNuevo,
		Diferencia:    c.Diferencia,
		Motivo:        c.Motivo,
		Devueltos:     make([]dto.LineaDevolucionResponse, 0, len(c.Devueltos)),
		Entregados:    make([]dto.ItemVentaResponse, 0, len(c.Entregados)),
		CreatedAt:     fecha(c.CreatedAt),
	}
	if c.MetodoPago != nil {
		m := string(*c.MetodoPago)
		resp.MetodoPago = &m
	}
	for _, it := range c.Devueltos {
		resp.Devueltos = append(resp.Devueltos, dto.LineaDevolucionResponse{
			ProductoID:     it.ProductoID.String(),
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Subtotal:       it.Subtotal,
			Exento:         it.Exento,
		})
	}
	for _, it := range c.Entregados {
		resp.Entregados = append(resp.Entregados, dto.ItemVentaResponse{
			ProductoID:     it.ProductoID.String(),
			Producto:       it.NombreProducto,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Subtotal:       it.Subtotal,
			Exento:         it.Exento,
			Mayorista:      it.Mayorista,
		})
	}
	return resp
}
