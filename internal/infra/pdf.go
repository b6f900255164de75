package infra

// pdf.go: receipt-style documents rendered with go-pdf/fpdf:
//   - sale voucher reprint (streamed to the HTTP response)
//   - cash session close report (written to disk and mailed by the worker)

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"posmarket/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const tiendaNombre = "posmarket"

// ticketPDF builds a 74mm wide page close to thermal receipt paper.
func ticketPDF(alto float64) (*fpdf.Fpdf, func(string) string, float64) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: alto},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(true, 4)
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	// Core fonts are cp1252; translate accents and ñ.
	return pdf, pdf.UnicodeTranslatorFromDescriptor(""), pageW - 8
}

func separador(pdf *fpdf.Fpdf) {
	pageW, _ := pdf.GetPageSize()
	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)
}

func monto(d decimal.Decimal) string { return "$" + d.StringFixed(0) }

// WriteVoucherPDF renders the reprint of a sale to w.
func WriteVoucherPDF(w io.Writer, venta *model.Venta) error {
	alto := 70 + float64(len(venta.Items)+len(venta.Pagos))*5
	pdf, tr, contentW := ticketPDF(alto)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tiendaNombre, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	titulo := "Comprobante de venta"
	if venta.Tipo == model.VentaInterna {
		titulo = "Venta interna"
	}
	pdf.CellFormat(contentW, 5, tr(titulo), "", 1, "C", false, 0, "")
	if venta.Anulada {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW, 5, "ANULADA", "", 1, "C", false, 0, "")
	}
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Venta "+venta.ID.String()[:8], "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, venta.CreatedAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	separador(pdf)

	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range venta.Items {
		nombre := []rune(item.NombreProducto)
		if len(nombre) > 22 {
			nombre = append(nombre[:21], '.')
		}
		if item.Exento {
			nombre = append(nombre, []rune(" (E)")...)
		}
		pdf.CellFormat(col1, 5, tr(string(nombre)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", item.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, monto(item.Subtotal), "", 1, "R", false, 0, "")
	}
	separador(pdf)

	if venta.DescuentoPromos.IsPositive() {
		pdf.CellFormat(col1+col2, 5, "Promociones:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, "-"+monto(venta.DescuentoPromos), "", 1, "R", false, 0, "")
	}
	if venta.TotalExento.IsPositive() {
		pdf.CellFormat(col1+col2, 4, "Afecto:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, monto(venta.TotalAfecto), "", 1, "R", false, 0, "")
		pdf.CellFormat(col1+col2, 4, "Exento:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, monto(venta.TotalExento), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, monto(venta.Total), "", 1, "R", false, 0, "")

	pdf.Ln(1)
	pdf.SetFont("Helvetica", "", 7)
	for _, pago := range venta.Pagos {
		pdf.CellFormat(col1+col2, 4, "Pago ("+string(pago.Metodo)+"):", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, monto(pago.Monto), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("¡Gracias por su compra!"), "", 1, "C", false, 0, "")

	return pdf.Output(w)
}

// GenerateCierrePDF writes the close report of a session to
// storagePath/cierre_{id}.pdf and returns the file path.
func GenerateCierrePDF(s *model.SesionCaja, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("cierre_%s.pdf", s.ID))

	pdf, tr, contentW := ticketPDF(160)
	colL := contentW * 0.6
	colR := contentW * 0.4
	fila := func(label string, v decimal.Decimal) {
		pdf.CellFormat(colL, 4, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(colR, 4, monto(v), "", 1, "R", false, 0, "")
	}
	filaPtr := func(label string, v *decimal.Decimal) {
		if v != nil {
			fila(label, *v)
		}
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, tiendaNombre, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Cierre de caja", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Apertura: "+s.OpenedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if s.ClosedAt != nil {
		pdf.CellFormat(contentW, 4, "Cierre:   "+s.ClosedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	}
	separador(pdf)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, "Ventas por medio de pago", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	fila(fmt.Sprintf("Efectivo/Giro (%d)", s.TicketsEfectivo), s.TotalEfectivo)
	fila(fmt.Sprintf("Débito (%d)", s.TicketsDebito), s.TotalDebito)
	fila(fmt.Sprintf("Crédito (%d)", s.TicketsCredito), s.TotalCredito)
	fila(fmt.Sprintf("Transferencia (%d)", s.TicketsTransferencia), s.TotalTransferencia)
	fila("Exento", s.TotalExento)
	separador(pdf)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, "Caja local", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	fila("Inicial", s.InicialLocal)
	fila("Ingresos extra", s.IngresosExtra)
	fila("Egresos", s.Egresos)
	filaPtr("Esperado", s.EsperadoLocal)
	filaPtr("Contado", s.RealLocal)
	filaPtr("Diferencia", s.DiferenciaLocal)
	separador(pdf)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, "Caja vecina", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	fila("Inicial", s.InicialVecina)
	fila("Movimientos", s.MovimientosVecina)
	filaPtr("Esperado", s.EsperadoVecina)
	filaPtr("Contado", s.RealVecina)
	filaPtr("Diferencia", s.DiferenciaVecina)

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
