package service

import (
	"context"

	"posmarket/internal/apperror"
	"posmarket/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Catalogo is the read-only product and promotion lookup the resolver needs.
// Lookups return (nil, nil) for missing entries.
type Catalogo interface {
	Producto(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	ProductoPorCodigo(ctx context.Context, codigo string) (*model.Producto, error)
	Promocion(ctx context.Context, id uuid.UUID) (*model.Promocion, error)
}

// ItemSolicitado is a requested line before pricing.
type ItemSolicitado struct {
	ProductoID uuid.UUID
	Cantidad   int
	EsPromo    bool
	PromoID    *uuid.UUID
}

// LineaResuelta is a priced line. Bonificada lines cost nothing and stay out
// of the totals.
type LineaResuelta struct {
	ProductoID     uuid.UUID
	Codigo         string
	Nombre         string
	Cantidad       int
	PrecioUnitario decimal.Decimal
	Subtotal       decimal.Decimal
	Exento         bool
	Mayorista      bool
	EsPromo        bool
	Bonificada     bool
	PromoID        *uuid.UUID
}

// Resolucion is the outcome of pricing a set of lines.
type Resolucion struct {
	Lineas          []LineaResuelta
	Total           decimal.Decimal
	TotalExento     decimal.Decimal
	DescuentoPromos decimal.Decimal
}

// Afecto is the taxable part of the total.
func (r *Resolucion) Afecto() decimal.Decimal { return r.Total.Sub(r.TotalExento) }

// Resolver prices requested lines from catalog state only.
type Resolver struct {
	// codigoBonificacion identifies the complimentary product bundled with
	// POS combos (the bag of ice).
	codigoBonificacion string
}

func NewResolver(codigoBonificacion string) *Resolver {
	return &Resolver{codigoBonificacion: codigoBonificacion}
}

// Calcular builds new resolved lines; items is never modified. The same
// catalog state always yields the same totals.
func (r *Resolver) Calcular(ctx context.Context, cat Catalogo, items []ItemSolicitado) (*Resolucion, error) {
	res := &Resolucion{
		Lineas:          make([]LineaResuelta, 0, len(items)),
		Total:           decimal.Zero,
		TotalExento:     decimal.Zero,
		DescuentoPromos: decimal.Zero,
	}

	for _, it := range items {
		if it.Cantidad <= 0 {
			return nil, apperror.New(apperror.InvalidQuantity, "La cantidad debe ser mayor a cero").
				With("producto_id", it.ProductoID).With("cantidad", it.Cantidad)
		}
		p, err := cat.Producto(ctx, it.ProductoID)
		if err != nil {
			return nil, apperror.Wrap(err, "error consultando producto")
		}
		if p == nil {
			return nil, apperror.New(apperror.ProductNotFound, "Producto no encontrado").
				With("producto_id", it.ProductoID)
		}

		linea := LineaResuelta{
			ProductoID: p.ID,
			Codigo:     p.Codigo,
			Nombre:     p.Nombre,
			Cantidad:   it.Cantidad,
			Exento:     p.Exento,
			EsPromo:    it.EsPromo,
			PromoID:    it.PromoID,
		}

		if it.EsPromo && r.codigoBonificacion != "" && p.Codigo == r.codigoBonificacion {
			linea.PrecioUnitario = decimal.Zero
			linea.Subtotal = decimal.Zero
			linea.Bonificada = true
			res.Lineas = append(res.Lineas, linea)
			continue
		}

		precio, mayorista := p.PrecioPara(it.Cantidad)
		linea.PrecioUnitario = precio
		linea.Mayorista = mayorista
		linea.Subtotal = precio.Mul(decimal.NewFromInt(int64(it.Cantidad)))

		res.Total = res.Total.Add(linea.Subtotal)
		if linea.Exento {
			res.TotalExento = res.TotalExento.Add(linea.Subtotal)
		}
		res.Lineas = append(res.Lineas, linea)
	}

	descuento, err := r.descuentoPromosFijas(ctx, cat, res.Lineas)
	if err != nil {
		return nil, err
	}
	// The bundle discount is taken entirely from the taxable part.
	res.DescuentoPromos = descuento
	res.Total = res.Total.Sub(descuento)
	return res, nil
}

// descuentoPromosFijas computes the discount of every fixed bundle referenced
// by the lines, in order of first appearance.
func (r *Resolver) descuentoPromosFijas(ctx context.Context, cat Catalogo, lineas []LineaResuelta) (decimal.Decimal, error) {
	var orden []uuid.UUID
	grupos := make(map[uuid.UUID][]LineaResuelta)
	for _, l := range lineas {
		if l.PromoID == nil {
			continue
		}
		id := *l.PromoID
		if _, ok := grupos[id]; !ok {
			orden = append(orden, id)
		}
		grupos[id] = append(grupos[id], l)
	}

	total := decimal.Zero
	for _, id := range orden {
		promo, err := cat.Promocion(ctx, id)
		if err != nil {
			return decimal.Zero, apperror.Wrap(err, "error consultando promoción")
		}
		if promo == nil || !promo.Activa || promo.Tipo != model.TipoPromocionFija ||
			!promo.PrecioPromocion.IsPositive() || len(promo.Detalles) == 0 {
			continue
		}

		combos, precioNormal := combosCompletos(promo.Detalles, grupos[id])
		if combos == 0 {
			continue
		}
		porCombo := precioNormal.Sub(promo.PrecioPromocion)
		if !porCombo.IsPositive() {
			continue
		}
		total = total.Add(porCombo.Mul(decimal.NewFromInt(int64(combos))))
	}
	return total, nil
}

// combosCompletos returns how many whole bundles the group satisfies and the
// price of one bundle sold at the lines' resolved unit prices.
func combosCompletos(detalles []model.PromocionDetalle, grupo []LineaResuelta) (int, decimal.Decimal) {
	cantidad := make(map[uuid.UUID]int)
	precio := make(map[uuid.UUID]decimal.Decimal)
	for _, l := range grupo {
		cantidad[l.ProductoID] += l.Cantidad
		if _, ok := precio[l.ProductoID]; !ok {
			precio[l.ProductoID] = l.PrecioUnitario
		}
	}

	combos := -1
	precioNormal := decimal.Zero
	for _, d := range detalles {
		disponible, ok := cantidad[d.ProductoID]
		if !ok || d.Cantidad <= 0 {
			return 0, decimal.Zero
		}
		n := disponible / d.Cantidad
		if combos == -1 || n < combos {
			combos = n
		}
		precioNormal = precioNormal.Add(precio[d.ProductoID].Mul(decimal.NewFromInt(int64(d.Cantidad))))
	}
	if combos < 0 {
		return 0, decimal.Zero
	}
	return combos, precioNormal
}
