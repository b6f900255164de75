package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"posmarket/internal/apperror"
	"posmarket/internal/dto"
	"posmarket/internal/model"
	"posmarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BoletaService records receipts issued outside the system. A receipted sale
// can no longer be voided.
type BoletaService interface {
	MarcarBoleta(ctx context.Context, actor Actor, req dto.MarcarBoletaRequest) (*dto.VentaResponse, error)
	PendientesBoleta(ctx context.Context) ([]dto.BoletaPendienteResponse, error)
}

type boletaService struct {
	ventaRepo repository.VentaRepository
	cajaRepo  repository.CajaRepository
}

func NewBoletaService(ventaRepo repository.VentaRepository, cajaRepo repository.CajaRepository) BoletaService {
	return &boletaService{ventaRepo: ventaRepo, cajaRepo: cajaRepo}
}

func (s *boletaService) MarcarBoleta(ctx context.Context, actor Actor, req dto.MarcarBoletaRequest) (*dto.VentaResponse, error) {
	ventaID, err := uuid.Parse(req.VentaID)
	if err != nil {
		return nil, apperror.NotFoundf("Venta", req.VentaID)
	}
	tipo := model.TipoBoleta(strings.ToUpper(req.Tipo))
	if !tipo.Valid() {
		return nil, apperror.Newf(apperror.InvalidCategory, "Tipo de boleta inválido: %s", req.Tipo).With("tipo", req.Tipo)
	}
	folio := strings.TrimSpace(req.Folio)
	if folio == "" {
		return nil, apperror.New(apperror.InvalidCategory, "El folio es obligatorio")
	}

	var venta *model.Venta
	err = runTx(ctx, s.ventaRepo.DB(), func(tx *gorm.DB) error {
		v, err := s.ventaRepo.FindByIDForUpdateTx(tx, ventaID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFoundf("Venta", ventaID)
		}
		if err != nil {
			return fmt.Errorf("buscando venta: %w", err)
		}
		if v.Tipo != model.VentaNormal {
			return apperror.New(apperror.NotReceiptable, "Las ventas internas no llevan boleta").With("venta_id", ventaID)
		}
		if v.Anulada {
			return apperror.New(apperror.AlreadyVoided, "La venta está anulada").With("venta_id", ventaID)
		}
		if v.TieneBoleta(tipo) {
			return apperror.Newf(apperror.AlreadyReceipted, "La venta ya tiene boleta %s", tipo).
				With("venta_id", ventaID).With("tipo", tipo)
		}
		b := model.VentaBoleta{VentaID: v.ID, Tipo: tipo, Folio: folio, UsuarioID: actor.UsuarioID}
		if err := s.ventaRepo.CreateBoletaTx(tx, &b); err != nil {
			// UNIQUE(venta_id, tipo) under a concurrent mark.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Newf(apperror.AlreadyReceipted, "La venta ya tiene boleta %s", tipo).With("venta_id", ventaID)
			}
			return fmt.Errorf("registrando boleta: %w", err)
		}
		v.Boletas = append(v.Boletas, b)
		venta = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("venta_id", ventaID.String()).Str("tipo", string(tipo)).Str("folio", folio).Msg("boleta registrada")
	return ventaToResponse(venta), nil
}

// PendientesBoleta lists the cash sales of the open session still missing a
// receipt.
func (s *boletaService) PendientesBoleta(ctx context.Context) ([]dto.BoletaPendienteResponse, error) {
	sesion, err := s.cajaRepo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando la sesión activa")
	}
	if sesion == nil {
		return nil, apperror.NoSession()
	}
	ventas, err := s.ventaRepo.ListConEfectivo(ctx, sesion.ID)
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando ventas")
	}
	return pendientesBoleta(ventas), nil
}

// boletaPendiente splits the cash paid for v into its exempt and taxable
// parts. Cash covers exempt goods first since cards cannot pay for them.
func boletaPendiente(v *model.Venta) (dto.BoletaPendienteResponse, bool) {
	efectivo := v.MontoEfectivo
	exentoEfectivo := decimal.Min(v.TotalExento, efectivo)
	afectoEfectivo := decimal.Min(v.TotalAfecto, decimal.Max(efectivo.Sub(exentoEfectivo), decimal.Zero))

	faltaAfecta := afectoEfectivo.IsPositive() && !v.TieneBoleta(model.BoletaAfecta)
	faltaExenta := exentoEfectivo.IsPositive() && !v.TieneBoleta(model.BoletaExenta)
	return dto.BoletaPendienteResponse{
		VentaID:        v.ID.String(),
		Total:          v.Total,
		AfectoEfectivo: afectoEfectivo,
		ExentoEfectivo: exentoEfectivo,
		FaltaAfecta:    faltaAfecta,
		FaltaExenta:    faltaExenta,
		CreatedAt:      fecha(v.CreatedAt),
	}, faltaAfecta || faltaExenta
}

func pendientesBoleta(ventas []model.Venta) []dto.BoletaPendienteResponse {
	out := make([]dto.BoletaPendienteResponse, 0)
	for i := range ventas {
		if ventas[i].Tipo != model.VentaNormal || ventas[i].Anulada {
			continue
		}
		if p, ok := boletaPendiente(&ventas[i]); ok {
			out = append(out, p)
		}
	}
	return out
}
