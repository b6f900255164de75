package worker

// cierre_worker.go
// Builds the close report PDF of a cash session and queues it for mailing.

import (
	"context"
	"encoding/json"
	"fmt"

	"posmarket/internal/infra"
	"posmarket/internal/model"
	"posmarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CierreCajaPayload is the job envelope sent to QueueCierreCaja.
type CierreCajaPayload struct {
	SesionCajaID string `json:"sesion_caja_id"`
}

type CierreWorker struct {
	cajaRepo       repository.CajaRepository
	dispatcher     *Dispatcher
	pdfStoragePath string
	destinatario   string
}

func NewCierreWorker(cajaRepo repository.CajaRepository, dispatcher *Dispatcher, pdfStoragePath, destinatario string) *CierreWorker {
	return &CierreWorker{
		cajaRepo:       cajaRepo,
		dispatcher:     dispatcher,
		pdfStoragePath: pdfStoragePath,
		destinatario:   destinatario,
	}
}

// Process renders the report of a CERRADA session. Without a configured
// recipient the PDF is still written to disk.
func (w *CierreWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CierreCajaPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("cierre_worker: invalid payload: %w", err)
	}
	id, err := uuid.Parse(payload.SesionCajaID)
	if err != nil {
		return fmt.Errorf("cierre_worker: invalid sesion_caja_id %q", payload.SesionCajaID)
	}

	sesion, err := w.cajaRepo.FindSesionByID(ctx, id)
	if err != nil {
		return fmt.Errorf("cierre_worker: loading session %s: %w", id, err)
	}
	if sesion.Estado != model.SesionCerrada {
		log.Warn().Str("sesion_caja_id", id.String()).Msg("cierre_worker: session still open, skipping")
		return nil
	}

	path, err := infra.GenerateCierrePDF(sesion, w.pdfStoragePath)
	if err != nil {
		return fmt.Errorf("cierre_worker: %w", err)
	}
	log.Info().Str("pdf", path).Str("sesion_caja_id", id.String()).Msg("cierre_worker: report generated")

	if w.destinatario == "" {
		return nil
	}
	var diferencia string
	if sesion.DiferenciaLocal != nil {
		diferencia = sesion.DiferenciaLocal.StringFixed(0)
	}
	job := EmailJobPayload{
		ToEmail:        w.destinatario,
		Subject:        fmt.Sprintf("Cierre de caja %s", sesion.OpenedAt.Format("02/01/2006")),
		Body:           fmt.Sprintf("Adjunto el cierre de caja.\nDiferencia caja local: $%s", diferencia),
		AttachmentPath: path,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, job); err != nil {
		return fmt.Errorf("cierre_worker: enqueue email: %w", err)
	}
	return nil
}
