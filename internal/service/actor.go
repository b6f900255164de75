package service

import (
	"posmarket/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated user an operation runs for.
type Actor struct {
	UsuarioID uuid.UUID
	Rol       string
}

// EsAdmin reports whether the actor may see other users' sales and the
// session history.
func (a Actor) EsAdmin() bool {
	return a.Rol == model.RolAdministrador || a.Rol == model.RolSupervisor
}
