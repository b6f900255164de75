// seeduser creates the first user of a fresh database.
// Uso: go run ./cmd/seeduser -username admin -password secreto123 -rol administrador
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"posmarket/internal/config"
	"posmarket/internal/dto"
	"posmarket/internal/infra"
	"posmarket/internal/repository"
	"posmarket/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var req dto.CrearUsuarioRequest
	flag.StringVar(&req.Username, "username", envOr("SEED_USERNAME", "admin"), "login del usuario")
	flag.StringVar(&req.Nombre, "nombre", envOr("SEED_NOMBRE", "Administrador"), "nombre visible")
	flag.StringVar(&req.Password, "password", os.Getenv("SEED_PASSWORD"), "password (min 8)")
	flag.StringVar(&req.Rol, "rol", envOr("SEED_ROL", "administrador"), "cajero | supervisor | administrador")
	flag.Parse()

	if len(req.Password) < 8 {
		log.Fatal().Msg("password requerido (min 8 caracteres): use -password o SEED_PASSWORD")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := service.NewAuthService(repository.NewUsuarioRepository(db), cfg)
	u, err := svc.CrearUsuario(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Str("username", req.Username).Msg("no se pudo crear el usuario")
	}
	log.Info().Str("id", u.ID).Str("username", u.Username).Str("rol", u.Rol).Msg("usuario creado")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
