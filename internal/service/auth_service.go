package service

import (
	"context"
	"errors"
	"time"

	"posmarket/internal/apperror"
	"posmarket/internal/config"
	"posmarket/internal/dto"
	"posmarket/internal/model"
	"posmarket/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrCredencialesInvalidas is returned for any failed login, whatever the cause.
var ErrCredencialesInvalidas = errors.New("credenciales invalidas")

const bcryptCost = 12

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	CrearUsuario(ctx context.Context, req dto.CrearUsuarioRequest) (*dto.UsuarioResponse, error)
}

type authService struct {
	repo repository.UsuarioRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.UsuarioRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByUsername(ctx, req.Username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCredencialesInvalidas
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrCredencialesInvalidas
	}

	token, err := s.generateToken(user, s.cfg.JWTExpiration())
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.cfg.JWTExpiration().Seconds()),
		User:        usuarioToResponse(user),
	}, nil
}

func (s *authService) CrearUsuario(ctx context.Context, req dto.CrearUsuarioRequest) (*dto.UsuarioResponse, error) {
	existe, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando usuario")
	}
	if existe {
		return nil, usuarioDuplicado(req.Username)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &model.Usuario{
		Username:     req.Username,
		Nombre:       req.Nombre,
		PasswordHash: string(hash),
		Rol:          req.Rol,
		Activo:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent insert of the same username.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, usuarioDuplicado(req.Username)
		}
		return nil, apperror.Wrap(err, "error creando usuario")
	}
	resp := usuarioToResponse(user)
	return &resp, nil
}

func usuarioDuplicado(username string) error {
	return apperror.Newf(apperror.InvalidCategory, "El usuario %s ya existe", username).With("username", username)
}

// generateToken signs the claims the auth middleware turns into an Actor.
func (s *authService) generateToken(user *model.Usuario, duration time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  user.ID.String(),
		"username": user.Username,
		"rol":      user.Rol,
		"exp":      now.Add(duration).Unix(),
		"iat":      now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func usuarioToResponse(u *model.Usuario) dto.UsuarioResponse {
	return dto.UsuarioResponse{ID: u.ID.String(), Username: u.Username, Nombre: u.Nombre, Rol: u.Rol}
}
