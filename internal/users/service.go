package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storedesk-backend/pkg/config"
	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages back-office accounts.
type Service interface {
	ListUsers(ctx context.Context, includeInactive bool) ([]UserDTO, error)
	GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserDTO, error)
	CreateFirstAdmin(ctx context.Context, req CreateUserRequest) (*UserDTO, error)
	UpdateUser(ctx context.Context, actorID, id uuid.UUID, req UpdateUserRequest) (*UserDTO, error)
	DeactivateUser(ctx context.Context, actorID, id uuid.UUID) error
}

type service struct {
	repo        *Repository
	dbClient    db.TxRunner
	passwordCfg config.PasswordConfig
}

func NewService(repo *Repository, dbClient db.TxRunner, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient, passwordCfg: passwordCfg}, nil
}

func (s *service) ListUsers(ctx context.Context, includeInactive bool) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) CreateUser(ctx context.Context, req CreateUserRequest) (*UserDTO, error) {
	dto, err := s.buildCreate(req)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, s.repo, dto)
}

// CreateFirstAdmin seeds the initial administrator. It is refused once any
// account exists.
func (s *service) CreateFirstAdmin(ctx context.Context, req CreateUserRequest) (*UserDTO, error) {
	req.Role = string(enums.RoleAdmin)
	dto, err := s.buildCreate(req)
	if err != nil {
		return nil, err
	}

	var created *UserDTO
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		count, err := txRepo.Count(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count users")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bootstrap is only allowed before any user exists")
		}
		created, err = s.insert(ctx, txRepo, dto)
		return err
	}); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) insert(ctx context.Context, repo *Repository, dto CreateUserDTO) (*UserDTO, error) {
	if _, err := repo.FindByUsername(ctx, dto.Username); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lookup username")
	}

	user, err := repo.Create(ctx, dto)
	if err != nil {
		return nil, translateWriteError(err, "db: insert user")
	}
	return FromModel(user), nil
}

func (s *service) UpdateUser(ctx context.Context, actorID, id uuid.UUID, req UpdateUserRequest) (*UserDTO, error) {
	var updated *models.User
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		user, err := load(ctx, txRepo, id)
		if err != nil {
			return err
		}
		wasActiveAdmin := user.IsActive && user.Role == enums.RoleAdmin

		if req.Email != nil {
			user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.FirstName != nil {
			user.FirstName = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil {
			user.LastName = strings.TrimSpace(*req.LastName)
		}
		if req.Role != nil {
			role, err := enums.ParseRole(*req.Role)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
			}
			user.Role = role
		}
		if req.Password != nil {
			hash, err := s.hashPassword(*req.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}
		if req.IsActive != nil && !*req.IsActive && user.IsActive {
			if err := guardDeactivation(ctx, txRepo, actorID, user); err != nil {
				return err
			}
			user.IsActive = false
		} else if req.IsActive != nil && *req.IsActive {
			user.IsActive = true
		}

		if wasActiveAdmin && !(user.IsActive && user.Role == enums.RoleAdmin) {
			if err := guardLastAdmin(ctx, txRepo); err != nil {
				return err
			}
		}

		if err := txRepo.Save(ctx, user); err != nil {
			return translateWriteError(err, "db: update user")
		}
		updated = user
		return nil
	}); err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// DeactivateUser soft-deletes an account. The actor cannot deactivate themselves
// and the last active account always survives.
func (s *service) DeactivateUser(ctx context.Context, actorID, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		user, err := load(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return nil
		}
		if err := guardDeactivation(ctx, txRepo, actorID, user); err != nil {
			return err
		}
		wasAdmin := user.Role == enums.RoleAdmin
		user.IsActive = false
		if wasAdmin {
			if err := guardLastAdmin(ctx, txRepo); err != nil {
				return err
			}
		}
		if err := txRepo.Save(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: deactivate user")
		}
		return nil
	})
}

// buildCreate validates a create request and hashes its password.
func (s *service) buildCreate(req CreateUserRequest) (CreateUserDTO, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return CreateUserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	role, err := enums.ParseRole(req.Role)
	if err != nil {
		return CreateUserDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return CreateUserDTO{}, err
	}
	return CreateUserDTO{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
	}, nil
}

func (s *service) hashPassword(password string) (string, error) {
	if err := security.CheckPasswordPolicy(password); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}

func guardDeactivation(ctx context.Context, repo *Repository, actorID uuid.UUID, user *models.User) error {
	if user.ID == actorID {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "you cannot deactivate your own account")
	}
	active, err := repo.CountActive(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count active users")
	}
	if active <= 1 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "the last active user cannot be deactivated")
	}
	return nil
}

// guardLastAdmin runs before the change is saved, so one remaining active admin
// means the user being changed is that admin.
func guardLastAdmin(ctx context.Context, repo *Repository) error {
	admin := enums.RoleAdmin
	admins, err := repo.CountActive(ctx, &admin)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count active admins")
	}
	if admins <= 1 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "at least one active admin is required")
	}
	return nil
}

func load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.User, error) {
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	return user, nil
}

func translateWriteError(err error, msg string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "username already taken")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
