package service

import (
	"context"
	"time"

	"clothes-shop/internal/domain"
	"clothes-shop/internal/repository"

	"go.uber.org/zap"
)

// PolicyService manages the persisted admin settings behind the edit policy
type PolicyService interface {
	GetSettings(ctx context.Context, identity domain.Identity) (*domain.AdminSettings, error)
	SetEditLock(ctx context.Context, identity domain.Identity, locked bool) (*domain.AdminSettings, error)
}

type policyService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewPolicyService creates a new instance of PolicyService
func NewPolicyService(store repository.Store, logger *zap.Logger) PolicyService {
	return &policyService{store: store, logger: logger}
}

func (s *policyService) GetSettings(ctx context.Context, identity domain.Identity) (*domain.AdminSettings, error) {
	if err := identity.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.store.Repos().Settings.Get(ctx)
}

// SetEditLock restricts catalog and order edits to superusers, or lifts the
// restriction. Any admin may toggle it.
func (s *policyService) SetEditLock(ctx context.Context, identity domain.Identity, locked bool) (*domain.AdminSettings, error) {
	if err := identity.RequireAdmin(); err != nil {
		return nil, err
	}

	settings := &domain.AdminSettings{
		EditLocked: locked,
		UpdatedBy:  &identity.UserID,
		UpdatedAt:  time.Now(),
	}
	if err := s.store.Repos().Settings.Update(ctx, settings); err != nil {
		return nil, err
	}

	s.logger.Info("Edit lock changed",
		zap.Bool("locked", locked),
		zap.String("admin_id", identity.UserID.String()),
	)

	return settings, nil
}

// authorizeEdit evaluates the edit policy against the settings visible to
// the current transaction
func authorizeEdit(ctx context.Context, repos repository.Repositories, identity domain.Identity) error {
	if err := identity.RequireAdmin(); err != nil {
		return err
	}

	settings, err := repos.Settings.Get(ctx)
	if err != nil {
		return err
	}

	return domain.EditPolicy{Settings: *settings}.Authorize(identity)
}

// authorizeDelete requires a superuser regardless of the lock
func authorizeDelete(ctx context.Context, repos repository.Repositories, identity domain.Identity) error {
	if err := authorizeEdit(ctx, repos, identity); err != nil {
		return err
	}
	return domain.EditPolicy{}.AuthorizeDelete(identity)
}
