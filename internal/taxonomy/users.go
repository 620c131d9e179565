// internal/taxonomy/users.go
package taxonomy

import (
	"context"
	"sort"
	"strings"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/models"
	"taqyim/internal/store"
)

// CreateUser inserts a directory record for an administrative account. The
// email is the natural key: creating a second user with the same address
// fails.
func (s *Service) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	if u.ID == "" {
		u.ID = newID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt

	if err := u.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}

	if existing, err := s.FindUserByEmail(ctx, u.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperrors.NewDuplicateDocumentError(store.UserPath(existing.ID))
	}

	if err := s.docs.Create(ctx, store.UserPath(u.ID), u); err != nil {
		return nil, err
	}

	s.logger.Info("user created", map[string]interface{}{"userId": u.ID, "role": u.Role})
	return &u, nil
}

// GetUser loads one user.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.docs.Get(ctx, store.UserPath(id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByEmail returns the user with the given address, nil when none.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	docs, err := s.docs.List(ctx, store.CollUsers)
	if err != nil {
		return nil, err
	}
	for _, u := range decodeAll[models.User](docs, s.logger) {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

// ListUsers returns all users sorted by email.
func (s *Service) ListUsers(ctx context.Context, filter models.ListFilter) ([]models.User, error) {
	filter = filter.Normalize()

	docs, err := s.docs.List(ctx, store.CollUsers)
	if err != nil {
		return nil, err
	}

	all := decodeAll[models.User](docs, s.logger)
	filtered := all[:0]
	for _, u := range all {
		if filter.Search != "" && !containsFold(u.Email, filter.Search) && !containsFold(u.DisplayName, filter.Search) {
			continue
		}
		filtered = append(filtered, u)
	}

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Email < filtered[j].Email })
	lo, hi := page(filter, len(filtered))
	return filtered[lo:hi], nil
}

// UpdateUser applies the mutable profile fields. The email is immutable; it is
// the identity-provider link.
func (s *Service) UpdateUser(ctx context.Context, u models.User) (*models.User, error) {
	var current models.User
	if err := s.docs.Get(ctx, store.UserPath(u.ID), &current); err != nil {
		return nil, err
	}

	current.DisplayName = u.DisplayName
	current.Role = u.Role
	current.OrganizationID = u.OrganizationID
	current.Phone = u.Phone
	current.Language = u.Language
	current.Disabled = u.Disabled
	current.UpdatedAt = s.now()

	if err := current.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	if err := s.docs.Set(ctx, store.UserPath(u.ID), current); err != nil {
		return nil, err
	}
	return &current, nil
}

// DeleteUser removes the directory record.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, store.UserPath(id)); err != nil {
		return err
	}
	s.logger.Info("user deleted", map[string]interface{}{"userId": id})
	return nil
}
