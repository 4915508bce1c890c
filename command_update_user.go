package pileapi

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type UpdateUserMessage struct {
	UserID  string
	Payload UserUpdatePayload
}

func (e UpdateUserMessage) Type() string { return "user.update" }

type UpdateUserHandler struct {
	repo   RepositoryManager
	hasher PasswordAuthenticator
}

func NewUpdateUserHandler(repo RepositoryManager, hasher PasswordAuthenticator) *UpdateUserHandler {
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	return &UpdateUserHandler{repo: repo, hasher: hasher}
}

// Execute applies the non nil payload fields. A new password is hashed and
// a new email must not belong to another account.
func (h *UpdateUserHandler) Execute(ctx context.Context, event UpdateUserMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	p := event.Payload

	var hash string
	if p.Password != nil {
		var err error
		if hash, err = h.hasher.HashPassword(*p.Password); err != nil {
			return nil, err
		}
	}

	var phone *string
	if p.Phone != nil {
		v := strings.TrimSpace(*p.Phone)
		if v != "" {
			normalized, err := NormalizePhone(v, DefaultPhoneRegion)
			if err != nil {
				return nil, NewValidationError(map[string]string{"Phone": "must be a valid phone number"})
			}
			v = normalized
		}
		phone = &v
	}

	var updated *User
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIDTx(ctx, tx, event.UserID)
		if err != nil {
			return err
		}

		if p.Email != nil {
			email := strings.TrimSpace(*p.Email)
			if email != user.Email {
				if _, err := h.repo.Users().GetByEmailTx(ctx, tx, email); err == nil {
					return ErrEmailTaken.WithMetadata(map[string]any{"email": email})
				} else if !IsNotFound(err) {
					return err
				}
				user.Email = email
			}
		}

		if p.FirstName != nil {
			user.FirstName = strings.TrimSpace(*p.FirstName)
		}
		if p.LastName != nil {
			user.LastName = strings.TrimSpace(*p.LastName)
		}
		if p.Company != nil {
			user.Company = strings.TrimSpace(*p.Company)
		}
		if phone != nil {
			user.Phone = *phone
		}
		if hash != "" {
			user.PasswordHash = hash
		}

		updated, err = h.repo.Users().UpdateTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}
