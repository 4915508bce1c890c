package pileapi

import (
	"context"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName string
	LastName  string
	Company   string
	Email     string
	Phone     string
	Password  string
	UseHashid bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserMessageFromPayload builds the command from a validated payload
func RegisterUserMessageFromPayload(p RegistrationCreatePayload, useHashid bool) RegisterUserMessage {
	return RegisterUserMessage{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Company:   p.Company,
		Email:     p.Email,
		Phone:     p.Phone,
		Password:  p.Password,
		UseHashid: useHashid,
	}
}

type RegisterUserHandler struct {
	repo         RepositoryManager
	hasher       PasswordAuthenticator
	logger       Logger
	activitySink ActivitySink
}

func NewRegisterUserHandler(repo RepositoryManager, hasher PasswordAuthenticator) *RegisterUserHandler {
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	return &RegisterUserHandler{
		repo:         repo,
		hasher:       hasher,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (h *RegisterUserHandler) WithLogger(l Logger) *RegisterUserHandler {
	h.logger = normalizeLogger(l)
	return h
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

// Execute creates the account. An email already on file yields ErrEmailTaken.
func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	hash, err := h.hasher.HashPassword(event.Password)
	if err != nil {
		return nil, err
	}

	phone := event.Phone
	if phone != "" {
		if phone, err = NormalizePhone(phone, DefaultPhoneRegion); err != nil {
			return nil, NewValidationError(map[string]string{"Phone": "must be a valid phone number"})
		}
	}

	user := &User{
		FirstName:    event.FirstName,
		LastName:     event.LastName,
		Company:      event.Company,
		Email:        event.Email,
		Phone:        phone,
		PasswordHash: hash,
		Projects:     []*Project{},
	}

	// The nonce keeps a re-registered email from inheriting a deleted
	// account's id, and with it that account's tokens.
	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email + ":" + uuid.NewString()); err == nil {
			user.ID = id
		}
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrEmailTaken.WithMetadata(map[string]any{"email": event.Email})
		} else if !IsNotFound(err) {
			return err
		}

		created, err := h.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	emitActivity(ctx, h.activitySink, h.logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		UserID:    user.ID.String(),
	})

	return user, nil
}
