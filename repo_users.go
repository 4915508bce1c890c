package pileapi

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

const pgUniqueViolation = "23505"

// Users is the credential store adapter
type Users interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetWithProjects(ctx context.Context, id string) (*User, error)

	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Update(ctx context.Context, record *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var _ Users = (*users)(nil)

// UsersOption configures the users repository
type UsersOption func(*users)

// WithUsersClock overrides the clock used for timestamps
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

// NewUsersRepository creates a bun backed Users store
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string { return "email" },
	})

	u := &users{Repository: repo, db: db, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

func (a *users) GetByID(ctx context.Context, id string) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

// GetByIDTx returns ErrRecordNotFound for ids that are not valid UUIDs,
// which lets tokens with forged ids fail closed.
func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrRecordNotFound.Wrap(err)
	}

	record, err := a.Repository.GetByIDTx(ctx, tx, uid.String())
	if err != nil {
		return nil, mapStoreError(err)
	}
	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

// GetByEmailTx matches the email exactly as stored
func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record, err := a.Repository.GetTx(ctx, tx, repository.SelectBy("email", "=", email))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return record, nil
}

func (a *users) GetWithProjects(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrRecordNotFound.Wrap(err)
	}

	record, err := a.Repository.GetByID(ctx, uid.String(),
		repository.Relation("Projects", repository.OrderBy("prj.created_at ASC")),
	)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if record.Projects == nil {
		record.Projects = []*Project{}
	}
	return record, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

// CreateTx inserts record. A unique index hit on email maps to ErrEmailTaken
// so racing registrations surface as a conflict.
func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record, a.now())

	created, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, mapUserWriteError(err, record.Email)
	}
	return created, nil
}

func (a *users) Update(ctx context.Context, record *User) (*User, error) {
	return a.UpdateTx(ctx, a.db, record)
}

// UpdateTx writes the mutable profile columns and bumps modified_at. Columns
// are set explicitly so cleared values such as an empty phone are stored.
func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	record.ModifiedAt = a.now()

	updated, err := a.Repository.UpdateTx(ctx, tx, record,
		repository.UpdateSetColumn("first_name", record.FirstName),
		repository.UpdateSetColumn("last_name", record.LastName),
		repository.UpdateSetColumn("email", record.Email),
		repository.UpdateSetColumn("company", record.Company),
		repository.UpdateSetColumn("phone_number", record.Phone),
		repository.UpdateSetColumn("password_hash", record.PasswordHash),
		repository.UpdateSetColumn("modified_at", record.ModifiedAt),
	)
	if err != nil {
		return nil, mapUserWriteError(err, record.Email)
	}
	return updated, nil
}

func (a *users) Delete(ctx context.Context, id uuid.UUID) error {
	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return a.DeleteTx(ctx, tx, id)
	})
}

// DeleteTx removes the user and every project they own
func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	if _, err := tx.NewDelete().
		Model((*Project)(nil)).
		Where("user_id = ?", id).
		Exec(ctx); err != nil {
		return mapStoreError(err)
	}

	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapStoreError(err)
	}
	return ensureAffected(res)
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

// TrackSuccessfulLoginTx stamps last_activity_at with the current time
func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	now := a.now()

	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("last_activity_at = ?", now).
		Where("id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return mapStoreError(err)
	}

	if err := ensureAffected(res); err != nil {
		return err
	}

	user.LastActivityAt = &now
	return nil
}

func prepareUserDefaults(record *User, now time.Time) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	if record.ModifiedAt.IsZero() {
		record.ModifiedAt = now
	}

	if record.LastActivityAt == nil {
		record.LastActivityAt = &now
	}
}

func ensureAffected(res sql.Result) error {
	if err := repository.SQLExpectedCount(res, 1); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if repository.IsRecordNotFound(err) {
		return ErrRecordNotFound.Wrap(err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ErrStoreUnavailable.Wrap(err)
}

func mapUserWriteError(err error, email string) error {
	if isUniqueViolation(err) {
		return ErrEmailTaken.Wrap(err).WithMetadata(map[string]any{"email": email})
	}
	return mapStoreError(err)
}

// isUniqueViolation reports a unique index hit from postgres (23505) or
// sqlite. The email index is the only unique key a caller can collide on.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
