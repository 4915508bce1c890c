package pileapi

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Projects stores pile design records scoped to their owner. Every lookup
// filters by owner so a project id alone never reaches another user's data.
type Projects interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Project, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Project, error)
	Create(ctx context.Context, record *Project) (*Project, error)
	Update(ctx context.Context, record *Project) (*Project, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type projects struct {
	repository.Repository[*Project]
	db  bun.IDB
	now func() time.Time
}

var _ Projects = (*projects)(nil)

// NewProjectsRepository creates a bun backed Projects store
func NewProjectsRepository(db bun.IDB) Projects {
	repo := repository.NewRepository[*Project](db, repository.ModelHandlers[*Project]{
		NewRecord: func() *Project { return &Project{} },
		GetID: func(p *Project) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Project, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string { return "id" },
	})
	return &projects{Repository: repo, db: db, now: time.Now}
}

// ListByOwner returns every project of ownerID, oldest first
func (p *projects) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Project, error) {
	records, _, err := p.Repository.List(ctx,
		ownedBy(ownerID),
		repository.OrderBy("prj.created_at ASC"),
		repository.Paginate(0, 0),
	)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return records, nil
}

func (p *projects) Get(ctx context.Context, ownerID, id uuid.UUID) (*Project, error) {
	record, err := p.Repository.GetByID(ctx, id.String(), ownedBy(ownerID))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return record, nil
}

func (p *projects) Create(ctx context.Context, record *Project) (*Project, error) {
	now := p.now()
	record.CreatedAt = now
	record.ModifiedAt = now

	created, err := p.Repository.Create(ctx, record)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return created, nil
}

// Update replaces the project payload and bumps modified_at. Rows owned by
// someone else are not matched and yield ErrRecordNotFound.
func (p *projects) Update(ctx context.Context, record *Project) (*Project, error) {
	record.ModifiedAt = p.now()

	updated, err := p.Repository.Update(ctx, record,
		repository.UpdateSetColumn("meta", record.Meta),
		repository.UpdateSetColumn("soil_profile", record.SoilProfile),
		repository.UpdateSetColumn("foundation_details", record.FoundationDetails),
		repository.UpdateSetColumn("modified_at", record.ModifiedAt),
		repository.UpdateBy("user_id", "=", record.UserID.String()),
	)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return updated, nil
}

func (p *projects) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := p.db.NewDelete().
		Model((*Project)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return mapStoreError(err)
	}
	return ensureAffected(res)
}

func ownedBy(ownerID uuid.UUID) repository.SelectCriteria {
	return repository.SelectBy("user_id", "=", ownerID.String())
}
