package pileapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the credential record plus profile. PasswordHash never leaves the
// process in JSON.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"_id"`
	FirstName      string     `bun:"first_name,notnull" json:"FirstName"`
	LastName       string     `bun:"last_name,notnull" json:"LastName"`
	Email          string     `bun:"email,notnull,unique" json:"Email"`
	Company        string     `bun:"company,notnull" json:"Company"`
	Phone          string     `bun:"phone_number" json:"Phone,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"AccountCreatedDate"`
	ModifiedAt     time.Time  `bun:"modified_at,nullzero,notnull,default:current_timestamp" json:"AccountModifiedDate"`
	LastActivityAt *time.Time `bun:"last_activity_at,nullzero" json:"LastActivityDate,omitempty"`
	Projects       []*Project `bun:"rel:has-many,join:id=user_id" json:"Projects"`
}

// Project is a pile design record owned by a user. The engineering payload
// is stored as JSON and is opaque to the service.
type Project struct {
	bun.BaseModel     `bun:"table:projects,alias:prj"`
	ID                uuid.UUID         `bun:"id,pk,type:uuid" json:"_id"`
	UserID            uuid.UUID         `bun:"user_id,type:uuid,notnull" json:"-"`
	CreatedAt         time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"CreatedDate"`
	ModifiedAt        time.Time         `bun:"modified_at,nullzero,notnull,default:current_timestamp" json:"ModifiedDate"`
	Meta              ProjectMeta       `bun:"meta" json:"Meta"`
	SoilProfile       SoilProfile       `bun:"soil_profile" json:"SoilProfile"`
	FoundationDetails FoundationDetails `bun:"foundation_details" json:"FoundationDetails"`
}

// ProjectMeta describes who a project is for
type ProjectMeta struct {
	Name     string `json:"Name"`
	Client   string `json:"Client"`
	Engineer string `json:"Engineer"`
	Notes    string `json:"Notes"`
}

// SoilProfile holds the layered soil description. The Layer* slices are
// parallel arrays indexed by layer.
type SoilProfile struct {
	GroundwaterDepth  float64   `json:"GroundwaterDepth"`
	IgnoredDepth      float64   `json:"IgnoredDepth"`
	Increment         float64   `json:"Increment"`
	LayerDepths       []float64 `json:"LayerDepths"`
	LayerNames        []string  `json:"LayerNames"`
	LayerUnitWeights  []float64 `json:"LayerUnitWeights"`
	LayerPhiOrCs      []string  `json:"LayerPhiOrCs"`
	LayerPhiOrCValues []float64 `json:"LayerPhiOrCValues"`
}

// FoundationDetails holds the pile parameters
type FoundationDetails struct {
	PileType      string      `json:"PileType"`
	Material      string      `json:"Material"`
	FS            float64     `json:"FS"`
	Widths        [][]float64 `json:"Widths"`
	BearingDepths []float64   `json:"BearingDepths"`
}

// Soil strength parameter kinds for LayerPhiOrCs
const (
	SoilParamPhi = "phi"
	SoilParamC   = "c"
)

// PublicUser is the minimal user shape returned on login
type PublicUser struct {
	ID string `json:"_id"`
}

// Public returns the login safe projection of u
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID.String()}
}
