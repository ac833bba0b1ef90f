package models

import "time"

// Role is the closed set of user roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// CodeState tracks the confirmation code lifecycle: unset -> active -> consumed,
// with signup re-entering active from any state.
type CodeState string

const (
	CodeUnset    CodeState = "unset"
	CodeActive   CodeState = "active"
	CodeConsumed CodeState = "consumed"
)

// User is an account of the review service. The confirmation code is only
// ever stored as a bcrypt hash.
type User struct {
	ID          string    `json:"-" gorm:"primaryKey;type:varchar(36)"`
	Username    string    `json:"username" gorm:"uniqueIndex;type:varchar(150);not null"`
	Email       string    `json:"email" gorm:"uniqueIndex;type:varchar(254);not null"`
	FirstName   string    `json:"first_name" gorm:"type:varchar(150)"`
	LastName    string    `json:"last_name" gorm:"type:varchar(150)"`
	Bio         string    `json:"bio" gorm:"type:text"`
	Role        Role      `json:"role" gorm:"type:varchar(16);not null;default:'user'"`
	IsSuperuser bool      `json:"-" gorm:"not null;default:false"`
	CodeState   CodeState `json:"-" gorm:"type:varchar(16);not null;default:'unset'"`
	CodeHash    string    `json:"-" gorm:"type:varchar(72)"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// IsAdmin is true for the admin role and for superusers.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsSuperuser
}

func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

// IsStaff is true for moderators and admins.
func (u *User) IsStaff() bool {
	return u.IsModerator() || u.IsAdmin()
}

// IssueCode stores the hash of a freshly generated code, replacing any previous one.
func (u *User) IssueCode(hash string) {
	u.CodeHash = hash
	u.CodeState = CodeActive
}

// ConsumeCode burns the current code.
func (u *User) ConsumeCode() {
	u.CodeHash = ""
	u.CodeState = CodeConsumed
}

func (u *User) HasActiveCode() bool {
	return u.CodeState == CodeActive && u.CodeHash != ""
}
