package model

import "time"

// Mode is a presentation toggle for how much guidance the client shows.
// It is not an authorization level; see Role for that.
type Mode string

const (
	ModeBeginner     Mode = "beginner"
	ModeIntermediate Mode = "intermediate"
)

func (m Mode) Valid() bool { return m == ModeBeginner || m == ModeIntermediate }

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type Preferences struct {
	Theme           Theme  `json:"theme"                     yaml:"theme"`
	Notifications   bool   `json:"notifications"             yaml:"notifications"`
	Language        string `json:"language"                  yaml:"language"`
	SelectedProject string `json:"selectedProject,omitempty" yaml:"selectedProject,omitempty"`
}

// DefaultPreferences are applied to newly registered users.
func DefaultPreferences() Preferences {
	return Preferences{Theme: ThemeLight, Notifications: true, Language: "en"}
}

// User is a registered account.
//
// Email is stored lowercase so that uniqueness is case-insensitive.
// PasswordHash is never serialised; GitHubID is set for accounts that
// signed in through GitHub at least once.
type User struct {
	ID           string         `json:"id"                    db:"id"`
	Name         string         `json:"name"                  db:"name"`
	Email        string         `json:"email"                 db:"email"`
	PasswordHash string         `json:"-"                     db:"password_hash"`
	Mode         Mode           `json:"mode"                  db:"mode"`
	Role         Role           `json:"role"                  db:"role"`
	Preferences  Preferences    `json:"preferences"           db:"preferences"`
	Progress     []UserProgress `json:"progress"              db:"progress"`
	GitHubID     int64          `json:"githubId,omitempty"    db:"github_id"`
	IsActive     bool           `json:"isActive"              db:"is_active"`
	LastLoginAt  *time.Time     `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time      `json:"createdAt"             db:"created_at"`
	UpdatedAt    time.Time      `json:"updatedAt"             db:"updated_at"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// UserProgress is a user's completion state for one template.
// CompletedSteps is a set; it is kept sorted so the stored form is stable.
type UserProgress struct {
	TemplateID     string    `json:"templateId"`
	CompletedSteps []string  `json:"completedSteps"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	TimeSpent      int       `json:"timeSpent"`
}

// UserStats is derived from a user's progress records.
type UserStats struct {
	TotalTemplatesStarted int        `json:"totalTemplatesStarted"`
	TotalStepsCompleted   int        `json:"totalStepsCompleted"`
	CategoriesExplored    []Category `json:"categoriesExplored"`
	AverageProgress       float64    `json:"averageProgress"`
	LastActivity          *time.Time `json:"lastActivity"`
}
