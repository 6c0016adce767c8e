package store

import "time"

// Customer is a host account.
type Customer struct {
	ID                  int64  `gorm:"primaryKey"`
	CustomerGUID        string `gorm:"uniqueIndex;size:36;not null"`
	Username            string `gorm:"index;size:255"`
	Email               string `gorm:"index;size:255"`
	PasswordHash        string `gorm:"size:255"`
	Active              bool   `gorm:"not null;default:false"`
	Deleted             bool   `gorm:"not null;default:false"`
	FailedLoginAttempts int    `gorm:"not null;default:0"`
	CannotLoginUntil    *time.Time
	LastLoginAt         *time.Time
	Roles               []CustomerRole `gorm:"many2many:customer_role_mappings"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CustomerRole is a named role. Inactive roles are not reported on identities.
type CustomerRole struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"size:255;not null"`
	SystemName   string `gorm:"uniqueIndex;size:255;not null"`
	Active       bool   `gorm:"not null"`
	IsSystemRole bool   `gorm:"not null;default:false"`
}

// ActivityLog is one customer activity entry.
type ActivityLog struct {
	ID          int64  `gorm:"primaryKey"`
	CustomerID  int64  `gorm:"index;not null"`
	EventName   string `gorm:"index;size:100;not null"`
	Description string `gorm:"size:1000"`
	RequestID   string `gorm:"size:64"`
	CreatedAt   time.Time
}

// Setting is a persisted host setting.
type Setting struct {
	Name  string `gorm:"primaryKey;size:200"`
	Value string `gorm:"size:2000"`
}

// Setting names.
const (
	SettingAPIEnabled       = "apisettings.enableapi"
	SettingUsernamesEnabled = "customersettings.usernamesenabled"
)

// RoleRegistered is the role every customer allowed to log in holds.
const RoleRegistered = "Registered"

// Models lists every table the store owns, for migration.
func Models() []any {
	return []any{&Customer{}, &CustomerRole{}, &ActivityLog{}, &Setting{}}
}
