// Package store is a reference host backed by gorm: customer accounts with
// bcrypt passwords, roles, persisted settings and an activity log.
//
// Store implements tokengate.CredentialValidator, tokengate.SettingsProvider
// and user.Backend, so a single instance can serve every host contract.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Open opens a SQLite database and migrates the store's tables.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("tokengate/store: open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the store's tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("tokengate/store: migrate: %w", err)
	}
	return nil
}

// Lockout configures account lockout after repeated wrong passwords.
// MaxAttempts == 0 disables lockout.
type Lockout struct {
	MaxAttempts int
	Window      time.Duration
}

// Store implements the host contracts on a gorm database.
type Store struct {
	db         *gorm.DB
	now        func() time.Time
	lockout    Lockout
	bcryptCost int
	defaults   tokengate.StaticSettings
}

// compile-time checks
var (
	_ tokengate.CredentialValidator = (*Store)(nil)
	_ tokengate.SettingsProvider    = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLockout enables account lockout.
func WithLockout(l Lockout) Option {
	return func(s *Store) { s.lockout = l }
}

// WithBcryptCost sets the bcrypt cost for new passwords.
func WithBcryptCost(cost int) Option {
	return func(s *Store) { s.bcryptCost = cost }
}

// WithDefaultSettings sets the values returned for settings that were never persisted.
func WithDefaultSettings(d tokengate.StaticSettings) Option {
	return func(s *Store) { s.defaults = d }
}

// New returns a Store over db. db must already be migrated.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:         db,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
		defaults:   tokengate.StaticSettings{API: true},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DB returns the underlying database handle.
func (s *Store) DB() *gorm.DB { return s.db }

// NewCustomer describes an account to create.
type NewCustomer struct {
	Username string
	Email    string
	Password string
	Active   bool
	Roles    []string // role system names; missing roles are created active
}

// CreateCustomer creates an account with a fresh external ID.
func (s *Store) CreateCustomer(ctx context.Context, nc NewCustomer) (*tokengate.Identity, error) {
	if nc.Username == "" && nc.Email == "" {
		return nil, fmt.Errorf("tokengate/store: username or email required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(nc.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("tokengate/store: hash password: %w", err)
	}

	c := Customer{
		CustomerGUID: uuid.NewString(),
		Username:     nc.Username,
		Email:        strings.ToLower(nc.Email),
		PasswordHash: string(hash),
		Active:       nc.Active,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range nc.Roles {
			role, err := firstOrCreateRole(tx, name)
			if err != nil {
				return err
			}
			c.Roles = append(c.Roles, *role)
		}
		return tx.Omit("Roles.*").Create(&c).Error
	})
	if err != nil {
		return nil, fmt.Errorf("tokengate/store: create customer: %w", err)
	}
	return s.FindByID(ctx, c.ID)
}

// DeleteCustomer marks an account deleted. Deleted accounts are no longer found
// by identity lookups and cannot log in.
func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&Customer{}).Where("id = ?", id).Update("deleted", true)
	if res.Error != nil {
		return fmt.Errorf("tokengate/store: delete customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return tokengate.ErrIdentityNotFound
	}
	return nil
}

// SetActive activates or deactivates an account.
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	res := s.db.WithContext(ctx).Model(&Customer{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("tokengate/store: set active: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return tokengate.ErrIdentityNotFound
	}
	return nil
}

// AddRole grants a role to an account, creating the role if needed.
func (s *Store) AddRole(ctx context.Context, id int64, roleName string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Customer
		if err := tx.First(&c, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tokengate.ErrIdentityNotFound
			}
			return fmt.Errorf("tokengate/store: add role: %w", err)
		}
		role, err := firstOrCreateRole(tx, roleName)
		if err != nil {
			return fmt.Errorf("tokengate/store: add role: %w", err)
		}
		if err := tx.Model(&c).Association("Roles").Append(role); err != nil {
			return fmt.Errorf("tokengate/store: add role: %w", err)
		}
		return nil
	})
}

func firstOrCreateRole(tx *gorm.DB, systemName string) (*CustomerRole, error) {
	role := CustomerRole{}
	err := tx.Where(CustomerRole{SystemName: systemName}).
		Attrs(CustomerRole{Name: systemName, Active: true}).
		FirstOrCreate(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// FindByUsername implements user.Backend. A miss returns (nil, nil).
func (s *Store) FindByUsername(ctx context.Context, username string) (*tokengate.Identity, error) {
	return s.findOne(ctx, "username = ?", username)
}

// FindByEmail implements user.Backend. A miss returns (nil, nil).
func (s *Store) FindByEmail(ctx context.Context, email string) (*tokengate.Identity, error) {
	return s.findOne(ctx, "email = ?", strings.ToLower(email))
}

// FindByID implements user.Backend. A miss returns (nil, nil).
func (s *Store) FindByID(ctx context.Context, id int64) (*tokengate.Identity, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (*tokengate.Identity, error) {
	var c Customer
	err := s.db.WithContext(ctx).
		Preload("Roles", "active = ?", true).
		Where(query, arg).
		Where("deleted = ?", false).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tokengate/store: find customer: %w", err)
	}
	return toIdentity(&c), nil
}

func toIdentity(c *Customer) *tokengate.Identity {
	roles := make([]string, 0, len(c.Roles))
	for _, r := range c.Roles {
		roles = append(roles, r.SystemName)
	}
	return &tokengate.Identity{
		ID:         c.ID,
		ExternalID: c.CustomerGUID,
		Username:   c.Username,
		Email:      c.Email,
		Active:     c.Active,
		Roles:      roles,
	}
}

// ValidateCredentials checks login/password. login is a username or an email
// depending on the persisted usernames setting.
func (s *Store) ValidateCredentials(ctx context.Context, login, password string) (tokengate.LoginOutcome, error) {
	usernames, err := s.UsernamesEnabled(ctx)
	if err != nil {
		return 0, err
	}

	q := s.db.WithContext(ctx).Preload("Roles", "active = ?", true)
	if usernames {
		q = q.Where("username = ?", login)
	} else {
		q = q.Where("email = ?", strings.ToLower(login))
	}
	var c Customer
	if err := q.First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tokengate.LoginCustomerNotExist, nil
		}
		return 0, fmt.Errorf("tokengate/store: validate credentials: %w", err)
	}

	now := s.now()
	switch {
	case c.Deleted:
		return tokengate.LoginDeleted, nil
	case !c.Active:
		return tokengate.LoginNotActive, nil
	case !toIdentity(&c).HasRole(RoleRegistered):
		return tokengate.LoginNotRegistered, nil
	case c.CannotLoginUntil != nil && c.CannotLoginUntil.After(now):
		return tokengate.LoginLockedOut, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		if err := s.recordFailure(ctx, &c, now); err != nil {
			return 0, err
		}
		return tokengate.LoginWrongPassword, nil
	}

	err = s.db.WithContext(ctx).Model(&Customer{}).Where("id = ?", c.ID).Updates(map[string]any{
		"failed_login_attempts": 0,
		"cannot_login_until":    nil,
		"last_login_at":         now,
	}).Error
	if err != nil {
		return 0, fmt.Errorf("tokengate/store: record login: %w", err)
	}
	return tokengate.LoginSuccessful, nil
}

func (s *Store) recordFailure(ctx context.Context, c *Customer, now time.Time) error {
	attempts := c.FailedLoginAttempts + 1
	updates := map[string]any{"failed_login_attempts": attempts}
	if s.lockout.MaxAttempts > 0 && attempts >= s.lockout.MaxAttempts {
		updates["failed_login_attempts"] = 0
		updates["cannot_login_until"] = now.Add(s.lockout.Window)
	}
	if err := s.db.WithContext(ctx).Model(&Customer{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("tokengate/store: record failed login: %w", err)
	}
	return nil
}

// EnsureAPIRole creates the API role if missing and activates it.
func (s *Store) EnsureAPIRole(ctx context.Context, systemName string) error {
	role := CustomerRole{}
	err := s.db.WithContext(ctx).
		Where(CustomerRole{SystemName: systemName}).
		Assign(CustomerRole{Name: "API Users", Active: true, IsSystemRole: true}).
		FirstOrCreate(&role).Error
	if err != nil {
		return fmt.Errorf("tokengate/store: ensure role %q: %w", systemName, err)
	}
	return nil
}

// DeactivateAPIRole deactivates the API role. Holders keep the mapping but
// the role no longer appears on their identity.
func (s *Store) DeactivateAPIRole(ctx context.Context, systemName string) error {
	err := s.db.WithContext(ctx).Model(&CustomerRole{}).
		Where("system_name = ?", systemName).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("tokengate/store: deactivate role %q: %w", systemName, err)
	}
	return nil
}

// APIEnabled implements tokengate.SettingsProvider.
func (s *Store) APIEnabled(ctx context.Context) (bool, error) {
	return s.boolSetting(ctx, SettingAPIEnabled, s.defaults.API)
}

// UsernamesEnabled implements tokengate.SettingsProvider.
func (s *Store) UsernamesEnabled(ctx context.Context) (bool, error) {
	return s.boolSetting(ctx, SettingUsernamesEnabled, s.defaults.Usernames)
}

// SetSetting persists a setting value.
func (s *Store) SetSetting(ctx context.Context, name, value string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Name: strings.ToLower(name), Value: value}).Error
	if err != nil {
		return fmt.Errorf("tokengate/store: set %s: %w", name, err)
	}
	return nil
}

func (s *Store) boolSetting(ctx context.Context, name string, def bool) (bool, error) {
	var st Setting
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return false, fmt.Errorf("tokengate/store: read %s: %w", name, err)
	}
	v, err := strconv.ParseBool(strings.TrimSpace(st.Value))
	if err != nil {
		return false, fmt.Errorf("tokengate/store: setting %s: %w", name, err)
	}
	return v, nil
}
