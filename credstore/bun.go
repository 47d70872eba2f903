package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/uptrace/bun"
)

type userModel struct {
	bun.BaseModel `bun:"table:auth_users,alias:au"`

	ID           string    `bun:"id,pk"`
	Email        string    `bun:"email,notnull,unique"`
	Name         string    `bun:"name,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Roles        []string  `bun:"roles"`
	Permissions  []string  `bun:"permissions"`
	Active       bool      `bun:"active,notnull"`
	MFAVerified  bool      `bun:"mfa_verified,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func (m *userModel) credential() *authgate.Credential {
	return &authgate.Credential{
		SubjectID:    m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		Roles:        m.Roles,
		Permissions:  m.Permissions,
		Active:       m.Active,
		MFAVerified:  m.MFAVerified,
	}
}

// BunStore keeps credentials in table auth_users. Emails are stored lowercased.
type BunStore struct {
	db bun.IDB
}

// NewBunStore returns a store on db.
func NewBunStore(db bun.IDB) *BunStore {
	return &BunStore{db: db}
}

// CreateSchema creates auth_users when it does not exist.
func (s *BunStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*userModel)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create auth_users: %w", err)
	}
	return nil
}

// Insert adds c. A taken email yields ErrDuplicateEmail.
func (s *BunStore) Insert(ctx context.Context, c authgate.Credential) error {
	if c.SubjectID == "" || normalizeEmail(c.Email) == "" {
		return ErrInvalidCredential
	}

	existing, err := s.FindByEmail(ctx, c.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateEmail
	}

	now := time.Now().UTC()
	model := &userModel{
		ID:           c.SubjectID,
		Email:        normalizeEmail(c.Email),
		Name:         c.Name,
		PasswordHash: c.PasswordHash,
		Roles:        c.Roles,
		Permissions:  c.Permissions,
		Active:       c.Active,
		MFAVerified:  c.MFAVerified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail implements authgate.CredentialStore.
func (s *BunStore) FindByEmail(ctx context.Context, email string) (*authgate.Credential, error) {
	return s.findOne(ctx, "email = ?", normalizeEmail(email))
}

// FindByID implements authgate.CredentialStore.
func (s *BunStore) FindByID(ctx context.Context, subjectID string) (*authgate.Credential, error) {
	return s.findOne(ctx, "id = ?", subjectID)
}

func (s *BunStore) findOne(ctx context.Context, where string, arg any) (*authgate.Credential, error) {
	var model userModel
	err := s.db.NewSelect().
		Model(&model).
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return model.credential(), nil
}

// UpdatePasswordHash implements authgate.PasswordHashUpdater.
func (s *BunStore) UpdatePasswordHash(ctx context.Context, subjectID, newHash string) error {
	return s.update(ctx, subjectID, "password_hash = ?", newHash)
}

// SetActive enables or disables an account.
func (s *BunStore) SetActive(ctx context.Context, subjectID string, active bool) error {
	return s.update(ctx, subjectID, "active = ?", active)
}

func (s *BunStore) update(ctx context.Context, subjectID, set string, arg any) error {
	res, err := s.db.NewUpdate().
		Model((*userModel)(nil)).
		Set(set, arg).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", subjectID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var (
	_ authgate.CredentialStore     = (*BunStore)(nil)
	_ authgate.PasswordHashUpdater = (*BunStore)(nil)
)
