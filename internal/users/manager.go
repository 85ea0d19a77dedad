package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yosihaf/wikibook/internal/recorddb"
)

// Collection is the record database collection holding user accounts.
const Collection = "AppUser"

const userFields = `_docID
username
email
full_name
password_hash
role
can_generate_pdf
wiki_api_url
wiki_api_key
last_login
created_at`

// ErrNotFound is returned when no user matches a lookup.
var ErrNotFound = fmt.Errorf("user not found")

// ErrUsernameTaken is returned when creating a user with a username that
// already exists.
var ErrUsernameTaken = fmt.Errorf("username already taken")

// Manager provides CRUD access to user accounts.
type Manager struct {
	db     *recorddb.Client
	logger *slog.Logger
}

// NewManager creates a user account manager.
func NewManager(db *recorddb.Client, logger *slog.Logger) *Manager {
	return &Manager{db: db, logger: logger.With("component", "users")}
}

// Create persists a new user account and returns its database ID.
func (m *Manager) Create(ctx context.Context, u *User) (string, error) {
	if u.Username == "" {
		return "", fmt.Errorf("username is required")
	}
	if _, err := m.FindByUsername(ctx, u.Username); err == nil {
		return "", ErrUsernameTaken
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	doc := map[string]any{
		"username":         u.Username,
		"password_hash":    u.PasswordHash,
		"role":             string(u.Role),
		"can_generate_pdf": u.Settings.CanGeneratePDF,
		"created_at":       u.CreatedAt.Format(time.RFC3339),
	}
	if u.Email != "" {
		doc["email"] = u.Email
	}
	if u.FullName != "" {
		doc["full_name"] = u.FullName
	}
	if u.Settings.WikiAPIURL != "" {
		doc["wiki_api_url"] = u.Settings.WikiAPIURL
	}
	if u.Settings.WikiAPIKey != "" {
		doc["wiki_api_key"] = u.Settings.WikiAPIKey
	}

	id, err := m.db.Create(ctx, Collection, doc)
	if err != nil {
		return "", fmt.Errorf("creating user: %w", err)
	}
	u.ID = id

	m.logger.Info("user created", "username", u.Username, "role", u.Role)
	return id, nil
}

// Get returns the user with the given database ID.
func (m *Manager) Get(ctx context.Context, id string) (*User, error) {
	if err := recorddb.ValidateID(id); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`query {
		%s(filter: {_docID: {_eq: %q}}) {
			%s
		}
	}`, Collection, id, userFields)

	users, err := m.queryUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return users[0], nil
}

// FindByUsername returns the user with the given username.
func (m *Manager) FindByUsername(ctx context.Context, username string) (*User, error) {
	query := fmt.Sprintf(`query {
		%s(filter: {username: {_eq: %q}}) {
			%s
		}
	}`, Collection, username, userFields)

	users, err := m.queryUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return users[0], nil
}

// List returns all user accounts.
func (m *Manager) List(ctx context.Context) ([]*User, error) {
	query := fmt.Sprintf(`query {
		%s(order: {created_at: ASC}) {
			%s
		}
	}`, Collection, userFields)

	return m.queryUsers(ctx, query)
}

// UpdateSettings applies new per-user settings.
func (m *Manager) UpdateSettings(ctx context.Context, id string, s Settings) error {
	return m.update(ctx, id, map[string]any{
		"can_generate_pdf": s.CanGeneratePDF,
		"wiki_api_url":     s.WikiAPIURL,
		"wiki_api_key":     s.WikiAPIKey,
	})
}

// SetRole changes a user's role.
func (m *Manager) SetRole(ctx context.Context, id string, role Role) error {
	return m.update(ctx, id, map[string]any{"role": string(role)})
}

// TouchLastLogin stamps the user's last successful login time.
func (m *Manager) TouchLastLogin(ctx context.Context, id string) error {
	return m.update(ctx, id, map[string]any{
		"last_login": time.Now().UTC().Format(time.RFC3339),
	})
}

// Delete removes a user account.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := recorddb.ValidateID(id); err != nil {
		return err
	}
	if err := m.db.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	m.logger.Info("user deleted", "id", id)
	return nil
}

func (m *Manager) update(ctx context.Context, id string, fields map[string]any) error {
	if err := recorddb.ValidateID(id); err != nil {
		return err
	}
	if err := m.db.Update(ctx, Collection, id, fields); err != nil {
		return fmt.Errorf("updating user %s: %w", id, err)
	}
	return nil
}

func (m *Manager) queryUsers(ctx context.Context, query string) ([]*User, error) {
	resp, err := m.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}

	docs, ok := resp.Data[Collection].([]any)
	if !ok {
		return nil, nil
	}

	users := make([]*User, 0, len(docs))
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}
		users = append(users, parseUser(doc))
	}
	return users, nil
}

func parseUser(doc map[string]any) *User {
	u := &User{
		ID:           stringField(doc, "_docID"),
		Username:     stringField(doc, "username"),
		Email:        stringField(doc, "email"),
		FullName:     stringField(doc, "full_name"),
		PasswordHash: stringField(doc, "password_hash"),
		Role:         Role(stringField(doc, "role")),
		Settings: Settings{
			WikiAPIURL: stringField(doc, "wiki_api_url"),
			WikiAPIKey: stringField(doc, "wiki_api_key"),
		},
	}
	if v, ok := doc["can_generate_pdf"].(bool); ok {
		u.Settings.CanGeneratePDF = v
	}
	u.LastLogin = timeField(doc, "last_login")
	u.CreatedAt = timeField(doc, "created_at")
	return u
}

func stringField(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func timeField(doc map[string]any, key string) time.Time {
	s := stringField(doc, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
