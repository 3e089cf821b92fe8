// Package users is the in-process user directory: identities, roles and
// password checks for the wallet API.
package users

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is a wallet holder or an admin.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user may review requests.
func (u User) IsAdmin() bool {
	return u.Role == domain.RoleAdmin
}

// Directory is a concurrency-safe user registry keyed by id and email.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
	cost    int
}

// Option configures a Directory.
type Option func(*Directory)

// WithBcryptCost sets the bcrypt work factor.
func WithBcryptCost(cost int) Option {
	return func(d *Directory) {
		d.cost = cost
	}
}

func NewDirectory(opts ...Option) *Directory {
	d := &Directory{
		byID:    map[string]User{},
		byEmail: map[string]string{},
		cost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register creates a user with a fresh id. An empty role means RoleUser.
func (d *Directory) Register(name, email, password, role string) (User, error) {
	return d.add(uuid.NewString(), name, email, password, role)
}

// Authenticate returns the user whose email and password match.
func (d *Directory) Authenticate(email, password string) (User, error) {
	d.mu.RLock()
	id, ok := d.byEmail[normalizeEmail(email)]
	var u User
	if ok {
		u = d.byID[id]
	}
	d.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := comparePassword(u.PasswordHash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Get returns the user with id.
func (d *Directory) Get(id string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// Exists reports whether id is a known user.
func (d *Directory) Exists(id string) bool {
	_, err := d.Get(id)
	return err == nil
}

// List returns every user ordered by email.
func (d *Directory) List() []User {
	d.mu.RLock()
	out := make([]User, 0, len(d.byID))
	for _, u := range d.byID {
		out = append(out, u)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func (d *Directory) add(id, name, email, password, role string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return User{}, fmt.Errorf("email and password are required")
	}
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return User{}, fmt.Errorf("unsupported role %q", role)
	}
	hash, err := hashPassword(password, d.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.byEmail[email]; taken {
		return User{}, ErrUserExists
	}
	if _, taken := d.byID[id]; taken {
		return User{}, ErrUserExists
	}
	u := User{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	d.byID[id] = u
	d.byEmail[email] = id
	return u, nil
}

// SeedUser is one entry of a seed file.
type SeedUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// DefaultSeed is the demo population used when no seed file is given.
func DefaultSeed(password string) []SeedUser {
	return []SeedUser{
		{ID: "admin-1", Name: "Admin", Email: "admin@wallet.local", Role: domain.RoleAdmin, Password: password},
		{ID: "user-1", Name: "Alice", Email: "alice@wallet.local", Role: domain.RoleUser, Password: password},
		{ID: "user-2", Name: "Bob", Email: "bob@wallet.local", Role: domain.RoleUser, Password: password},
	}
}

// Seed adds every entry, giving blank ids a fresh uuid.
func (d *Directory) Seed(entries []SeedUser) error {
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := d.add(id, e.Name, e.Email, e.Password, e.Role); err != nil {
			return fmt.Errorf("seed user %s: %w", e.Email, err)
		}
	}
	return nil
}

// LoadSeedFile reads a JSON array of SeedUser.
func LoadSeedFile(path string) ([]SeedUser, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var entries []SeedUser
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return entries, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Passwords are pre-hashed with sha256 so bcrypt's 72 byte limit never
// truncates them.
func hashPassword(password string, cost int) (string, error) {
	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], cost)
	return string(hash), err
}

func comparePassword(hash, password string) error {
	sum := sha256.Sum256([]byte(password))
	return bcrypt.CompareHashAndPassword([]byte(hash), sum[:])
}
