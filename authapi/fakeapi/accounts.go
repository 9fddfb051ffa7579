package fakeapi

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
	"github.com/jrsteele09/rewine-client/users"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	user         *users.User
	passwordHash string
}

// accountRepo indexes accounts by id, email and username.
type accountRepo struct {
	accounts   map[string]*account
	emailIDs   map[string]string
	usernameID map[string]string
	lock       sync.RWMutex
}

func newAccountRepo() *accountRepo {
	return &accountRepo{
		accounts:   make(map[string]*account),
		emailIDs:   make(map[string]string),
		usernameID: make(map[string]string),
	}
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (ar *accountRepo) create(user *users.User, password string) (*users.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	ar.lock.Lock()
	defer ar.lock.Unlock()

	email := strings.ToLower(user.Email)
	username := strings.ToLower(user.Username)
	if _, ok := ar.emailIDs[email]; ok {
		return nil, apperrors.Wrapf(apperrors.ErrConflict, "email %s is already registered", user.Email)
	}
	if _, ok := ar.usernameID[username]; ok && username != "" {
		return nil, apperrors.Wrapf(apperrors.ErrConflict, "username %s is taken", user.Username)
	}

	u := user.Clone()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if len(u.Roles) == 0 {
		u.Roles = []users.RoleType{users.RoleUser}
	}
	ar.accounts[u.ID] = &account{user: u, passwordHash: hash}
	ar.emailIDs[email] = u.ID
	if username != "" {
		ar.usernameID[username] = u.ID
	}
	return u.Clone(), nil
}

// authenticate resolves identifier as an email or a username.
func (ar *accountRepo) authenticate(identifier, password string) (*users.User, bool) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	key := strings.ToLower(strings.TrimSpace(identifier))
	id, ok := ar.emailIDs[key]
	if !ok {
		id, ok = ar.usernameID[key]
	}
	if !ok {
		return nil, false
	}
	acc := ar.accounts[id]
	if !checkPasswordHash(password, acc.passwordHash) {
		return nil, false
	}
	return acc.user.Clone(), true
}

func (ar *accountRepo) byID(id string) (*users.User, bool) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	acc, ok := ar.accounts[id]
	if !ok {
		return nil, false
	}
	return acc.user.Clone(), true
}

func (ar *accountRepo) byEmail(email string) (*users.User, bool) {
	ar.lock.RLock()
	id, ok := ar.emailIDs[strings.ToLower(email)]
	ar.lock.RUnlock()
	if !ok {
		return nil, false
	}
	return ar.byID(id)
}

func (ar *accountRepo) update(id string, fn func(acc *account) error) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	acc, ok := ar.accounts[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	return fn(acc)
}
