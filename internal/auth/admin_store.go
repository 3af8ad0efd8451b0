package auth

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/2beens/orderbox/internal/telemetry/tracing"
	"github.com/2beens/orderbox/pkg"

	log "github.com/sirupsen/logrus"
)

// Admin is the single administrator account, persisted as JSON.
type Admin struct {
	Username string `json:"username"`
	Hash     string `json:"hash"`
	Salt     string `json:"salt"`
}

func (a *Admin) complete() bool {
	return a.Username != "" && a.Hash != "" && a.Salt != ""
}

// AdminStore keeps the admin account in a JSON file. The file is created
// with the default credentials when it is missing or unusable.
type AdminStore struct {
	path            string
	defaultUsername string
	defaultPassword string
	mutex           sync.Mutex
}

func NewAdminStore(path, defaultUsername, defaultPassword string) *AdminStore {
	return &AdminStore{
		path:            path,
		defaultUsername: defaultUsername,
		defaultPassword: defaultPassword,
	}
}

// Ensure returns the persisted admin account, creating and saving the default
// one if the file is absent, unreadable or incomplete. It returns nil only if
// no random salt could be generated.
func (s *AdminStore) Ensure(ctx context.Context) *Admin {
	_, span := tracing.GlobalTracer.Start(ctx, "adminStore.ensure")
	defer span.End()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var admin Admin
	err := pkg.ReadJSONFile(s.path, &admin)
	if err == nil && admin.complete() {
		return &admin
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Infof("admin file [%s] not found, creating default admin", s.path)
	case err != nil:
		log.Warnf("admin file [%s] unusable, recreating default admin: %s", s.path, err)
	default:
		log.Warnf("admin file [%s] incomplete, recreating default admin", s.path)
	}

	hash, salt, err := pkg.HashPassword(s.defaultPassword, "")
	if err != nil {
		log.Errorf("derive default admin password: %s", err)
		return nil
	}

	admin = Admin{
		Username: s.defaultUsername,
		Hash:     hash,
		Salt:     salt,
	}
	if err := pkg.WriteJSONFile(s.path, &admin); err != nil {
		log.Errorf("save admin file [%s]: %s", s.path, err)
	}

	return &admin
}

// Verify reports whether username and password match the stored admin.
func (s *AdminStore) Verify(ctx context.Context, username, password string) bool {
	admin := s.Ensure(ctx)
	if admin == nil {
		return false
	}
	passwordOk := pkg.CheckPasswordHash(password, admin.Salt, admin.Hash)
	return username == admin.Username && passwordOk
}
