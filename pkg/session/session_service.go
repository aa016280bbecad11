package session

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	CreateSession(ctx context.Context, troiUsername, troiToken string) (Session, error)
	GetByUid(ctx context.Context, uid string) (Record, error)
	CurrentSession(ctx context.Context) (Session, error)
	// Credentials returns the full record of the session in context,
	// including the hashed Troi token; used by upstream clients.
	Credentials(ctx context.Context) (Record, error)
	StoreUpstreamIds(ctx context.Context, clientId, employeeId, personioEmployeeId int) error
	EvictSession(ctx context.Context, uid string) error
}

type ServiceImpl struct {
	repo Repo
}

func NewService(repo Repo) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

// CreateSession stores a new session for the given Troi credentials. The API
// token is kept only as its MD5 hex digest, which is what Troi's basic auth
// expects as password.
func (s *ServiceImpl) CreateSession(ctx context.Context, troiUsername, troiToken string) (Session, error) {
	digest := md5.Sum([]byte(troiToken))
	record := Record{
		Session: Session{
			Uid:          uuid.NewString(),
			TroiUsername: troiUsername,
		},
		TroiTokenMd5: hex.EncodeToString(digest[:]),
	}
	if err := s.repo.Store(ctx, record); err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	log.Debugf("created session %s for %s", record.Uid, troiUsername)
	return record.Session, nil
}

func (s *ServiceImpl) GetByUid(ctx context.Context, uid string) (Record, error) {
	return s.repo.GetByUid(ctx, uid)
}

func (s *ServiceImpl) CurrentSession(ctx context.Context) (Session, error) {
	return Current(ctx)
}

func (s *ServiceImpl) Credentials(ctx context.Context) (Record, error) {
	uid, err := CurrentUid(ctx)
	if err != nil {
		return Record{}, err
	}
	return s.repo.GetByUid(ctx, uid)
}

// StoreUpstreamIds persists the Troi and Personio identities resolved for
// the current session, so later requests skip the lookup round trips.
func (s *ServiceImpl) StoreUpstreamIds(ctx context.Context, clientId, employeeId, personioEmployeeId int) error {
	uid, err := CurrentUid(ctx)
	if err != nil {
		return err
	}
	return s.repo.UpdateIds(ctx, uid, clientId, employeeId, personioEmployeeId)
}

// EvictSession removes the stored session. Called on logout and when a
// background refresh observes rejected credentials.
func (s *ServiceImpl) EvictSession(ctx context.Context, uid string) error {
	log.Infof("evicting session %s", uid)
	return s.repo.Delete(ctx, uid)
}
