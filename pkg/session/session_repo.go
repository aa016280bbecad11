package session

import (
	"context"
	"database/sql"
	"errors"

	log "github.com/sirupsen/logrus"
)

// Record is the persisted form of a session, including the hashed Troi API
// token used to authenticate upstream calls on its behalf.
type Record struct {
	Session
	TroiTokenMd5 string
}

type Repo interface {
	Store(ctx context.Context, record Record) error
	GetByUid(ctx context.Context, uid string) (Record, error)
	UpdateIds(ctx context.Context, uid string, clientId, employeeId, personioEmployeeId int) error
	Delete(ctx context.Context, uid string) error
}

type RepoImpl struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *RepoImpl {
	return &RepoImpl{db: db}
}

func (r *RepoImpl) Store(ctx context.Context, record Record) error {
	query := `INSERT INTO session (uid, troi_username, troi_token_md5, troi_client_id, troi_employee_id, personio_employee_id)
				VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		record.Uid,
		record.TroiUsername,
		record.TroiTokenMd5,
		record.TroiClientId,
		record.TroiEmployeeId,
		record.PersonioEmployeeId,
	)
	if err != nil {
		log.Errorf("failed to store session %s: %v", record.Uid, err)
		return err
	}
	return nil
}

func (r *RepoImpl) GetByUid(ctx context.Context, uid string) (Record, error) {
	query := `SELECT uid, troi_username, troi_token_md5, troi_client_id, troi_employee_id, personio_employee_id, created_at
				FROM session WHERE uid = $1`
	var record Record
	err := r.db.QueryRowContext(ctx, query, uid).Scan(
		&record.Uid,
		&record.TroiUsername,
		&record.TroiTokenMd5,
		&record.TroiClientId,
		&record.TroiEmployeeId,
		&record.PersonioEmployeeId,
		&record.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNoSession
	} else if err != nil {
		log.Errorf("failed to get session %s: %v", uid, err)
		return Record{}, err
	}
	return record, nil
}

func (r *RepoImpl) UpdateIds(ctx context.Context, uid string, clientId, employeeId, personioEmployeeId int) error {
	query := `UPDATE session SET troi_client_id = $1, troi_employee_id = $2, personio_employee_id = $3 WHERE uid = $4`
	result, err := r.db.ExecContext(ctx, query, clientId, employeeId, personioEmployeeId, uid)
	if err != nil {
		log.Errorf("failed to update session %s: %v", uid, err)
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoSession
	}
	return nil
}

func (r *RepoImpl) Delete(ctx context.Context, uid string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE uid = $1`, uid)
	if err != nil {
		log.Errorf("failed to delete session %s: %v", uid, err)
		return err
	}
	return nil
}
