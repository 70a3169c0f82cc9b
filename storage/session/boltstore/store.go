// Package boltstore persists the dashboard session in a bbolt file so that the CLI stays logged in between runs.
package boltstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/ficct/horarios/core/session"
)

var (
	sessionBucket = []byte("Session")
	currentKey    = []byte("current")
)

type Store struct {
	db *bbolt.DB
}

var _ session.Store = (*Store)(nil) // interface compliance check

// Open opens (or creates) the session file at `path`.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating session dir")
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating session bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) Load() (session.Session, error) {
	var sess session.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(sessionBucket).Get(currentKey)
		if data == nil {
			return session.ErrNoSession
		}
		return json.Unmarshal(data, &sess)
	})
	if err == session.ErrNoSession {
		return session.Session{}, err
	}
	if err != nil {
		return session.Session{}, errors.Wrap(err, "loading session")
	}
	return sess, nil
}

func (s *Store) Save(sess session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	return errors.Wrap(s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(currentKey, data)
	}), "saving session")
}

func (s *Store) Clear() error {
	return errors.Wrap(s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(currentKey)
	}), "clearing session")
}

func (s *Store) Close() error {
	return s.db.Close()
}
