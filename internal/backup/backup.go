// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package backup writes and restores zstd-compressed JSON snapshots of the
// account table. Sessions and single-use tokens are transient and are not
// included.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/toeirei/lingo/internal/db"
	"github.com/toeirei/lingo/internal/logging"
	"github.com/toeirei/lingo/internal/model"
)

// SchemaVersion identifies the snapshot layout.
const SchemaVersion = 1

// Data is the snapshot document.
type Data struct {
	SchemaVersion int          `json:"schema_version"`
	CreatedAt     time.Time    `json:"created_at"`
	Users         []model.User `json:"users"`
}

// Store is the storage surface a snapshot needs. Restore runs its writes
// through RunUserTx.
type Store interface {
	db.UserStore
	RunUserTx(ctx context.Context, fn func(ctx context.Context, tx db.UserStore) error) error
}

// Write streams a snapshot of every user to w.
func Write(ctx context.Context, s Store, w io.Writer) (int, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("create zstd writer: %w", err)
	}
	data := Data{SchemaVersion: SchemaVersion, CreatedAt: time.Now().UTC(), Users: users}
	if err := json.NewEncoder(zw).Encode(&data); err != nil {
		_ = zw.Close()
		return 0, fmt.Errorf("encode backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("flush zstd writer: %w", err)
	}
	return len(users), nil
}

// Read decodes a snapshot from r.
func Read(r io.Reader) (*Data, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()
	var data Data
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	if data.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported backup schema version %d", data.SchemaVersion)
	}
	return &data, nil
}

// RestoreResult counts what a restore did.
type RestoreResult struct {
	Created, Updated, Skipped int
}

// Restore imports the snapshot in r inside one transaction, so a failure
// leaves the store untouched. Existing users are left alone unless
// overwrite is set.
func Restore(ctx context.Context, s Store, r io.Reader, overwrite bool) (RestoreResult, error) {
	data, err := Read(r)
	if err != nil {
		return RestoreResult{}, err
	}
	var res RestoreResult
	err = s.RunUserTx(ctx, func(ctx context.Context, tx db.UserStore) error {
		res = RestoreResult{}
		for i := range data.Users {
			u := data.Users[i]
			_, err := tx.FindUserByID(ctx, u.ID)
			switch {
			case errors.Is(err, db.ErrNotFound):
				if err := tx.CreateUser(ctx, &u); err != nil {
					return fmt.Errorf("restore user %s: %w", u.ID, err)
				}
				res.Created++
			case err != nil:
				return err
			case overwrite:
				if err := tx.UpdateUser(ctx, &u); err != nil {
					return fmt.Errorf("update user %s: %w", u.ID, err)
				}
				res.Updated++
			default:
				res.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return RestoreResult{}, err
	}
	logging.Infof("restore: %d created, %d updated, %d skipped", res.Created, res.Updated, res.Skipped)
	return res, nil
}
