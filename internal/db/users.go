// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"

	"github.com/toeirei/lingo/internal/model"
	"github.com/uptrace/bun"
)

// UserStore is the account table surface shared by Store and UserTx.
type UserStore interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
	UpdateUser(ctx context.Context, u *model.User) error
}

// UserTx runs account queries inside one transaction.
type UserTx struct {
	tx bun.Tx
}

// RunUserTx calls fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) RunUserTx(ctx context.Context, fn func(ctx context.Context, tx UserStore) error) error {
	return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &UserTx{tx: tx})
	})
}

// CreateUser inserts a new user. A clash on the normalized user name maps
// to ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	return createUser(ctx, s.bun, u)
}

// FindUserByID returns the user with the given id or ErrNotFound.
func (s *Store) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return findUser(ctx, s.bun, "id", id)
}

// FindUserByNormalizedEmail looks a user up by upper-cased email.
func (s *Store) FindUserByNormalizedEmail(ctx context.Context, normalizedEmail string) (*model.User, error) {
	return findUser(ctx, s.bun, "normalized_email", normalizedEmail)
}

// FindUserByNormalizedUserName looks a user up by upper-cased user name.
func (s *Store) FindUserByNormalizedUserName(ctx context.Context, normalizedUserName string) (*model.User, error) {
	return findUser(ctx, s.bun, "normalized_user_name", normalizedUserName)
}

// UpdateUser overwrites every column of an existing user.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	return updateUser(ctx, s.bun, u)
}

// ListUsers returns all users, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	return listUsers(ctx, s.bun)
}

func (t *UserTx) CreateUser(ctx context.Context, u *model.User) error {
	return createUser(ctx, t.tx, u)
}

func (t *UserTx) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return findUser(ctx, t.tx, "id", id)
}

func (t *UserTx) UpdateUser(ctx context.Context, u *model.User) error {
	return updateUser(ctx, t.tx, u)
}

func (t *UserTx) ListUsers(ctx context.Context) ([]model.User, error) {
	return listUsers(ctx, t.tx)
}

func createUser(ctx context.Context, idb bun.IDB, u *model.User) error {
	if _, err := idb.NewInsert().Model(userRowFromModel(u)).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	dbLogf("db: created user %s", u)
	return nil
}

func findUser(ctx context.Context, idb bun.IDB, column, value string) (*model.User, error) {
	var row userRow
	err := idb.NewSelect().Model(&row).Where("? = ?", bun.Ident(column), value).Limit(1).Scan(ctx)
	if err != nil {
		return nil, MapDBError(err)
	}
	return row.toModel(), nil
}

func updateUser(ctx context.Context, idb bun.IDB, u *model.User) error {
	res, err := idb.NewUpdate().Model(userRowFromModel(u)).WherePK().Exec(ctx)
	if err != nil {
		return MapDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func listUsers(ctx context.Context, idb bun.IDB) ([]model.User, error) {
	var rows []userRow
	if err := idb.NewSelect().Model(&rows).Order("created_at ASC", "id ASC").Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	users := make([]model.User, 0, len(rows))
	for i := range rows {
		users = append(users, *rows[i].toModel())
	}
	return users, nil
}

// DeleteUser removes a user together with its tokens and sessions.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.bun.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NewDelete().Model((*userTokenRow)(nil)).Where("user_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user tokens: %w", err)
	}
	if _, err := tx.NewDelete().Model((*userSessionRow)(nil)).Where("user_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	res, err := tx.NewDelete().Model((*userRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
