// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"

	"github.com/toeirei/lingo/internal/model"
)

// SaveUserToken stores t, replacing any previous token for the same user
// and purpose.
func (s *Store) SaveUserToken(ctx context.Context, t model.UserToken) error {
	tx, err := s.bun.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NewDelete().Model((*userTokenRow)(nil)).
		Where("user_id = ?", t.UserID).
		Where("purpose = ?", string(t.Purpose)).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to replace user token: %w", err)
	}
	row := &userTokenRow{
		UserID:    t.UserID,
		Purpose:   string(t.Purpose),
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt.UTC(),
	}
	if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return tx.Commit()
}

// FindUserToken returns the stored token for user and purpose or ErrNotFound.
func (s *Store) FindUserToken(ctx context.Context, userID string, purpose model.TokenPurpose) (*model.UserToken, error) {
	var row userTokenRow
	err := s.bun.NewSelect().Model(&row).
		Where("user_id = ?", userID).
		Where("purpose = ?", string(purpose)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, MapDBError(err)
	}
	return &model.UserToken{
		UserID:    row.UserID,
		Purpose:   model.TokenPurpose(row.Purpose),
		TokenHash: row.TokenHash,
		ExpiresAt: row.ExpiresAt.UTC(),
	}, nil
}

// DeleteUserToken removes the token for user and purpose. Missing tokens are
// not an error.
func (s *Store) DeleteUserToken(ctx context.Context, userID string, purpose model.TokenPurpose) error {
	_, err := s.bun.NewDelete().Model((*userTokenRow)(nil)).
		Where("user_id = ?", userID).
		Where("purpose = ?", string(purpose)).
		Exec(ctx)
	return err
}
