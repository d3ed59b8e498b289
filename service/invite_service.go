package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"dicewager/models"
)

type inviteService struct {
	uowFactory UnitOfWorkFactory
}

// NewInviteService creates the invite graph service
func NewInviteService(uowFactory UnitOfWorkFactory) InviteService {
	return &inviteService{uowFactory: uowFactory}
}

// RecordInvite sets the inviter of an account exactly once
func (s *inviteService) RecordInvite(ctx context.Context, inviteeID int64, inviterID int64) error {
	if inviteeID == inviterID {
		return models.ErrSelfInvite
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := recordInvite(ctx, uow, inviteeID, inviterID); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// recordInvite validates both parties and stores the edge inside uow
func recordInvite(ctx context.Context, uow UnitOfWork, inviteeID, inviterID int64) error {
	repo := uow.AccountRepository()

	inviter, err := repo.GetByID(ctx, inviterID)
	if err != nil {
		return fmt.Errorf("failed to get inviter: %w", err)
	}
	if inviter == nil {
		return fmt.Errorf("inviter %d: %w", inviterID, models.ErrAccountNotFound)
	}

	if err := repo.SetInviter(ctx, inviteeID, inviterID); err != nil {
		return fmt.Errorf("failed to record invite: %w", err)
	}

	log.WithFields(log.Fields{
		"inviteeID": inviteeID,
		"inviterID": inviterID,
	}).Debug("Invite recorded")
	return nil
}

// GetInviter returns the inviter of an account, or nil
func (s *inviteService) GetInviter(ctx context.Context, accountID int64) (*int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, models.ErrAccountNotFound
	}
	return account.InviterID, nil
}

// GetStats returns the account's invite code, invitee count and earnings
func (s *inviteService) GetStats(ctx context.Context, accountID int64) (*models.InviteStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, models.ErrAccountNotFound
	}

	count, err := uow.AccountRepository().CountInvitees(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to count invitees: %w", err)
	}

	return &models.InviteStats{
		AccountID:      accountID,
		InviteCode:     account.InviteCode,
		InviteeCount:   count,
		InviteEarnings: account.InviteEarnings,
	}, nil
}
