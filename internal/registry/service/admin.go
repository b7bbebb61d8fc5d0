package service

import (
	"context"

	"registrar/internal/registry/events"
	"registrar/internal/registry/fees"
	id "registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/requestcontext"
)

// Administrative operations. Each one verifies the caller against the
// configured admin identity before touching shared configuration, and runs
// under the same execution guard as the registration paths so pricing and
// TLD changes never interleave with an in-flight charge.

func (s *Service) requireAdmin(caller id.AccountID) error {
	if caller != s.admin {
		return ErrAdminOnly
	}
	return nil
}

// SetFee updates the annual price for one length bucket.
func (s *Service) SetFee(ctx context.Context, caller id.AccountID, bucket fees.Bucket, price fees.Amount) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := s.enter(); err != nil {
		return err
	}
	defer s.exit()

	if err := s.feeTable.SetPrice(bucket, price); err != nil {
		return err
	}
	s.emit(ctx, events.Event{
		Action:    events.ActionFeeUpdated,
		Timestamp: requestcontext.Now(ctx),
		Bucket:    int(bucket),
		Price:     int64(price),
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// AddTLD makes a suffix registrable. Adding an existing suffix is a no-op.
func (s *Service) AddTLD(ctx context.Context, caller id.AccountID, tld string) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := s.enter(); err != nil {
		return err
	}
	defer s.exit()

	if err := s.tldSet.Add(tld); err != nil {
		return err
	}
	s.emit(ctx, events.Event{
		Action:    events.ActionTLDAdded,
		Timestamp: requestcontext.Now(ctx),
		TLD:       tld,
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// RemoveTLD stops new registrations under a suffix. Existing records keep
// resolving until they expire.
func (s *Service) RemoveTLD(ctx context.Context, caller id.AccountID, tld string) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := s.enter(); err != nil {
		return err
	}
	defer s.exit()

	if err := s.tldSet.Remove(tld); err != nil {
		return err
	}
	s.emit(ctx, events.Event{
		Action:    events.ActionTLDRemoved,
		Timestamp: requestcontext.Now(ctx),
		TLD:       tld,
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// SetTreasury redirects future fee transfers.
func (s *Service) SetTreasury(ctx context.Context, caller, treasury id.AccountID) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if treasury.IsNil() {
		return ErrNilIdentity
	}
	if err := s.enter(); err != nil {
		return err
	}
	defer s.exit()

	s.treasury = treasury
	return nil
}

// SetFeeCollector swaps the funds backend. In-flight operations are excluded
// by the guard, so a charge never straddles two collectors.
func (s *Service) SetFeeCollector(ctx context.Context, caller id.AccountID, collector FeeCollector) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if collector == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "fee collector must not be nil")
	}
	if err := s.enter(); err != nil {
		return err
	}
	defer s.exit()

	s.collector = collector
	return nil
}

// Admin returns the configured administrative identity.
func (s *Service) Admin() id.AccountID { return s.admin }

// Treasury returns the current fee destination.
func (s *Service) Treasury() id.AccountID { return s.treasury }
