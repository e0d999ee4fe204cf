// Package store provides the transactional persistence surface of the
// check-in coordinator. Everything the coordinator reads and writes during
// one registration must observe a single consistent snapshot, so the Store is
// only ever handed out inside a TxRunner callback.
package store

import (
	"context"

	activitymodels "turnstile/internal/activity/models"
	"turnstile/internal/checkin/models"
)

// Store is the set of reads and writes available inside one check-in
// transaction. Absent records are (nil, nil); errors are infrastructure
// failures only.
type Store interface {
	GetActivity(ctx context.Context, activityID string) (*activitymodels.ActivityWindow, error)
	GetRegistration(ctx context.Context, activityID, identityID string) (*models.RegistrationRecord, error)
	GetClaim(ctx context.Context, activityID string) (*models.ExclusivityClaim, error)

	CreateClaim(ctx context.Context, claim *models.ExclusivityClaim) error
	CreateRegistration(ctx context.Context, record *models.RegistrationRecord) error
	IncrementCount(ctx context.Context, activityID string) error
}

// TxRunner executes fn inside one atomic transaction. Conflicting concurrent
// transactions abort and are retried transparently a bounded number of times;
// fn must therefore be safe to re-execute from scratch.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(Store) error) error
}
