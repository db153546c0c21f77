package app

import (
	"context"
	"time"

	"access-service/internal/account"
	"access-service/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// bootstrapSuperAdmin seeds a super_admin pre-approval for the
// configured email when no super_admin profile exists yet. The profile
// itself is created on that email's first sign-in, so its id is a real
// provider subject. Idempotent across restarts.
func bootstrapSuperAdmin(ctx context.Context, store account.Store, email string) error {
	if email == "" {
		return nil
	}

	n, err := store.CountByRole(ctx, account.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	existing, err := store.PreApprovalByEmail(ctx, account.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	err = store.CreatePreApproval(ctx, account.PreApproval{
		Email:         account.NormalizeEmail(email),
		RequestedRole: account.RoleSuperAdmin,
		ApprovedBy:    "bootstrap",
		ApprovedAt:    time.Now(),
		ProvisionalID: uuid.NewString(),
	})
	if err != nil {
		return err
	}

	logger.Info("bootstrap super_admin pre-approved",
		zap.String("email", account.NormalizeEmail(email)),
	)
	return nil
}
