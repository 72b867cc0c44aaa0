/*
Copyright 2025 Sniperthink Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sniperthink/chatcore/internal/apierror"
	"github.com/sniperthink/chatcore/model"
)

// TryConsumeCredit atomically decrements a tenant's balance by amount. The
// WHERE clause makes the read-and-decrement a single conditional statement at
// the store, so concurrent workers cannot drive the balance negative.
// Returns false, without error, when the balance is insufficient.
func (d Datasource) TryConsumeCredit(ctx context.Context, tenantID string, amount int64) (bool, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE chatcore.credit_ledgers
		SET remaining_credits = remaining_credits - $2, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = $1 AND remaining_credits >= $2
	`, tenantID, amount)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to consume credits", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check credit consumption", err)
	}

	return rowsAffected > 0, nil
}

// TopUpCredit adds credits to a tenant's balance, creating the ledger row on
// first top-up. No upper bound is enforced at this layer.
func (d Datasource) TopUpCredit(ctx context.Context, tenantID string, amount int64) (*model.CreditLedger, error) {
	row := d.Conn.QueryRowContext(ctx, `
		INSERT INTO chatcore.credit_ledgers (tenant_id, remaining_credits, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (tenant_id) DO UPDATE
		SET remaining_credits = chatcore.credit_ledgers.remaining_credits + EXCLUDED.remaining_credits,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING tenant_id, remaining_credits, updated_at
	`, tenantID, amount)

	ledger := &model.CreditLedger{}
	err := row.Scan(&ledger.TenantID, &ledger.RemainingCredits, &ledger.UpdatedAt)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to top up credits", err)
	}

	return ledger, nil
}

func (d Datasource) GetCreditLedger(ctx context.Context, tenantID string) (*model.CreditLedger, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT tenant_id, remaining_credits, updated_at
		FROM chatcore.credit_ledgers
		WHERE tenant_id = $1
	`, tenantID)

	ledger := &model.CreditLedger{}
	err := row.Scan(&ledger.TenantID, &ledger.RemainingCredits, &ledger.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Credit ledger for tenant '%s' not found", tenantID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve credit ledger", err)
	}

	return ledger, nil
}
