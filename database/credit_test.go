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
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestTryConsumeCredit_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}

	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE chatcore.credit_ledgers
		SET remaining_credits = remaining_credits - $2, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = $1 AND remaining_credits >= $2
	`)).WithArgs("tenant_1", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := ds.TryConsumeCredit(context.Background(), "tenant_1", 1)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryConsumeCredit_Insufficient(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}

	// Zero rows affected means the conditional decrement did not fire.
	// Insufficient balance is a normal admission outcome, not an error.
	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE chatcore.credit_ledgers
		SET remaining_credits = remaining_credits - $2, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = $1 AND remaining_credits >= $2
	`)).WithArgs("tenant_1", int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := ds.TryConsumeCredit(context.Background(), "tenant_1", 5)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopUpCredit_CreatesOrAdds(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}

	rows := sqlmock.NewRows([]string{"tenant_id", "remaining_credits", "updated_at"}).
		AddRow("tenant_1", int64(150), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO chatcore.credit_ledgers (tenant_id, remaining_credits, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (tenant_id) DO UPDATE
		SET remaining_credits = chatcore.credit_ledgers.remaining_credits + EXCLUDED.remaining_credits,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING tenant_id, remaining_credits, updated_at
	`)).WithArgs("tenant_1", int64(100)).WillReturnRows(rows)

	ledger, err := ds.TopUpCredit(context.Background(), "tenant_1", 100)
	assert.NoError(t, err)
	assert.Equal(t, int64(150), ledger.RemainingCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCreditLedger(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}

	rows := sqlmock.NewRows([]string{"tenant_id", "remaining_credits", "updated_at"}).
		AddRow("tenant_1", int64(42), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT tenant_id, remaining_credits, updated_at
		FROM chatcore.credit_ledgers
		WHERE tenant_id = $1
	`)).WithArgs("tenant_1").WillReturnRows(rows)

	ledger, err := ds.GetCreditLedger(context.Background(), "tenant_1")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), ledger.RemainingCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}
