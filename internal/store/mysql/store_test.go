package mysql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfunnel/disposition/internal/dispoerrors"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return &Store{db: sqlx.NewDb(mockDB, "mysql")}, mock
}

func TestGetContact_ReturnsDomainContact(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	cols := []string{"id", "email", "client_id", "company_domain", "first_name", "last_name", "title", "company_name",
		"disposition_status", "disposition_updated_at",
		"email_last_contacted", "email_cooldown_until", "email_suppressed",
		"linkedin_last_contacted", "linkedin_cooldown_until", "linkedin_suppressed",
		"phone_last_contacted", "phone_cooldown_until", "phone_suppressed",
		"data_enriched_at", "sequence_count", "source_system", "source_id", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM contacts WHERE email = \? AND client_id = \?`).
		WithArgs("a@acme.com", "client1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"id-1", "a@acme.com", "client1", "acme.com", "Ann", "Lee", "CTO", "Acme",
			"FRESH", now,
			nil, nil, false,
			nil, nil, false,
			nil, nil, false,
			nil, 0, "", "", now, now,
		))

	got, err := s.GetContact(context.Background(), "a@acme.com", "client1")
	require.NoError(t, err)
	assert.Equal(t, "a@acme.com", got.Email)
	assert.Equal(t, "acme.com", got.CompanyDomain)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetContact_NotFoundWrapsSentinel(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM contacts WHERE email = \? AND client_id = \?`).
		WithArgs("missing@acme.com", "client1").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetContact(context.Background(), "missing@acme.com", "client1")
	require.Error(t, err)
	assert.ErrorIs(t, err, dispoerrors.ErrContactNotFound)
}

func TestDistinctClientIDs_ReturnsAllRows(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT DISTINCT client_id FROM contacts ORDER BY client_id`).
		WillReturnRows(sqlmock.NewRows([]string{"client_id"}).AddRow("client1").AddRow("client2"))

	ids, err := s.DistinctClientIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"client1", "client2"}, ids)
}

func TestGetBurnRate_BindsSinceAndClientID(t *testing.T) {
	s, mock := newMockStore(t)
	since := time.Now().AddDate(0, 0, -7)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM disposition_history`).
		WithArgs(since, "client1", "client1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := s.GetBurnRate(context.Background(), "client1", since)
	require.NoError(t, err)
	assert.Equal(t, 12, count)
}

func TestCompleteBridgeJob_ExecutesUpdate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE bridge_jobs SET status='completed'`).
		WithArgs([]byte(`{"ok":true}`), "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CompleteBridgeJob(context.Background(), "job-1", []byte(`{"ok":true}`))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailBridgeJob_ExecutesUpdate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE bridge_jobs SET status='failed'`).
		WithArgs("boom", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.FailBridgeJob(context.Background(), "job-1", "boom")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
