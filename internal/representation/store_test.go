package representation

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/database"
)

var (
	representationColumns = []string{"reference", "case_id", "case_reference", "status", "comment", "comment_redacted",
		"contains_attachments", "submitted_for", "submitted_date", "updated_time"}
	documentColumns = []string{"item_id", "representation_reference", "file_name", "status", "redacted_item_id",
		"redacted_file_name", "updated_time"}
)

func newTestStore(t *testing.T, dbType string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	driver := "mysql"
	if dbType == "postgres" {
		driver = "pgx"
	}
	logger, _ := test.NewNullLogger()
	return NewStore(database.New(sqlx.NewDb(raw, driver), dbType, logger)), mock
}

func TestGetRepresentation(t *testing.T) {
	store, mock := newTestStore(t, "mysql")

	mock.ExpectQuery(regexp.QuoteMeta(QueryGetRepresentation.Query)).
		WithArgs("CROWN-REP-001").
		WillReturnRows(sqlmock.NewRows(representationColumns).
			AddRow("CROWN-REP-001", "case-1", "CROWN/2025/0001", "awaiting-review", "My comment", nil, true, "myself", 1700000000000, 1700000000000))

	rep, err := store.GetRepresentation(context.Background(), "CROWN-REP-001")
	require.NoError(t, err)
	assert.Equal(t, "case-1", rep.CaseID)
	assert.Equal(t, model.StatusAwaitingReview, rep.Status)
	assert.Nil(t, rep.CommentRedacted)
	assert.True(t, rep.ContainsAttachments)
	assert.False(t, rep.IsRedacted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRepresentation_NotFound(t *testing.T) {
	store, mock := newTestStore(t, "mysql")

	mock.ExpectQuery(regexp.QuoteMeta(QueryGetRepresentation.Query)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetRepresentation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRepresentationNotFound)
}

func TestGetRepresentation_PostgresPlaceholders(t *testing.T) {
	store, mock := newTestStore(t, "postgres")

	mock.ExpectQuery(regexp.QuoteMeta("FROM representation WHERE reference = $1")).
		WithArgs("CROWN-REP-001").
		WillReturnRows(sqlmock.NewRows(representationColumns).
			AddRow("CROWN-REP-001", "case-1", "CROWN/2025/0001", "accepted", "c", "c ███", false, "myself", 0, 0))

	rep, err := store.GetRepresentation(context.Background(), "CROWN-REP-001")
	require.NoError(t, err)
	assert.True(t, rep.IsRedacted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDocuments(t *testing.T) {
	store, mock := newTestStore(t, "mysql")

	mock.ExpectQuery(regexp.QuoteMeta(QueryListDocuments.Query)).
		WithArgs("CROWN-REP-001").
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("doc-1", "CROWN-REP-001", "plan.pdf", "accepted", "doc-1r", "plan-redacted.pdf", 0).
			AddRow("doc-2", "CROWN-REP-001", "photo.jpg", "awaiting-review", nil, nil, 0))

	docs, err := store.ListDocuments(context.Background(), "CROWN-REP-001")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.True(t, docs[0].HasRedactedCopy())
	assert.False(t, docs[1].HasRedactedCopy())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithReviewTx_Commits(t *testing.T) {
	store, mock := newTestStore(t, "mysql")
	redacted := "██ comment"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(QueryUpdateRepresentationReview.Query)).
		WithArgs(model.StatusAccepted, redacted, sqlmock.AnyArg(), "CROWN-REP-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(QueryGetDocumentForUpdate.Query)).
		WithArgs("CROWN-REP-001", "doc-1").
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("doc-1", "CROWN-REP-001", "plan.pdf", "awaiting-review", nil, nil, 0))
	mock.ExpectExec(regexp.QuoteMeta(QueryUpdateDocumentReview.Query)).
		WithArgs(model.StatusRejected, nil, nil, sqlmock.AnyArg(), "CROWN-REP-001", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithReviewTx(context.Background(), func(tx ReviewWriter) error {
		if err := tx.UpdateRepresentationReview(context.Background(), "CROWN-REP-001", model.StatusAccepted, &redacted); err != nil {
			return err
		}
		doc, err := tx.GetDocumentForUpdate(context.Background(), "CROWN-REP-001", "doc-1")
		if err != nil {
			return err
		}
		doc.Status = model.StatusRejected
		return tx.UpdateDocumentReview(context.Background(), doc)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithReviewTx_RollsBackOnFailure(t *testing.T) {
	store, mock := newTestStore(t, "mysql")
	dbErr := errors.New("deadlock")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(QueryUpdateRepresentationReview.Query)).
		WillReturnError(dbErr)
	mock.ExpectRollback()

	err := store.WithReviewTx(context.Background(), func(tx ReviewWriter) error {
		return tx.UpdateRepresentationReview(context.Background(), "CROWN-REP-001", model.StatusRejected, nil)
	})

	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocumentForUpdate_NotFound(t *testing.T) {
	store, mock := newTestStore(t, "mysql")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(QueryGetDocumentForUpdate.Query)).
		WithArgs("CROWN-REP-001", "gone").
		WillReturnRows(sqlmock.NewRows(documentColumns))
	mock.ExpectRollback()

	err := store.WithReviewTx(context.Background(), func(tx ReviewWriter) error {
		_, err := tx.GetDocumentForUpdate(context.Background(), "CROWN-REP-001", "gone")
		return err
	})

	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRepresentationReview_NoRows(t *testing.T) {
	store, mock := newTestStore(t, "mysql")

	mock.ExpectExec(regexp.QuoteMeta(QueryUpdateRepresentationReview.Query)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateRepresentationReview(context.Background(), "missing", model.StatusAccepted, nil)
	assert.ErrorIs(t, err, ErrRepresentationNotFound)
}
