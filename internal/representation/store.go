package representation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/database"
	dbmodel "github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/database/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/utils"
)

var (
	// ErrRepresentationNotFound is returned when no representation matches the reference
	ErrRepresentationNotFound = errors.New("representation not found")
	// ErrDocumentNotFound is returned when no document matches the item id
	ErrDocumentNotFound = errors.New("representation document not found")
)

// DBQuery objects for all representation operations
var (
	QueryGetRepresentation = dbmodel.DBQuery{
		ID: "GET_REPRESENTATION",
		Query: "SELECT reference, case_id, case_reference, status, comment, comment_redacted, contains_attachments, " +
			"submitted_for, submitted_date, updated_time FROM representation WHERE reference = ?",
	}

	QueryListDocuments = dbmodel.DBQuery{
		ID: "LIST_REPRESENTATION_DOCUMENTS",
		Query: "SELECT item_id, representation_reference, file_name, status, redacted_item_id, redacted_file_name, updated_time " +
			"FROM representation_document WHERE representation_reference = ? ORDER BY file_name, item_id",
	}

	QueryGetDocumentForUpdate = dbmodel.DBQuery{
		ID: "GET_REPRESENTATION_DOCUMENT_FOR_UPDATE",
		Query: "SELECT item_id, representation_reference, file_name, status, redacted_item_id, redacted_file_name, updated_time " +
			"FROM representation_document WHERE representation_reference = ? AND item_id = ? FOR UPDATE",
	}

	QueryUpdateRepresentationReview = dbmodel.DBQuery{
		ID:    "UPDATE_REPRESENTATION_REVIEW",
		Query: "UPDATE representation SET status = ?, comment_redacted = ?, updated_time = ? WHERE reference = ?",
	}

	QueryUpdateDocumentReview = dbmodel.DBQuery{
		ID: "UPDATE_REPRESENTATION_DOCUMENT_REVIEW",
		Query: "UPDATE representation_document SET status = ?, redacted_item_id = ?, redacted_file_name = ?, updated_time = ? " +
			"WHERE representation_reference = ? AND item_id = ?",
	}
)

// ReviewWriter is the set of writes a review commit performs inside one transaction
type ReviewWriter interface {
	UpdateRepresentationReview(ctx context.Context, reference string, status model.Status, commentRedacted *string) error
	GetDocumentForUpdate(ctx context.Context, reference, itemID string) (*model.Document, error)
	UpdateDocumentReview(ctx context.Context, doc *model.Document) error
}

// queries runs the DBQuery set against either the pool or a transaction
type queries struct {
	q      database.Querier
	dbType string
}

// Store is the sqlx backed representation ledger
type Store struct {
	queries
	db *database.DB
}

// NewStore creates a new representation store
func NewStore(db *database.DB) *Store {
	return &Store{
		queries: queries{q: db, dbType: db.Type()},
		db:      db,
	}
}

// WithReviewTx runs fn inside a single read-committed transaction
func (s *Store) WithReviewTx(ctx context.Context, fn func(tx ReviewWriter) error) error {
	return s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		return fn(&queries{q: tx, dbType: s.dbType})
	})
}

func (s *queries) query(dbQuery dbmodel.DBQuery) string {
	return s.q.Rebind(dbQuery.GetQuery(s.dbType))
}

// GetRepresentation retrieves a representation by reference
func (s *queries) GetRepresentation(ctx context.Context, reference string) (*model.Representation, error) {
	var rep model.Representation
	if err := s.q.GetContext(ctx, &rep, s.query(QueryGetRepresentation), reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRepresentationNotFound
		}
		return nil, fmt.Errorf("failed to get representation %s: %w", reference, err)
	}
	return &rep, nil
}

// ListDocuments retrieves all attachments of a representation
func (s *queries) ListDocuments(ctx context.Context, reference string) ([]model.Document, error) {
	docs := []model.Document{}
	if err := s.q.SelectContext(ctx, &docs, s.query(QueryListDocuments), reference); err != nil {
		return nil, fmt.Errorf("failed to list documents of %s: %w", reference, err)
	}
	return docs, nil
}

// GetDocumentForUpdate locks and retrieves one attachment row
func (s *queries) GetDocumentForUpdate(ctx context.Context, reference, itemID string) (*model.Document, error) {
	var doc model.Document
	if err := s.q.GetContext(ctx, &doc, s.query(QueryGetDocumentForUpdate), reference, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", itemID, err)
	}
	return &doc, nil
}

// UpdateRepresentationReview persists the comment decision
func (s *queries) UpdateRepresentationReview(ctx context.Context, reference string, status model.Status, commentRedacted *string) error {
	result, err := s.q.ExecContext(ctx, s.query(QueryUpdateRepresentationReview),
		status,
		commentRedacted,
		utils.GetCurrentTimeMillis(),
		reference,
	)
	if err != nil {
		return fmt.Errorf("failed to update representation %s: %w", reference, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ErrRepresentationNotFound
	}
	return nil
}

// UpdateDocumentReview persists an attachment decision
func (s *queries) UpdateDocumentReview(ctx context.Context, doc *model.Document) error {
	_, err := s.q.ExecContext(ctx, s.query(QueryUpdateDocumentReview),
		doc.Status,
		doc.RedactedItemID,
		doc.RedactedFileName,
		utils.GetCurrentTimeMillis(),
		doc.RepresentationReference,
		doc.ItemID,
	)
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", doc.ItemID, err)
	}
	return nil
}
