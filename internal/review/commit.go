package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation"
	repmodel "github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/review/model"
)

// CommitError reports a failed step of committing a review
type CommitError struct {
	Op        string
	Reference string
	CaseID    string
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s failed for representation %s (case %s): %v", e.Op, e.Reference, e.CaseID, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// commentUpdate is the persisted outcome of the comment decision
type commentUpdate struct {
	Status          repmodel.Status
	CommentRedacted *string
}

// documentUpdate is the persisted outcome of one attachment decision
type documentUpdate struct {
	ItemID           string
	Status           repmodel.Status
	RedactedItemID   *string
	RedactedFileName *string
}

// commitPlan is everything the review transaction writes
type commitPlan struct {
	Comment   commentUpdate
	Documents []documentUpdate
}

func persistedStatus(decision model.Decision) repmodel.Status {
	switch decision {
	case model.DecisionAccepted, model.DecisionAcceptAndRedact:
		return repmodel.StatusAccepted
	case model.DecisionRejected:
		return repmodel.StatusRejected
	default:
		return repmodel.StatusAwaitingReview
	}
}

// planCommit maps the staged decisions to ledger writes. A staged upload
// replaces the persisted redacted copy; a decision other than accept-and-redact
// clears it.
func planCommit(docs []repmodel.Document, sess *model.Session) commitPlan {
	plan := commitPlan{
		Comment: commentUpdate{Status: persistedStatus(sess.Comment.Decision)},
	}
	if sess.Comment.Decision == model.DecisionAcceptAndRedact {
		redacted := sess.RedactedComment
		plan.Comment.CommentRedacted = &redacted
	}

	byID := documentsByID(docs)
	for _, item := range sess.Attachments {
		update := documentUpdate{
			ItemID: item.Key,
			Status: persistedStatus(item.Decision),
		}
		if item.Decision == model.DecisionAcceptAndRedact {
			if upload, ok := item.LatestUpload(); ok {
				update.RedactedItemID = &upload.ItemID
				update.RedactedFileName = &upload.FileName
			} else if doc, ok := byID[item.Key]; ok && doc.HasRedactedCopy() {
				update.RedactedItemID = doc.RedactedItemID
				update.RedactedFileName = doc.RedactedFileName
			}
		}
		plan.Documents = append(plan.Documents, update)
	}
	return plan
}

// commitTransaction applies the plan atomically. A missing attachment row is
// logged and skipped; any other failure rolls everything back.
func commitTransaction(ctx context.Context, ledger Ledger, rep *repmodel.Representation, plan commitPlan, logger logrus.FieldLogger) error {
	err := ledger.WithReviewTx(ctx, func(tx representation.ReviewWriter) error {
		if err := tx.UpdateRepresentationReview(ctx, rep.Reference, plan.Comment.Status, plan.Comment.CommentRedacted); err != nil {
			return &CommitError{Op: "update representation", Reference: rep.Reference, CaseID: rep.CaseID, Err: err}
		}

		for _, update := range plan.Documents {
			doc, err := tx.GetDocumentForUpdate(ctx, rep.Reference, update.ItemID)
			if errors.Is(err, representation.ErrDocumentNotFound) {
				logger.WithFields(logrus.Fields{
					"representation_reference": rep.Reference,
					"item_id":                  update.ItemID,
				}).Warn("Attachment not found while committing review, skipping")
				continue
			}
			if err != nil {
				return &CommitError{Op: "load attachment", Reference: rep.Reference, CaseID: rep.CaseID, Err: err}
			}

			doc.Status = update.Status
			doc.RedactedItemID = update.RedactedItemID
			doc.RedactedFileName = update.RedactedFileName
			if err := tx.UpdateDocumentReview(ctx, doc); err != nil {
				return &CommitError{Op: "update attachment", Reference: rep.Reference, CaseID: rep.CaseID, Err: err}
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}

	var commitErr *CommitError
	if errors.As(err, &commitErr) {
		return commitErr
	}
	return &CommitError{Op: "commit review", Reference: rep.Reference, CaseID: rep.CaseID, Err: err}
}
