package review

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/documentstore"
	repmodel "github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/review/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/staging"
)

// documentChanges is the document store work that follows a committed review
type documentChanges struct {
	ToMove   []string
	ToDelete []string
}

// planDocumentChanges works out which staged uploads become permanent and
// which documents are no longer referenced. Rejecting the comment discards
// everything staged along with any persisted redacted copies.
func planDocumentChanges(docs []repmodel.Document, sess *model.Session) documentChanges {
	var changes documentChanges
	seen := map[string]bool{}
	remove := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		changes.ToDelete = append(changes.ToDelete, id)
	}

	byID := documentsByID(docs)
	commentRejected := sess.Comment.Decision == model.DecisionRejected

	for _, id := range sess.PendingDeletion {
		remove(id)
	}

	for _, item := range sess.Attachments {
		persisted := byID[item.Key]

		if commentRejected || item.Decision != model.DecisionAcceptAndRedact {
			for _, upload := range item.Uploads {
				remove(upload.ItemID)
			}
			if persisted != nil && persisted.HasRedactedCopy() {
				remove(*persisted.RedactedItemID)
			}
			continue
		}

		latest, ok := item.LatestUpload()
		if !ok {
			continue
		}
		for _, upload := range item.Uploads[:len(item.Uploads)-1] {
			remove(upload.ItemID)
		}
		changes.ToMove = append(changes.ToMove, latest.ItemID)
		if persisted != nil && persisted.HasRedactedCopy() && *persisted.RedactedItemID != latest.ItemID {
			remove(*persisted.RedactedItemID)
		}
	}
	return changes
}

// caseFolder turns a case reference into a single path segment
func caseFolder(caseReference string) string {
	return strings.ReplaceAll(caseReference, "/", "-")
}

func attachmentsFolderPath(settings Settings, rep *repmodel.Representation) string {
	return path.Join(caseFolder(rep.CaseReference), settings.AttachmentsFolder)
}

func stagingFolderPath(settings Settings, rep *repmodel.Representation, scope staging.Scope) string {
	return path.Join(caseFolder(rep.CaseReference), settings.StagingFolder, rep.Reference, scope.SessionID)
}

// ensureFolder resolves a folder by path, creating it when missing
func ensureFolder(ctx context.Context, store documentstore.DocumentStore, folderPath string) (*documentstore.DriveItem, error) {
	item, err := store.GetDriveItemByPath(ctx, folderPath)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, documentstore.ErrNotFound) {
		return nil, err
	}
	return store.AddNewFolder(ctx, path.Dir(folderPath), path.Base(folderPath))
}

// documentOrchestrator reconciles the document store after a committed review
type documentOrchestrator struct {
	store    documentstore.DocumentStore
	settings Settings
	logger   logrus.FieldLogger
}

// Apply moves the kept uploads into the attachments folder, then deletes
// what is no longer referenced and the session's staging folder. Only the
// move can fail the request.
func (o *documentOrchestrator) Apply(ctx context.Context, rep *repmodel.Representation, scope staging.Scope, changes documentChanges) error {
	logger := o.logger.WithField("representation_reference", rep.Reference)
	if o.store == nil {
		if len(changes.ToMove) > 0 || len(changes.ToDelete) > 0 {
			logger.Warn("No document store configured, skipping document changes")
		}
		return nil
	}

	if len(changes.ToMove) > 0 {
		folder, err := ensureFolder(ctx, o.store, attachmentsFolderPath(o.settings, rep))
		if err != nil {
			return &CommitError{Op: "resolve attachments folder", Reference: rep.Reference, CaseID: rep.CaseID, Err: err}
		}
		if err := o.store.MoveItemsToFolder(ctx, changes.ToMove, folder.ID); err != nil {
			return &CommitError{Op: "move redacted attachments", Reference: rep.Reference, CaseID: rep.CaseID, Err: err}
		}
		logger.WithField("count", len(changes.ToMove)).Info("Redacted attachments moved")
	}

	for _, itemID := range changes.ToDelete {
		if err := o.store.DeleteDocumentByID(ctx, itemID); err != nil {
			logger.WithError(err).WithField("item_id", itemID).Warn("Failed to delete document")
		}
	}

	stagingPath := stagingFolderPath(o.settings, rep, scope)
	if err := o.store.DeleteFolder(ctx, stagingPath); err != nil {
		logger.WithError(err).WithField("path", stagingPath).Warn("Failed to delete staging folder")
	}
	return nil
}
