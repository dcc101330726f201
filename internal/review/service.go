package review

import (
	"context"
	"errors"
	"io"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/documentstore"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/redaction"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation"
	repmodel "github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/review/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/staging"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/config"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/error/serviceerror"
)

// Ledger is the relational record of representations
type Ledger interface {
	GetRepresentation(ctx context.Context, reference string) (*repmodel.Representation, error)
	ListDocuments(ctx context.Context, reference string) ([]repmodel.Document, error)
	WithReviewTx(ctx context.Context, fn func(tx representation.ReviewWriter) error) error
}

// Suggester offers PII redaction suggestions for the comment
type Suggester interface {
	Enabled() bool
	FetchRedactionSuggestions(ctx context.Context, text string) *redaction.Suggestion
}

// Settings holds the document store layout and upload limits
type Settings struct {
	AttachmentsFolder string
	StagingFolder     string
	MaxUploadSize     int64
}

// SettingsFromConfig builds Settings from the review configuration
func SettingsFromConfig(cfg *config.ReviewConfig) Settings {
	return Settings{
		AttachmentsFolder: cfg.AttachmentsFolder,
		StagingFolder:     cfg.StagingFolder,
		MaxUploadSize:     cfg.MaxUploadSize,
	}
}

// Upload is a redacted replacement file sent by the reviewer
type Upload struct {
	FileName string
	Size     int64
	Body     io.Reader
}

// ReviewService defines the review workflow operations. Every operation
// other than SubmitReview and AbandonReview only touches staged state.
type ReviewService interface {
	GetTaskList(ctx context.Context, scope staging.Scope) (*model.TaskList, *serviceerror.ServiceError)
	SetCommentDecision(ctx context.Context, scope staging.Scope, decision model.Decision) (string, *serviceerror.ServiceError)
	GetRedactionView(ctx context.Context, scope staging.Scope) (*model.RedactionView, *serviceerror.ServiceError)
	SaveRedactedComment(ctx context.Context, scope staging.Scope, draft string) (string, *serviceerror.ServiceError)
	ApplySuggestions(ctx context.Context, scope staging.Scope) (string, *serviceerror.ServiceError)
	AcceptRedactedComment(ctx context.Context, scope staging.Scope) (string, *serviceerror.ServiceError)
	SetDocumentDecision(ctx context.Context, scope staging.Scope, itemID string, decision model.Decision) (string, *serviceerror.ServiceError)
	UploadRedactedDocument(ctx context.Context, scope staging.Scope, itemID string, upload Upload) (*model.StagedFile, *serviceerror.ServiceError)
	RemoveStagedUpload(ctx context.Context, scope staging.Scope, itemID, uploadID string) *serviceerror.ServiceError
	SubmitReview(ctx context.Context, scope staging.Scope) (string, *serviceerror.ServiceError)
	AbandonReview(ctx context.Context, scope staging.Scope) *serviceerror.ServiceError
}

type reviewService struct {
	ledger       Ledger
	sessions     *sessionStore
	documents    documentstore.DocumentStore
	suggester    Suggester
	orchestrator *documentOrchestrator
	settings     Settings
	logger       logrus.FieldLogger
}

// NewReviewService creates a review service. documents and suggester may be
// nil when the document store or PII detection is not configured.
func NewReviewService(
	ledger Ledger,
	stagingStore staging.Store,
	documents documentstore.DocumentStore,
	suggester Suggester,
	settings Settings,
	logger logrus.FieldLogger,
) ReviewService {
	return &reviewService{
		ledger:    ledger,
		sessions:  &sessionStore{store: stagingStore},
		documents: documents,
		suggester: suggester,
		orchestrator: &documentOrchestrator{
			store:    documents,
			settings: settings,
			logger:   logger,
		},
		settings: settings,
		logger:   logger,
	}
}

// reviewContext is a representation with its staged review
type reviewContext struct {
	rep     *repmodel.Representation
	docs    []repmodel.Document
	session *model.Session
}

func validationError(err error, redirect string) *serviceerror.ServiceError {
	se := serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	if redirect == "" {
		return se
	}
	return se.WithRedirect(redirect)
}

func (s *reviewService) stagingError(scope staging.Scope, err error) *serviceerror.ServiceError {
	s.logger.WithError(err).WithField("representation_reference", scope.Reference).Error("Staging store failure")
	return serviceerror.CustomServiceError(serviceerror.StagingError, "Review progress could not be saved")
}

// load fetches the representation and its staged review, seeding the
// session from the persisted decisions on first use
func (s *reviewService) load(ctx context.Context, scope staging.Scope) (*reviewContext, *serviceerror.ServiceError) {
	if scope.SessionID == "" {
		return nil, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "A review session is required")
	}

	rep, err := s.ledger.GetRepresentation(ctx, scope.Reference)
	if errors.Is(err, representation.ErrRepresentationNotFound) {
		return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, "Representation not found")
	}
	if err != nil {
		s.logger.WithError(err).WithField("representation_reference", scope.Reference).Error("Failed to load representation")
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "The representation could not be loaded")
	}
	if rep.Status == repmodel.StatusWithdrawn {
		return nil, serviceerror.CustomServiceError(serviceerror.ConflictError, "A withdrawn representation cannot be reviewed")
	}

	docs := []repmodel.Document{}
	if rep.ContainsAttachments {
		docs, err = s.ledger.ListDocuments(ctx, scope.Reference)
		if err != nil {
			s.logger.WithError(err).WithField("representation_reference", scope.Reference).Error("Failed to load attachments")
			return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "The attachments could not be loaded")
		}
	}

	sess, err := s.sessions.Load(ctx, scope)
	if err != nil {
		return nil, s.stagingError(scope, err)
	}
	if !sess.Seeded {
		sess = Seed(rep, docs)
		if err := s.sessions.Save(ctx, scope, sess); err != nil {
			return nil, s.stagingError(scope, err)
		}
	}

	return &reviewContext{rep: rep, docs: docs, session: sess}, nil
}

func (s *reviewService) save(ctx context.Context, scope staging.Scope, sess *model.Session) *serviceerror.ServiceError {
	if err := s.sessions.Save(ctx, scope, sess); err != nil {
		return s.stagingError(scope, err)
	}
	return nil
}

// GetTaskList returns the staged decisions of every reviewable item
func (s *reviewService) GetTaskList(ctx context.Context, scope staging.Scope) (*model.TaskList, *serviceerror.ServiceError) {
	rc, serviceErr := s.load(ctx, scope)
	if serviceErr != nil {
		return nil, serviceErr
	}
	return BuildTaskList(rc.rep, rc.docs, rc.session), nil
}

// setCommentDecision records a comment decision and runs the attachment cascade
func setCommentDecision(sess *model.Session, decision model.Decision) {
	items, toDelete := ReconcileOnCommentDecisionChange(sess.Comment.Decision, decision, sess.Attachments)
	sess.Attachments = items
	sess.PendingDeletion = append(sess.PendingDeletion, toDelete...)
	sess.Comment.Decision = decision
}

// SetCommentDecision stages Accepted or Rejected for the comment.
// Accept-and-redact must go through the redaction editor.
func (s *reviewService) SetCommentDecision(ctx context.Context, scope staging.Scope, decision model.Decision) (string, *serviceerror.ServiceError) {
	if decision == model.DecisionAcceptAndRedact {
		return "", validationError(ErrRedactViaEditor, redactCommentPath(scope.Reference))
	}
	if !decision.IsValid() {
		return "", validationError(ErrDecisionRequired, commentPath(scope.Reference))
	}

	rc, serviceErr := s.load(ctx, scope)
	if serviceErr != nil {
		return "", serviceErr
	}

	setCommentDecision(rc.session, decision)
	if serviceErr := s.save(ctx, scope, rc.session); serviceErr != nil {
		return "", serviceErr
	}

	s.logger.WithFields(logrus.Fields{
		"representation_reference": scope.Reference,
		"decision":                 decision,
	}).Debug("Comment decision staged")
	return taskListPath(scope.Reference), nil
}

// GetRedactionView returns the comment, the staged draft and, when available,
// PII suggestions highlighted over the comment
func (s *reviewService) GetRedactionView(ctx context.Context, scope staging.Scope) (*model.RedactionView, *serviceerror.ServiceError) {
	rc, serviceErr := s.load(ctx, scope)
	if serviceErr != nil {
		return nil, serviceErr
	}

	view := &model.RedactionView{
		Reference: rc.rep.Reference,
		Comment:   rc.rep.Comment,
		Draft:     rc.session.RedactedComment,
	}

	var entities []redaction.Entity
	if s.suggester != nil && s.suggester.Enabled() {
		if suggestion := s.suggester.FetchRedactionSuggestions(ctx, rc.rep.Comment); suggestion != nil {
			view.SuggestionsAvailable = true
			view.Suggestion = suggestion
			entities = suggestion.Entities
		}
	}
	view.HighlightedComment = redaction.Highlight(rc.rep.Comment, entities)
	return view, nil
}

// SaveRedactedComment stages a redacted draft without changing the decision
func (s *reviewService) SaveRedactedComment(ctx context.Context, scope staging.Scope, draft string) (string, *serviceerror.ServiceError) {
	rc, serviceErr := s.load(ctx, scope)
	if serviceErr != nil {
		return "", serviceErr
	}

	rc.session.RedactedComment = draft
	if serviceErr := s.save(ctx, scope, rc.session); serviceErr != nil {
		return "", serviceErr
	}
	return redactCommentPath(scope.Reference), nil
}

// ApplySuggestions stages the suggested redaction as the draft
func (s *reviewService) ApplySuggestions(ctx context.Context, scope staging.Scope) (string, *serviceerror.ServiceError) {
	rc, serviceErr := s.load(ctx, scope)
	if serviceErr != nil {
		return "", serviceErr
	}

	var suggestion *redaction.Suggestion
	if s.suggester != nil && s.suggester.Enabled() {
		suggestion = s.suggester.FetchRedactionSuggestions(ctx, rc.rep.Comment)
	}
	if suggestion == nil {
		return "", serviceerror.CustomServiceError(serviceerror.ValidationError, "No redaction suggestions are available").
			WithRedirect(redactCommentPath(scope.Reference))
	}

	rc.session.RedactedComment = suggestion.RedactedText
	if serviceErr := s.save(ctx, scope, rc.session); serviceErr != nil {
		return "", serviceErr
	}
	return redactCommentPath(scope.Reference), nil
}

// AcceptRedactedComment stages accept-and-redact for the comment once the
// draft carries at least one redaction
func (s *reviewService) AcceptRedactedComment(ctx context.Context, scope staging.Scope) (string, *serviceerror.ServiceError) {
	rc, serviceErr := s.load(ctx, scope)
	if serviceErr != nil {
		return "", serviceErr
	}

	if err := ValidateRedactedComment(rc.session.RedactedComment); err != nil {
		return "", validationError(err, redactCommentPath(scope.Reference))
	}

	setCommentDecision(rc.session, model.DecisionAcceptAndRedact)
	if serviceErr := s.save(ctx, scope, rc.session); serviceErr != nil {
		return "", serviceErr
	}
	return taskListPath(scope.Reference), nil
}

// SetDocumentDecision stages a decision for one attachment
func (s *reviewService) SetDocumentDecision(ctx context.Context, scope staging.Scope, itemID string, decision model.Decision) (string, *serviceerror.ServiceError) {
	if !decision.IsValid() {
		return "", validationError(ErrDecisionRequired, documentPath(scope.Reference, itemID))
	}

	rc, serviceErr := s.load(ctx, scope)
	if serviceErr != nil {
		return "", serviceErr
	}

	item, ok := rc.session.Attachment(itemID)
	if !ok {
		return "", serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, "Attachment not found")
	}
	if rc.session.Comment.Decision == model.DecisionRejected {
		return "", validationError(ErrCommentRejected, taskListPath(scope.Reference))
	}
	if decision == model.DecisionAcceptAndRedact {
		if err := validateAttachmentRedaction(item, documentsByID(rc.docs)[itemID]); err != nil {
			return "", validationError(err, documentPath(scope.Reference, itemID))
		}
	}

	item.Decision = decision
	item.ForcedByComment = false
	if serviceErr := s.save(ctx, scope, rc.session); serviceErr != nil {
		return "", serviceErr
	}

	s.logger.WithFields(logrus.Fields{
		"representation_reference": scope.Reference,
		"item_id":                  itemID,
		"decision":                 decision,
	}).Debug("Attachment decision staged")
	return taskListPath(scope.Reference), nil
}

// UploadRedactedDocument stores a redacted replacement in the session's
// staging folder and records it against the attachment
func (s *reviewService) UploadRedactedDocument(ctx context.Context, scope staging.Scope, itemID string, upload Upload) (*model.StagedFile, *serviceerror.ServiceError) {
	if s.documents == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DocumentStoreError, "Document store is not configured")
	}
	if upload.FileName == "" || upload.Size <= 0 {
		return nil, validationError(ErrRedactedFileRequired, documentPath(scope.Reference, itemID))
	}
	if s.settings.MaxUploadSize > 0 && upload.Size > s.settings.MaxUploadSize {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "The file is too large").
			WithRedirect(documentPath(scope.Reference, itemID))
	}

	rc, serviceErr := s.load(ctx, scope)
	if serviceErr != nil {
		return nil, serviceErr
	}

	item, ok := rc.session.Attachment(itemID)
	if !ok {
		return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, "Attachment not found")
	}
	if rc.session.Comment.Decision == model.DecisionRejected {
		return nil, validationError(ErrCommentRejected, taskListPath(scope.Reference))
	}

	logger := s.logger.WithFields(logrus.Fields{
		"representation_reference": scope.Reference,
		"item_id":                  itemID,
	})

	folder, err := ensureFolder(ctx, s.documents, stagingFolderPath(s.settings, rc.rep, scope))
	if err != nil {
		logger.WithError(err).Error("Failed to resolve staging folder")
		return nil, serviceerror.CustomServiceError(serviceerror.DocumentStoreError, "The file could not be uploaded")
	}
	uploaded, err := s.documents.UploadDocument(ctx, folder.ID, upload.FileName, upload.Body, upload.Size)
	if err != nil {
		logger.WithError(err).Error("Failed to upload redacted attachment")
		return nil, serviceerror.CustomServiceError(serviceerror.DocumentStoreError, "The file could not be uploaded")
	}

	staged := model.StagedFile{ItemID: uploaded.ID, FileName: uploaded.Name, Size: uploaded.Size}
	item.Uploads = append(item.Uploads, staged)
	if serviceErr := s.save(ctx, scope, rc.session); serviceErr != nil {
		return nil, serviceErr
	}

	logger.WithField("upload_id", staged.ItemID).Info("Redacted attachment staged")
	return &staged, nil
}

// RemoveStagedUpload discards a staged upload. The stored file is deleted
// now when possible, otherwise on submit.
func (s *reviewService) RemoveStagedUpload(ctx context.Context, scope staging.Scope, itemID, uploadID string) *serviceerror.ServiceError {
	rc, serviceErr := s.load(ctx, scope)
	if serviceErr != nil {
		return serviceErr
	}

	item, ok := rc.session.Attachment(itemID)
	if !ok {
		return serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, "Attachment not found")
	}
	idx := slices.IndexFunc(item.Uploads, func(f model.StagedFile) bool { return f.ItemID == uploadID })
	if idx < 0 {
		return serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, "Upload not found")
	}
	item.Uploads = slices.Delete(item.Uploads, idx, idx+1)

	if s.documents == nil {
		rc.session.PendingDeletion = append(rc.session.PendingDeletion, uploadID)
	} else if err := s.documents.DeleteDocumentByID(ctx, uploadID); err != nil {
		s.logger.WithError(err).WithField("item_id", uploadID).Warn("Failed to delete staged upload, queued for submit")
		rc.session.PendingDeletion = append(rc.session.PendingDeletion, uploadID)
	}

	return s.save(ctx, scope, rc.session)
}

// validateForSubmit checks the session can be committed
func validateForSubmit(rc *reviewContext) *serviceerror.ServiceError {
	sess := rc.session
	reference := rc.rep.Reference

	if !IsReviewComplete(sess.Items()) {
		return validationError(ErrReviewIncomplete, taskListPath(reference))
	}
	if sess.Comment.Decision == model.DecisionAcceptAndRedact {
		if err := ValidateRedactedComment(sess.RedactedComment); err != nil {
			return validationError(err, redactCommentPath(reference))
		}
	}

	byID := documentsByID(rc.docs)
	for i := range sess.Attachments {
		item := &sess.Attachments[i]
		if item.Decision != model.DecisionAcceptAndRedact {
			continue
		}
		if err := validateAttachmentRedaction(item, byID[item.Key]); err != nil {
			return validationError(err, documentPath(reference, item.Key))
		}
	}
	return nil
}

// SubmitReview commits the staged decisions, reconciles the document store
// and clears the staged review
func (s *reviewService) SubmitReview(ctx context.Context, scope staging.Scope) (string, *serviceerror.ServiceError) {
	rc, serviceErr := s.load(ctx, scope)
	if serviceErr != nil {
		return "", serviceErr
	}
	sess := rc.session

	if sess.Comment.Decision == model.DecisionRejected {
		items, toDelete := ReconcileOnCommentDecisionChange(model.DecisionUnset, model.DecisionRejected, sess.Attachments)
		sess.Attachments = items
		sess.PendingDeletion = append(sess.PendingDeletion, toDelete...)
	}

	if serviceErr := validateForSubmit(rc); serviceErr != nil {
		return "", serviceErr
	}

	logger := s.logger.WithFields(logrus.Fields{
		"representation_reference": rc.rep.Reference,
		"case_id":                  rc.rep.CaseID,
	})

	if err := commitTransaction(ctx, s.ledger, rc.rep, planCommit(rc.docs, sess), s.logger); err != nil {
		logger.WithError(err).Error("Failed to commit review")
		return "", serviceerror.CustomServiceError(serviceerror.DatabaseError, "The review could not be saved")
	}

	if err := s.orchestrator.Apply(ctx, rc.rep, scope, planDocumentChanges(rc.docs, sess)); err != nil {
		logger.WithError(err).Error("Failed to update documents after review commit")
		return "", serviceerror.CustomServiceError(serviceerror.DocumentStoreError, "The review was saved but its documents could not be updated")
	}

	if err := s.sessions.Clear(ctx, scope, sess); err != nil {
		logger.WithError(err).Warn("Failed to clear staged review")
	}

	logger.WithField("status", sess.Comment.Decision).Info("Review submitted")
	return taskListPath(scope.Reference), nil
}

// AbandonReview discards the staged review and everything it uploaded
func (s *reviewService) AbandonReview(ctx context.Context, scope staging.Scope) *serviceerror.ServiceError {
	rc, serviceErr := s.load(ctx, scope)
	if serviceErr != nil {
		return serviceErr
	}
	sess := rc.session

	if s.documents != nil {
		discarded := slices.Clone(sess.PendingDeletion)
		for _, item := range sess.Attachments {
			for _, upload := range item.Uploads {
				discarded = append(discarded, upload.ItemID)
			}
		}
		err := s.orchestrator.Apply(ctx, rc.rep, scope, documentChanges{ToDelete: slices.Compact(slices.Sorted(slices.Values(discarded)))})
		if err != nil {
			s.logger.WithError(err).WithField("representation_reference", scope.Reference).Warn("Failed to discard staged documents")
		}
	}

	if err := s.sessions.Clear(ctx, scope, sess); err != nil {
		return s.stagingError(scope, err)
	}
	return nil
}
