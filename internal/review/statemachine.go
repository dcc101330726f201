package review

import (
	"errors"
	"strings"

	repmodel "github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/redaction"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/review/model"
)

var (
	ErrDecisionRequired      = errors.New("select a decision")
	ErrRedactedTextRequired  = errors.New("enter the redacted comment")
	ErrRedactionMarkRequired = errors.New("redact at least one part of the comment")
	ErrRedactedFileRequired  = errors.New("upload a redacted version of the attachment")
	ErrRedactViaEditor       = errors.New("redact the comment before accepting it")
	ErrCommentRejected       = errors.New("attachments are rejected with the comment")
	ErrReviewIncomplete      = errors.New("review every item before submitting")
)

// Seed builds the staged decisions from the persisted representation. The
// comment is always reviewable; attachments only when the representation
// declares them. Attachments rejected alongside a rejected comment are
// treated as rejected by the comment, so reversing it resets them.
func Seed(rep *repmodel.Representation, docs []repmodel.Document) *model.Session {
	sess := &model.Session{
		Seeded: true,
		Comment: model.ItemState{
			Key:      model.CommentKey,
			Decision: seedDecision(rep.Status, rep.IsRedacted()),
		},
	}
	if rep.CommentRedacted != nil {
		sess.RedactedComment = *rep.CommentRedacted
	}

	if !rep.ContainsAttachments {
		return sess
	}
	commentRejected := sess.Comment.Decision == model.DecisionRejected
	for _, doc := range docs {
		decision := seedDecision(doc.Status, doc.HasRedactedCopy())
		sess.Attachments = append(sess.Attachments, model.ItemState{
			Key:             doc.ItemID,
			Decision:        decision,
			ForcedByComment: commentRejected && decision == model.DecisionRejected,
		})
	}
	return sess
}

func seedDecision(status repmodel.Status, redacted bool) model.Decision {
	switch status {
	case repmodel.StatusAccepted:
		if redacted {
			return model.DecisionAcceptAndRedact
		}
		return model.DecisionAccepted
	case repmodel.StatusRejected:
		return model.DecisionRejected
	default:
		return model.DecisionUnset
	}
}

// ReconcileOnCommentDecisionChange applies the comment decision cascade to
// the attachments. Rejecting the comment rejects every attachment and
// releases their staged uploads; leaving Rejected returns the force-rejected
// attachments to Unset. The input slice is not modified.
func ReconcileOnCommentDecisionChange(oldDecision, newDecision model.Decision, attachments []model.ItemState) ([]model.ItemState, []string) {
	items := make([]model.ItemState, len(attachments))
	copy(items, attachments)

	var toDelete []string
	switch {
	case newDecision == model.DecisionRejected && oldDecision != model.DecisionRejected:
		for i := range items {
			for _, upload := range items[i].Uploads {
				toDelete = append(toDelete, upload.ItemID)
			}
			items[i].Uploads = nil
			items[i].Decision = model.DecisionRejected
			items[i].ForcedByComment = true
		}
	case oldDecision == model.DecisionRejected && newDecision != model.DecisionRejected:
		for i := range items {
			if items[i].ForcedByComment {
				items[i].Decision = model.DecisionUnset
				items[i].ForcedByComment = false
			}
		}
	}
	return items, toDelete
}

// IsReviewComplete reports whether every item has a final decision
func IsReviewComplete(items []model.ItemState) bool {
	for _, item := range items {
		if !item.Decision.IsValid() {
			return false
		}
	}
	return true
}

// ValidateRedactedComment checks a draft can back an accept-and-redact decision
func ValidateRedactedComment(draft string) error {
	if strings.TrimSpace(draft) == "" {
		return ErrRedactedTextRequired
	}
	if !strings.ContainsRune(draft, redaction.Marker) {
		return ErrRedactionMarkRequired
	}
	return nil
}

// validateAttachmentRedaction checks an accept-and-redact attachment has a
// redacted copy, staged or persisted
func validateAttachmentRedaction(item *model.ItemState, persisted *repmodel.Document) error {
	if len(item.Uploads) > 0 {
		return nil
	}
	if persisted != nil && persisted.HasRedactedCopy() {
		return nil
	}
	return ErrRedactedFileRequired
}

// tagFor returns the task list tag of a decision
func tagFor(decision model.Decision) string {
	switch decision {
	case model.DecisionAccepted:
		return model.TagAccepted
	case model.DecisionAcceptAndRedact:
		return model.TagAcceptedAndRedacted
	case model.DecisionRejected:
		return model.TagRejected
	default:
		return model.TagIncomplete
	}
}

// BuildTaskList renders the staged session as a task list
func BuildTaskList(rep *repmodel.Representation, docs []repmodel.Document, sess *model.Session) *model.TaskList {
	byID := documentsByID(docs)

	list := &model.TaskList{
		Reference:     rep.Reference,
		CaseReference: rep.CaseReference,
		SubmittedFor:  rep.SubmittedFor,
		Items: []model.TaskListItem{{
			Key:             model.CommentKey,
			Label:           "Comment",
			Decision:        sess.Comment.Decision,
			Tag:             tagFor(sess.Comment.Decision),
			HasRedactedCopy: rep.IsRedacted() || sess.RedactedComment != "",
		}},
		ReviewComplete: IsReviewComplete(sess.Items()),
	}

	for _, item := range sess.Attachments {
		row := model.TaskListItem{
			Key:      item.Key,
			Label:    "Attachment",
			Decision: item.Decision,
			Tag:      tagFor(item.Decision),
			Uploads:  item.Uploads,
		}
		if doc, ok := byID[item.Key]; ok {
			row.Label = doc.FileName
			row.FileName = doc.FileName
			row.HasRedactedCopy = doc.HasRedactedCopy() || len(item.Uploads) > 0
		}
		list.Items = append(list.Items, row)
	}
	return list
}

func documentsByID(docs []repmodel.Document) map[string]*repmodel.Document {
	byID := make(map[string]*repmodel.Document, len(docs))
	for i := range docs {
		byID[docs[i].ItemID] = &docs[i]
	}
	return byID
}
