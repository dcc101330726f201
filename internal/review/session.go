package review

import (
	"context"
	"fmt"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/review/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/staging"
)

// Staging layout: one key per reviewable item plus a meta key.
// Attachment keys are namespaced apart from the comment and meta keys.
const (
	metaKey          = "_review"
	attachmentPrefix = "doc:"

	fieldSeeded          = "seeded"
	fieldAttachments     = "attachments"
	fieldPendingDeletion = "pendingDeletion"
	fieldDecision        = "decision"
	fieldForced          = "forcedByComment"
	fieldUploads         = "uploads"
	fieldRedactedComment = "redactedComment"
)

// sessionStore maps a typed review session onto the staging store
type sessionStore struct {
	store staging.Store
}

// Load reads the staged session. An unseeded session is returned when
// nothing has been staged yet.
func (s *sessionStore) Load(ctx context.Context, scope staging.Scope) (*model.Session, error) {
	sess := &model.Session{Comment: model.ItemState{Key: model.CommentKey}}

	if _, err := s.store.Get(ctx, scope, metaKey, fieldSeeded, &sess.Seeded); err != nil {
		return nil, err
	}
	if !sess.Seeded {
		return sess, nil
	}

	var attachmentIDs []string
	if _, err := s.store.Get(ctx, scope, metaKey, fieldAttachments, &attachmentIDs); err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, scope, metaKey, fieldPendingDeletion, &sess.PendingDeletion); err != nil {
		return nil, err
	}

	if err := s.loadItem(ctx, scope, model.CommentKey, &sess.Comment); err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, scope, model.CommentKey, fieldRedactedComment, &sess.RedactedComment); err != nil {
		return nil, err
	}

	for _, id := range attachmentIDs {
		item := model.ItemState{Key: id}
		if err := s.loadItem(ctx, scope, attachmentKey(id), &item); err != nil {
			return nil, err
		}
		sess.Attachments = append(sess.Attachments, item)
	}
	return sess, nil
}

func attachmentKey(itemID string) string {
	return attachmentPrefix + itemID
}

func (s *sessionStore) loadItem(ctx context.Context, scope staging.Scope, key string, item *model.ItemState) error {
	if _, err := s.store.Get(ctx, scope, key, fieldDecision, &item.Decision); err != nil {
		return err
	}
	if _, err := s.store.Get(ctx, scope, key, fieldForced, &item.ForcedByComment); err != nil {
		return err
	}
	if _, err := s.store.Get(ctx, scope, key, fieldUploads, &item.Uploads); err != nil {
		return err
	}
	return nil
}

// Save writes the whole session
func (s *sessionStore) Save(ctx context.Context, scope staging.Scope, sess *model.Session) error {
	attachmentIDs := make([]string, 0, len(sess.Attachments))
	for _, item := range sess.Attachments {
		attachmentIDs = append(attachmentIDs, item.Key)
	}

	if err := s.store.Set(ctx, scope, model.CommentKey, map[string]any{
		fieldDecision:        sess.Comment.Decision,
		fieldRedactedComment: sess.RedactedComment,
	}); err != nil {
		return fmt.Errorf("stage comment: %w", err)
	}

	for _, item := range sess.Attachments {
		if err := s.store.Set(ctx, scope, attachmentKey(item.Key), map[string]any{
			fieldDecision: item.Decision,
			fieldForced:   item.ForcedByComment,
			fieldUploads:  item.Uploads,
		}); err != nil {
			return fmt.Errorf("stage attachment %s: %w", item.Key, err)
		}
	}

	// meta last so a partially written session is never marked seeded
	if err := s.store.Set(ctx, scope, metaKey, map[string]any{
		fieldSeeded:          sess.Seeded,
		fieldAttachments:     attachmentIDs,
		fieldPendingDeletion: sess.PendingDeletion,
	}); err != nil {
		return fmt.Errorf("stage review: %w", err)
	}
	return nil
}

// Clear removes every staged key of the session
func (s *sessionStore) Clear(ctx context.Context, scope staging.Scope, sess *model.Session) error {
	if err := s.store.Clear(ctx, scope, metaKey); err != nil {
		return err
	}
	if err := s.store.Clear(ctx, scope, model.CommentKey); err != nil {
		return err
	}
	for _, item := range sess.Attachments {
		if err := s.store.Clear(ctx, scope, attachmentKey(item.Key)); err != nil {
			return err
		}
	}
	return nil
}
