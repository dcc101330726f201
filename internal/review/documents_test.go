package review

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repmodel "github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/review/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/staging"
)

var testSettings = Settings{
	AttachmentsFolder: "Published/Attachments",
	StagingFolder:     "System/Redaction-Staging",
	MaxUploadSize:     1 << 20,
}

func TestPlanDocumentChanges_Accepted(t *testing.T) {
	docs := []repmodel.Document{
		{ItemID: "a", RedactedItemID: strPtr("a-old")},
		{ItemID: "b", RedactedItemID: strPtr("b-old")},
		{ItemID: "c"},
		{ItemID: "d", RedactedItemID: strPtr("d-red")},
	}
	sess := &model.Session{
		Comment: model.ItemState{Key: model.CommentKey, Decision: model.DecisionAccepted},
		Attachments: []model.ItemState{
			{Key: "a", Decision: model.DecisionAcceptAndRedact, Uploads: []model.StagedFile{{ItemID: "a1"}, {ItemID: "a2"}}},
			{Key: "b", Decision: model.DecisionAccepted},
			{Key: "c", Decision: model.DecisionRejected, Uploads: []model.StagedFile{{ItemID: "c1"}}},
			{Key: "d", Decision: model.DecisionAcceptAndRedact},
		},
		PendingDeletion: []string{"x1", "c1"},
	}

	changes := planDocumentChanges(docs, sess)

	assert.Equal(t, []string{"a2"}, changes.ToMove)
	assert.ElementsMatch(t, []string{"x1", "c1", "a1", "a-old", "b-old"}, changes.ToDelete)
}

func TestPlanDocumentChanges_RejectedCommentDiscardsEverything(t *testing.T) {
	docs := []repmodel.Document{
		{ItemID: "a", RedactedItemID: strPtr("a-red")},
		{ItemID: "b"},
	}
	sess := &model.Session{
		Comment: model.ItemState{Key: model.CommentKey, Decision: model.DecisionRejected},
		Attachments: []model.ItemState{
			{Key: "a", Decision: model.DecisionRejected, ForcedByComment: true},
			{Key: "b", Decision: model.DecisionRejected, ForcedByComment: true, Uploads: []model.StagedFile{{ItemID: "b1"}}},
		},
		PendingDeletion: []string{"a1", "a2", "a1"},
	}

	changes := planDocumentChanges(docs, sess)

	assert.Empty(t, changes.ToMove)
	assert.Equal(t, []string{"a1", "a2", "a-red", "b1"}, changes.ToDelete)
}

func TestDocumentOrchestrator_Apply(t *testing.T) {
	store := newFakeDocumentStore()
	logger, _ := test.NewNullLogger()
	orch := &documentOrchestrator{store: store, settings: testSettings, logger: logger}
	rep := &repmodel.Representation{Reference: "REP-1", CaseID: "case-1", CaseReference: "CROWN/2025/0001"}
	scope := staging.Scope{SessionID: "sess-1", Reference: "REP-1"}

	err := orch.Apply(context.Background(), rep, scope, documentChanges{
		ToMove:   []string{"u2"},
		ToDelete: []string{"u1", "old"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, store.moved)
	assert.Equal(t, "CROWN-2025-0001/Published/Attachments", store.movedTo)
	assert.True(t, store.folders["CROWN-2025-0001/Published/Attachments"])
	assert.Equal(t, []string{"u1", "old"}, store.deleted)
	assert.Equal(t, []string{"CROWN-2025-0001/System/Redaction-Staging/REP-1/sess-1"}, store.deletedFolders)
}

func TestDocumentOrchestrator_MoveFailureFailsRequest(t *testing.T) {
	store := newFakeDocumentStore()
	store.moveErr = errors.New("throttled")
	logger, _ := test.NewNullLogger()
	orch := &documentOrchestrator{store: store, settings: testSettings, logger: logger}
	rep := &repmodel.Representation{Reference: "REP-1", CaseID: "case-1", CaseReference: "CROWN/2025/0001"}

	err := orch.Apply(context.Background(), rep, staging.Scope{SessionID: "s", Reference: "REP-1"}, documentChanges{
		ToMove:   []string{"u2"},
		ToDelete: []string{"u1"},
	})

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, "move redacted attachments", commitErr.Op)
	assert.Equal(t, "case-1", commitErr.CaseID)
	assert.Empty(t, store.deleted)
}

func TestDocumentOrchestrator_DeleteFailuresAreLogged(t *testing.T) {
	store := newFakeDocumentStore()
	store.deleteErr = errors.New("gone away")
	logger, hook := test.NewNullLogger()
	orch := &documentOrchestrator{store: store, settings: testSettings, logger: logger}
	rep := &repmodel.Representation{Reference: "REP-1", CaseReference: "CROWN/2025/0001"}

	err := orch.Apply(context.Background(), rep, staging.Scope{SessionID: "s", Reference: "REP-1"}, documentChanges{
		ToDelete: []string{"u1", "u2"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, store.deleted)
	assert.Len(t, hook.AllEntries(), 2)
	assert.Len(t, store.deletedFolders, 1)
}

func TestDocumentOrchestrator_NoStore(t *testing.T) {
	logger, hook := test.NewNullLogger()
	orch := &documentOrchestrator{settings: testSettings, logger: logger}

	err := orch.Apply(context.Background(), &repmodel.Representation{Reference: "REP-1"}, staging.Scope{}, documentChanges{
		ToMove: []string{"u1"},
	})

	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "No document store")
}
