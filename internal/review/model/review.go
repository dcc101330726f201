package model

import "github.com/Planning-Inspectorate/crown-developments-sub002/internal/redaction"

// Decision is the staged review decision of one reviewable item
type Decision string

const (
	DecisionUnset           Decision = ""
	DecisionAccepted        Decision = "accepted"
	DecisionAcceptAndRedact Decision = "accept-and-redact"
	DecisionRejected        Decision = "rejected"
)

// IsValid reports whether d is one of the three final decisions
func (d Decision) IsValid() bool {
	switch d {
	case DecisionAccepted, DecisionAcceptAndRedact, DecisionRejected:
		return true
	}
	return false
}

// CommentKey identifies the comment among the reviewable items
const CommentKey = "comment"

// Task list tags
const (
	TagAccepted            = "Accepted"
	TagAcceptedAndRedacted = "Accepted and redacted"
	TagRejected            = "Rejected"
	TagIncomplete          = "Incomplete"
)

// StagedFile is a redacted replacement uploaded but not yet committed
type StagedFile struct {
	ItemID   string `json:"itemId"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}

// ItemState is the staged state of one reviewable item
type ItemState struct {
	Key             string       `json:"key"`
	Decision        Decision     `json:"decision"`
	ForcedByComment bool         `json:"forcedByComment,omitempty"`
	Uploads         []StagedFile `json:"uploads,omitempty"`
}

// LatestUpload returns the most recent staged upload, if any
func (s *ItemState) LatestUpload() (StagedFile, bool) {
	if len(s.Uploads) == 0 {
		return StagedFile{}, false
	}
	return s.Uploads[len(s.Uploads)-1], true
}

// Session is the staged review of one representation by one user
type Session struct {
	Seeded          bool
	Comment         ItemState
	Attachments     []ItemState
	RedactedComment string
	PendingDeletion []string
}

// Items returns the comment followed by every attachment
func (s *Session) Items() []ItemState {
	items := make([]ItemState, 0, len(s.Attachments)+1)
	items = append(items, s.Comment)
	return append(items, s.Attachments...)
}

// Attachment returns the staged state of an attachment by item id
func (s *Session) Attachment(itemID string) (*ItemState, bool) {
	for i := range s.Attachments {
		if s.Attachments[i].Key == itemID {
			return &s.Attachments[i], true
		}
	}
	return nil, false
}

// TaskListItem is one row of the review task list
type TaskListItem struct {
	Key             string       `json:"key"`
	Label           string       `json:"label"`
	FileName        string       `json:"fileName,omitempty"`
	Decision        Decision     `json:"decision"`
	Tag             string       `json:"tag"`
	HasRedactedCopy bool         `json:"hasRedactedCopy"`
	Uploads         []StagedFile `json:"uploads,omitempty"`
}

// TaskList is the view model of a representation under review
type TaskList struct {
	Reference      string         `json:"reference"`
	CaseReference  string         `json:"caseReference"`
	SubmittedFor   string         `json:"submittedFor"`
	Items          []TaskListItem `json:"items"`
	ReviewComplete bool           `json:"reviewComplete"`
}

// RedactionView is the view model of the comment redaction editor
type RedactionView struct {
	Reference            string                `json:"reference"`
	Comment              string                `json:"comment"`
	Draft                string                `json:"draft"`
	HighlightedComment   string                `json:"highlightedComment"`
	SuggestionsAvailable bool                  `json:"suggestionsAvailable"`
	Suggestion           *redaction.Suggestion `json:"suggestion,omitempty"`
}
