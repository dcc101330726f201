package model

// Status is the persisted review status of a representation or one of its documents
type Status string

const (
	StatusAwaitingReview Status = "awaiting-review"
	StatusAccepted       Status = "accepted"
	StatusRejected       Status = "rejected"
	StatusWithdrawn      Status = "withdrawn"
)

// Representation is a submitted public comment on a case
type Representation struct {
	Reference           string  `db:"reference" json:"reference"`
	CaseID              string  `db:"case_id" json:"caseId"`
	CaseReference       string  `db:"case_reference" json:"caseReference"`
	Status              Status  `db:"status" json:"status"`
	Comment             string  `db:"comment" json:"comment"`
	CommentRedacted     *string `db:"comment_redacted" json:"commentRedacted,omitempty"`
	ContainsAttachments bool    `db:"contains_attachments" json:"containsAttachments"`
	SubmittedFor        string  `db:"submitted_for" json:"submittedFor"`
	SubmittedDate       int64   `db:"submitted_date" json:"submittedDate"`
	UpdatedTime         int64   `db:"updated_time" json:"updatedTime"`
}

// Document is an attachment uploaded alongside a representation
type Document struct {
	ItemID                  string  `db:"item_id" json:"itemId"`
	RepresentationReference string  `db:"representation_reference" json:"representationReference"`
	FileName                string  `db:"file_name" json:"fileName"`
	Status                  Status  `db:"status" json:"status"`
	RedactedItemID          *string `db:"redacted_item_id" json:"redactedItemId,omitempty"`
	RedactedFileName        *string `db:"redacted_file_name" json:"redactedFileName,omitempty"`
	UpdatedTime             int64   `db:"updated_time" json:"updatedTime"`
}

// HasRedactedCopy reports whether a redacted replacement has been persisted
func (d *Document) HasRedactedCopy() bool {
	return d.RedactedItemID != nil && *d.RedactedItemID != ""
}

// IsRedacted reports whether the persisted comment has a redacted version
func (r *Representation) IsRedacted() bool {
	return r.CommentRedacted != nil && *r.CommentRedacted != ""
}
