package review

import (
	"net/url"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/constants"
)

// Redirect targets returned to the presentation layer

func taskListPath(reference string) string {
	return constants.APIBasePath + "/representations/" + url.PathEscape(reference) + "/review"
}

func commentPath(reference string) string {
	return taskListPath(reference) + "/comment"
}

func redactCommentPath(reference string) string {
	return commentPath(reference) + "/redact"
}

func documentPath(reference, itemID string) string {
	return taskListPath(reference) + "/documents/" + url.PathEscape(itemID)
}
