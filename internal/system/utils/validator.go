package utils

import (
	"fmt"
	"strings"
	"unicode"
)

const maxIdentifierLength = 255

// ValidateRequired validates a field is not empty
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateIdentifier validates a reference, item id or session id taken from a request
func ValidateIdentifier(fieldName, value string) error {
	if err := ValidateRequired(fieldName, value); err != nil {
		return err
	}
	if len(value) > maxIdentifierLength {
		return fmt.Errorf("%s too long (max %d chars)", fieldName, maxIdentifierLength)
	}
	if strings.IndexFunc(value, unicode.IsControl) >= 0 {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}
