package validation

import (
	"fmt"
	"math"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// IDRegex validates document, policy and part ids
	IDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// BinIDRegex validates bin identifiers such as BIN_A or REJECT_BIN
	BinIDRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

const (
	MaxIDLength       = 100
	MaxFilenameLength = 255
	MaxQuestionLength = 2000
	MaxReasonLength   = 500
)

// ValidateID validates an opaque identifier
func ValidateID(id, fieldName string) error {
	if id == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, MaxIDLength)
	}
	if !IDRegex.MatchString(id) {
		return fmt.Errorf("invalid %s format", fieldName)
	}
	return nil
}

// ValidateBinID validates a bin identifier
func ValidateBinID(bin string) error {
	if bin == "" {
		return fmt.Errorf("bin is required")
	}
	if len(bin) > MaxIDLength {
		return fmt.Errorf("bin is too long (max %d characters)", MaxIDLength)
	}
	if !BinIDRegex.MatchString(bin) {
		return fmt.Errorf("invalid bin %q (upper case letters, digits and _ only)", bin)
	}
	return nil
}

// ValidateFilename validates an uploaded document name
func ValidateFilename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("filename is required")
	}
	if len(name) > MaxFilenameLength {
		return fmt.Errorf("filename is too long (max %d characters)", MaxFilenameLength)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("filename contains invalid characters")
	}
	if strings.ContainsAny(name, `/\`) || path.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("filename must not contain a path")
	}
	return nil
}

// ValidateQuestion validates an operator question
func ValidateQuestion(q string) error {
	if err := ValidateNonEmptyString(q, "question"); err != nil {
		return err
	}
	return ValidateStringLength(q, 1, MaxQuestionLength, "question")
}

// ValidateURL validates URL format. With no schemes given http, https, ws
// and wss are accepted.
func ValidateURL(urlStr string, schemes ...string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if len(schemes) == 0 {
		schemes = []string{"http", "https", "ws", "wss"}
	}
	ok := false
	for _, s := range schemes {
		if u.Scheme == s {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid URL scheme %q (must be one of %s)", u.Scheme, strings.Join(schemes, ", "))
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateUnitInterval validates that v lies in [0, 1]
func ValidateUnitInterval(v float64, fieldName string) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0, 1]", fieldName)
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
