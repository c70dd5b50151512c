// Package retry decides whether and when a failed synchronization attempt is
// tried again.
package retry

import (
	"context"
	"errors"
	"strings"
	"unicode"

	syncErrors "github.com/c0deZ3R0/readsync/errors"
)

// Category classifies the cause of a failure.
type Category string

const (
	CategoryNetwork       Category = "NETWORK"
	CategoryDataConflict  Category = "DATA_CONFLICT"
	CategoryAuthorization Category = "AUTHORIZATION"
	CategoryUnknown       Category = "UNKNOWN"

	// CategoryPermanent covers structured errors that declare themselves
	// terminal, and caller cancellation.
	CategoryPermanent Category = "PERMANENT"
)

// Analysis is the outcome of AnalyzeFailureReason.
type Analysis struct {
	Category  Category `json:"category"`
	Retryable bool     `json:"retryable"`
	Reason    string   `json:"reason"`
}

// Keyword lists are matched against the lower-cased error text in this
// order: authorization, network, data conflict.
var (
	authorizationKeywords = []string{
		"unauthorized", "forbidden", "authentication", "not authorized",
		"permission denied", "access denied", "invalid token", "token expired",
	}
	networkKeywords = []string{
		"network", "timeout", "timed out", "connection", "econnreset",
		"econnrefused", "unreachable", "dns", "socket", "temporarily unavailable",
	}
	dataConflictKeywords = []string{
		"conflict", "version mismatch", "concurrent modification", "stale",
		"precondition failed",
	}
)

// HTTP status codes count only as whole tokens, so record ids such as
// book-4012 never match.
var (
	authorizationCodes = []string{"401", "403"}
	networkCodes       = []string{"502", "503", "504"}
	dataConflictCodes  = []string{"409", "412"}
)

// AnalyzeFailureReason classifies err. Unrecognised errors are UNKNOWN and
// retryable.
func AnalyzeFailureReason(err error) Analysis {
	if err == nil {
		return Analysis{Category: CategoryUnknown, Retryable: true, Reason: "no error recorded"}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Analysis{Category: CategoryNetwork, Retryable: true, Reason: "deadline exceeded"}
	case errors.Is(err, context.Canceled):
		return Analysis{Category: CategoryPermanent, Retryable: false, Reason: "canceled by caller"}
	}

	var syncErr *syncErrors.SyncError
	if errors.As(err, &syncErr) && !syncErr.Retryable {
		switch {
		case syncErr.Kind == syncErrors.KindInvalid,
			syncErr.Kind == syncErrors.KindPermanent,
			syncErr.Code == syncErrors.ErrCodeInvalidInput,
			syncErr.Code == syncErrors.ErrCodeNonRetryable,
			syncErr.Code == syncErrors.ErrCodeMaxRetriesExceeded:
			return Analysis{Category: CategoryPermanent, Retryable: false, Reason: "error is marked permanent"}
		}
	}

	msg := strings.ToLower(err.Error())
	codes := statusCodes(msg)
	if kw, ok := match(msg, codes, authorizationKeywords, authorizationCodes); ok {
		return Analysis{Category: CategoryAuthorization, Retryable: false, Reason: "matched " + kw}
	}
	if kw, ok := match(msg, codes, networkKeywords, networkCodes); ok {
		return Analysis{Category: CategoryNetwork, Retryable: true, Reason: "matched " + kw}
	}
	if kw, ok := match(msg, codes, dataConflictKeywords, dataConflictCodes); ok {
		return Analysis{Category: CategoryDataConflict, Retryable: true, Reason: "matched " + kw}
	}
	return Analysis{Category: CategoryUnknown, Retryable: true, Reason: "unclassified error"}
}

// statusCodes returns the three-digit tokens of msg. Letters, digits, '-',
// '_' and '.' all belong to a token.
func statusCodes(msg string) map[string]bool {
	found := make(map[string]bool)
	tokens := strings.FieldsFunc(msg, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && r != '.'
	})
	for _, tok := range tokens {
		if len(tok) == 3 && strings.Trim(tok, "0123456789") == "" {
			found[tok] = true
		}
	}
	return found
}

func match(msg string, codes map[string]bool, keywords, statuses []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return kw, true
		}
	}
	for _, code := range statuses {
		if codes[code] {
			return "status " + code, true
		}
	}
	return "", false
}

var (
	errNilJob      = errors.New("retry job must not be nil")
	errNilExecutor = errors.New("retry executor must not be nil")
)
