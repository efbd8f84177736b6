package mail

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strconv"
	"strings"
)

// Category is a coarse classification of a send failure. It decides whether
// the attempt loop retries and is what callers see in results and the
// delivery tracker.
type Category string

const (
	CategoryNone           Category = ""
	CategoryConnection     Category = "connection"
	CategoryTimeout        Category = "timeout"
	CategoryAuthentication Category = "authentication"
	CategoryRecipient      Category = "recipient"
	CategoryConfiguration  Category = "configuration"
	CategoryUnknown        Category = "unknown"
)

// Retryable reports whether a failure of this category is transient.
// Credential and validation faults are never retried.
func (c Category) Retryable() bool {
	switch c {
	case CategoryConnection, CategoryTimeout, CategoryUnknown:
		return true
	}
	return false
}

// Classify maps a send error to its failure category.
func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryConnection
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return classifyCode(protoErr.Code)
	}

	// gomail wraps SMTP responses as plain errors; fall back to the status
	// code embedded in the message.
	msg := err.Error()
	switch {
	case containsCode(msg, 530, 534, 535):
		return CategoryAuthentication
	case containsCode(msg, 550, 551, 553):
		return CategoryRecipient
	case containsCode(msg, 421, 450, 451, 452):
		return CategoryConnection
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "connection reset"):
		return CategoryConnection
	case strings.Contains(strings.ToLower(msg), "auth"):
		return CategoryAuthentication
	}
	return CategoryUnknown
}

func classifyCode(code int) Category {
	switch code {
	case 530, 534, 535:
		return CategoryAuthentication
	case 550, 551, 553:
		return CategoryRecipient
	case 421, 450, 451, 452:
		// Transient server errors per RFC 5321.
		return CategoryConnection
	}
	if code >= 400 && code < 500 {
		return CategoryConnection
	}
	return CategoryUnknown
}

func containsCode(msg string, codes ...int) bool {
	for _, code := range codes {
		if strings.Contains(msg, strconv.Itoa(code)) {
			return true
		}
	}
	return false
}
