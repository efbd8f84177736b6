package vault

import (
	"strings"
	"unicode"
)

// common passwords that zero out most of the score when matched
var commonPasswords = []string{"password", "123456", "12345678", "qwerty", "letmein", "abc123"}

const specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// ScorePassword rates a password from 0 to 100 together with feedback on how
// to improve it. Length and character-class diversity add points; common
// dictionary passwords are penalized heavily.
func ScorePassword(password string) (int, []string) {
	score := 0
	var feedback []string

	switch {
	case len(password) >= 16:
		score += 40
	case len(password) >= 12:
		score += 30
	case len(password) >= 8:
		score += 20
	default:
		feedback = append(feedback, "use at least 8 characters")
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}
	if hasLower {
		score += 10
	} else {
		feedback = append(feedback, "add lowercase letters")
	}
	if hasUpper {
		score += 10
	} else {
		feedback = append(feedback, "add uppercase letters")
	}
	if hasDigit {
		score += 15
	} else {
		feedback = append(feedback, "add digits")
	}
	if hasSpecial {
		score += 15
	} else {
		feedback = append(feedback, "add special characters")
	}

	lower := strings.ToLower(password)
	for _, common := range commonPasswords {
		if strings.Contains(lower, common) {
			score -= 50
			feedback = append(feedback, "avoid common dictionary passwords")
			break
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, feedback
}
