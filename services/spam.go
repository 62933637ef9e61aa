package services

import "regexp"

// スパム判定用のパターン
var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(viagra|casino|lottery|winner|prize|click here|buy now)\b`),
	regexp.MustCompile(`(.)\1{10,}`), // 同一文字の連続
	regexp.MustCompile(`(?i)<script|<iframe|javascript:`), // スクリプト挿入の試み
}

// ContactSubmission はスパム判定の対象となる入力です
type ContactSubmission struct {
	Name     string
	Email    string
	Message  string
	Honeypot string
}

// IsSpam はハニーポットと単純なパターンでスパムを判定します
func IsSpam(sub ContactSubmission) bool {
	// ハニーポットフィールドは空であるべき
	if sub.Honeypot != "" {
		return true
	}

	content := sub.Name + " " + sub.Message
	for _, pattern := range spamPatterns {
		if pattern.MatchString(content) {
			return true
		}
	}
	return false
}
