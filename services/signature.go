package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrSignatureFormat は署名ヘッダーの形式が不正な場合に返されます
var ErrSignatureFormat = errors.New("invalid signature format")

// VerifyWebhookSignature はWebhookペイロードの署名を検証します。
// 署名ヘッダーはカンマ区切りの key=value で、v1 の値（hexダイジェスト）を
// `{timestamp}.{rawBody}` に対するHMAC-SHA256と定数時間で比較します。
// ヘッダー・タイムスタンプ・シークレットのいずれかが欠けていれば不一致扱いです。
func VerifyWebhookSignature(body []byte, signatureHeader, timestamp, secret string) (bool, error) {
	if signatureHeader == "" || timestamp == "" || secret == "" {
		return false, nil
	}

	expected, err := extractV1Signature(signatureHeader)
	if err != nil {
		return false, err
	}

	signedContent := timestamp + "." + string(body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedContent))
	computed := mac.Sum(nil)

	// タイミング攻撃を避けるため hmac.Equal で比較する
	return hmac.Equal(computed, expected), nil
}

func extractV1Signature(header string) ([]byte, error) {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if value, ok := strings.CutPrefix(part, "v1="); ok {
			decoded, err := hex.DecodeString(value)
			if err != nil {
				return nil, ErrSignatureFormat
			}
			return decoded, nil
		}
	}
	return nil, ErrSignatureFormat
}
