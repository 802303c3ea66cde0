package challenge

import (
	"crypto/rand"
	"fmt"
)

const (
	// CodeLength はチャレンジコードの文字数。
	CodeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// maxUnbiasedByte は剰余バイアスを避けるため受け付けるバイト値の上限（62の倍数）。
const maxUnbiasedByte = 256 - 256%len(codeAlphabet)

// CodeGenerator はチャレンジコードを生成する関数型。
type CodeGenerator func() (string, error)

// GenerateCode は暗号論的乱数で[A-Za-z0-9]の6文字コードを生成する。
func GenerateCode() (string, error) {
	out := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength*2)
	for len(out) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("乱数の生成に失敗しました: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiasedByte {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == CodeLength {
				break
			}
		}
	}
	return string(out), nil
}

// ValidCode はコードの形式が正しいかを返す。
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
