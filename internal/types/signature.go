package types

import "github.com/mr-tron/base58"

const SignatureSize = 64

// IsSignature 判断 s 是否为 base58 编码的 64 字节交易签名
func IsSignature(s string) bool {
	if s == "" {
		return false
	}
	b, err := base58.Decode(s)
	return err == nil && len(b) == SignatureSize
}
