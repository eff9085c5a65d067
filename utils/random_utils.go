package utils

import (
	"crypto/rand"
	"math/big"
)

// RandomDigits 生成指定长度的安全随机数字串，用于邮箱验证码
func RandomDigits(n int) (string, error) {
	if n <= 0 {
		n = 6
	}
	buf := make([]byte, n)
	ten := big.NewInt(10)
	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}
