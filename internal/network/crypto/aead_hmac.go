package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// KeySize 为 AES-256 密钥长度。
const KeySize = 32

// AEADHMAC 使用 AES-256-GCM 加密，并对 nonce、密文与关联数据再做一层 HMAC-SHA256。
//
// 报文格式：nonce || ciphertext || mac
//   - nonce     ：长度等于 AEAD.NonceSize()
//   - ciphertext：GCM 密文，含 tag
//   - mac       ：HMAC-SHA256(nonce || ciphertext || aad)
type AEADHMAC struct {
	aead    cipher.AEAD
	hmacKey []byte
}

var _ Encryptor = (*AEADHMAC)(nil)

// NewAEADHMAC 创建加密器。encKey 必须为 32 字节，macKey 不能为空。
func NewAEADHMAC(encKey, macKey []byte) (*AEADHMAC, error) {
	if len(encKey) != KeySize {
		return nil, merr.WrapErrParameterInvalid(KeySize, len(encKey), "crypto: encryption key length")
	}
	if len(macKey) == 0 {
		return nil, merr.WrapErrParameterInvalidMsg("crypto: mac key is empty")
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, merr.WrapErrParameterInvalidMsg("crypto: %s", err.Error())
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, merr.WrapErrParameterInvalidMsg("crypto: %s", err.Error())
	}
	return &AEADHMAC{
		aead:    aead,
		hmacKey: append([]byte(nil), macKey...),
	}, nil
}

func (c *AEADHMAC) Name() string { return "aes-256-gcm+hmac-sha256" }

func (c *AEADHMAC) Encrypt(plaintext, aad []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	sealed := make([]byte, nonceSize, nonceSize+len(plaintext)+c.aead.Overhead()+sha256.Size)
	if _, err := io.ReadFull(rand.Reader, sealed); err != nil {
		return nil, merr.WrapErrIo(err, "crypto: nonce")
	}
	sealed = c.aead.Seal(sealed, sealed[:nonceSize], plaintext, aad)
	return append(sealed, c.mac(sealed, aad)...), nil
}

// Decrypt 先校验 MAC 再解密，任一步失败都视为报文损坏。
func (c *AEADHMAC) Decrypt(sealed, aad []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize+c.aead.Overhead()+sha256.Size {
		return nil, merr.WrapErrFrameMalformed("sealed payload too short")
	}

	macOffset := len(sealed) - sha256.Size
	if !hmac.Equal(c.mac(sealed[:macOffset], aad), sealed[macOffset:]) {
		return nil, merr.WrapErrFrameMalformed("payload mac mismatch")
	}

	plaintext, err := c.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:macOffset], aad)
	if err != nil {
		return nil, merr.WrapErrFrameMalformed("payload decryption failed")
	}
	return plaintext, nil
}

func (c *AEADHMAC) mac(nonceAndCiphertext, aad []byte) []byte {
	m := hmac.New(sha256.New, c.hmacKey)
	_, _ = m.Write(nonceAndCiphertext)
	_, _ = m.Write(aad)
	return m.Sum(nil)
}
