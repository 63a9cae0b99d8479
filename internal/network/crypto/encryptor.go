package crypto

// Encryptor 抽象了消息体的加密方案：
//   - Encrypt：加密并附加完整性校验，生成完整报文；
//   - Decrypt：校验后解密，还原明文。
//
// aad 为关联数据，不加密但受完整性保护，Codec 传入 wire 编码后的消息头。
type Encryptor interface {
	Name() string
	Encrypt(plaintext, aad []byte) (sealed []byte, err error)
	Decrypt(sealed, aad []byte) (plaintext []byte, err error)
}

// NopEncryptor 直接透传数据，是 Codec 未配置加密时的默认值。
type NopEncryptor struct{}

var _ Encryptor = NopEncryptor{}

func (NopEncryptor) Name() string { return "none" }

func (NopEncryptor) Encrypt(plaintext, _ []byte) ([]byte, error) {
	return plaintext, nil
}

func (NopEncryptor) Decrypt(sealed, _ []byte) ([]byte, error) {
	return sealed, nil
}
