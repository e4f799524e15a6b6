package db

import (
	"crypto/aes"
	"encoding/base64"
	"fmt"

	"github.com/tagphi/czdb-lookup/pkg/utils"
)

const (
	ExpirationDateMask = 0xFFFFF // 低20位掩码
	ClientIdShift      = 20      // 客户端ID需要右移20位
)

// DecryptedBlock 表示解密后的块
type DecryptedBlock struct {
	ClientId       uint32 // 客户端ID (12位)
	ExpirationDate uint32 // 过期日期 yyMMdd (20位)
	RandomSize     uint32 // 随机数据大小
}

// parseDecryptedBlock 按白皮书解析: ClientId在高12位，ExpirationDate在低20位，随后4字节为随机数据大小
func parseDecryptedBlock(b []byte) (*DecryptedBlock, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("%w: decrypted data too small: %d bytes", ErrDecryption, len(b))
	}
	combined := utils.GetIntLong(b, 0)
	return &DecryptedBlock{
		ClientId:       combined >> ClientIdShift,
		ExpirationDate: combined & ExpirationDateMask,
		RandomSize:     utils.GetIntLong(b, 4),
	}, nil
}

// DecodeKey 从Base64字符串解码AES密钥，长度必须为16、24或32字节
func DecodeKey(key string) ([]byte, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode key: %v", ErrDecryption, err)
	}
	switch len(keyBytes) {
	case 16, 24, 32:
		return keyBytes, nil
	}
	return nil, fmt.Errorf("%w: invalid key length, must be 16, 24, or 32 bytes (got %d)", ErrDecryption, len(keyBytes))
}

// AESECBDecrypt 使用AES ECB模式解密数据
func AESECBDecrypt(encryptedData []byte, key []byte) ([]byte, error) {
	if len(encryptedData)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: encrypted data length %d is not a multiple of AES block size", ErrDecryption, len(encryptedData))
	}

	cipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: create AES cipher: %v", ErrDecryption, err)
	}

	decrypted := make([]byte, len(encryptedData))
	// ECB模式下，逐个块解密
	for bs := 0; bs < len(encryptedData); bs += aes.BlockSize {
		cipher.Decrypt(decrypted[bs:bs+aes.BlockSize], encryptedData[bs:bs+aes.BlockSize])
	}
	return decrypted, nil
}

// DecryptEncryptedBytes 使用给定的Base64 key解密数据
func DecryptEncryptedBytes(encryptedBytes []byte, key string) ([]byte, error) {
	keyBytes, err := DecodeKey(key)
	if err != nil {
		return nil, err
	}
	return AESECBDecrypt(encryptedBytes, keyBytes)
}
