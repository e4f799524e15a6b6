package db

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tagphi/czdb-lookup/pkg/utils"
)

const (
	hyperHeaderFixedLength = 12      // 版本号(4) + 客户端ID(4) + 加密块大小(4)
	maxEncryptedBlockSize  = 1000000 // 加密块大小上限
)

// now 用于过期检查，测试中可替换
var now = time.Now

// HyperHeaderBlock 表示超级头部块
type HyperHeaderBlock struct {
	Version            uint32
	ClientId           uint32
	EncryptedBlockSize uint32
	DecryptedBlock     *DecryptedBlock
}

// HeaderSize 返回超级头部块加随机填充的总长度，数据库中所有指针都相对于该位置
func (h *HyperHeaderBlock) HeaderSize() int64 {
	return hyperHeaderFixedLength + int64(h.EncryptedBlockSize) + int64(h.DecryptedBlock.RandomSize)
}

// DecryptHyperHeaderBlock 读取并解密位于文件起始处的超级头部块
func DecryptHyperHeaderBlock(r io.ReaderAt, key string) (*HyperHeaderBlock, error) {
	fixed := make([]byte, hyperHeaderFixedLength)
	if err := readAt(r, fixed, 0); err != nil {
		return nil, fmt.Errorf("%w: read HyperHeaderBlock: %w", ErrIO, err)
	}

	hyperHeader := &HyperHeaderBlock{
		Version:            utils.GetIntLong(fixed, 0),
		ClientId:           utils.GetIntLong(fixed, 4),
		EncryptedBlockSize: utils.GetIntLong(fixed, 8),
	}

	if hyperHeader.EncryptedBlockSize == 0 || hyperHeader.EncryptedBlockSize > maxEncryptedBlockSize {
		return nil, fmt.Errorf("%w: invalid encrypted block size: %d", ErrDecryption, hyperHeader.EncryptedBlockSize)
	}

	encrypted := make([]byte, hyperHeader.EncryptedBlockSize)
	if err := readAt(r, encrypted, hyperHeaderFixedLength); err != nil {
		return nil, fmt.Errorf("%w: read encrypted block: %w", ErrIO, err)
	}

	decrypted, err := DecryptEncryptedBytes(encrypted, key)
	if err != nil {
		return nil, err
	}

	block, err := parseDecryptedBlock(decrypted)
	if err != nil {
		return nil, err
	}
	hyperHeader.DecryptedBlock = block

	// 密钥错误时解密出的客户端ID不会与明文一致
	if block.ClientId != hyperHeader.ClientId {
		return nil, fmt.Errorf("%w: wrong client id, key does not match database", ErrDecryption)
	}

	today, _ := strconv.Atoi(now().Format("060102"))
	if int(block.ExpirationDate) < today {
		return nil, fmt.Errorf("%w: database expired on %06d", ErrDecryption, block.ExpirationDate)
	}

	utils.Debug("HyperHeader: version=%d, clientId=%d, encryptedSize=%d, expiration=%06d, randomSize=%d\n",
		hyperHeader.Version, hyperHeader.ClientId, hyperHeader.EncryptedBlockSize, block.ExpirationDate, block.RandomSize)

	return hyperHeader, nil
}
