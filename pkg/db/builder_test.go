package db

import (
	"crypto/aes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/tagphi/czdb-lookup/pkg/utils"
)

// 测试用的密钥与客户端信息
var (
	testKeyBytes = []byte("0123456789abcdef")
	testKey      = base64.StdEncoding.EncodeToString(testKeyBytes)
)

const (
	testClientId   = 1234
	testExpiration = 991231
	testVersion    = 3
)

// testRange 是一条待写入的索引记录，start/end 为大端字节
type testRange struct {
	start, end []byte
	region     string
}

// testDB 描述一个合成的CZDB文件
type testDB struct {
	dbType     DbType
	ranges     []testRange // 按 start 升序
	step       int         // 每隔 step 条索引记录写一个头部项
	randomSize int
	expiration uint32
}

// buildDataRegion 生成超级头部块之后的数据部分:
// super block | header block | region strings | index blocks
func buildDataRegion(d testDB) []byte {
	ipLen := 4
	if d.dbType == IPV6 {
		ipLen = 16
	}
	blockLen := 2*ipLen + 4
	n := len(d.ranges)

	step := d.step
	if step <= 0 {
		step = 1
	}
	var entries []int
	for i := 0; i < n; i += step {
		entries = append(entries, i)
	}
	if n > 0 && entries[len(entries)-1] != n-1 {
		entries = append(entries, n-1)
	}

	// 末尾多留一个全零头部项作为结束标记
	headerBlockSize := (len(entries) + 1) * HeaderBlockLength
	regionStart := SuperPartLength + headerBlockSize
	regionLen := 0
	for _, r := range d.ranges {
		regionLen += len(r.region)
	}
	indexStart := regionStart + regionLen
	size := indexStart + n*blockLen

	data := make([]byte, size)
	if d.dbType == IPV6 {
		data[0] = 1
	}
	utils.PutIntLong(data, fileSizePtr, uint32(size))
	utils.PutIntLong(data, firstIndexPtr, uint32(indexStart))
	utils.PutIntLong(data, headerBlockPtr, uint32(headerBlockSize))
	utils.PutIntLong(data, endIndexPtr, uint32(indexStart+(n-1)*blockLen))

	for k, idx := range entries {
		off := SuperPartLength + k*HeaderBlockLength
		copy(data[off:off+16], d.ranges[idx].start)
		utils.PutIntLong(data, off+16, uint32(indexStart+idx*blockLen))
	}

	regionPtr := regionStart
	for i, r := range d.ranges {
		copy(data[regionPtr:], r.region)
		p := indexStart + i*blockLen
		copy(data[p:p+ipLen], r.start)
		copy(data[p+ipLen:p+2*ipLen], r.end)
		utils.PutIntLong(data, p+2*ipLen, uint32(len(r.region))<<24|uint32(regionPtr))
		regionPtr += len(r.region)
	}
	return data
}

// buildHyperHeader 生成明文头部、AES-ECB 加密块与随机填充
func buildHyperHeader(keyBytes []byte, clientId, expiration uint32, randomSize int) []byte {
	plain := make([]byte, aes.BlockSize)
	utils.PutIntLong(plain, 0, clientId<<ClientIdShift|expiration)
	utils.PutIntLong(plain, 4, uint32(randomSize))
	for i := 8; i < len(plain); i++ {
		plain[i] = byte(len(plain) - 8) // PKCS5 填充
	}

	cipher, err := aes.NewCipher(keyBytes)
	if err != nil {
		panic(err)
	}
	encrypted := make([]byte, len(plain))
	for bs := 0; bs < len(plain); bs += aes.BlockSize {
		cipher.Encrypt(encrypted[bs:bs+aes.BlockSize], plain[bs:bs+aes.BlockSize])
	}

	header := make([]byte, hyperHeaderFixedLength, hyperHeaderFixedLength+len(encrypted)+randomSize)
	utils.PutIntLong(header, 0, testVersion)
	utils.PutIntLong(header, 4, clientId)
	utils.PutIntLong(header, 8, uint32(len(encrypted)))
	header = append(header, encrypted...)
	for i := 0; i < randomSize; i++ {
		header = append(header, byte(i*7+3))
	}
	return header
}

func buildDB(d testDB) []byte {
	expiration := d.expiration
	if expiration == 0 {
		expiration = testExpiration
	}
	return append(buildHyperHeader(testKeyBytes, testClientId, expiration, d.randomSize), buildDataRegion(d)...)
}

// writeDB 将数据库写入临时目录并返回路径
func writeDB(t *testing.T, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.czdb")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入测试数据库失败: %v", err)
	}
	return path
}

func ip4(s string) []byte {
	b, err := utils.GetIPBytes(s, utils.IPV4)
	if err != nil {
		panic(err)
	}
	return b
}
