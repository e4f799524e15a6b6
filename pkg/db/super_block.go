package db

import (
	"fmt"

	"github.com/tagphi/czdb-lookup/pkg/utils"
)

// 常量定义，参考白皮书
const (
	SuperPartLength   = 17 // SuperBlock 长度
	HeaderBlockLength = 20 // 头部块长度，16 字节 IP + 4 字节数据指针

	dbTypePtr       = 0
	fileSizePtr     = 1
	firstIndexPtr   = 5
	headerBlockPtr  = 9
	endIndexPtr     = 13
	dataPointerSize = 4
)

// DbType 表示数据库的地址族
type DbType int

const (
	IPV4 DbType = utils.IPV4
	IPV6 DbType = utils.IPV6
)

func (t DbType) String() string {
	switch t {
	case IPV4:
		return "IPv4"
	case IPV6:
		return "IPv6"
	}
	return "Unknown"
}

// SuperBlock 表示CZDB文件的超级块结构
//
//	+--------+---------+----------+-----------+----------+
//	| 1bytes | 4bytes  | 4bytes   | 4bytes    | 4bytes   |
//	+--------+---------+----------+-----------+----------+
//	|db type |db size  |first     |header     |end       |
//	|        |         |index ptr |block size |index ptr |
//	+--------+---------+----------+-----------+----------+
type SuperBlock struct {
	DbType          DbType
	DbSize          uint32 // 声明的数据库大小，不含超级头部块
	FirstIndexPtr   uint32
	HeaderBlockSize uint32
	EndIndexPtr     uint32

	IPBytesLength    int // 4 或 16
	IndexBlockLength int // 2*IPBytesLength + 4
	TotalIndexBlocks int
}

// parseSuperBlock 解析超级块并校验声明大小与实际大小是否一致
func parseSuperBlock(data []byte, realSize int64) (*SuperBlock, error) {
	if len(data) < SuperPartLength {
		return nil, fmt.Errorf("%w: SuperBlock data too short: %d bytes, expected at least %d bytes",
			ErrCorruptHeader, len(data), SuperPartLength)
	}

	sb := &SuperBlock{
		DbType:          IPV4,
		DbSize:          utils.GetIntLong(data, fileSizePtr),
		FirstIndexPtr:   utils.GetIntLong(data, firstIndexPtr),
		HeaderBlockSize: utils.GetIntLong(data, headerBlockPtr),
		EndIndexPtr:     utils.GetIntLong(data, endIndexPtr),
		IPBytesLength:   4,
	}
	if data[dbTypePtr]&1 == 1 {
		sb.DbType = IPV6
		sb.IPBytesLength = 16
	}
	sb.IndexBlockLength = sb.IPBytesLength*2 + dataPointerSize
	sb.TotalIndexBlocks = (int(sb.EndIndexPtr)-int(sb.FirstIndexPtr))/sb.IndexBlockLength + 1

	utils.Debug("Parsed SuperBlock: Type=%s, Size=%d, FirstPtr=%d, HeaderSize=%d, EndPtr=%d, Blocks=%d\n",
		sb.DbType, sb.DbSize, sb.FirstIndexPtr, sb.HeaderBlockSize, sb.EndIndexPtr, sb.TotalIndexBlocks)

	if int64(sb.DbSize) != realSize {
		return nil, fmt.Errorf("%w: db file size error, expected [%d], real [%d]", ErrCorruptHeader, sb.DbSize, realSize)
	}
	return sb, nil
}
