package db

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tagphi/czdb-lookup/pkg/utils"
)

const (
	dataLenShift   = 24
	dataOffsetMask = 0x00FFFFFF
)

// DataBlock 是一次查询的结果
type DataBlock struct {
	Region  string `json:"region" msgpack:"region"`
	DataPtr int    `json:"data_ptr" msgpack:"data_ptr"`
}

// decodeDataPointer 拆分索引中的数据指针: 高8位为地区字符串长度，低24位为文件偏移
func decodeDataPointer(ptr uint32) (length, offset int) {
	return int(ptr >> dataLenShift), int(ptr & dataOffsetMask)
}

// newDataBlock 按 UTF-8 解码地区字符串，非法字节替换为 U+FFFD
func newDataBlock(data []byte, offset int) *DataBlock {
	region := string(data)
	if !utf8.ValidString(region) {
		region = strings.ToValidUTF8(region, string(utf8.RuneError))
	}
	return &DataBlock{Region: region, DataPtr: offset}
}

// regionFromBuffer 从内存缓冲区直接截取地区字符串
func regionFromBuffer(buf []byte, ptr uint32) (*DataBlock, error) {
	length, offset := decodeDataPointer(ptr)
	if offset+length > len(buf) {
		return nil, fmt.Errorf("%w: region [%d, %d) exceeds database size %d: %w",
			ErrIO, offset, offset+length, len(buf), io.ErrUnexpectedEOF)
	}
	return newDataBlock(buf[offset:offset+length], offset), nil
}

// readAt 读满 p；恰好读到末尾时返回的 io.EOF 视为成功
func readAt(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) && (err == nil || errors.Is(err, io.EOF)) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// regionFromReader 从文件读取地区字符串
func regionFromReader(r io.ReaderAt, ptr uint32) (*DataBlock, error) {
	length, offset := decodeDataPointer(ptr)
	data := make([]byte, length)
	if length > 0 {
		if err := readAt(r, data, int64(offset)); err != nil {
			return nil, fmt.Errorf("%w: read region at %d (len %d): %w", ErrIO, offset, length, err)
		}
	}
	return newDataBlock(data, offset), nil
}

// searchIndex 在 [0, total) 个索引块中二分查找包含 ip 的区间，返回数据指针，未找到时返回0
//
// record(m) 返回第m个索引块的完整字节。
func searchIndex(ip []byte, sb *SuperBlock, total int, record func(m int) ([]byte, error)) (uint32, error) {
	ipLen := sb.IPBytesLength
	l, h := 0, total-1
	for l <= h {
		m := (l + h) >> 1
		b, err := record(m)
		if err != nil {
			return 0, err
		}

		if utils.CompareBytes(ip, b[:ipLen], ipLen) < 0 {
			h = m - 1
		} else if utils.CompareBytes(ip, b[ipLen:ipLen*2], ipLen) > 0 {
			l = m + 1
		} else {
			return utils.GetIntLong(b, ipLen*2), nil
		}
	}
	return 0, nil
}
