package db

import (
	"fmt"
	"io"

	"github.com/tagphi/czdb-lookup/pkg/utils"
)

// btreeStrategy 常驻头部块中的一级索引，先定位索引区间，再一次读取该区间做二分查找
type btreeStrategy struct {
	r    io.ReaderAt
	size int64
	sb   *SuperBlock

	headerSip    [][]byte // 每个索引区间的起始IP，16字节
	headerPtr    []uint32 // 每个索引区间首个索引块的指针
	headerLength int
}

func (s *btreeStrategy) load(src *io.SectionReader) (*SuperBlock, error) {
	sb, err := readSuperBlock(src)
	if err != nil {
		return nil, err
	}

	headerBlockSize := int64(sb.HeaderBlockSize)
	if headerBlockSize == 0 || SuperPartLength+headerBlockSize > src.Size() {
		return nil, fmt.Errorf("%w: invalid HeaderBlockSize: %d", ErrCorruptHeader, headerBlockSize)
	}

	b := make([]byte, headerBlockSize)
	if err := readAt(src, b, SuperPartLength); err != nil {
		return nil, fmt.Errorf("%w: read HeaderBlock: %w", ErrIO, err)
	}

	lenEntries := len(b) / HeaderBlockLength
	headerSip := make([][]byte, 0, lenEntries)
	headerPtr := make([]uint32, 0, lenEntries)
	for i := 0; i+HeaderBlockLength <= len(b); i += HeaderBlockLength {
		dataPtr := utils.GetIntLong(b, i+16)
		if dataPtr == 0 {
			break
		}
		sip := make([]byte, 16)
		copy(sip, b[i:i+16])
		headerSip = append(headerSip, sip)
		headerPtr = append(headerPtr, dataPtr)
	}

	s.r, s.size, s.sb = src, src.Size(), sb
	s.headerSip, s.headerPtr, s.headerLength = headerSip, headerPtr, len(headerPtr)
	utils.Debug("BTree header loaded: %d entries\n", s.headerLength)
	return sb, nil
}

func (s *btreeStrategy) lookup(ip []byte) (*DataBlock, error) {
	if s.headerLength == 0 {
		return nil, nil
	}

	// 1. 与首尾头部项完全相等时直接读取
	ipLen := s.sb.IPBytesLength
	if utils.CompareBytes(ip, s.headerSip[0], ipLen) == 0 {
		return s.getByIndexPtr(s.headerPtr[0])
	}
	if utils.CompareBytes(ip, s.headerSip[s.headerLength-1], ipLen) == 0 {
		return s.getByIndexPtr(s.headerPtr[s.headerLength-1])
	}

	sptr, eptr := s.bracket(ip)
	if sptr == 0 {
		return nil, nil
	}
	if eptr < sptr {
		return nil, fmt.Errorf("%w: header pointers out of order: %d > %d", ErrCorruptHeader, sptr, eptr)
	}

	// 2. 读取 [sptr, eptr] 内的全部索引块，包含右边界块
	blen := s.sb.IndexBlockLength
	if int64(eptr)+int64(blen) > s.size {
		return nil, fmt.Errorf("%w: index range [%d, %d] exceeds database size %d", ErrCorruptHeader, sptr, eptr, s.size)
	}
	blockLen := int(eptr - sptr)
	iBuffer := make([]byte, blockLen+blen)
	if err := readAt(s.r, iBuffer, int64(sptr)); err != nil {
		return nil, fmt.Errorf("%w: read index range at %d (len %d): %w", ErrIO, sptr, len(iBuffer), err)
	}

	dataPtr, err := searchIndex(ip, s.sb, blockLen/blen+1, func(m int) ([]byte, error) {
		p := m * blen
		return iBuffer[p : p+blen], nil
	})
	if err != nil || dataPtr == 0 {
		return nil, err
	}

	// 3. 读取数据
	return regionFromReader(s.r, dataPtr)
}

// bracket 在头部索引中查找包含 ip 的相邻区间 (sptr, eptr)
//
// 比较中点时只要 ip 落在中点与相邻项之间就立即返回，不再继续收窄。
func (s *btreeStrategy) bracket(ip []byte) (sptr, eptr uint32) {
	n, ipLen := s.headerLength, s.sb.IPBytesLength
	ptr := func(i int) uint32 {
		if i < 0 {
			i = 0
		} else if i >= n {
			i = n - 1
		}
		return s.headerPtr[i]
	}

	l, h := 0, n
	for l <= h {
		m := (l + h) >> 1
		if m >= n {
			break
		}

		cmp := utils.CompareBytes(ip, s.headerSip[m], ipLen)
		switch {
		case cmp == 0:
			if m > 0 {
				return ptr(m - 1), ptr(m)
			}
			return ptr(m), ptr(m + 1)
		case cmp < 0:
			if m == 0 {
				return ptr(m), ptr(m + 1)
			}
			if utils.CompareBytes(ip, s.headerSip[m-1], ipLen) > 0 {
				return ptr(m - 1), ptr(m)
			}
			h = m - 1
		default:
			if m == n-1 {
				return ptr(m - 1), ptr(m)
			}
			if utils.CompareBytes(ip, s.headerSip[m+1], ipLen) <= 0 {
				return ptr(m), ptr(m + 1)
			}
			l = m + 1
		}
	}
	return 0, 0
}

// getByIndexPtr 读取指针处的单个索引块并解析其数据
func (s *btreeStrategy) getByIndexPtr(ptr uint32) (*DataBlock, error) {
	buffer := make([]byte, s.sb.IndexBlockLength)
	if err := readAt(s.r, buffer, int64(ptr)); err != nil {
		return nil, fmt.Errorf("%w: read index block at %d: %w", ErrIO, ptr, err)
	}

	dataPtr := utils.GetIntLong(buffer, s.sb.IPBytesLength*2)
	if dataPtr == 0 {
		return nil, nil
	}
	return regionFromReader(s.r, dataPtr)
}

func (s *btreeStrategy) release() {
	s.r = nil
	s.headerSip, s.headerPtr, s.headerLength = nil, nil, 0
}
