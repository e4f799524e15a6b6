package db

import (
	"fmt"
	"io"

	"github.com/tagphi/czdb-lookup/pkg/utils"
)

// memoryStrategy 将整个数据库读入内存，查询时不再访问文件
type memoryStrategy struct {
	dbBin []byte
	sb    *SuperBlock
}

func (s *memoryStrategy) load(src *io.SectionReader) (*SuperBlock, error) {
	utils.Debug("Loading database into memory (size: %d bytes)...\n", src.Size())

	dbBin := make([]byte, src.Size())
	if err := readAt(src, dbBin, 0); err != nil {
		return nil, fmt.Errorf("%w: read database into memory: %w", ErrIO, err)
	}

	sb, err := parseSuperBlock(dbBin, int64(len(dbBin)))
	if err != nil {
		return nil, err
	}
	s.dbBin, s.sb = dbBin, sb
	return sb, nil
}

func (s *memoryStrategy) lookup(ip []byte) (*DataBlock, error) {
	blockLen := s.sb.IndexBlockLength
	dataPtr, err := searchIndex(ip, s.sb, s.sb.TotalIndexBlocks, func(m int) ([]byte, error) {
		p := int(s.sb.FirstIndexPtr) + m*blockLen
		if p+blockLen > len(s.dbBin) {
			return nil, fmt.Errorf("%w: index block %d at %d out of bounds: %w", ErrIO, m, p, io.ErrUnexpectedEOF)
		}
		return s.dbBin[p : p+blockLen], nil
	})
	if err != nil || dataPtr == 0 {
		return nil, err
	}
	return regionFromBuffer(s.dbBin, dataPtr)
}

func (s *memoryStrategy) release() {
	s.dbBin = nil
}
