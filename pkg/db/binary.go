package db

import (
	"fmt"
	"io"
)

// binaryStrategy 只常驻超级块，每次二分探测从文件读取一个索引块
type binaryStrategy struct {
	r  io.ReaderAt
	sb *SuperBlock
}

func (s *binaryStrategy) load(src *io.SectionReader) (*SuperBlock, error) {
	sb, err := readSuperBlock(src)
	if err != nil {
		return nil, err
	}
	s.r, s.sb = src, sb
	return sb, nil
}

func (s *binaryStrategy) lookup(ip []byte) (*DataBlock, error) {
	blockLen := s.sb.IndexBlockLength
	buffer := make([]byte, blockLen)
	dataPtr, err := searchIndex(ip, s.sb, s.sb.TotalIndexBlocks, func(m int) ([]byte, error) {
		p := int64(s.sb.FirstIndexPtr) + int64(m*blockLen)
		if err := readAt(s.r, buffer, p); err != nil {
			return nil, fmt.Errorf("%w: read index block %d at %d: %w", ErrIO, m, p, err)
		}
		return buffer, nil
	})
	if err != nil || dataPtr == 0 {
		return nil, err
	}
	return regionFromReader(s.r, dataPtr)
}

func (s *binaryStrategy) release() {
	s.r = nil
}

// readSuperBlock 从文件读取并解析超级块
func readSuperBlock(src *io.SectionReader) (*SuperBlock, error) {
	superBytes := make([]byte, SuperPartLength)
	if err := readAt(src, superBytes, 0); err != nil {
		return nil, fmt.Errorf("%w: read SuperBlock: %w", ErrIO, err)
	}
	return parseSuperBlock(superBytes, src.Size())
}
