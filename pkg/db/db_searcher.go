package db

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/tagphi/czdb-lookup/pkg/utils"
)

// SearchType 表示IP数据库的搜索模式
type SearchType int

const (
	// MEMORY 表示内存模式，数据库完全加载到内存中
	MEMORY SearchType = iota
	// BINARY 表示二分模式，每次探测从文件读取一个索引块
	BINARY
	// BTREE 表示B树模式，常驻一级索引，按需读取索引区间
	BTREE
)

func (t SearchType) String() string {
	switch t {
	case MEMORY:
		return "Memory"
	case BINARY:
		return "Binary"
	case BTREE:
		return "B-tree"
	default:
		return "Unknown"
	}
}

// ParseSearchType 将 memory / binary / btree 转换为 SearchType，大小写不敏感
func ParseSearchType(s string) (SearchType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "memory":
		return MEMORY, nil
	case "binary":
		return BINARY, nil
	case "btree", "b-tree":
		return BTREE, nil
	}
	return 0, fmt.Errorf("unsupported search mode %q", s)
}

// strategy 是三种搜索模式的共同接口，在构造时选定
type strategy interface {
	// load 读取超级块及模式所需的索引数据
	load(src *io.SectionReader) (*SuperBlock, error)
	// lookup 查找包含 ip 的区间，未找到时返回 nil, nil
	lookup(ip []byte) (*DataBlock, error)
	// release 释放常驻的缓冲区
	release()
}

func newStrategy(searchType SearchType) (strategy, error) {
	switch searchType {
	case MEMORY:
		return &memoryStrategy{}, nil
	case BINARY:
		return &binaryStrategy{}, nil
	case BTREE:
		return &btreeStrategy{}, nil
	}
	return nil, fmt.Errorf("unsupported search type %d", searchType)
}

// DBSearcher 是CZDB文件的搜索器
//
// 所有文件访问都通过 ReadAt 完成，没有共享的读写位置，因此同一个实例可以被多个
// goroutine 并发查询。Close 之后的任何调用都返回 ErrClosed。
type DBSearcher struct {
	searchType  SearchType
	hyperHeader *HyperHeaderBlock
	superBlock  *SuperBlock
	strategy    strategy

	closer io.Closer
	closed atomic.Bool
}

// InitDBSearcher 打开数据库文件并初始化搜索器
//
// 参数:
//   - dbPath: 数据库文件路径
//   - key: 数据库解密密钥 (Base64)
//   - searchType: 搜索类型 (MEMORY, BINARY 或 BTREE)
//
// MEMORY 模式在加载完成后立即关闭文件，其余模式在 Close 时关闭。
func InitDBSearcher(dbPath string, key string, searchType SearchType) (*DBSearcher, error) {
	file, err := os.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database file: %w", ErrIO, err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: stat database file: %w", ErrIO, err)
	}
	utils.Debug("Database file %s size: %d bytes\n", dbPath, fileInfo.Size())

	dbSearcher, err := NewDBSearcher(file, fileInfo.Size(), key, searchType)
	if err != nil {
		file.Close()
		return nil, err
	}

	if searchType == MEMORY {
		if err := file.Close(); err != nil {
			utils.Warning("close database file after loading: %v\n", err)
		}
	} else {
		dbSearcher.closer = file
	}
	return dbSearcher, nil
}

// NewDBSearcher 基于任意随机读取的数据源初始化搜索器，size 为数据源总长度
//
// 调用方保留 r 的所有权，Close 不会关闭 r。
func NewDBSearcher(r io.ReaderAt, size int64, key string, searchType SearchType) (*DBSearcher, error) {
	st, err := newStrategy(searchType)
	if err != nil {
		return nil, err
	}

	hyperHeader, err := DecryptHyperHeaderBlock(r, key)
	if err != nil {
		return nil, err
	}

	offset := hyperHeader.HeaderSize()
	if offset+SuperPartLength > size {
		return nil, fmt.Errorf("%w: header size %d exceeds file size %d", ErrCorruptHeader, offset, size)
	}

	superBlock, err := st.load(io.NewSectionReader(r, offset, size-offset))
	if err != nil {
		return nil, err
	}

	return &DBSearcher{
		searchType:  searchType,
		hyperHeader: hyperHeader,
		superBlock:  superBlock,
		strategy:    st,
	}, nil
}

// SearchBlock 查询IP所在区间的数据块，未找到时返回 nil, nil
func (s *DBSearcher) SearchBlock(ip string) (*DataBlock, error) {
	if s == nil || s.closed.Load() {
		return nil, ErrClosed
	}

	ipBytes, err := utils.GetIPBytes(ip, int(s.superBlock.DbType))
	if err != nil {
		return nil, err
	}

	block, err := s.strategy.lookup(ipBytes)
	if err != nil {
		return nil, err
	}
	if block == nil {
		utils.Debug("Search %s (%s): not found\n", ip, s.searchType)
		return nil, nil
	}
	utils.Debug("Search %s (%s): ptr=%d, region=%q\n", ip, s.searchType, block.DataPtr, block.Region)
	return block, nil
}

// Search 查询IP对应的地区字符串，found 为 false 表示数据库中没有包含该IP的区间
func (s *DBSearcher) Search(ip string) (region string, found bool, err error) {
	block, err := s.SearchBlock(ip)
	if err != nil || block == nil {
		return "", false, err
	}
	return block.Region, true, nil
}

// DbType 返回数据库的地址族
func (s *DBSearcher) DbType() DbType {
	return s.superBlock.DbType
}

// SearchType 返回搜索模式
func (s *DBSearcher) SearchType() SearchType {
	return s.searchType
}

// SuperBlock 返回超级块的副本
func (s *DBSearcher) SuperBlock() SuperBlock {
	return *s.superBlock
}

// Close 释放缓冲区并关闭由 InitDBSearcher 打开的文件
func (s *DBSearcher) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	s.strategy.release()
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			return fmt.Errorf("%w: close database file: %w", ErrIO, err)
		}
	}
	return nil
}

// Info 打印数据库信息到调试输出
func (s *DBSearcher) Info() {
	sb := s.superBlock
	utils.Debugln("=========== Database Information ===========")
	utils.Debug("Version: %d, Client Id: %d, Expiration: %06d\n",
		s.hyperHeader.Version, s.hyperHeader.ClientId, s.hyperHeader.DecryptedBlock.ExpirationDate)
	utils.Debug("IP Type: %s\n", sb.DbType)
	utils.Debug("IP Bytes Length: %d\n", sb.IPBytesLength)
	utils.Debug("First Index Pointer: %d\n", sb.FirstIndexPtr)
	utils.Debug("End Index Pointer: %d\n", sb.EndIndexPtr)
	utils.Debug("Total Index Blocks: %d\n", sb.TotalIndexBlocks)
	utils.Debug("Header Block Size: %d\n", sb.HeaderBlockSize)
	utils.Debug("Search Type: %s\n", s.searchType)
	if bt, ok := s.strategy.(*btreeStrategy); ok {
		utils.Debug("BTree Header Length: %d\n", bt.headerLength)
		if bt.headerLength > 0 {
			utils.Debug("BTree First Sip: %s\n", utils.HexString(bt.headerSip[0][:sb.IPBytesLength]))
		}
	}
	utils.Debugln("===========================================")
}
