package db

import (
	"errors"

	"github.com/tagphi/czdb-lookup/pkg/utils"
)

// 错误分类，使用 errors.Is 判断
var (
	// ErrDecryption 密钥错误、加密头部损坏或数据库已过期
	ErrDecryption = errors.New("czdb: header decryption failed")
	// ErrCorruptHeader 头部声明与文件实际内容不符
	ErrCorruptHeader = errors.New("czdb: corrupt header")
	// ErrInvalidIPFormat 查询的IP与数据库地址族不符或无法解析
	ErrInvalidIPFormat = utils.ErrInvalidIPFormat
	// ErrIO 读取数据库文件失败
	ErrIO = errors.New("czdb: io error")
	// ErrClosed 搜索器已关闭
	ErrClosed = errors.New("czdb: searcher is closed")
)
