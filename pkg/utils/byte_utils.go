package utils

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// IP type constants
const (
	IPV4 = 4
	IPV6 = 6
)

// ErrInvalidIPFormat 表示查询的IP文本无法按数据库的地址族解析
var ErrInvalidIPFormat = errors.New("invalid ip format")

// GetIntLong 从字节数组中指定位置读取一个无符号32位整数（小端序）
func GetIntLong(b []byte, offset int) uint32 {
	if offset < 0 || offset+4 > len(b) {
		return 0
	}
	return uint32(b[offset]) | uint32(b[offset+1])<<8 | uint32(b[offset+2])<<16 | uint32(b[offset+3])<<24
}

// PutIntLong 将v以小端序写入b[offset:offset+4]
func PutIntLong(b []byte, offset int, v uint32) {
	b[offset] = byte(v)
	b[offset+1] = byte(v >> 8)
	b[offset+2] = byte(v >> 16)
	b[offset+3] = byte(v >> 24)
}

// HexString formats a byte slice as space separated hex pairs, used by debug output.
func HexString(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", c)
	}
	return sb.String()
}

// GetIPBytes converts an IP string to its byte representation.
// IPV4 yields 4 bytes and IPV6 yields 16; an address of the other family is
// rejected rather than converted. An IPv6 zone suffix is dropped.
func GetIPBytes(ip string, ipType int) ([]byte, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIPFormat, ip)
	}
	// scope 后缀 (fe80::1%eth0) 不参与查找
	addr = addr.WithZone("")

	switch ipType {
	case IPV4:
		if !addr.Is4() {
			return nil, fmt.Errorf("%w: expected IPv4 address but got %q", ErrInvalidIPFormat, ip)
		}
		b := addr.As4()
		return b[:], nil
	case IPV6:
		if !addr.Is6() {
			return nil, fmt.Errorf("%w: expected IPv6 address but got %q", ErrInvalidIPFormat, ip)
		}
		b := addr.As16()
		return b[:], nil
	}

	return nil, fmt.Errorf("invalid IP type: %d", ipType)
}

// CompareBytes 按无符号字节比较两个IP键，最多比较length个字节
//
// 返回 -1, 0, 1。若在length内没有差异，且某个数组短于length，则以数组长度决定大小。
// 字节必须按无符号处理：0x80-0xFF 大于 0x00-0x7F。
func CompareBytes(bytes1, bytes2 []byte, length int) int {
	for i := 0; i < length && i < len(bytes1) && i < len(bytes2); i++ {
		if bytes1[i] < bytes2[i] {
			return -1
		}
		if bytes1[i] > bytes2[i] {
			return 1
		}
	}

	if len(bytes1) >= length && len(bytes2) >= length {
		return 0
	}
	switch {
	case len(bytes1) < len(bytes2):
		return -1
	case len(bytes1) > len(bytes2):
		return 1
	}
	return 0
}
