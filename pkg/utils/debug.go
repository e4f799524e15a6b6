package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// logger 是进程级的调试输出，默认关闭，输出到标准错误
//
// enabled 不加锁读取，调试关闭时 Debug 不会争用 mu。
type logger struct {
	mu      sync.Mutex
	enabled atomic.Bool
	out     io.Writer
}

var std = &logger{out: os.Stderr}

// SetDebugEnabled 设置是否启用调试输出
func SetDebugEnabled(enabled bool) {
	std.enabled.Store(enabled)
}

// DebugEnabled 返回调试输出是否开启
func DebugEnabled() bool {
	return std.enabled.Load()
}

// SetDebugOutput 设置调试与警告输出的目标
func SetDebugOutput(output io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	if output == nil {
		output = os.Stderr
	}
	std.out = output
}

func (l *logger) printf(force bool, prefix, format string, args ...interface{}) {
	if !force && !l.enabled.Load() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, prefix+format, args...)
}

// Debug 输出调试信息，仅当调试开启时输出
func Debug(format string, args ...interface{}) {
	std.printf(false, "[czdb] ", format, args...)
}

// Debugln 输出调试信息并换行，仅当调试开启时输出
func Debugln(args ...interface{}) {
	if !std.enabled.Load() {
		return
	}
	std.mu.Lock()
	defer std.mu.Unlock()
	fmt.Fprintln(std.out, args...)
}

// Warning 输出警告信息，无论调试是否开启都会输出
func Warning(format string, args ...interface{}) {
	std.printf(true, "[czdb] Warning: ", format, args...)
}
