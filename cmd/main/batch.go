package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tagphi/czdb-lookup/pkg/db"
)

// lookupRecord 是批量模式下每个IP的输出
type lookupRecord struct {
	IP      string `json:"ip" msgpack:"ip"`
	Found   bool   `json:"found" msgpack:"found"`
	Region  string `json:"region,omitempty" msgpack:"region,omitempty"`
	DataPtr int    `json:"data_ptr,omitempty" msgpack:"data_ptr,omitempty"`
	Error   string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// searcher 是批量查询所需的最小接口
type searcher interface {
	SearchBlock(ip string) (*db.DataBlock, error)
}

func runBatch(s searcher, path, format string, out io.Writer) error {
	in := io.Reader(os.Stdin)
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open batch file: %w", err)
		}
		defer f.Close()
		in = f
	}

	ips, err := readIPs(in)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	if err := writeRecords(w, format, lookupAll(s, ips)); err != nil {
		return err
	}
	return w.Flush()
}

// readIPs 读取每行一个IP，忽略空行与 # 注释，去重并保持顺序
func readIPs(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch input: %w", err)
	}

	lines = lo.Map(lines, func(line string, _ int) string {
		return strings.TrimSpace(line)
	})
	lines = lo.Filter(lines, func(line string, _ int) bool {
		return line != "" && !strings.HasPrefix(line, "#")
	})
	return lo.Uniq(lines), nil
}

func lookupAll(s searcher, ips []string) []lookupRecord {
	return lo.Map(ips, func(ip string, _ int) lookupRecord {
		rec := lookupRecord{IP: ip}
		block, err := s.SearchBlock(ip)
		if err != nil {
			rec.Error = err.Error()
		} else if block != nil {
			rec.Found, rec.Region, rec.DataPtr = true, block.Region, block.DataPtr
		}
		return rec
	})
}

func writeRecords(w io.Writer, format string, records []lookupRecord) error {
	var encode func(lookupRecord) error
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		encode = func(rec lookupRecord) error { return enc.Encode(rec) }
	case "msgpack":
		enc := msgpack.NewEncoder(w)
		encode = func(rec lookupRecord) error { return enc.Encode(rec) }
	case "text", "":
		encode = func(rec lookupRecord) error {
			result := rec.Region
			if rec.Error != "" {
				result = "error: " + rec.Error
			} else if !rec.Found {
				result = "not found"
			}
			_, err := fmt.Fprintf(w, "%s\t%s\n", rec.IP, result)
			return err
		}
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}

	for _, rec := range records {
		if err := encode(rec); err != nil {
			return fmt.Errorf("write %s record for %s: %w", format, rec.IP, err)
		}
	}
	return nil
}
