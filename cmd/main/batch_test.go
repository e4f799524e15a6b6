package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tagphi/czdb-lookup/pkg/db"
)

type fakeSearcher map[string]string

func (f fakeSearcher) SearchBlock(ip string) (*db.DataBlock, error) {
	if ip == "bad" {
		return nil, db.ErrInvalidIPFormat
	}
	region, ok := f[ip]
	if !ok {
		return nil, nil
	}
	return &db.DataBlock{Region: region, DataPtr: len(region)}, nil
}

func TestReadIPs(t *testing.T) {
	in := "1.1.1.1\n\n  8.8.8.8 \n# comment\n1.1.1.1\n::1\n"
	ips, err := readIPs(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"1.1.1.1", "8.8.8.8", "::1"}
	if !reflect.DeepEqual(ips, want) {
		t.Errorf("readIPs = %v, 期望 %v", ips, want)
	}
}

func TestLookupAll(t *testing.T) {
	s := fakeSearcher{"1.1.1.1": "AU"}
	records := lookupAll(s, []string{"1.1.1.1", "2.2.2.2", "bad"})

	want := []lookupRecord{
		{IP: "1.1.1.1", Found: true, Region: "AU", DataPtr: 2},
		{IP: "2.2.2.2"},
		{IP: "bad", Error: db.ErrInvalidIPFormat.Error()},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("lookupAll = %+v, 期望 %+v", records, want)
	}
}

func TestWriteRecords(t *testing.T) {
	records := lookupAll(fakeSearcher{"1.1.1.1": "澳大利亚"}, []string{"1.1.1.1", "2.2.2.2", "bad"})

	var text bytes.Buffer
	if err := writeRecords(&text, "text", records); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	if len(lines) != 3 || lines[0] != "1.1.1.1\t澳大利亚" || lines[1] != "2.2.2.2\tnot found" ||
		!strings.HasPrefix(lines[2], "bad\terror: ") {
		t.Errorf("text 输出 = %q", text.String())
	}

	var js bytes.Buffer
	if err := writeRecords(&js, "json", records); err != nil {
		t.Fatal(err)
	}
	dec := json.NewDecoder(&js)
	for i := range records {
		var got lookupRecord
		if err := dec.Decode(&got); err != nil {
			t.Fatalf("json 第 %d 条: %v", i, err)
		}
		if got != records[i] {
			t.Errorf("json 第 %d 条 = %+v, 期望 %+v", i, got, records[i])
		}
	}

	var mp bytes.Buffer
	if err := writeRecords(&mp, "msgpack", records); err != nil {
		t.Fatal(err)
	}
	mdec := msgpack.NewDecoder(&mp)
	for i := range records {
		var got lookupRecord
		if err := mdec.Decode(&got); err != nil {
			t.Fatalf("msgpack 第 %d 条: %v", i, err)
		}
		if got != records[i] {
			t.Errorf("msgpack 第 %d 条 = %+v, 期望 %+v", i, got, records[i])
		}
	}
	var extra lookupRecord
	if err := mdec.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Errorf("msgpack 流应在 %d 条后结束, got %v", len(records), err)
	}

	if err := writeRecords(io.Discard, "xml", records); err == nil {
		t.Error("不支持的格式应返回错误")
	}
}

func (f fakeSearcher) Search(ip string) (string, bool, error) {
	block, err := f.SearchBlock(ip)
	if err != nil || block == nil {
		return "", false, err
	}
	return block.Region, true, nil
}

func TestRunBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ips.txt")
	if err := os.WriteFile(path, []byte("1.1.1.1\n2.2.2.2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runBatch(fakeSearcher{"1.1.1.1": "AU"}, path, "text", &out); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "1.1.1.1\tAU\n2.2.2.2\tnot found\n" {
		t.Errorf("runBatch 输出 = %q", got)
	}

	if err := runBatch(fakeSearcher{}, path+".missing", "text", io.Discard); err == nil {
		t.Error("批量文件不存在时应返回错误")
	}
}

func TestInteractive(t *testing.T) {
	in := strings.NewReader("1.1.1.1\n\n3.3.3.3\nbad\nq\n4.4.4.4\n")
	var out bytes.Buffer
	interactive(fakeSearcher{"1.1.1.1": "AU"}, in, &out)

	got := out.String()
	for _, want := range []string{"Result for 1.1.1.1: AU", "Result for 3.3.3.3: not found", "Error searching for IP bad", "Exiting..."} {
		if !strings.Contains(got, want) {
			t.Errorf("交互输出缺少 %q: %q", want, got)
		}
	}
	if strings.Contains(got, "4.4.4.4") {
		t.Error("输入 q 之后不应继续查询")
	}
}
