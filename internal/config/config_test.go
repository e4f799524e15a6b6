package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /data/ip.czdb
  key: a2V5
  mode: memory
debug:
  enabled: true
output:
  format: JSON
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/data/ip.czdb" || cfg.Database.Key != "a2V5" || cfg.Database.Mode != "memory" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if !cfg.Debug.Enabled || cfg.Debug.LogFile != "" {
		t.Errorf("Debug = %+v", cfg.Debug)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %q, 期望 json", cfg.Output.Format)
	}
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)
	t.Setenv("CZDB_DATABASE_KEY", "ZW52")
	t.Setenv("CZDB_OUTPUT_FORMAT", "msgpack")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("找不到配置文件时应使用默认值: %v", err)
	}
	if cfg.Database.Mode != "btree" {
		t.Errorf("默认模式 = %q, 期望 btree", cfg.Database.Mode)
	}
	if cfg.Database.Key != "ZW52" || cfg.Output.Format != "msgpack" {
		t.Errorf("环境变量未生效: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("指定的配置文件不存在时应返回错误")
	}

	path := writeConfig(t, "output:\n  format: xml\n")
	if _, err := Load(path); err == nil {
		t.Error("不支持的输出格式应返回错误")
	}
}
