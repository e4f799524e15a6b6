package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tagphi/czdb-lookup/internal/config"
	"github.com/tagphi/czdb-lookup/pkg/db"
	"github.com/tagphi/czdb-lookup/pkg/utils"
)

func main() {
	// 定义命令行参数
	configPath := flag.String("c", "", "Path to YAML config file (default: ./configs/config.yaml or /etc/czdb/config.yaml)")
	dbPath := flag.String("p", "", "Path to CZDB database file")
	key := flag.String("k", "", "Base64 encoded key for decryption")
	mode := flag.String("m", "btree", "Search mode: 'memory', 'binary' or 'btree'")
	debug := flag.Bool("debug", false, "Enable debug output")
	logFile := flag.String("log", "", "Log file for debug output (default: stderr)")
	batch := flag.String("batch", "", "Look up every IP in this file ('-' for stdin) and exit")
	format := flag.String("format", "text", "Batch output format: 'text', 'json' or 'msgpack'")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 命令行中显式指定的参数覆盖配置文件
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.Database.Path = *dbPath
		case "k":
			cfg.Database.Key = *key
		case "m":
			cfg.Database.Mode = *mode
		case "debug":
			cfg.Debug.Enabled = *debug
		case "log":
			cfg.Debug.LogFile = *logFile
		case "format":
			cfg.Output.Format = *format
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// 设置调试模式
	utils.SetDebugEnabled(cfg.Debug.Enabled)
	if cfg.Debug.Enabled && cfg.Debug.LogFile != "" {
		file, err := os.OpenFile(cfg.Debug.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v, debug output goes to stderr\n", err)
		} else {
			utils.SetDebugOutput(file)
			defer file.Close()
		}
	}

	// 检查必要参数
	if cfg.Database.Path == "" || cfg.Database.Key == "" {
		fmt.Fprintln(os.Stderr, "Error: Database path and key are required")
		flag.Usage()
		os.Exit(1)
	}

	searchType, err := db.ParseSearchType(cfg.Database.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dbSearcher, err := db.InitDBSearcher(cfg.Database.Path, cfg.Database.Key, searchType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing database searcher: %v\n", err)
		os.Exit(1)
	}
	defer dbSearcher.Close()

	// 打印数据库信息
	dbSearcher.Info()

	if *batch != "" {
		if err := runBatch(dbSearcher, *batch, cfg.Output.Format, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			dbSearcher.Close()
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Using %s search mode on %s database %s\n", searchType, dbSearcher.DbType(), cfg.Database.Path)
	interactive(dbSearcher, os.Stdin, os.Stdout)
}

type regionSearcher interface {
	Search(ip string) (string, bool, error)
}

// interactive 启动交互式查询
func interactive(dbSearcher regionSearcher, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nEnter IP address (or 'q' to quit): ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "q" || input == "quit" {
			break
		}
		if input == "" {
			continue
		}

		region, found, err := dbSearcher.Search(input)
		switch {
		case err != nil:
			fmt.Fprintf(out, "Error searching for IP %s: %v\n", input, err)
		case !found:
			fmt.Fprintf(out, "Result for %s: not found\n", input)
		default:
			fmt.Fprintf(out, "Result for %s: %s\n", input, region)
		}
	}

	fmt.Fprintln(out, "Exiting...")
}
