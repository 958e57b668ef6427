package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mooyang-code/stock-analyzer/internal/app"
)

var (
	configPath = flag.String("config", "./config/config.yaml", "配置文件路径")
	version    = flag.Bool("version", false, "显示版本信息")
	help       = flag.Bool("help", false, "显示帮助信息")
)

func main() {
	// 解析命令行参数
	if shouldExit := parseFlags(); shouldExit {
		return
	}

	manager := app.New()
	if err := manager.Initialize(*configPath); err != nil {
		fmt.Printf("stock-analyzer初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer manager.Sync()

	if err := manager.Start(); err != nil {
		fmt.Printf("stock-analyzer启动失败: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags 解析命令行参数
func parseFlags() bool {
	flag.Parse()

	if *help {
		showHelp()
		return true
	}

	if *version {
		showVersion()
		return true
	}
	return false
}

// showHelp 显示帮助信息
func showHelp() {
	fmt.Println("A股行情分析器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  stock-analyzer [选项]")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  -config string")
	fmt.Println("        配置文件路径 (默认 \"./config/config.yaml\")")
	fmt.Println("  -version")
	fmt.Println("        显示版本信息")
	fmt.Println("  -help")
	fmt.Println("        显示此帮助信息")
}

// showVersion 显示版本信息
func showVersion() {
	fmt.Println("A股行情分析器 v1.0.0")
}
