package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// PrintJSON 输出JSON格式
func PrintJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Success 输出成功消息
func Success(format string, args ...interface{}) {
	green := color.New(color.FgGreen, color.Bold)
	green.Printf("✅ "+format+"\n", args...)
}

// Error 输出错误消息
func Error(format string, args ...interface{}) {
	red := color.New(color.FgRed, color.Bold)
	red.Printf("❌ "+format+"\n", args...)
}

// Info 输出信息
func Info(format string, args ...interface{}) {
	cyan := color.New(color.FgCyan)
	cyan.Printf("ℹ️  "+format+"\n", args...)
}

// Warning 输出警告
func Warning(format string, args ...interface{}) {
	yellow := color.New(color.FgYellow)
	yellow.Printf("⚠️  "+format+"\n", args...)
}

// Answer 输出问答结果
// 答案正文不着色, 便于重定向到文件
func Answer(query, answer, queryType, duration string) {
	heading := color.New(color.FgCyan, color.Bold)
	meta := color.New(color.Faint)

	heading.Printf("Q: %s\n", query)
	heading.Println(strings.Repeat("─", 40))
	fmt.Println(answer)
	fmt.Println()
	if queryType != "" {
		meta.Printf("%s\n", queryType)
	}
	if duration != "" {
		meta.Printf("Answered in %s\n", duration)
	}
}
