// Package cmd med-pipeline命令行入口
package cmd

import (
	"github.com/spf13/cobra"
)

// Version 构建时通过ldflags注入
var Version = "dev"

var (
	serverURL  string
	outputJSON bool
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "med-pipeline",
	Short: "医学问答流水线",
	Long: `Med Pipeline - 基于PubMed文献检索与LLM合成的医学问答流水线。

用户问题经过文献检索、摘要获取、药物查询、临床试验检索等
并行分支, 最终由LLM汇总为带引用的循证回答。`,
	Version: Version,
}

// Execute 执行根命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "API服务地址")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "以JSON格式输出")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(runsCmd)
}
