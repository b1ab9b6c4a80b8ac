package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/LENAX/med-pipeline/pkg/cli/medpipeline"
	"github.com/LENAX/med-pipeline/pkg/cli/output"
)

// askCmd 问答命令
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "提交医学问题",
	Long: `向Med Pipeline服务提交医学问题, 同步等待循证回答。

示例：
  med-pipeline ask "pembrolizumab dosage"
  med-pipeline ask what is the treatment for type 2 diabetes`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		if strings.TrimSpace(query) == "" {
			return fmt.Errorf("问题不能为空")
		}

		client := medpipeline.New(serverURL)

		output.Info("正在查询医学证据, 请稍候...")
		resp, err := client.Ask(query)
		if err != nil {
			output.Error("问答失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(resp)
		}

		output.Answer(query, resp.Result, resp.QueryType, resp.Duration)
		return nil
	},
}
