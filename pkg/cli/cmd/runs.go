package cmd

import (
	"github.com/spf13/cobra"
	"github.com/LENAX/med-pipeline/pkg/cli/medpipeline"
	"github.com/LENAX/med-pipeline/pkg/cli/output"
)

var runsLimit int

// runsCmd 运行历史命令
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "运行历史命令",
	Long:  `查看问答运行历史与任务明细。`,
}

// runsListCmd 列出最近运行
var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出最近的运行",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := medpipeline.New(serverURL)
		result, err := client.ListRuns(runsLimit)
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		if len(result.Items) == 0 {
			output.Info("暂无运行记录")
			return nil
		}

		table := output.NewTable([]string{"ID", "QUERY", "STATUS", "DURATION", "STARTED"})
		for _, run := range result.Items {
			duration := "-"
			if run.Duration != "" {
				duration = run.Duration
			}
			table.AddRow([]string{
				run.ID,
				truncateCell(run.Query, 40),
				run.Status,
				duration,
				run.StartTime.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()

		return nil
	},
}

// runsGetCmd 查看运行详情
var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "查看运行详情",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := medpipeline.New(serverURL)
		detail, err := client.GetRun(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(detail)
		}

		output.Info("运行: %s", detail.ID)
		output.Info("状态: %s", detail.Status)
		if detail.FailedTask != "" {
			output.Warning("失败任务: %s", detail.FailedTask)
		}
		if detail.ErrorMessage != "" {
			output.Warning("错误: %s", detail.ErrorMessage)
		}
		if detail.Answer != "" {
			output.Answer(detail.Query, detail.Answer, "", detail.Duration)
		}

		return nil
	},
}

// runsTasksCmd 查看运行的任务明细
var runsTasksCmd = &cobra.Command{
	Use:   "tasks <run-id>",
	Short: "查看运行的任务明细",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := medpipeline.New(serverURL)
		result, err := client.GetRunTasks(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		table := output.NewTable([]string{"TASK", "STATUS", "EMPTY", "ERROR"})
		for _, task := range result.Items {
			empty := "-"
			if task.Empty {
				empty = "yes"
			}
			errMsg := "-"
			if task.ErrorMessage != "" {
				errMsg = truncateCell(task.ErrorMessage, 60)
			}
			table.AddRow([]string{task.TaskID, task.Status, empty, errMsg})
		}
		table.Render()

		return nil
	},
}

func truncateCell(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

func init() {
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "l", 20, "返回条数")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsGetCmd)
	runsCmd.AddCommand(runsTasksCmd)
}
