package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/LENAX/med-pipeline/pkg/cli/medpipeline"
	"github.com/LENAX/med-pipeline/pkg/cli/output"
)

// pipelineCmd 流水线信息命令
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "查看流水线定义",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := medpipeline.New(serverURL)
		detail, err := client.GetPipeline()
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(detail)
		}

		output.Info("流水线: %s (%s)", detail.Name, detail.ID)
		if detail.Description != "" {
			output.Info("%s", detail.Description)
		}
		output.Info("终点任务: %s", detail.FinalTask)

		table := output.NewTable([]string{"TASK", "OPERATION", "AGENT", "DEPENDS ON", "TIMEOUT"})
		for _, task := range detail.Tasks {
			deps := "-"
			if len(task.Dependencies) > 0 {
				deps = strings.Join(task.Dependencies, ", ")
			}
			timeout := "-"
			if task.Timeout != "" {
				timeout = task.Timeout
			}
			agent := "-"
			if task.Agent != "" {
				agent = task.Agent
			}
			table.AddRow([]string{task.ID, task.Operation, agent, deps, timeout})
		}
		table.Render()

		return nil
	},
}
