package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/LENAX/med-pipeline/internal/storage"
	"github.com/LENAX/med-pipeline/pkg/api"
	"github.com/LENAX/med-pipeline/pkg/cli/output"
	"github.com/LENAX/med-pipeline/pkg/config"
	"github.com/LENAX/med-pipeline/pkg/core/engine"
)

var (
	serverPort   int
	serverHost   string
	configPath   string
	pipelinePath string
)

// serverCmd server子命令
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "服务管理命令",
	Long:  `管理Med Pipeline HTTP API服务。`,
}

// serverStartCmd 启动服务
var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "启动HTTP API服务",
	Long: `启动Med Pipeline HTTP API服务。

示例：
  # 使用默认配置启动
  med-pipeline server start

  # 指定端口启动
  med-pipeline server start --port 8080

  # 指定配置文件启动
  med-pipeline server start --config ./configs/engine.yaml --pipeline ./configs/pipeline.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 检查配置文件
		if configPath == "" {
			for _, p := range []string{"./configs/engine.yaml", "./config/engine.yaml", "./engine.yaml"} {
				if _, err := os.Stat(p); err == nil {
					configPath = p
					break
				}
			}
			if configPath == "" {
				output.Error("未找到引擎配置文件，请使用 --config 指定")
				return fmt.Errorf("config file not found")
			}
		}
		if pipelinePath == "" {
			for _, p := range []string{"./configs/pipeline.yaml", "./config/pipeline.yaml", "./pipeline.yaml"} {
				if _, err := os.Stat(p); err == nil {
					pipelinePath = p
					break
				}
			}
			if pipelinePath == "" {
				output.Error("未找到流水线配置文件，请使用 --pipeline 指定")
				return fmt.Errorf("pipeline config file not found")
			}
		}

		output.Info("引擎配置: %s", configPath)
		output.Info("流水线配置: %s", pipelinePath)

		eng, err := buildEngine(configPath, pipelinePath)
		if err != nil {
			output.Error("创建Engine失败: %v", err)
			return err
		}

		// 启动Engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			output.Error("启动Engine失败: %v", err)
			return err
		}

		// 创建API服务器配置
		serverConfig := api.DefaultServerConfig()
		serverConfig.Host = serverHost
		serverConfig.Port = serverPort

		apiServer := api.NewAPIServer(eng, serverConfig, Version)

		// 在goroutine中启动服务器
		go func() {
			if err := apiServer.Start(); err != nil {
				log.Printf("API服务器错误: %v", err)
			}
		}()

		output.Success("Med Pipeline Server started on %s:%d", serverHost, serverPort)

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		output.Info("正在关闭服务...")

		// 优雅关闭
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.WriteTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			output.Error("关闭API服务器失败: %v", err)
		}

		eng.Stop()
		output.Success("服务已停止")

		return nil
	},
}

// buildEngine 从配置文件装配引擎
func buildEngine(enginePath, pipePath string) (*engine.Engine, error) {
	engineCfg, err := config.LoadEngineConfig(enginePath)
	if err != nil {
		return nil, err
	}
	pipelineCfg, err := config.LoadPipelineConfig(pipePath)
	if err != nil {
		return nil, err
	}

	db := engineCfg.MedPipeline.Storage.Database
	repos, err := storage.NewRepositories(storage.Options{
		Type:            db.Type,
		DSN:             db.DSN,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime.Std(),
		ConnMaxIdleTime: db.ConnMaxIdleTime.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}

	return engine.NewBuilder(engineCfg, pipelineCfg).
		WithStorage(repos.Run, repos.Chunk).
		Build()
}

func init() {
	serverStartCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "监听端口")
	serverStartCmd.Flags().StringVarP(&serverHost, "host", "H", "0.0.0.0", "监听地址")
	serverStartCmd.Flags().StringVarP(&configPath, "config", "c", "", "引擎配置文件路径")
	serverStartCmd.Flags().StringVar(&pipelinePath, "pipeline", "", "流水线配置文件路径")

	serverCmd.AddCommand(serverStartCmd)
}
