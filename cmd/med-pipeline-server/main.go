package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LENAX/med-pipeline/internal/storage"
	"github.com/LENAX/med-pipeline/pkg/api"
	"github.com/LENAX/med-pipeline/pkg/config"
	"github.com/LENAX/med-pipeline/pkg/core/engine"
	"github.com/LENAX/med-pipeline/pkg/plugin"
)

// version 构建时通过ldflags注入
var version = "dev"

// 服务端直启入口, 不依赖CLI框架, 适合容器部署
func main() {
	configPath := flag.String("config", "./configs/engine.yaml", "引擎配置文件路径")
	pipelinePath := flag.String("pipeline", "./configs/pipeline.yaml", "流水线配置文件路径")
	flag.Parse()

	engineCfg, err := config.LoadEngineConfig(*configPath)
	if err != nil {
		log.Fatal("加载引擎配置失败: ", err)
	}
	pipelineCfg, err := config.LoadPipelineConfig(*pipelinePath)
	if err != nil {
		log.Fatal("加载流水线配置失败: ", err)
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
		log.Fatal("初始化存储失败: ", err)
	}
	defer repos.Close()

	builder := engine.NewBuilder(engineCfg, pipelineCfg).
		WithStorage(repos.Run, repos.Chunk)

	// 配置了SMTP时启用运行失败邮件告警
	if smtpHost := os.Getenv("ALERT_SMTP_HOST"); smtpHost != "" {
		emailAlert := plugin.NewEmailAlertPlugin()
		if err := emailAlert.Init(map[string]string{
			"smtp_host": smtpHost,
			"to":        os.Getenv("ALERT_EMAIL_TO"),
		}); err != nil {
			log.Fatal("初始化告警插件失败: ", err)
		}
		builder.WithPlugins(emailAlert)
	}

	eng, err := builder.Build()
	if err != nil {
		log.Fatal("创建引擎失败: ", err)
	}

	if err := eng.Start(context.Background()); err != nil {
		log.Fatal("启动引擎失败: ", err)
	}
	defer eng.Stop()

	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = engineCfg.MedPipeline.Server.HTTPPort

	apiServer := api.NewAPIServer(eng, serverConfig, version)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API服务器错误: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.WriteTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("关闭API服务器失败: %v", err)
	}
}
