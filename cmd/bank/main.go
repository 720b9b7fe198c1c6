package main

import (
	"log"
	"os"

	"bankms/internal/config"
	"bankms/internal/handler"
	"bankms/internal/repository"
	"bankms/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bankms",
	Short: "单操作员银行账户管理系统",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		cfg := config.LoadConfig(configPath)

		// 初始化存储
		accountRepo := repository.NewAccountRepository(cfg.Storage.Dir, cfg.Storage.AccountFile)
		txRepo := repository.NewTransactionRepository(cfg.Storage.Dir)

		// 初始化业务服务
		threshold, err := decimal.NewFromString(cfg.Business.WithdrawVerifyThreshold)
		if err != nil {
			log.Fatalf("取款验证阈值配置非法: %v", err)
		}
		accountSvc := service.NewAccountService(accountRepo, txRepo)
		authSvc := service.NewAuthService(accountRepo, threshold)

		// 启动状态机与终端界面驱动
		machine := handler.NewMachine(accountSvc, authSvc, cfg.Display)
		return runTerminal(machine)
	},
}

func main() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "配置文件路径（留空使用内置默认值）")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
