package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Business BusinessConfig `mapstructure:"business"`
	Display  DisplayConfig  `mapstructure:"display"`
}

type StorageConfig struct {
	Dir         string `mapstructure:"dir"`          // 数据目录
	AccountFile string `mapstructure:"account_file"` // 账户存储文件名
}

type BusinessConfig struct {
	// 超过该金额的取款需要先通过安全问题验证
	WithdrawVerifyThreshold string `mapstructure:"withdraw_verify_threshold"`
}

// DisplayConfig 提示类界面的停留时长（以 tick 计，界面驱动按 60 tick/秒推进）
type DisplayConfig struct {
	SuccessTicks int `mapstructure:"success_ticks"` // 存取款成功/失败界面
	LogoutTicks  int `mapstructure:"logout_ticks"`  // 登出界面
	MessageTicks int `mapstructure:"message_ticks"` // 临时提示消息（由界面驱动消费）
}

// setDefaults 注册默认值，保证无配置文件也能运行（测试场景）
func setDefaults() {
	viper.SetDefault("storage.dir", "data")
	viper.SetDefault("storage.account_file", "accounts.txt")
	viper.SetDefault("business.withdraw_verify_threshold", "50000")
	viper.SetDefault("display.success_ticks", 240)
	viper.SetDefault("display.logout_ticks", 240)
	viper.SetDefault("display.message_ticks", 180)
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	setDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("读取配置文件失败: %v", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	return config
}

// Default 返回纯默认配置（不读配置文件）
func Default() *Config {
	return LoadConfig("")
}
