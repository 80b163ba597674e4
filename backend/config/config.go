package config

import "time"

type Config struct {
	Running struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"running"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Mysql struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"mysql"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	Wall struct {
		// 新建像素墙的默认底色
		DefaultColor string `mapstructure:"defaultColor"`
		// 单面墙允许的最大边长，防止恶意创建超大网格
		MaxDimension int `mapstructure:"maxDimension"`
	} `mapstructure:"wall"`
	RateLimit struct {
		// 每个用户在一个窗口内允许提交的像素编辑数
		MaxEdits int           `mapstructure:"maxEdits"`
		Window   time.Duration `mapstructure:"window"`
	} `mapstructure:"rateLimit"`
	Preview struct {
		// 预览图批量刷新的间隔
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"preview"`
	Auth struct {
		// 登录时找不到用户直接返回 USER_NOT_FOUND，不做静默建号；
		// 新账号必须走 /register，这个开关控制是否开放注册
		AllowRegister bool `mapstructure:"allowRegister"`
	} `mapstructure:"auth"`
}
