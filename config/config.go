package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Metrics struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Amap struct {
		Endpoint           string        `mapstructure:"endpoint"`
		DefaultCity        string        `mapstructure:"defaultCity"`
		WeatherCity        string        `mapstructure:"weatherCity"`
		ReferenceLongitude float64       `mapstructure:"referenceLongitude"`
		ReferenceLatitude  float64       `mapstructure:"referenceLatitude"`
		SearchRadius       int           `mapstructure:"searchRadius"`
		Timeout            time.Duration `mapstructure:"timeout"`
	} `mapstructure:"amap"`
	LLM struct {
		Model       string  `mapstructure:"model"`
		Temperature float32 `mapstructure:"temperature"`
	} `mapstructure:"llm"`
	Session struct {
		Timeout time.Duration `mapstructure:"timeout"`
		TTL     time.Duration `mapstructure:"ttl"`
		Store   string        `mapstructure:"store"`
	} `mapstructure:"session"`
	Redis struct {
		Addr string `mapstructure:"addr"`
		DB   int    `mapstructure:"db"`
	} `mapstructure:"redis"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
