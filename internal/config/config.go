package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Camera  CameraConfig  `yaml:"camera"`
	Sensors SensorsConfig `yaml:"sensors"`
	Flash   FlashConfig   `yaml:"flash"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // 制御APIのポート番号（ストリーミングは+1）

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	Source string `yaml:"source"` // ソースタイプ (v4l2 / ffmpeg / sim)
	Device string `yaml:"device"` // デバイスパス (例: /dev/video0)
	FPS    int    `yaml:"fps"`    // フレームレート (ffmpegソースで使用)

	// 初期パラメータ
	FrameSize  int `yaml:"frame_size"` // フレームサイズ番号 (0-13)
	Quality    int `yaml:"quality"`    // JPEG品質 (0-63、小さいほど高品質)
	Brightness int `yaml:"brightness"` // 明度 (-2〜2)
	Contrast   int `yaml:"contrast"`   // コントラスト (-2〜2)
}

// SensorsConfig は環境センサーの設定
type SensorsConfig struct {
	Source           string  `yaml:"source"`             // リーダータイプ (iio / sim)
	TemperaturePath  string  `yaml:"temperature_path"`   // 温度属性ファイル
	HumidityPath     string  `yaml:"humidity_path"`      // 湿度属性ファイル
	SoilMoisturePath string  `yaml:"soil_moisture_path"` // 土壌水分属性ファイル
	Scale            float64 `yaml:"scale"`              // 温度・湿度のスケール係数
}

// FlashConfig はフラッシュLEDの設定
type FlashConfig struct {
	Device string `yaml:"device"` // brightness属性ファイル（空ならシミュレーション）
}

// Load は設定を読み込む
// デフォルト値をベースに、設定ファイルと環境変数で上書きする
func Load() (*Config, error) {
	// デフォルト設定を作成
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsIntOrDefault("PORT", 8080),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			Source:    getEnvOrDefault("CAMERA_SOURCE", "sim"),
			Device:    getEnvOrDefault("CAMERA_DEVICE", "/dev/video0"),
			FPS:       15,
			FrameSize: 8, // VGA
			Quality:   10,
		},
		Sensors: SensorsConfig{
			Source:           getEnvOrDefault("SENSORS_SOURCE", "sim"),
			TemperaturePath:  "/sys/bus/iio/devices/iio:device0/in_temp_input",
			HumidityPath:     "/sys/bus/iio/devices/iio:device0/in_humidityrelative_input",
			SoilMoisturePath: "/sys/bus/iio/devices/iio:device1/in_voltage0_raw",
			Scale:            1000,
		},
		Flash: FlashConfig{
			Device: getEnvOrDefault("FLASH_DEVICE", ""),
		},
	}

	// 設定ファイルが指定されていれば読み込む
	if path := os.Getenv("MIDORIME_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
		}
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// ストリーミングポート（+1）も有効範囲に収まること
	if c.Server.Port < 1 || c.Server.Port > 65534 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	switch c.Camera.Source {
	case "v4l2", "ffmpeg":
		if c.Camera.Device == "" {
			return fmt.Errorf("カメラソース %s にはデバイスパスが必要です", c.Camera.Source)
		}
	case "sim":
	default:
		return fmt.Errorf("無効なカメラソース: %s", c.Camera.Source)
	}

	switch c.Sensors.Source {
	case "iio", "sim":
	default:
		return fmt.Errorf("無効なセンサーソース: %s", c.Sensors.Source)
	}

	return nil
}

// ServerAddress は制御APIサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// StreamAddress はストリーミングサーバーのリッスンアドレスを返す
// ストリーミングは制御ポートの次番ポートでリッスンする
func (c *Config) StreamAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port+1)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
