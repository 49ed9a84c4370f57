package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	// 設定を読み込む
	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// 基本的な設定値を検証
	if cfg == nil {
		t.Fatal("設定がnilです")
	}

	// サーバー設定の検証
	if cfg.Server.Host == "" {
		t.Error("サーバーホストが設定されていません")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65534 {
		t.Errorf("無効なポート番号: %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		t.Error("読み込みタイムアウトが設定されていません")
	}
	// WriteTimeout は 0（無効）でも正常
	if cfg.Server.WriteTimeout < 0 {
		t.Error("書き込みタイムアウトが負の値です")
	}

	// カメラ設定の検証
	if cfg.Camera.Source == "" {
		t.Error("カメラソースが設定されていません")
	}
	if cfg.Camera.FrameSize < 0 || cfg.Camera.FrameSize > 13 {
		t.Errorf("無効なフレームサイズ番号: %d", cfg.Camera.FrameSize)
	}
	if cfg.Camera.Quality < 0 || cfg.Camera.Quality > 63 {
		t.Errorf("無効なJPEG品質: %d", cfg.Camera.Quality)
	}

	// センサー設定の検証
	if cfg.Sensors.Source == "" {
		t.Error("センサーソースが設定されていません")
	}
	if cfg.Sensors.Scale <= 0 {
		t.Error("スケール係数が設定されていません")
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name      string
		config    *Config
		expectErr bool
	}{
		{
			name: "正常な設定",
			config: &Config{
				Server:  ServerConfig{Host: "localhost", Port: 8080},
				Camera:  CameraConfig{Source: "sim"},
				Sensors: SensorsConfig{Source: "sim"},
			},
			expectErr: false,
		},
		{
			name: "無効なポート番号",
			config: &Config{
				Server:  ServerConfig{Host: "localhost", Port: 99999},
				Camera:  CameraConfig{Source: "sim"},
				Sensors: SensorsConfig{Source: "sim"},
			},
			expectErr: true,
		},
		{
			name: "ストリーミングポートが範囲外",
			config: &Config{
				Server:  ServerConfig{Host: "localhost", Port: 65535}, // +1が範囲外
				Camera:  CameraConfig{Source: "sim"},
				Sensors: SensorsConfig{Source: "sim"},
			},
			expectErr: true,
		},
		{
			name: "無効なカメラソース",
			config: &Config{
				Server:  ServerConfig{Host: "localhost", Port: 8080},
				Camera:  CameraConfig{Source: "bogus"},
				Sensors: SensorsConfig{Source: "sim"},
			},
			expectErr: true,
		},
		{
			name: "V4L2ソースでデバイスパスなし",
			config: &Config{
				Server:  ServerConfig{Host: "localhost", Port: 8080},
				Camera:  CameraConfig{Source: "v4l2", Device: ""},
				Sensors: SensorsConfig{Source: "sim"},
			},
			expectErr: true,
		},
		{
			name: "無効なセンサーソース",
			config: &Config{
				Server:  ServerConfig{Host: "localhost", Port: 8080},
				Camera:  CameraConfig{Source: "sim"},
				Sensors: SensorsConfig{Source: "bogus"},
			},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("予期しないエラーが発生しました: %v", err)
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "192.168.1.100",
			Port: 9090,
		},
	}

	if got, want := cfg.ServerAddress(), "192.168.1.100:9090"; got != want {
		t.Errorf("サーバーアドレスが一致しません: got %s, want %s", got, want)
	}

	// ストリーミングは制御ポートの次番ポート
	if got, want := cfg.StreamAddress(), "192.168.1.100:9091"; got != want {
		t.Errorf("ストリーミングアドレスが一致しません: got %s, want %s", got, want)
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
// 注意: このテストは環境変数を変更するため、parallelは使わない
func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("SERVER_HOST", "test.example.com")
	t.Setenv("PORT", "9999")
	t.Setenv("CAMERA_SOURCE", "sim")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "test.example.com" {
		t.Errorf("ホストが一致しません: got %s, want test.example.com", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("ポートが一致しません: got %d, want 9999", cfg.Server.Port)
	}
}

// TestConfigFile は設定ファイルの読み込みをテストする
func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  host: 10.0.0.5
  port: 9000
camera:
  source: sim
  quality: 20
sensors:
  source: sim
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("設定ファイルの作成に失敗しました: %v", err)
	}

	t.Setenv("MIDORIME_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "10.0.0.5" {
		t.Errorf("ホストが一致しません: got %s, want 10.0.0.5", cfg.Server.Host)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("ポートが一致しません: got %d, want 9000", cfg.Server.Port)
	}
	if cfg.Camera.Quality != 20 {
		t.Errorf("品質が一致しません: got %d, want 20", cfg.Camera.Quality)
	}

	// 壊れた設定ファイルはエラーになること
	if err := os.WriteFile(path, []byte("{{not yaml"), 0o644); err != nil {
		t.Fatalf("設定ファイルの作成に失敗しました: %v", err)
	}
	if _, err := Load(); err == nil {
		t.Error("エラーが期待されましたが、エラーが発生しませんでした")
	}
}
