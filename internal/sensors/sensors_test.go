package sensors

import (
	"os"
	"path/filepath"
	"testing"
)

// TestSimReader はシミュレーションリーダーをテストする
func TestSimReader(t *testing.T) {
	reader, err := NewReader(ReaderSim, Options{})
	if err != nil {
		t.Fatalf("リーダーの作成に失敗しました: %v", err)
	}

	first, err := reader.ReadSnapshot()
	if err != nil {
		t.Fatalf("スナップショットの取得に失敗しました: %v", err)
	}

	// 繰り返し読んでも同じ値を返すこと
	second, err := reader.ReadSnapshot()
	if err != nil {
		t.Fatalf("スナップショットの取得に失敗しました: %v", err)
	}
	if first != second {
		t.Errorf("スナップショットが一致しません: %+v != %+v", first, second)
	}
}

// TestIIOReader はIIO属性ファイルからの読み取りをテストする
func TestIIOReader(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("テストファイルの作成に失敗しました: %v", err)
		}
		return path
	}

	reader, err := NewReader(ReaderIIO, Options{
		TemperaturePath:  write("in_temp_input", "23500\n"),
		HumidityPath:     write("in_humidityrelative_input", "48200\n"),
		SoilMoisturePath: write("in_voltage0_raw", "512\n"),
	})
	if err != nil {
		t.Fatalf("リーダーの作成に失敗しました: %v", err)
	}

	snapshot, err := reader.ReadSnapshot()
	if err != nil {
		t.Fatalf("スナップショットの取得に失敗しました: %v", err)
	}

	if snapshot.Temperature != 23.5 {
		t.Errorf("温度が一致しません: got %v, want 23.5", snapshot.Temperature)
	}
	if snapshot.Humidity != 48.2 {
		t.Errorf("湿度が一致しません: got %v, want 48.2", snapshot.Humidity)
	}
	if snapshot.SoilMoisture != 512 {
		t.Errorf("土壌水分が一致しません: got %v, want 512", snapshot.SoilMoisture)
	}
}

// TestIIOReaderFailure は読み取り失敗ケースをテストする
func TestIIOReaderFailure(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid")
	if err := os.WriteFile(valid, []byte("100\n"), 0o644); err != nil {
		t.Fatalf("テストファイルの作成に失敗しました: %v", err)
	}
	broken := filepath.Join(dir, "broken")
	if err := os.WriteFile(broken, []byte("not-a-number\n"), 0o644); err != nil {
		t.Fatalf("テストファイルの作成に失敗しました: %v", err)
	}

	testCases := []struct {
		name string
		opts Options
	}{
		{
			name: "存在しないファイル",
			opts: Options{
				TemperaturePath:  filepath.Join(dir, "missing"),
				HumidityPath:     valid,
				SoilMoisturePath: valid,
			},
		},
		{
			name: "数値でない属性値",
			opts: Options{
				TemperaturePath:  valid,
				HumidityPath:     broken,
				SoilMoisturePath: valid,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reader, err := NewReader(ReaderIIO, tc.opts)
			if err != nil {
				t.Fatalf("リーダーの作成に失敗しました: %v", err)
			}
			if _, err := reader.ReadSnapshot(); err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
		})
	}
}

// TestNewReaderValidation はリーダー作成時の検証をテストする
func TestNewReaderValidation(t *testing.T) {
	if _, err := NewReader(ReaderIIO, Options{}); err == nil {
		t.Error("属性パスなしでエラーが期待されましたが、エラーが発生しませんでした")
	}
	if _, err := NewReader(ReaderType("bogus"), Options{}); err == nil {
		t.Error("未知のタイプでエラーが期待されましたが、エラーが発生しませんでした")
	}
}
