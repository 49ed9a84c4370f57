package sensors

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Snapshot は環境センサー値のスナップショット
type Snapshot struct {
	Temperature  float64 `json:"temperature"`  // 温度（摂氏）
	Humidity     float64 `json:"humidity"`     // 相対湿度（%）
	SoilMoisture int     `json:"soilMoisture"` // 土壌水分（ADC生値）
}

// Reader はセンサー値の読み取りを担うインターフェース
type Reader interface {
	// ReadSnapshot は現在のセンサー値を取得する
	ReadSnapshot() (Snapshot, error)
}

// ReaderType はリーダータイプを定義
type ReaderType string

const (
	// ReaderIIO はsysfs（IIO）経由の実センサーリーダーを表す
	ReaderIIO ReaderType = "iio"
	// ReaderSim はシミュレーションリーダーを表す
	ReaderSim ReaderType = "sim"
)

// Options はリーダー作成設定
type Options struct {
	TemperaturePath  string  // 温度属性ファイルのパス
	HumidityPath     string  // 湿度属性ファイルのパス
	SoilMoisturePath string  // 土壌水分属性ファイルのパス
	Scale            float64 // 温度・湿度のスケール係数（ミリ単位なら1000）
}

// NewReader は指定タイプのセンサーリーダーを作成する
func NewReader(readerType ReaderType, opts Options) (Reader, error) {
	switch readerType {
	case ReaderIIO:
		scale := opts.Scale
		if scale <= 0 {
			scale = 1000
		}
		if opts.TemperaturePath == "" || opts.HumidityPath == "" || opts.SoilMoisturePath == "" {
			return nil, fmt.Errorf("IIOリーダーの作成には全ての属性パスが必要です")
		}
		return &IIOReader{
			temperaturePath:  opts.TemperaturePath,
			humidityPath:     opts.HumidityPath,
			soilMoisturePath: opts.SoilMoisturePath,
			scale:            scale,
		}, nil
	case ReaderSim:
		return SimReader{}, nil
	default:
		return nil, fmt.Errorf("サポートされていないリーダータイプ: %s", readerType)
	}
}

// IIOReader はsysfsのIIO属性ファイルからセンサー値を読み取る
type IIOReader struct {
	temperaturePath  string
	humidityPath     string
	soilMoisturePath string
	scale            float64
}

// ReadSnapshot は現在のセンサー値を取得する
func (r *IIOReader) ReadSnapshot() (Snapshot, error) {
	temperature, err := readAttribute(r.temperaturePath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("温度の読み取りに失敗: %w", err)
	}

	humidity, err := readAttribute(r.humidityPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("湿度の読み取りに失敗: %w", err)
	}

	soil, err := readAttribute(r.soilMoisturePath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("土壌水分の読み取りに失敗: %w", err)
	}

	return Snapshot{
		Temperature:  temperature / r.scale,
		Humidity:     humidity / r.scale,
		SoilMoisture: int(soil),
	}, nil
}

// readAttribute は属性ファイルから数値を1つ読み取る
func readAttribute(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("属性ファイルの読み取りに失敗: %w", err)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("属性値の解析に失敗: %w", err)
	}

	return value, nil
}

// SimReader は固定値を返すシミュレーションリーダー
// ハードウェアなし環境での開発とテストに使う
type SimReader struct{}

// ReadSnapshot は固定のセンサー値を返す
func (SimReader) ReadSnapshot() (Snapshot, error) {
	return Snapshot{
		Temperature:  23.5,
		Humidity:     48.2,
		SoilMoisture: 512,
	}, nil
}
