package camera

import (
	"context"
	"fmt"
)

// Source はフレームの取得元を統一するインターフェース
//
// Acquire から Release までがチェックアウト区間であり、
// ソースは同時に1フレームしか貸し出さない。貸し出し中の
// Acquire は返却されるまでブロックする。
type Source interface {
	// Start はソースを開始する
	Start(ctx context.Context) error

	// Stop はソースを停止する
	Stop() error

	// Acquire は1フレームを貸し出す
	Acquire() (*Frame, error)

	// Format は現在の出力フォーマットを返す
	Format() Format
}

// Params はカメラの現在のパラメータ値を表す
type Params struct {
	FrameSize  int // フレームサイズ番号（frameSizes 準拠）
	Quality    int // JPEG品質（0-63、小さいほど高品質）
	Brightness int // 明度（-2〜2）
	Contrast   int // コントラスト（-2〜2）
}

// ParamStore はカメラパラメータの取得と変更を担うインターフェース
//
// 設定は非トランザクショナルで、範囲外の値は各ソースの
// センサー準拠の検証で拒否される。
type ParamStore interface {
	// Get は現在のパラメータを取得する
	Get() Params

	// SetFrameSize はフレームサイズ番号を設定する
	SetFrameSize(v int) error

	// SetQuality はJPEG品質を設定する
	SetQuality(v int) error

	// SetContrast はコントラストを設定する
	SetContrast(v int) error

	// SetBrightness は明度を設定する
	SetBrightness(v int) error
}

// SourceType はソースタイプを定義
type SourceType string

const (
	// SourceV4L2 はV4L2デバイスソースを表す
	SourceV4L2 SourceType = "v4l2"
	// SourceFFmpeg はffmpeg経由のデバイスソースを表す
	SourceFFmpeg SourceType = "ffmpeg"
	// SourceSim はシミュレーションソースを表す
	SourceSim SourceType = "sim"
)

// Options はソース作成設定
type Options struct {
	Device    string // デバイスパス（例: /dev/video0）
	FPS       int    // フレームレート（ffmpegソースで使用）
	Params    Params // 初期パラメータ
	SimFormat Format // シミュレーションソースの出力フォーマット
}

// SourceCreator はソース作成関数の型
type SourceCreator func(Options) (Source, error)

// creators はソースタイプごとの作成関数
var creators = map[SourceType]SourceCreator{
	SourceV4L2:   newV4L2Source,
	SourceFFmpeg: newFFmpegSource,
	SourceSim:    newSimSource,
}

// NewSource は指定タイプのフレームソースを作成する
// 全てのソースはパラメータストアを兼ねる
func NewSource(sourceType SourceType, opts Options) (Source, ParamStore, error) {
	creator, exists := creators[sourceType]
	if !exists {
		return nil, nil, fmt.Errorf("サポートされていないソースタイプ: %s", sourceType)
	}

	source, err := creator(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("ソースの作成に失敗: %w", err)
	}

	store, ok := source.(ParamStore)
	if !ok {
		return nil, nil, fmt.Errorf("ソースがパラメータストアを実装していません: %s", sourceType)
	}

	return source, store, nil
}
