package camera

import "errors"

// Format はフレームのピクセルフォーマットを表す
type Format string

const (
	FormatJPEG  Format = "jpeg"  // JPEG圧縮済み
	FormatYUYV  Format = "yuyv"  // YUYV 4:2:2 生データ
	FormatRGB24 Format = "rgb24" // RGB24 生データ
)

// Resolution はカメラの解像度を表す
type Resolution struct {
	Width  int // 幅
	Height int // 高さ
}

// frameSizes はフレームサイズ番号と解像度の対応表
// 番号はカメラセンサーのフレームサイズ指定に準拠する
var frameSizes = []Resolution{
	{96, 96},     // 0
	{160, 120},   // 1: QQVGA
	{176, 144},   // 2: QCIF
	{240, 176},   // 3: HQVGA
	{240, 240},   // 4
	{320, 240},   // 5: QVGA
	{400, 296},   // 6: CIF
	{480, 320},   // 7: HVGA
	{640, 480},   // 8: VGA
	{800, 600},   // 9: SVGA
	{1024, 768},  // 10: XGA
	{1280, 720},  // 11: HD
	{1280, 1024}, // 12: SXGA
	{1600, 1200}, // 13: UXGA
}

// FrameSizes は有効なフレームサイズの一覧を返す
func FrameSizes() []Resolution {
	sizes := make([]Resolution, len(frameSizes))
	copy(sizes, frameSizes)
	return sizes
}

// ErrOutOfRange はパラメータ値がセンサーの許容範囲外の場合のエラー
var ErrOutOfRange = errors.New("値がセンサーの許容範囲外です")

// ErrSourceStopped は停止中のソースからフレームを要求した場合のエラー
var ErrSourceStopped = errors.New("フレームソースが停止しています")

// Frame はカメラから貸し出される1枚分の画像データ
//
// Data はフレームソースが所有するバッファを指している場合があるため、
// Release を呼んだ後にアクセスしてはならない。
type Frame struct {
	Data    []byte // 画像データ
	Format  Format // ピクセルフォーマット
	Width   int    // 画像幅
	Height  int    // 画像高さ
	release func()
}

// Release はフレームをソースへ返却する
// 2回目以降の呼び出しは何もしない
func (f *Frame) Release() {
	if f == nil || f.release == nil {
		return
	}
	release := f.release
	f.release = nil
	release()
}

// validateFrameSize はフレームサイズ番号を検証する
func validateFrameSize(v int) error {
	if v < 0 || v >= len(frameSizes) {
		return ErrOutOfRange
	}
	return nil
}

// validateQuality はJPEG品質値（0-63、小さいほど高品質）を検証する
func validateQuality(v int) error {
	if v < 0 || v > 63 {
		return ErrOutOfRange
	}
	return nil
}

// validateLevel は明度・コントラストのレベル値（-2〜2）を検証する
func validateLevel(v int) error {
	if v < -2 || v > 2 {
		return ErrOutOfRange
	}
	return nil
}
