package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// Encoder は生フレームをJPEGへ変換するインターフェース
type Encoder interface {
	// Encode はフレームをJPEGバイト列へ変換する
	// quality は image/jpeg の品質値（1-100）
	Encode(f *Frame, quality int) ([]byte, error)
}

// JPEGEncoder は image/jpeg による標準のエンコーダ実装
type JPEGEncoder struct{}

// Encode は生フレームをJPEGバイト列へ変換する
func (JPEGEncoder) Encode(f *Frame, quality int) ([]byte, error) {
	if f == nil || len(f.Data) == 0 {
		return nil, fmt.Errorf("エンコード対象のフレームが空です")
	}

	var img image.Image
	var err error

	switch f.Format {
	case FormatYUYV:
		img, err = yuyvToImage(f)
	case FormatRGB24:
		img, err = rgb24ToImage(f)
	case FormatJPEG:
		return nil, fmt.Errorf("フレームは既にJPEGエンコード済みです")
	default:
		return nil, fmt.Errorf("サポートされていないフォーマット: %s", f.Format)
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}

	return buf.Bytes(), nil
}

// JPEGQuality はセンサーの品質値（0-63、小さいほど高品質）を
// image/jpeg の品質値（1-100、大きいほど高品質）へ変換する
func JPEGQuality(sensorQuality int) int {
	q := 100 - sensorQuality
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return q
}

// yuyvToImage はYUYV 4:2:2のバイト列を画像へ変換する
func yuyvToImage(f *Frame) (image.Image, error) {
	if f.Width <= 0 || f.Height <= 0 || f.Width%2 != 0 {
		return nil, fmt.Errorf("無効なYUYVフレームサイズ: %dx%d", f.Width, f.Height)
	}
	expected := f.Width * f.Height * 2
	if len(f.Data) < expected {
		return nil, fmt.Errorf("YUYVデータが不足しています: got %d, want %d", len(f.Data), expected)
	}

	img := image.NewYCbCr(image.Rect(0, 0, f.Width, f.Height), image.YCbCrSubsampleRatio422)

	// YUYVは [Y0 Cb Y1 Cr] で2ピクセル分を表す
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x += 2 {
			i := (y*f.Width + x) * 2
			yi := img.YOffset(x, y)
			ci := img.COffset(x, y)
			img.Y[yi] = f.Data[i]
			img.Y[yi+1] = f.Data[i+2]
			img.Cb[ci] = f.Data[i+1]
			img.Cr[ci] = f.Data[i+3]
		}
	}

	return img, nil
}

// rgb24ToImage はRGB24のバイト列を画像へ変換する
func rgb24ToImage(f *Frame) (image.Image, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("無効なRGB24フレームサイズ: %dx%d", f.Width, f.Height)
	}
	expected := f.Width * f.Height * 3
	if len(f.Data) < expected {
		return nil, fmt.Errorf("RGB24データが不足しています: got %d, want %d", len(f.Data), expected)
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			i := (y*f.Width + x) * 3
			o := img.PixOffset(x, y)
			img.Pix[o] = f.Data[i]
			img.Pix[o+1] = f.Data[i+1]
			img.Pix[o+2] = f.Data[i+2]
			img.Pix[o+3] = 0xFF
		}
	}

	return img, nil
}
