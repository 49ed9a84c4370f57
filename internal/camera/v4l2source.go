package camera

import (
	"context"
	"fmt"
	"sync"

	"github.com/blackjack/webcam"
)

// V4L2のfourccコードとコントロールID
const (
	pixFmtMJPEG = webcam.PixelFormat(0x47504A4D) // 'MJPG'
	pixFmtJPEG  = webcam.PixelFormat(0x4745504A) // 'JPEG'
	pixFmtYUYV  = webcam.PixelFormat(0x56595559) // 'YUYV'

	cidBrightness = webcam.ControlID(0x00980900) // V4L2_CID_BRIGHTNESS
	cidContrast   = webcam.ControlID(0x00980901) // V4L2_CID_CONTRAST
)

// V4L2Source は blackjack/webcam 経由でV4L2デバイスからフレームを取得する
//
// デバイスがMJPEG出力に対応している場合はJPEGフレームを
// そのまま貸し出し、YUYVのみ対応の場合は生フレームを貸し出す。
type V4L2Source struct {
	device     string
	timeoutSec uint32

	// チェックアウト直列化用
	// ReadFrame のバッファは次の ReadFrame まで有効なため、
	// 貸し出し中はこのミューテックスを保持し続けて保護する
	mu sync.Mutex

	// パラメータとデバイスハンドルの保護用
	pmu sync.Mutex

	cam    *webcam.Webcam
	format Format
	width  uint32
	height uint32
	params Params
}

// newV4L2Source は設定からV4L2Sourceを作成する
func newV4L2Source(opts Options) (Source, error) {
	if opts.Device == "" {
		return nil, fmt.Errorf("V4L2ソースの作成にはデバイスパスが必要です")
	}

	params := opts.Params
	if err := validateFrameSize(params.FrameSize); err != nil {
		params.FrameSize = 8 // VGA
	}
	res := frameSizes[params.FrameSize]

	return &V4L2Source{
		device:     opts.Device,
		timeoutSec: 5,
		width:      uint32(res.Width),
		height:     uint32(res.Height),
		params:     params,
	}, nil
}

// Start はデバイスを開きストリーミングを開始する
func (s *V4L2Source) Start(_ context.Context) error {
	s.pmu.Lock()
	defer s.pmu.Unlock()

	if s.cam != nil {
		return nil // 既に開始済み
	}
	return s.openLocked()
}

// openLocked はデバイスを開く（pmuロック済み前提）
func (s *V4L2Source) openLocked() error {
	cam, err := webcam.Open(s.device)
	if err != nil {
		return fmt.Errorf("デバイスのオープンに失敗: %w", err)
	}

	// MJPEGを優先し、なければYUYVへフォールバックする
	supported := cam.GetSupportedFormats()
	var pick webcam.PixelFormat
	var format Format
	switch {
	case supported[pixFmtMJPEG] != "":
		pick, format = pixFmtMJPEG, FormatJPEG
	case supported[pixFmtJPEG] != "":
		pick, format = pixFmtJPEG, FormatJPEG
	case supported[pixFmtYUYV] != "":
		pick, format = pixFmtYUYV, FormatYUYV
	default:
		cam.Close()
		return fmt.Errorf("利用可能なピクセルフォーマットがありません: %s", s.device)
	}

	_, w, h, err := cam.SetImageFormat(pick, s.width, s.height)
	if err != nil {
		cam.Close()
		return fmt.Errorf("画像フォーマットの設定に失敗: %w", err)
	}

	// 初期コントロールを適用（非対応デバイスでは無視する）
	_ = setControlLevel(cam, cidBrightness, s.params.Brightness)
	_ = setControlLevel(cam, cidContrast, s.params.Contrast)

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return fmt.Errorf("ストリーミング開始に失敗: %w", err)
	}

	s.cam = cam
	s.format = format
	s.width = w
	s.height = h
	return nil
}

// Stop はストリーミングを停止しデバイスを閉じる
func (s *V4L2Source) Stop() error {
	s.pmu.Lock()
	defer s.pmu.Unlock()

	if s.cam == nil {
		return nil // 既に停止済み
	}

	stopErr := s.cam.StopStreaming()
	closeErr := s.cam.Close()
	s.cam = nil

	if stopErr != nil {
		return fmt.Errorf("ストリーミング停止に失敗: %w", stopErr)
	}
	if closeErr != nil {
		return fmt.Errorf("デバイスのクローズに失敗: %w", closeErr)
	}
	return nil
}

// Format は現在の出力フォーマットを返す
func (s *V4L2Source) Format() Format {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return s.format
}

// Acquire は1フレームを貸し出す
func (s *V4L2Source) Acquire() (*Frame, error) {
	s.mu.Lock()

	s.pmu.Lock()
	cam := s.cam
	format := s.format
	width, height := int(s.width), int(s.height)
	timeout := s.timeoutSec
	s.pmu.Unlock()

	if cam == nil {
		s.mu.Unlock()
		return nil, ErrSourceStopped
	}

	if err := cam.WaitForFrame(timeout); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("フレーム待機に失敗: %w", err)
	}

	data, err := cam.ReadFrame()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("フレーム読み取りに失敗: %w", err)
	}
	if len(data) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("空のフレームを受信しました")
	}

	return &Frame{
		Data:    data,
		Format:  format,
		Width:   width,
		Height:  height,
		release: s.mu.Unlock,
	}, nil
}

// Get は現在のパラメータを取得する
func (s *V4L2Source) Get() Params {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return s.params
}

// SetFrameSize はフレームサイズを設定する
// ストリーミングを一旦停止してフォーマットを設定し直す
func (s *V4L2Source) SetFrameSize(v int) error {
	if err := validateFrameSize(v); err != nil {
		return err
	}

	// 貸し出し中のフレームが返却されるのを待つ
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pmu.Lock()
	defer s.pmu.Unlock()

	res := frameSizes[v]
	s.width = uint32(res.Width)
	s.height = uint32(res.Height)
	s.params.FrameSize = v

	if s.cam == nil {
		return nil // 停止中は次回 Start 時に反映される
	}

	_ = s.cam.StopStreaming()
	_ = s.cam.Close()
	s.cam = nil

	if err := s.openLocked(); err != nil {
		return fmt.Errorf("フレームサイズ変更後の再開に失敗: %w", err)
	}
	return nil
}

// SetQuality はJPEG品質を設定する
// ハードウェアJPEG出力の再圧縮は行わないため保存のみ行う
func (s *V4L2Source) SetQuality(v int) error {
	if err := validateQuality(v); err != nil {
		return err
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.params.Quality = v
	return nil
}

// SetContrast はコントラストを設定する
func (s *V4L2Source) SetContrast(v int) error {
	if err := validateLevel(v); err != nil {
		return err
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	if s.cam == nil {
		return ErrSourceStopped
	}
	if err := setControlLevel(s.cam, cidContrast, v); err != nil {
		return err
	}
	s.params.Contrast = v
	return nil
}

// SetBrightness は明度を設定する
func (s *V4L2Source) SetBrightness(v int) error {
	if err := validateLevel(v); err != nil {
		return err
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	if s.cam == nil {
		return ErrSourceStopped
	}
	if err := setControlLevel(s.cam, cidBrightness, v); err != nil {
		return err
	}
	s.params.Brightness = v
	return nil
}

// setControlLevel はレベル値（-2〜2）をデバイスのコントロール範囲へ
// 線形変換して設定する
func setControlLevel(cam *webcam.Webcam, id webcam.ControlID, level int) error {
	ctrl, ok := cam.GetControls()[id]
	if !ok {
		return fmt.Errorf("デバイスがコントロールに対応していません: %08x", uint32(id))
	}

	value := ctrl.Min + int32(level+2)*(ctrl.Max-ctrl.Min)/4
	if err := cam.SetControl(id, value); err != nil {
		return fmt.Errorf("コントロール設定に失敗: %w", err)
	}
	return nil
}
