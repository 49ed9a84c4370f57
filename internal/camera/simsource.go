package camera

import (
	"context"
	"fmt"
	"sync"
)

// SimSource はハードウェアなしで動作する合成フレームソース
// 開発環境とテストで実カメラの代替として使う
type SimSource struct {
	// チェックアウト直列化用
	// Acquire でロックし、Release でアンロックする
	mu sync.Mutex

	// パラメータと内部状態の保護用
	pmu sync.Mutex

	params  Params
	format  Format
	width   int
	height  int
	started bool
	seq     int

	// テスト用の故障注入
	acquireErr error

	// 貸し出しと返却の累計
	acquired int
	released int

	encoder JPEGEncoder
}

// NewSim は新しいSimSourceを作成する
func NewSim(opts Options) *SimSource {
	format := opts.SimFormat
	if format == "" {
		format = FormatJPEG
	}

	params := opts.Params
	if err := validateFrameSize(params.FrameSize); err != nil {
		params.FrameSize = 8 // VGA
	}
	res := frameSizes[params.FrameSize]

	return &SimSource{
		params: params,
		format: format,
		width:  res.Width,
		height: res.Height,
	}
}

// newSimSource は設定からSimSourceを作成する
func newSimSource(opts Options) (Source, error) {
	return NewSim(opts), nil
}

// Start はソースを開始する
func (s *SimSource) Start(_ context.Context) error {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.started = true
	return nil
}

// Stop はソースを停止する
func (s *SimSource) Stop() error {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.started = false
	return nil
}

// Format は現在の出力フォーマットを返す
func (s *SimSource) Format() Format {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return s.format
}

// Acquire は合成フレームを1枚貸し出す
func (s *SimSource) Acquire() (*Frame, error) {
	s.mu.Lock()

	s.pmu.Lock()
	started := s.started
	acquireErr := s.acquireErr
	format := s.format
	width, height := s.width, s.height
	quality := s.params.Quality
	s.seq++
	seq := s.seq
	s.pmu.Unlock()

	if !started {
		s.mu.Unlock()
		return nil, ErrSourceStopped
	}
	if acquireErr != nil {
		s.mu.Unlock()
		return nil, acquireErr
	}

	data := renderRGB24(width, height, seq)
	outFormat := FormatRGB24

	if format == FormatJPEG {
		raw := &Frame{Data: data, Format: FormatRGB24, Width: width, Height: height}
		encoded, err := s.encoder.Encode(raw, JPEGQuality(quality))
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("合成フレームのエンコードに失敗: %w", err)
		}
		data = encoded
		outFormat = FormatJPEG
	}

	s.pmu.Lock()
	s.acquired++
	s.pmu.Unlock()

	return &Frame{
		Data:   data,
		Format: outFormat,
		Width:  width,
		Height: height,
		release: func() {
			s.pmu.Lock()
			s.released++
			s.pmu.Unlock()
			s.mu.Unlock()
		},
	}, nil
}

// Get は現在のパラメータを取得する
func (s *SimSource) Get() Params {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return s.params
}

// SetFrameSize はフレームサイズを設定する
func (s *SimSource) SetFrameSize(v int) error {
	if err := validateFrameSize(v); err != nil {
		return err
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.params.FrameSize = v
	s.width = frameSizes[v].Width
	s.height = frameSizes[v].Height
	return nil
}

// SetQuality はJPEG品質を設定する
func (s *SimSource) SetQuality(v int) error {
	if err := validateQuality(v); err != nil {
		return err
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.params.Quality = v
	return nil
}

// SetContrast はコントラストを設定する
func (s *SimSource) SetContrast(v int) error {
	if err := validateLevel(v); err != nil {
		return err
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.params.Contrast = v
	return nil
}

// SetBrightness は明度を設定する
func (s *SimSource) SetBrightness(v int) error {
	if err := validateLevel(v); err != nil {
		return err
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.params.Brightness = v
	return nil
}

// SetAcquireError は以降の Acquire を失敗させる（テスト用の故障注入）
// nil を渡すと解除される
func (s *SimSource) SetAcquireError(err error) {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.acquireErr = err
}

// Counters は貸し出しと返却の累計を返す
func (s *SimSource) Counters() (acquired, released int) {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return s.acquired, s.released
}

// renderRGB24 はシーケンス番号に応じて変化するグラデーション画像を生成する
func renderRGB24(width, height, seq int) []byte {
	data := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 3
			data[i] = uint8(x + seq)
			data[i+1] = uint8(y + seq/2)
			data[i+2] = uint8(x ^ y)
		}
	}
	return data
}
