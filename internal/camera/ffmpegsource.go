package camera

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// FFmpegSource はffmpegを子プロセスとして使いV4L2デバイスから
// JPEGフレームを1枚ずつ取得する
//
// カーネルAPIを直接叩けない環境向けのフォールバック実装で、
// 出力は常にJPEGになる。
type FFmpegSource struct {
	device  string
	fps     int
	timeout time.Duration

	// チェックアウト直列化用
	mu sync.Mutex

	// パラメータと内部状態の保護用
	pmu sync.Mutex

	params  Params
	width   int
	height  int
	started bool
	ctx     context.Context
}

// newFFmpegSource は設定からFFmpegSourceを作成する
func newFFmpegSource(opts Options) (Source, error) {
	if opts.Device == "" {
		return nil, fmt.Errorf("ffmpegソースの作成にはデバイスパスが必要です")
	}

	fps := opts.FPS
	if fps <= 0 {
		fps = 15
	}

	params := opts.Params
	if err := validateFrameSize(params.FrameSize); err != nil {
		params.FrameSize = 8 // VGA
	}
	res := frameSizes[params.FrameSize]

	return &FFmpegSource{
		device:  opts.Device,
		fps:     fps,
		timeout: 10 * time.Second,
		params:  params,
		width:   res.Width,
		height:  res.Height,
	}, nil
}

// Start はデバイスの利用可能性を確認しソースを開始する
func (s *FFmpegSource) Start(ctx context.Context) error {
	// v4l2-ctlコマンドでデバイス情報を取得して確認
	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", s.device, "--info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("デバイスが利用できません: %s: %w", s.device, err)
	}

	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.started = true
	s.ctx = ctx
	return nil
}

// Stop はソースを停止する
func (s *FFmpegSource) Stop() error {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.started = false
	return nil
}

// Format は常にJPEGを返す
func (s *FFmpegSource) Format() Format {
	return FormatJPEG
}

// Acquire はffmpegで1フレームをキャプチャして貸し出す
func (s *FFmpegSource) Acquire() (*Frame, error) {
	s.mu.Lock()

	s.pmu.Lock()
	started := s.started
	baseCtx := s.ctx
	width, height := s.width, s.height
	quality := s.params.Quality
	s.pmu.Unlock()

	if !started {
		s.mu.Unlock()
		return nil, ErrSourceStopped
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	ctx, cancel := context.WithTimeout(baseCtx, s.timeout)
	defer cancel()

	data, err := s.captureJPEG(ctx, width, height, quality)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	return &Frame{
		Data:    data,
		Format:  FormatJPEG,
		Width:   width,
		Height:  height,
		release: s.mu.Unlock,
	}, nil
}

// captureJPEG はffmpegで1フレームをJPEGとしてキャプチャする
func (s *FFmpegSource) captureJPEG(ctx context.Context, width, height, quality int) ([]byte, error) {
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-i", s.device,
		"-vframes", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", strconv.Itoa(ffmpegQuality(quality)),
		"-",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("JPEGフレームキャプチャに失敗: %w (stderr: %s)", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpegが空の出力を返しました")
	}

	return stdout.Bytes(), nil
}

// ffmpegQuality はセンサーの品質値（0-63）をffmpegの -q:v 値（2-31）へ変換する
func ffmpegQuality(sensorQuality int) int {
	if sensorQuality < 0 {
		sensorQuality = 0
	}
	if sensorQuality > 63 {
		sensorQuality = 63
	}
	return 2 + sensorQuality*29/63
}

// Get は現在のパラメータを取得する
func (s *FFmpegSource) Get() Params {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return s.params
}

// SetFrameSize はフレームサイズを設定する
func (s *FFmpegSource) SetFrameSize(v int) error {
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
func (s *FFmpegSource) SetQuality(v int) error {
	if err := validateQuality(v); err != nil {
		return err
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.params.Quality = v
	return nil
}

// SetContrast はコントラストを設定する
func (s *FFmpegSource) SetContrast(v int) error {
	if err := validateLevel(v); err != nil {
		return err
	}
	if err := s.setControl("contrast", v); err != nil {
		return err
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.params.Contrast = v
	return nil
}

// SetBrightness は明度を設定する
func (s *FFmpegSource) SetBrightness(v int) error {
	if err := validateLevel(v); err != nil {
		return err
	}
	if err := s.setControl("brightness", v); err != nil {
		return err
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.params.Brightness = v
	return nil
}

// setControl はv4l2-ctlでカメラのコントロールを設定する
func (s *FFmpegSource) setControl(control string, value int) error {
	s.pmu.Lock()
	started := s.started
	baseCtx := s.ctx
	s.pmu.Unlock()

	if !started {
		return ErrSourceStopped
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	ctx, cancel := context.WithTimeout(baseCtx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "v4l2-ctl",
		"--device", s.device,
		"--set-ctrl", fmt.Sprintf("%s=%d", control, value))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("コントロール %s の設定に失敗: %w", control, err)
	}
	return nil
}
