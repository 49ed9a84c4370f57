// Package actuator はフラッシュLEDなどの出力デバイスの制御を担う
package actuator

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// MaxIntensity はフラッシュ輝度の最大値（PWMデューティ値）
const MaxIntensity = 255

// ErrOutOfRange は輝度が許容範囲外の場合のエラー
var ErrOutOfRange = errors.New("輝度が許容範囲外です")

// Flash はフラッシュLEDの制御を担うインターフェース
type Flash interface {
	// Set は輝度（0-255）を設定する
	Set(intensity int) error
}

// SysfsLED はsysfsのbrightness属性へ書き込むフラッシュ実装
// 例: /sys/class/leds/flash/brightness
type SysfsLED struct {
	path string
}

// NewSysfsLED は新しいSysfsLEDを作成する
func NewSysfsLED(path string) *SysfsLED {
	return &SysfsLED{path: path}
}

// Set は輝度を設定する
func (l *SysfsLED) Set(intensity int) error {
	if intensity < 0 || intensity > MaxIntensity {
		return ErrOutOfRange
	}
	if err := os.WriteFile(l.path, []byte(strconv.Itoa(intensity)), 0o644); err != nil {
		return fmt.Errorf("輝度の書き込みに失敗: %w", err)
	}
	return nil
}

// Nop はハードウェアなし環境向けのフラッシュ実装
// 値の検証と保持のみ行う
type Nop struct {
	mu   sync.Mutex
	last int
}

// Set は輝度を検証して保持する
func (n *Nop) Set(intensity int) error {
	if intensity < 0 || intensity > MaxIntensity {
		return ErrOutOfRange
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = intensity
	return nil
}

// Last は最後に設定された輝度を返す
func (n *Nop) Last() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}
