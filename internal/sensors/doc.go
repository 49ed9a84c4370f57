// Package sensors は環境センサー値の読み取りを担う
//
// # 責務
// - 温度・湿度・土壌水分のスナップショット取得
// - sysfs（IIO）属性ファイルからの実センサー読み取り
// - ハードウェアなし環境向けのシミュレーション読み取り
//
// # 仕様
// - スナップショットは読み取り専用で、要求のたびに生成される
// - IIO属性はミリ単位の整数で提供されることが多いため、
//   スケール係数で実値へ変換する
package sensors
