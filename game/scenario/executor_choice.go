// 选项处理：打开选项、记录选择、写入 choice_N flag。
package scenario

import (
	"fmt"
	"strconv"

	"github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/kasuganosora/scenarioplayer/game/ir"
	"go.uber.org/zap"
)

// ChoiceRecord 是一次选择：ordinal 为本次加载中的第几个选项（从 1 开始），
// Index 为选中的下标（从 0 开始）。
type ChoiceRecord struct {
	Ordinal int    `json:"ordinal"`
	Index   int    `json:"index"`
	Text    string `json:"text"`
}

// ChoiceHistory 是按剧本划分的选择历史。加载不同剧本时清空，重新加载同一剧本时保留。
type ChoiceHistory struct {
	script  string
	records []ChoiceRecord
}

// NewChoiceHistory 创建空历史。
func NewChoiceHistory() *ChoiceHistory { return &ChoiceHistory{} }

// Begin 标记开始播放 script；与上次不同的剧本会清空历史。
func (h *ChoiceHistory) Begin(script string) {
	if h.script != script {
		h.records = nil
	}
	h.script = script
}

// Script 返回历史所属剧本。
func (h *ChoiceHistory) Script() string { return h.script }

// Add 追加一条记录。
func (h *ChoiceHistory) Add(r ChoiceRecord) { h.records = append(h.records, r) }

// Records 返回记录副本。
func (h *ChoiceHistory) Records() []ChoiceRecord {
	return append([]ChoiceRecord(nil), h.records...)
}

// Text 返回某个选项序号最近一次选择的文本。
func (h *ChoiceHistory) Text(ordinal int) (string, bool) {
	for i := len(h.records) - 1; i >= 0; i-- {
		if h.records[i].Ordinal == ordinal {
			return h.records[i].Text, true
		}
	}
	return "", false
}

// ChoiceFlag 返回第 ordinal 个选项对应的 flag 名。
func ChoiceFlag(ordinal int) string { return "choice_" + strconv.Itoa(ordinal) }

// openChoice 进入 ShowingChoice，直到 SelectChoice 被调用。
func (e *Executor) openChoice(step *ir.Step, c ir.PresentChoice) {
	e.ordinal++
	e.choice = &c
	e.state = ShowingChoice
	e.opts.Listener.OnChoice(step.ID, append([]string(nil), c.Options...))
}

// SelectChoice 记录玩家的选择并从下一步继续推进。
// 写入 choice_{ordinal} = index+1（整数），并追加到选择历史与选择日志。
func (e *Executor) SelectChoice(index int) error {
	if e.state != ShowingChoice || e.choice == nil {
		return ErrNotAwaitingChoice
	}
	if index < 0 || index >= len(e.choice.Options) {
		return fmt.Errorf("%w: %d of %d", ErrChoiceOutOfRange, index, len(e.choice.Options))
	}
	options := e.choice.Options
	rec := ChoiceRecord{Ordinal: e.ordinal, Index: index, Text: options[index]}
	e.history.Add(rec)

	if e.opts.Flags != nil {
		name := ChoiceFlag(rec.Ordinal)
		if err := e.opts.Flags.Set(name, flag.Int(index+1)); err != nil {
			e.degrade(e.Step(), ir.KindPresentChoice, name, "choice flag not persisted: "+err.Error())
		}
	}
	if e.opts.Choices != nil {
		if err := e.opts.Choices.AppendChoice(e.script, rec, options); err != nil {
			e.logger.Warn("failed to log choice", zap.Int("ordinal", rec.Ordinal), zap.Error(err))
		}
	}

	e.choice = nil
	e.state = ReadyToAdvance
	e.logger.Debug("choice selected", zap.Int("ordinal", rec.Ordinal), zap.Int("index", index))
	e.proceed()
	return nil
}
