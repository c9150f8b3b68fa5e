// 工具：诊断记录与协作者的空实现。
package scenario

import (
	"github.com/kasuganosora/scenarioplayer/game/ir"
	"github.com/kasuganosora/scenarioplayer/game/normalize"
	"go.uber.org/zap"
)

// degrade 记录一次降级执行并以 Warn 级别输出日志。
func (e *Executor) degrade(step *ir.Step, kind ir.ActionKind, target, reason string) {
	id := -1
	if step != nil {
		id = step.ID
	}
	d := Diagnostic{Step: id, Action: kind, Target: target, Reason: reason}
	e.diags = append(e.diags, d)
	e.logger.Warn("action degraded",
		zap.Int("step", id),
		zap.String("action", string(kind)),
		zap.String("target", target),
		zap.String("reason", reason))
}

// doneHandle 是立即完成的句柄。
type doneHandle struct{}

func (doneHandle) Done() bool { return true }
func (doneHandle) Cancel()    {}

// Done 返回一个已完成的句柄，供没有动画的协作者实现使用。
func Done() Handle { return doneHandle{} }

type nopStage struct{}

func (nopStage) SetBackground(string)                                     {}
func (nopStage) ShowBackground(string, float64) Handle                    { return doneHandle{} }
func (nopStage) MoveBackground(_, _ normalize.Position, _ float64) Handle { return doneHandle{} }
func (nopStage) EnterCharacter(string, normalize.Expression, normalize.Position, float64, bool, float64) Handle {
	return doneHandle{}
}
func (nopStage) ShiftCharacter(string, normalize.Expression, float64) Handle { return doneHandle{} }
func (nopStage) MoveCharacter(string, normalize.Position, normalize.Position, float64) Handle {
	return doneHandle{}
}
func (nopStage) ExitCharacter(string, float64) Handle { return doneHandle{} }
func (nopStage) Fade(bool, string, float64) Handle    { return doneHandle{} }

type nopMixer struct{}

func (nopMixer) PlayBgm(string, float64, bool) {}
func (nopMixer) PauseBgm(float64) Handle       { return doneHandle{} }
func (nopMixer) ResumeBgm(float64) Handle      { return doneHandle{} }
func (nopMixer) PlaySe(string, float64, int)   {}

type nopListener struct{}

func (nopListener) OnText(int, ir.Text)    {}
func (nopListener) OnChoice(int, []string) {}
func (nopListener) OnScrollStop(int)       {}
func (nopListener) OnFinished(string)      {}
