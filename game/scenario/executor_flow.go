// 控制流：推进、自动穿透、条件跳转与结束。
package scenario

import (
	"github.com/kasuganosora/scenarioplayer/game/condition"
	"github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/kasuganosora/scenarioplayer/game/ir"
	"go.uber.org/zap"
)

// 结束原因
const (
	FinishEnd         = "end"
	FinishUnmatchedIf = "unmatched_if"
)

// Advance 是唯一由外部调用的推进操作。
// 返回 false 表示未推进：已结束、正在等待选择、或 Block 动画尚未完成。
// 无文本且无 Block 动画的步骤会自动穿透，调用方只会停在文本、选项或 Block 步骤上。
func (e *Executor) Advance() bool {
	switch e.state {
	case Finished, ShowingChoice:
		return false
	case WaitingForAnimation:
		if e.IsBlocked() {
			return false
		}
		e.state = ReadyToAdvance
	}

	e.state = AdvancePending
	e.proceed()
	return true
}

// proceed 是一次外部推进（Advance 或选择后继续）：截断 Interrupt 动画，
// Continue 动画倒计时，然后执行到下一个停点。
func (e *Executor) proceed() {
	e.cutInterrupts()
	e.tickTweens()
	e.run()
}

// Update 每帧调用一次：轮询动画句柄。
// 当前步骤没有文本且 Block 动画已全部完成时，自动继续推进。
func (e *Executor) Update() {
	e.pruneRunning()
	if e.state != WaitingForAnimation {
		return
	}
	if e.IsBlocked() {
		return
	}
	e.state = ReadyToAdvance
	if step := e.Step(); step != nil && !step.HasText() {
		e.run()
	}
}

// run 从游标的下一步开始执行，直到遇到需要停下的步骤。
func (e *Executor) run() {
	for {
		e.cursor++
		if e.cursor >= len(e.prog.Steps) {
			e.cursor = len(e.prog.Steps) - 1
			e.finish(FinishEnd)
			return
		}
		step := e.prog.Steps[e.cursor]
		e.state = Dispatching
		e.blocking = e.blocking[:0]

		if !e.dispatchStep(step) {
			// 条件跳转或异常结束已经移动了游标/状态
			if e.state == Finished {
				return
			}
			continue
		}

		if e.state == ShowingChoice {
			return
		}
		if step.HasText() {
			e.opts.Listener.OnText(step.ID, *step.Text)
		}
		if e.IsBlocked() {
			e.state = WaitingForAnimation
			return
		}
		e.state = ReadyToAdvance
		if step.HasText() {
			return
		}
	}
}

// dispatchStep 按顺序分发步骤中的动作。
// 返回 false 表示 IfStart 条件为假，游标已被移到配对的 IfEnd（或已结束）。
func (e *Executor) dispatchStep(step *ir.Step) bool {
	for _, a := range step.Actions {
		if start, ok := a.(ir.IfStart); ok {
			if e.checkCondition(start.Condition) {
				continue
			}
			e.state = SkippingToEndif
			e.skipToEndif()
			return false
		}
		e.dispatch(step, a)
	}
	return true
}

// checkCondition 用 flag 存储评估条件；未设置的 flag 视为 false / 0 / ""。
func (e *Executor) checkCondition(cond condition.Expr) bool {
	var lookup condition.Lookup
	if e.opts.Flags != nil {
		lookup = func(name string) (flag.Value, bool) { return e.opts.Flags.Get(name) }
	}
	return cond.Eval(lookup)
}

// skipToEndif 从当前 IfStart 向后扫描配对的 IfEnd：
// 深度从 1 开始，遇到 IfStart +1，遇到 IfEnd -1，为 0 时即为目标。
// 找不到配对时游标停在最后一步并以警告结束。
func (e *Executor) skipToEndif() {
	if end := e.matchingEnd(e.cursor); end >= 0 {
		e.logger.Debug("condition false, skipping block",
			zap.Int("from", e.cursor), zap.Int("to", end))
		e.cursor = end
		return
	}
	e.logger.Warn("unmatched if, finishing script", zap.Int("step", e.cursor))
	e.degrade(e.prog.Steps[e.cursor], ir.KindIfStart, "", "no matching endif; script finished")
	e.cursor = len(e.prog.Steps) - 1
	e.finish(FinishUnmatchedIf)
}

// matchingEnd 返回 from 处 IfStart 配对的 IfEnd 步骤下标，找不到返回 -1。
func (e *Executor) matchingEnd(from int) int {
	depth := 1
	for j := from + 1; j < len(e.prog.Steps); j++ {
		a, ok := e.prog.Steps[j].Control()
		if !ok {
			continue
		}
		switch a.(type) {
		case ir.IfStart:
			depth++
		case ir.IfEnd:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func (e *Executor) finish(reason string) {
	if e.state == Finished {
		return
	}
	e.state = Finished
	e.finishReason = reason
	e.choice = nil
	e.logger.Debug("script finished", zap.String("reason", reason))
	e.opts.Listener.OnFinished(reason)
}
