// 动作分发：把 IR 动作转交给协作者，并按推进策略登记动画句柄。
package scenario

import (
	"github.com/kasuganosora/scenarioplayer/game/ir"
	"github.com/kasuganosora/scenarioplayer/resource"
	"go.uber.org/zap"
)

// tween 是一个 Continue 策略的移动：在其后的 remaining 个步骤内保持，
// 进入再下一个步骤时按 after 处理。fresh 表示所在步骤刚刚分发，下一次推进不计数。
type tween struct {
	move      ir.MoveCharacter
	remaining int
	handle    Handle
	fresh     bool
}

// dispatch 执行单个动作。素材缺失或目标不在场时降级为空操作并记录诊断。
func (e *Executor) dispatch(step *ir.Step, a ir.Action) {
	stage, mixer := e.opts.Stage, e.opts.Mixer
	switch act := a.(type) {
	case ir.SetBackground:
		if !e.assetExists(resource.CategoryBackground, act.File) {
			e.degrade(step, act.Kind(), act.File, "background not found")
			return
		}
		e.supersede(act.Target())
		stage.SetBackground(act.File)

	case ir.ShowBackground:
		if !e.assetExists(resource.CategoryBackground, act.File) {
			e.degrade(step, act.Kind(), act.File, "background not found")
			return
		}
		e.track(act, stage.ShowBackground(act.File, act.Time))

	case ir.MoveBackground:
		e.track(act, stage.MoveBackground(act.From, act.To, act.Time))

	case ir.EnterCharacter:
		if !e.assetExists(resource.CategoryCharacter, act.Name) {
			e.degrade(step, act.Kind(), act.Name, "character not found")
			return
		}
		e.onStage[act.Name] = true
		e.track(act, stage.EnterCharacter(act.Name, act.Expression, act.At, act.Size, act.Blink, act.Fade))

	case ir.ShiftCharacter:
		if !e.onStage[act.Name] {
			e.degrade(step, act.Kind(), act.Name, "character not on stage")
			return
		}
		e.track(act, stage.ShiftCharacter(act.Name, act.Expression, ir.ShiftDuration))

	case ir.MoveCharacter:
		if !e.onStage[act.Name] {
			e.degrade(step, act.Kind(), act.Name, "character not on stage")
			return
		}
		e.track(act, stage.MoveCharacter(act.Name, act.From, act.To, act.Time))

	case ir.ExitCharacter:
		if !e.onStage[act.Name] {
			e.degrade(step, act.Kind(), act.Name, "character not on stage")
			return
		}
		delete(e.onStage, act.Name)
		e.track(act, stage.ExitCharacter(act.Name, act.Fade))

	case ir.PlayBgm:
		if !e.assetExists(resource.CategoryBgm, act.Audio.File) {
			e.degrade(step, act.Kind(), act.Audio.File, "bgm not found")
			return
		}
		e.cutTarget(ir.TargetBgm)
		mixer.PlayBgm(act.Audio.File, act.Audio.Volume, act.Audio.Loop)

	case ir.PauseBgm:
		e.track(act, mixer.PauseBgm(act.Fade))

	case ir.ResumeBgm:
		e.track(act, mixer.ResumeBgm(act.Fade))

	case ir.PlaySe:
		if !e.assetExists(resource.CategorySe, act.File) {
			e.degrade(step, act.Kind(), act.File, "sound effect not found")
			return
		}
		mixer.PlaySe(act.File, act.Volume, act.Repeat)

	case ir.FadeOut:
		e.track(act, stage.Fade(true, act.Color, act.Time))

	case ir.FadeIn:
		e.track(act, stage.Fade(false, act.Color, act.Time))

	case ir.PresentChoice:
		e.openChoice(step, act)

	case ir.StopScroll:
		e.opts.Listener.OnScrollStop(step.ID)

	case ir.ControlEvents:
		e.controlEvents(step, act)

	case ir.SetFlag:
		if e.opts.Flags == nil {
			return
		}
		if err := e.opts.Flags.Set(act.Name, act.Value); err != nil {
			e.degrade(step, act.Kind(), act.Name, "flag not persisted: "+err.Error())
		}

	case ir.IfStart, ir.IfEnd:
		// 由 dispatchStep 处理

	default:
		e.degrade(step, a.Kind(), a.Target(), "unsupported action")
	}
}

// track 按动作的推进策略登记句柄。
// 同一目标上新的 Block/Complete 动画会先截断该目标上仍在进行的动画。
func (e *Executor) track(a ir.Action, h Handle) {
	an := a.Animation()
	if an == nil {
		return
	}
	if h == nil {
		h = doneHandle{}
	}
	target := a.Target()
	switch an.OnAdvance {
	case ir.Block:
		e.supersede(target)
		e.blocking = append(e.blocking, h)
	case ir.Complete:
		e.supersede(target)
		if !h.Done() {
			e.running[target] = h
		}
	case ir.Continue:
		e.supersede(target)
		e.running[target] = h
		if mv, ok := a.(ir.MoveCharacter); ok {
			e.tweens = append(e.tweens, &tween{move: mv, remaining: mv.Steps, handle: h, fresh: true})
		}
	case ir.Interrupt:
		e.cutTarget(target)
		e.interrupts = append(e.interrupts, h)
	}
}

// supersede 截断目标上未完成的 Complete/Continue 动画，并丢弃其 Continue 计划。
func (e *Executor) supersede(target string) {
	if target == "" {
		return
	}
	if h, ok := e.running[target]; ok {
		if !h.Done() {
			e.logger.Debug("superseding animation", zap.String("target", target))
			h.Cancel()
		}
		delete(e.running, target)
	}
	kept := e.tweens[:0]
	for _, t := range e.tweens {
		if t.move.Name != target {
			kept = append(kept, t)
		}
	}
	e.tweens = kept
}

// cutTarget 截断目标上的 Interrupt 动画（例如新的淡出打断旧的淡入）。
func (e *Executor) cutTarget(target string) {
	if target != ir.TargetBgm {
		return
	}
	e.cutInterrupts()
}

// cutInterrupts 把所有 Interrupt 动画跳到结束状态。
func (e *Executor) cutInterrupts() {
	for _, h := range e.interrupts {
		if !h.Done() {
			h.Cancel()
		}
	}
	e.interrupts = e.interrupts[:0]
}

// tickTweens 在每次外部推进时为 Continue 动画倒计时，归零时执行 after 策略：
// start 移回起点，keep 保持，end_step 直接跳到终点。
// 进入第一个后续步骤的推进只清除 fresh，不计数。
func (e *Executor) tickTweens() {
	kept := e.tweens[:0]
	var reverts []ir.MoveCharacter
	for _, t := range e.tweens {
		if t.fresh {
			t.fresh = false
			kept = append(kept, t)
			continue
		}
		t.remaining--
		if t.remaining > 0 {
			kept = append(kept, t)
			continue
		}
		switch t.move.After {
		case ir.AfterStart:
			reverts = append(reverts, t.move)
		case ir.AfterEndStep:
			if !t.handle.Done() {
				t.handle.Cancel()
			}
		}
		delete(e.running, t.move.Name)
	}
	e.tweens = kept

	for _, mv := range reverts {
		if !e.onStage[mv.Name] {
			continue
		}
		back := ir.MoveCharacter{Name: mv.Name, From: mv.To, To: mv.From, Time: mv.Time}
		e.track(back, e.opts.Stage.MoveCharacter(back.Name, back.From, back.To, back.Time))
	}
}

func (e *Executor) pruneBlocking() {
	kept := e.blocking[:0]
	for _, h := range e.blocking {
		if !h.Done() {
			kept = append(kept, h)
		}
	}
	e.blocking = kept
}

func (e *Executor) pruneRunning() {
	for target, h := range e.running {
		if h.Done() && !e.hasTween(target) {
			delete(e.running, target)
		}
	}
}

func (e *Executor) hasTween(target string) bool {
	for _, t := range e.tweens {
		if t.move.Name == target {
			return true
		}
	}
	return false
}

// controlEvents 解锁/锁定事件。
func (e *Executor) controlEvents(step *ir.Step, act ir.ControlEvents) {
	if e.opts.Events == nil {
		return
	}
	for _, id := range act.Unlock {
		if err := e.opts.Events.Unlock(id); err != nil {
			e.degrade(step, act.Kind(), id, "unlock failed: "+err.Error())
		}
	}
	for _, id := range act.Lock {
		if err := e.opts.Events.Lock(id); err != nil {
			e.degrade(step, act.Kind(), id, "lock failed: "+err.Error())
		}
	}
}

func (e *Executor) assetExists(cat resource.Category, key string) bool {
	if e.opts.Assets == nil {
		return true
	}
	return e.opts.Assets.Exists(cat, key)
}
