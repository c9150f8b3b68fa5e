// Package scenario 实现剧本 IR 的步进执行状态机。
package scenario

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/kasuganosora/scenarioplayer/game/ir"
	"github.com/kasuganosora/scenarioplayer/game/normalize"
	"github.com/kasuganosora/scenarioplayer/resource"
	"go.uber.org/zap"
)

// ---- 状态 ----

// State 是执行器的状态机状态。
type State int

const (
	Idle                State = iota // 尚未开始
	AdvancePending                   // 已收到推进请求
	Dispatching                      // 正在分发当前步骤的动作
	WaitingForAnimation              // 等待 Block 动画完成
	ReadyToAdvance                   // 可以推进
	ShowingChoice                    // 等待玩家选择
	SkippingToEndif                  // 条件为假，跳向配对的 endif
	Finished                         // 剧本结束
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AdvancePending:
		return "advance_pending"
	case Dispatching:
		return "dispatching"
	case WaitingForAnimation:
		return "waiting_for_animation"
	case ReadyToAdvance:
		return "ready_to_advance"
	case ShowingChoice:
		return "showing_choice"
	case SkippingToEndif:
		return "skipping_to_endif"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ---- 错误 ----

var (
	// ErrNotAwaitingChoice 在没有打开的选项时调用 SelectChoice。
	ErrNotAwaitingChoice = errors.New("scenario: not awaiting a choice")
	// ErrChoiceOutOfRange 选项索引越界。
	ErrChoiceOutOfRange = errors.New("scenario: choice index out of range")
)

// ---- 协作者接口 ----

// Handle 是一个正在播放的动画。Cancel 让动画直接跳到结束状态。
type Handle interface {
	Done() bool
	Cancel()
}

// Stage 负责背景、立绘和全屏淡入淡出的表现。
type Stage interface {
	SetBackground(file string)
	ShowBackground(file string, duration float64) Handle
	MoveBackground(from, to normalize.Position, duration float64) Handle
	EnterCharacter(name string, expr normalize.Expression, at normalize.Position, size float64, blink bool, fade float64) Handle
	ShiftCharacter(name string, expr normalize.Expression, duration float64) Handle
	MoveCharacter(name string, from, to normalize.Position, duration float64) Handle
	ExitCharacter(name string, fade float64) Handle
	Fade(out bool, color string, duration float64) Handle
}

// Mixer 负责音乐与音效。
type Mixer interface {
	PlayBgm(file string, volume float64, loop bool)
	PauseBgm(fade float64) Handle
	ResumeBgm(fade float64) Handle
	PlaySe(file string, volume float64, repeat int)
}

// Assets 按分类和键名查询素材是否存在。
type Assets interface {
	Exists(cat resource.Category, key string) bool
}

// FlagStore 读写剧情 flag。*flag.Store 满足此接口。
type FlagStore interface {
	Get(name string) (flag.Value, bool)
	Set(name string, v flag.Value) error
}

// ChoiceLog 持久化玩家的选择记录。
type ChoiceLog interface {
	AppendChoice(script string, rec ChoiceRecord, options []string) error
}

// EventRegistry 记录事件的解锁/锁定状态。
type EventRegistry interface {
	Unlock(id string) error
	Lock(id string) error
}

// Listener 接收执行过程中的通知。
type Listener interface {
	OnText(step int, text ir.Text)
	OnChoice(step int, options []string)
	OnScrollStop(step int)
	OnFinished(reason string)
}

// Options 是 Executor 的协作者集合，任何一项为 nil 时对应操作为空操作。
type Options struct {
	Stage    Stage
	Mixer    Mixer
	Assets   Assets
	Flags    FlagStore
	Choices  ChoiceLog
	Events   EventRegistry
	Listener Listener
	// History 跨加载保留的选择历史；nil 时使用仅属于本次加载的历史。
	History *ChoiceHistory
}

// Diagnostic 描述一次降级执行（素材缺失、目标不在场等）。
type Diagnostic struct {
	Step   int
	Action ir.ActionKind
	Target string
	Reason string
}

func (d Diagnostic) String() string {
	if d.Target != "" {
		return fmt.Sprintf("step %d: %s %q: %s", d.Step, d.Action, d.Target, d.Reason)
	}
	return fmt.Sprintf("step %d: %s: %s", d.Step, d.Action, d.Reason)
}

// ---- Executor 核心结构体 ----

// Executor 持有一次剧本加载的全部可变状态：游标、动画句柄、选项序号。
// 非并发安全，由驱动循环单线程调用。
type Executor struct {
	prog   *ir.Program
	script string
	opts   Options
	logger *zap.Logger

	state  State
	cursor int // 当前步骤下标，-1 表示尚未开始

	blocking   []Handle          // 当前步骤的 Block 动画
	running    map[string]Handle // 按目标记录的 Complete 动画
	interrupts []Handle          // 下次推进时截断的 Interrupt 动画
	tweens     []*tween          // Continue 动画
	onStage    map[string]bool

	ordinal int // 本次加载已出现的选项数
	choice  *ir.PresentChoice
	history *ChoiceHistory

	finishReason string
	diags        []Diagnostic
}

// New 为一个已构建的程序创建执行器。script 是剧本名，用于选择日志。
func New(prog *ir.Program, script string, opts Options, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prog == nil {
		prog = &ir.Program{SourceIndex: map[int][]int{}}
	}
	if opts.Stage == nil {
		opts.Stage = nopStage{}
	}
	if opts.Mixer == nil {
		opts.Mixer = nopMixer{}
	}
	if opts.Listener == nil {
		opts.Listener = nopListener{}
	}
	history := opts.History
	if history == nil {
		history = NewChoiceHistory()
	}
	history.Begin(script)
	return &Executor{
		prog:    prog,
		script:  script,
		opts:    opts,
		logger:  logger.With(zap.String("script", script)),
		state:   Idle,
		cursor:  -1,
		running: make(map[string]Handle),
		onStage: make(map[string]bool),
		history: history,
	}
}

// ---- 公共 API ----

// State 返回当前状态。
func (e *Executor) State() State { return e.state }

// Cursor 返回当前步骤下标，尚未开始时为 -1。
func (e *Executor) Cursor() int { return e.cursor }

// Step 返回当前步骤，尚未开始时为 nil。
func (e *Executor) Step() *ir.Step {
	if e.cursor < 0 || e.cursor >= len(e.prog.Steps) {
		return nil
	}
	return e.prog.Steps[e.cursor]
}

// Program 返回正在执行的程序。
func (e *Executor) Program() *ir.Program { return e.prog }

// Script 返回剧本名。
func (e *Executor) Script() string { return e.script }

// IsFinished 报告剧本是否已结束。
func (e *Executor) IsFinished() bool { return e.state == Finished }

// FinishReason 返回结束原因（"end" 或 "unmatched_if"），未结束时为空。
func (e *Executor) FinishReason() string { return e.finishReason }

// IsAwaitingChoice 报告是否有打开的选项。
func (e *Executor) IsAwaitingChoice() bool { return e.state == ShowingChoice }

// Choice 返回当前打开的选项。
func (e *Executor) Choice() ([]string, bool) {
	if e.state != ShowingChoice || e.choice == nil {
		return nil, false
	}
	return append([]string(nil), e.choice.Options...), true
}

// IsBlocked 报告当前步骤是否还有未完成的 Block 动画。
func (e *Executor) IsBlocked() bool {
	e.pruneBlocking()
	return len(e.blocking) > 0
}

// OnStage 报告角色是否在场。
func (e *Executor) OnStage(name string) bool { return e.onStage[name] }

// History 返回选择历史。
func (e *Executor) History() *ChoiceHistory { return e.history }

// Diagnostics 返回所有降级记录的副本。
func (e *Executor) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), e.diags...)
}
