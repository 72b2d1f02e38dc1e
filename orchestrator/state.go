package orchestrator

// State 编排运行的生命周期状态。
// 正常路径 NotStarted → Started → TaskRunning → Stopped，任何状态失败都回到 Stopped。
type State int

const (
	NotStarted State = iota
	Started
	TaskRunning
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Started:
		return "started"
	case TaskRunning:
		return "task_running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
