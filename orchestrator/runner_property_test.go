package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// 对任意 start/task/stop 结果组合：启动成功则恰好停止一次，启动失败则从不停止；
// 返回值只取决于 start 与 task，与 stop 是否失败无关。
func TestProperty_StopExactlyOncePerSuccessfulStart(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		profileID := rapid.StringMatching(`[a-z0-9]{1,12}`).Draw(rt, "profile")
		startFails := rapid.Bool().Draw(rt, "start_fails")
		taskFails := rapid.Bool().Draw(rt, "task_fails")
		stopFails := rapid.Bool().Draw(rt, "stop_fails")

		startErr := errors.New("start failed")
		taskErr := fmt.Errorf("task failed for %s", profileID)

		profiles := &fakeProfiles{}
		if startFails {
			profiles.startErr = startErr
		}
		if stopFails {
			profiles.stopErr = errors.New("stop failed")
		}
		tasks := &fakeTasks{result: json.RawMessage(`"ok"`)}
		if taskFails {
			tasks.err = taskErr
		}

		r := NewRunner(profiles, tasks, DefaultConfig(), nil)
		res, err := r.Run(context.Background(), Request{ProfileID: profileID, Task: "t"})

		if startFails {
			if len(profiles.stops) != 0 {
				rt.Fatalf("stop called %d times after failed start", len(profiles.stops))
			}
			if err != startErr {
				rt.Fatalf("expected start error, got %v", err)
			}
			return
		}

		if len(profiles.stops) != 1 || profiles.stops[0] != profileID {
			rt.Fatalf("expected exactly one stop for %q, got %v", profileID, profiles.stops)
		}
		if taskFails {
			if err != taskErr {
				rt.Fatalf("expected task error verbatim, got %v", err)
			}
			return
		}
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if string(res.Output) != `"ok"` {
			rt.Fatalf("unexpected output %s", res.Output)
		}
	})
}
