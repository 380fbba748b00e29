package planner

import (
	"encoding/json"

	"taskplan/internal/calendar"
	logx "taskplan/pkg/logx"
)

func logProject(id int64) logx.Field      { return logx.Int64("project_id", id) }
func logTask(id int64) logx.Field         { return logx.Int64("task_id", id) }
func logDelta(days int) logx.Field        { return logx.Int("delta_days", days) }
func logCount(n int) logx.Field           { return logx.Int("tasks", n) }
func logStart(d calendar.Date) logx.Field { return logx.Stringer("start", d) }

func auditMeta(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
