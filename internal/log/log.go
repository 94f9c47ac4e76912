package log

import (
	"encoding/json"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
)

type entry struct {
	TS        string         `json:"ts"`
	Level     string         `json:"level"`
	ReqID     string         `json:"req_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Action    string         `json:"action,omitempty"`
	Status    int            `json:"status,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

var levels = map[string]int32{"debug": 0, "info": 1, "audit": 1, "warn": 2, "error": 3}

var minLevel atomic.Int32

func init() { minLevel.Store(levels["info"]) }

// SetLevel drops entries below level. Unknown names leave it unchanged.
func SetLevel(level string) {
	if n, ok := levels[strings.ToLower(level)]; ok {
		minLevel.Store(n)
	}
}

func write(level string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	if levels[level] < minLevel.Load() {
		return
	}
	e := entry{TS: time.Now().UTC().Format(time.RFC3339), Level: level, Action: action, Fields: fields}
	if c != nil {
		e.IP = c.IP()
		e.Method = c.Method()
		e.Path = c.Path()
		e.Status = c.Response().StatusCode()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e.ReqID = rid
		}
		if u, ok := c.Locals("user").(*domain.User); ok && u != nil {
			e.UserID = u.ID
		}
		if start, ok := c.Locals("start").(time.Time); ok {
			e.LatencyMs = time.Since(start).Milliseconds()
		}
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

func Debug(c *fiber.Ctx, action string, fields map[string]any) { write("debug", c, action, nil, fields) }
func Info(c *fiber.Ctx, action string, fields map[string]any)  { write("info", c, action, nil, fields) }
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write("audit", c, action, nil, fields)
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write("warn", c, action, nil, fields)
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write("error", c, action, err, fields)
}

// Event logs work that runs outside a request, such as cache refreshes.
// A non-nil err raises the entry to error level.
func Event(action string, err error, fields map[string]any) {
	if err != nil {
		write("error", nil, action, err, fields)
		return
	}
	write("info", nil, action, nil, fields)
}
