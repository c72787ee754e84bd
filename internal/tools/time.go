package tools

import (
	"context"
	"strconv"
	"time"

	"github.com/caldew/workdesk/internal/llm"
)

var currentTimeTool = llm.Tool{
	Name:        "get_current_time",
	Description: "Get the current system date and time in various formats",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"format": map[string]any{
				"type":        "string",
				"description": `The format for the date/time output. Options: "iso" (ISO 8601), "readable" (human readable), "timestamp" (Unix timestamp), or "all" (all formats). Defaults to "readable".`,
				"enum":        []string{"iso", "readable", "timestamp", "all"},
			},
			"timezone": map[string]any{
				"type":        "string",
				"description": `The timezone to display the time in. Defaults to the system timezone. Examples: "UTC", "America/New_York", "Europe/London", etc.`,
			},
		},
		"required": []string{},
	},
}

// RegisterCurrentTime adds the get_current_time tool. The clock is
// injectable for tests.
func RegisterCurrentTime(r *Registry, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	r.Register(currentTimeTool, func(ctx context.Context, args map[string]any) (any, error) {
		return executeCurrentTime(now(), args)
	})
}

func executeCurrentTime(now time.Time, args map[string]any) (any, error) {
	format, _ := args["format"].(string)
	if format == "" {
		format = "readable"
	}
	timezone, _ := args["timezone"].(string)

	display := now
	if timezone != "" {
		// Fall back to the system zone on an unknown timezone name.
		if loc, err := time.LoadLocation(timezone); err == nil {
			display = now.In(loc)
		}
	}

	result := map[string]string{}
	if format == "all" || format == "iso" {
		result["iso"] = now.UTC().Format(time.RFC3339)
	}
	if format == "all" || format == "readable" {
		result["readable"] = display.Format("January 2, 2006 03:04:05 PM MST")
	}
	if format == "all" || format == "timestamp" {
		result["timestamp"] = strconv.FormatInt(now.Unix(), 10)
	}
	if timezone != "" {
		result["timezone"] = timezone
	}
	result["systemTimezone"] = now.Location().String()

	requestedTimezone := timezone
	if requestedTimezone == "" {
		requestedTimezone = "system default"
	}

	return map[string]any{
		"message":           "Current system date and time retrieved successfully",
		"currentTime":       result,
		"requestedFormat":   format,
		"requestedTimezone": requestedTimezone,
	}, nil
}
