package report

import (
	"encoding/json"
	"fmt"
)

// RenderJSON encodes a report for machine consumption.
func RenderJSON(r Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: encoding JSON: %w", err)
	}
	return string(data), nil
}
