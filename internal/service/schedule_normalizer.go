package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/studyplan-api/internal/models"
)

const rawScheduleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "text": {"type": ["string", "null"]},
    "slot": {
      "type": "object",
      "properties": {
        "day": {"$ref": "#/definitions/text"},
        "timeSlot": {"$ref": "#/definitions/text"},
        "time_slot": {"$ref": "#/definitions/text"},
        "timeRange": {"$ref": "#/definitions/text"},
        "time_range": {"$ref": "#/definitions/text"},
        "activity": {"$ref": "#/definitions/text"},
        "subject": {"$ref": "#/definitions/text"},
        "topic": {"$ref": "#/definitions/text"},
        "duration_minutes": {"type": ["integer", "string", "null"]},
        "duration": {"type": ["integer", "string", "null"]}
      }
    },
    "slotList": {"type": "array", "items": {"$ref": "#/definitions/slot"}},
    "dayMap": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": {"$ref": "#/definitions/slot"}
      }
    }
  },
  "anyOf": [
    {"$ref": "#/definitions/slotList"},
    {
      "type": "object",
      "required": ["schedule"],
      "properties": {
        "schedule": {"anyOf": [{"$ref": "#/definitions/slotList"}, {"$ref": "#/definitions/dayMap"}]}
      }
    },
    {"$ref": "#/definitions/dayMap"}
  ]
}`

var (
	scheduleSchema   = jsonschema.MustCompileString("schedule.schema.json", rawScheduleSchema)
	scheduleSanitize = bluemonday.StrictPolicy()
)

// NormalizedSlot is a validated slot ready to be persisted.
type NormalizedSlot struct {
	Day             models.Weekday
	Range           models.TimeRange
	Activity        string
	Kind            models.ActivityKind
	Subject         string
	Topic           string
	DurationMinutes int
}

type rawSlot struct {
	Day       string `json:"day"`
	TimeSlot  string `json:"timeSlot"`
	TimeSlot2 string `json:"time_slot"`
	TimeRange string `json:"timeRange"`
	Range2    string `json:"time_range"`
	Activity  string `json:"activity"`
	Subject   string `json:"subject"`
	Topic     string `json:"topic"`
}

func (r rawSlot) timeRange() string {
	for _, candidate := range []string{r.TimeSlot, r.TimeSlot2, r.TimeRange, r.Range2} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// NormalizeSchedule accepts a flat slot list, {"schedule": list}, {"schedule": {day: {range: slot}}}
// or a bare {day: {range: slot}} map and returns slots sorted by weekday then start time.
// Any record without a day or time range fails the whole batch with ErrInvalidFormat.
func NormalizeSchedule(raw []byte) ([]NormalizedSlot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidFormat)
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if err := scheduleSchema.Validate(document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	records, err := flattenSchedule(trimmed)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: schedule has no slots", ErrInvalidFormat)
	}

	out := make([]NormalizedSlot, 0, len(records))
	for idx, record := range records {
		slot, err := normalizeRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidFormat, idx, err)
		}
		out = append(out, slot)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day.Index() < out[j].Day.Index()
		}
		return out[i].Range.Start < out[j].Range.Start
	})

	return out, nil
}

func flattenSchedule(raw []byte) ([]rawSlot, error) {
	if raw[0] == '[' {
		var list []rawSlot
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if inner, ok := envelope["schedule"]; ok {
		inner = bytes.TrimSpace(inner)
		if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
			return nil, fmt.Errorf("%w: schedule is empty", ErrInvalidFormat)
		}
		return flattenSchedule(inner)
	}

	var grouped map[string]map[string]rawSlot
	if err := json.Unmarshal(raw, &grouped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	// Map iteration order is random; sorting happens after normalisation.
	records := make([]rawSlot, 0)
	for day, blocks := range grouped {
		for timeRange, block := range blocks {
			if strings.TrimSpace(block.Day) == "" {
				block.Day = day
			}
			if block.timeRange() == "" {
				block.TimeRange = timeRange
			}
			records = append(records, block)
		}
	}
	return records, nil
}

func normalizeRecord(record rawSlot) (NormalizedSlot, error) {
	dayText := strings.TrimSpace(record.Day)
	rangeText := strings.TrimSpace(record.timeRange())
	switch {
	case dayText == "" && rangeText == "":
		return NormalizedSlot{}, fmt.Errorf("missing day and time range")
	case dayText == "":
		return NormalizedSlot{}, fmt.Errorf("missing day")
	case rangeText == "":
		return NormalizedSlot{}, fmt.Errorf("missing time range")
	}

	day, err := models.ParseWeekday(dayText)
	if err != nil {
		return NormalizedSlot{}, err
	}
	window, err := models.ParseTimeRange(rangeText)
	if err != nil {
		return NormalizedSlot{}, err
	}

	activity := cleanText(record.Activity)
	subject := cleanText(record.Subject)
	topic := cleanText(record.Topic)
	if activity == "" {
		if subject != "" {
			activity = "Revision"
		} else {
			activity = "Free time"
		}
	}

	kind := models.ClassifyActivity(activity)
	if kind == models.ActivityOther && subject != "" {
		kind = models.ActivityStudy
	}
	if kind == models.ActivityBreak {
		subject = ""
		topic = ""
	}

	return NormalizedSlot{
		Day:             day,
		Range:           window,
		Activity:        activity,
		Kind:            kind,
		Subject:         subject,
		Topic:           topic,
		DurationMinutes: window.Minutes(),
	}, nil
}

func cleanText(value string) string {
	return strings.TrimSpace(html.UnescapeString(scheduleSanitize.Sanitize(value)))
}
