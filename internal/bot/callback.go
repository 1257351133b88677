package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback verbs.
const (
	actionNoop          = "noop"
	actionCancel        = "cancel"
	actionGoalDone      = "goal_done"
	actionGoalDelete    = "goal_delete"
	actionGoalEdit      = "goal_edit"
	actionGoalEditText  = "goal_edit_text"
	actionGoalEditDays  = "goal_edit_days"
	actionGoalEditTimes = "goal_edit_times"
	actionGoalInfo      = "goal_info"
	actionHabitDone     = "habit_done"
	actionHabitDelete   = "habit_delete"
	actionHabitEdit     = "habit_edit"
	actionHabitInfo     = "habit_info"
	actionTimezone      = "timezone"
	actionMood          = "mood"
	actionPremiumPlan   = "premium_plan"
	actionSkipReminder  = "skip_reminders"
)

// callbackAction is the parsed form of one callback payload. Callback data
// is decoded here exactly once; handlers switch on Verb and use the typed
// fields instead of re-splitting strings.
type callbackAction struct {
	Verb   string
	ItemID int64  // goal/habit actions
	Value  string // timezone zone name, mood, premium plan
}

// Payload builders keep the wire format in one place.

func goalCallback(verb string, id int64) string {
	short := map[string]string{
		actionGoalDone:      "done",
		actionGoalDelete:    "del",
		actionGoalEdit:      "edit",
		actionGoalEditText:  "etext",
		actionGoalEditDays:  "edays",
		actionGoalEditTimes: "etimes",
		actionGoalInfo:      "info",
	}[verb]
	return fmt.Sprintf("goal:%s:%d", short, id)
}

func habitCallback(verb string, id int64) string {
	short := map[string]string{
		actionHabitDone:   "done",
		actionHabitDelete: "del",
		actionHabitEdit:   "edit",
		actionHabitInfo:   "info",
	}[verb]
	return fmt.Sprintf("habit:%s:%d", short, id)
}

func timezoneCallback(zone string) string {
	return "tz:" + zone
}

func moodCallback(mood string) string {
	return "mood:" + mood
}

func premiumCallback(plan string) string {
	return "premium:" + plan
}

func parseCallback(data string) (callbackAction, error) {
	switch data {
	case actionNoop:
		return callbackAction{Verb: actionNoop}, nil
	case actionCancel:
		return callbackAction{Verb: actionCancel}, nil
	case "skip":
		return callbackAction{Verb: actionSkipReminder}, nil
	}

	parts := strings.SplitN(data, ":", 3)
	switch parts[0] {
	case "goal", "habit":
		if len(parts) != 3 {
			return callbackAction{}, fmt.Errorf("malformed callback %q", data)
		}
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return callbackAction{}, fmt.Errorf("malformed item id in %q", data)
		}
		verb, err := itemVerb(parts[0], parts[1])
		if err != nil {
			return callbackAction{}, err
		}
		return callbackAction{Verb: verb, ItemID: id}, nil

	case "tz":
		if len(parts) < 2 || parts[1] == "" {
			return callbackAction{}, fmt.Errorf("malformed callback %q", data)
		}
		// Zone names contain "/" but never ":", so rejoin is safe.
		return callbackAction{Verb: actionTimezone, Value: strings.Join(parts[1:], ":")}, nil

	case "mood":
		if len(parts) != 2 || parts[1] == "" {
			return callbackAction{}, fmt.Errorf("malformed callback %q", data)
		}
		return callbackAction{Verb: actionMood, Value: parts[1]}, nil

	case "premium":
		if len(parts) != 2 || parts[1] == "" {
			return callbackAction{}, fmt.Errorf("malformed callback %q", data)
		}
		return callbackAction{Verb: actionPremiumPlan, Value: parts[1]}, nil
	}

	return callbackAction{}, fmt.Errorf("unknown callback %q", data)
}

func itemVerb(kind, op string) (string, error) {
	table := map[string]map[string]string{
		"goal": {
			"done":   actionGoalDone,
			"del":    actionGoalDelete,
			"edit":   actionGoalEdit,
			"etext":  actionGoalEditText,
			"edays":  actionGoalEditDays,
			"etimes": actionGoalEditTimes,
			"info":   actionGoalInfo,
		},
		"habit": {
			"done": actionHabitDone,
			"del":  actionHabitDelete,
			"edit": actionHabitEdit,
			"info": actionHabitInfo,
		},
	}
	verb, ok := table[kind][op]
	if !ok {
		return "", fmt.Errorf("unknown %s operation %q", kind, op)
	}
	return verb, nil
}
