package labeler

import (
	"encoding/json"
	"fmt"
	"os"
)

// gestureStep is one action of a gesture script. Coordinates are screen
// pixels.
type gestureStep struct {
	Action string  `json:"action"`
	Label  string  `json:"label,omitempty"`
	Class  string  `json:"class,omitempty"`
	Key    string  `json:"key,omitempty"`
	Shift  bool    `json:"shift,omitempty"`
	Ctrl   bool    `json:"ctrl,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	FromX  float64 `json:"fromX,omitempty"`
	FromY  float64 `json:"fromY,omitempty"`
	ToX    float64 `json:"toX,omitempty"`
	ToY    float64 `json:"toY,omitempty"`
	Frames int     `json:"frames,omitempty"`
}

type gestureScript struct {
	Steps []gestureStep `json:"steps"`
}

var gestureActions = map[string]bool{
	"press": true, "move": true, "release": true, "click": true,
	"doubleclick": true, "drag": true, "key": true, "tool": true,
	"wait": true, "snapshot": true,
}

// GestureScript replays a JSON sequence of pointer, key and tool actions
// through an Editor, one action per frame once the previous action's
// injected events have been consumed.
//
//	{"steps": [
//	  {"action": "tool", "class": "TZ"},
//	  {"action": "drag", "fromX": 100, "fromY": 100, "toX": 200, "toY": 150, "frames": 10},
//	  {"action": "key", "key": "Enter"},
//	  {"action": "snapshot", "label": "after-draw"}
//	]}
type GestureScript struct {
	steps     []gestureStep
	cursor    int
	waitCount int
	done      bool
}

// ParseGestureScript decodes a gesture script. Unknown actions and key names
// are rejected.
func ParseGestureScript(data []byte) (*GestureScript, error) {
	var script gestureScript
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("labeler: parse gesture script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("labeler: parse gesture script: no steps: %w", ErrMalformedInput)
	}
	for i, st := range script.Steps {
		if !gestureActions[st.Action] {
			return nil, fmt.Errorf("labeler: gesture step %d: unknown action %q: %w", i, st.Action, ErrBadValue)
		}
		if st.Action == "key" {
			if _, ok := parseKey(st.Key); !ok {
				return nil, fmt.Errorf("labeler: gesture step %d: unknown key %q: %w", i, st.Key, ErrBadValue)
			}
		}
	}
	return &GestureScript{steps: script.Steps}, nil
}

// LoadGestureScript reads a gesture script from path.
func LoadGestureScript(path string) (*GestureScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("labeler: read gesture script: %w", err)
	}
	return ParseGestureScript(data)
}

// SetGestureScript attaches s; it is stepped at the start of every Update.
// Nil detaches.
func (e *Editor) SetGestureScript(s *GestureScript) { e.script = s }

// Done reports whether every step has run and its input was consumed.
func (s *GestureScript) Done() bool { return s.done }

func (s *GestureScript) step(e *Editor) {
	if s.done {
		return
	}
	c := e.canvas
	if c.Pending() > 0 {
		return
	}
	if s.waitCount > 0 {
		s.waitCount--
		return
	}
	if s.cursor >= len(s.steps) {
		s.done = true
		return
	}
	st := s.steps[s.cursor]
	s.cursor++

	var mods KeyModifiers
	if st.Shift {
		mods |= ModShift
	}
	if st.Ctrl {
		mods |= ModCtrl
	}
	switch st.Action {
	case "press":
		c.InjectButton(st.X, st.Y, true, MouseButtonLeft, mods)
	case "move":
		c.InjectMove(st.X, st.Y)
	case "release":
		c.InjectButton(st.X, st.Y, false, MouseButtonLeft, mods)
	case "click":
		c.InjectButton(st.X, st.Y, true, MouseButtonLeft, mods)
		c.InjectButton(st.X, st.Y, false, MouseButtonLeft, mods)
	case "doubleclick":
		c.InjectDoubleClick(st.X, st.Y)
	case "drag":
		c.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, max(st.Frames, 2))
	case "key":
		k, _ := parseKey(st.Key)
		c.InjectKey(k, mods)
	case "tool":
		if err := e.StartInsertion(st.Class); err != nil {
			e.logger.Warn("labeler: gesture tool", "class", st.Class, "err", err)
		}
	case "wait":
		if st.Frames > 0 {
			s.waitCount = st.Frames - 1
		}
	case "snapshot":
		c.Snapshot(st.Label)
	}

	if s.cursor >= len(s.steps) && s.waitCount == 0 && c.Pending() == 0 {
		s.done = true
	}
}
