package degradation

import (
	"fmt"
	"strings"
)

// Level is the global degradation ordinal. Higher levels are strictly more
// restrictive: everything available at a level stays available below it.
type Level int

const (
	LevelNormal Level = iota
	LevelLight
	LevelModerate
	LevelHeavy
	LevelEmergency
)

func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "NORMAL"
	case LevelLight:
		return "LIGHT"
	case LevelModerate:
		return "MODERATE"
	case LevelHeavy:
		return "HEAVY"
	case LevelEmergency:
		return "EMERGENCY"
	default:
		return "UNKNOWN"
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Valid reports whether l is one of the five defined levels.
func (l Level) Valid() bool {
	return l >= LevelNormal && l <= LevelEmergency
}

func ParseLevel(v string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "NORMAL", "0":
		return LevelNormal, nil
	case "LIGHT", "1":
		return LevelLight, nil
	case "MODERATE", "2":
		return LevelModerate, nil
	case "HEAVY", "3":
		return LevelHeavy, nil
	case "EMERGENCY", "4":
		return LevelEmergency, nil
	default:
		return LevelNormal, fmt.Errorf("unknown degradation level %q", v)
	}
}
