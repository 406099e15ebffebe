package degradation

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ServiceType classifies a feature for shedding decisions.
type ServiceType string

const (
	ServiceCore           ServiceType = "CORE"
	ServiceBusiness       ServiceType = "BUSINESS"
	ServiceEnhancement    ServiceType = "ENHANCEMENT"
	ServiceSearch         ServiceType = "SEARCH"
	ServiceNotification   ServiceType = "NOTIFICATION"
	ServiceRecommendation ServiceType = "RECOMMENDATION"
	ServiceAnalytics      ServiceType = "ANALYTICS"
)

func ParseServiceType(v string) (ServiceType, error) {
	s := ServiceType(strings.ToUpper(strings.TrimSpace(v)))
	switch s {
	case ServiceCore, ServiceBusiness, ServiceEnhancement, ServiceSearch,
		ServiceNotification, ServiceRecommendation, ServiceAnalytics:
		return s, nil
	default:
		return "", fmt.Errorf("unknown service type %q", v)
	}
}

// neverDisabled sits above EMERGENCY so no reachable level can disable CORE.
const neverDisabled = LevelEmergency + 1

// DefaultDisableThresholds maps each service class to the lowest level that
// disables it.
func DefaultDisableThresholds() map[ServiceType]Level {
	return map[ServiceType]Level{
		ServiceCore:           neverDisabled,
		ServiceBusiness:       LevelEmergency,
		ServiceEnhancement:    LevelModerate,
		ServiceSearch:         LevelHeavy,
		ServiceNotification:   LevelModerate,
		ServiceRecommendation: LevelLight,
		ServiceAnalytics:      LevelLight,
	}
}

// Gate answers per-service availability for a given level. Thresholds are
// swappable on policy reload; CORE overrides are silently discarded so it is
// always available.
type Gate struct {
	mu         sync.RWMutex
	thresholds map[ServiceType]Level
}

func NewGate(overrides map[ServiceType]Level) *Gate {
	g := &Gate{thresholds: DefaultDisableThresholds()}
	g.SetOverrides(overrides)
	return g
}

// SetOverrides rebuilds the threshold table from defaults plus overrides.
func (g *Gate) SetOverrides(overrides map[ServiceType]Level) {
	thresholds := DefaultDisableThresholds()
	for service, level := range overrides {
		if service == ServiceCore {
			continue
		}
		if _, known := thresholds[service]; !known {
			continue
		}
		thresholds[service] = level
	}

	g.mu.Lock()
	g.thresholds = thresholds
	g.mu.Unlock()
}

// Available reports whether the service class still runs at the given level.
func (g *Gate) Available(level Level, service ServiceType) bool {
	if service == ServiceCore {
		return true
	}

	g.mu.RLock()
	threshold, ok := g.thresholds[service]
	g.mu.RUnlock()
	if !ok {
		return true
	}

	return level < threshold
}

// DisabledAt lists the service classes shed at the given level, sorted for
// stable API output. This is the "active strategies" view.
func (g *Gate) DisabledAt(level Level) []ServiceType {
	g.mu.RLock()
	out := make([]ServiceType, 0, len(g.thresholds))
	for service, threshold := range g.thresholds {
		if service == ServiceCore {
			continue
		}
		if level >= threshold {
			out = append(out, service)
		}
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}
