package memory

import (
	"fmt"
	"strings"

	"alcyxob/fitness-coach/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// setPath applies a dotted-path $set to the details document.
func setPath(d *domain.UserDetails, path string, value any) error {
	parts := strings.Split(path, ".")
	if parts[0] == "memories" && len(parts) == 1 {
		memories, ok := value.([]string)
		if !ok {
			return fmt.Errorf("memory: memories must be a string list, got %T", value)
		}
		d.Memories = memories
		return nil
	}

	var section *map[string]any
	switch parts[0] {
	case "personal_info":
		section = &d.PersonalInfo
	case "fitness_profile":
		section = &d.FitnessProfile
	case "health_info":
		section = &d.HealthInfo
	case "lifestyle":
		section = &d.Lifestyle
	default:
		return fmt.Errorf("memory: unknown details section %q", parts[0])
	}

	if len(parts) == 1 {
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("memory: %s must be an object, got %T", parts[0], value)
		}
		*section = m
		return nil
	}

	if *section == nil {
		*section = map[string]any{}
	}
	current := *section
	for _, key := range parts[1 : len(parts)-1] {
		switch next := current[key].(type) {
		case map[string]any:
			current = next
		case primitive.M:
			current = next
		default:
			fresh := map[string]any{}
			current[key] = fresh
			current = fresh
		}
	}
	current[parts[len(parts)-1]] = value
	return nil
}
