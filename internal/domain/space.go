package domain

import (
	"strings"
	"time"
)

// SpaceType enumerates the bookable space categories. Stored as text.
type SpaceType string

const (
	SpaceMeetingRoom    SpaceType = "MEETING_ROOM"
	SpaceEventHall      SpaceType = "EVENT_HALL"
	SpaceCoworking      SpaceType = "COWORKING_SPACE"
	SpaceConferenceRoom SpaceType = "CONFERENCE_ROOM"
	SpaceTrainingRoom   SpaceType = "TRAINING_ROOM"
	SpaceAuditorium     SpaceType = "AUDITORIUM"
	SpacePrivateOffice  SpaceType = "PRIVATE_OFFICE"
	SpaceDesk           SpaceType = "DESK"
	SpaceOther          SpaceType = "OTHER"
)

var spaceTypes = map[SpaceType]bool{
	SpaceMeetingRoom:    true,
	SpaceEventHall:      true,
	SpaceCoworking:      true,
	SpaceConferenceRoom: true,
	SpaceTrainingRoom:   true,
	SpaceAuditorium:     true,
	SpacePrivateOffice:  true,
	SpaceDesk:           true,
	SpaceOther:          true,
}

// ParseSpaceType normalizes a raw type string. Exact matches win; legacy
// values from older clients are matched by substring, anything else maps to
// OTHER.
func ParseSpaceType(raw string) SpaceType {
	t := SpaceType(strings.ToUpper(strings.TrimSpace(raw)))
	if spaceTypes[t] {
		return t
	}
	upper := string(t)
	switch {
	case strings.Contains(upper, "MEETING"), strings.Contains(upper, "REUNIAO"):
		return SpaceMeetingRoom
	case strings.Contains(upper, "AUDITORIUM"), strings.Contains(upper, "AUDITORIO"):
		return SpaceAuditorium
	case strings.Contains(upper, "COWORK"):
		return SpaceCoworking
	case strings.Contains(upper, "TRAINING"), strings.Contains(upper, "TREINAMENTO"):
		return SpaceTrainingRoom
	case strings.Contains(upper, "EVENT"), strings.Contains(upper, "EVENTO"):
		return SpaceEventHall
	case strings.Contains(upper, "CONFERENCE"), strings.Contains(upper, "CONFERENCIA"):
		return SpaceConferenceRoom
	case strings.Contains(upper, "OFFICE"):
		return SpacePrivateOffice
	case strings.Contains(upper, "DESK"):
		return SpaceDesk
	default:
		return SpaceOther
	}
}

// Space represents a bookable physical resource (room, desk, etc).
type Space struct {
	ID           int64
	Name         string
	Description  string
	Type         SpaceType
	Capacity     int
	PricePerHour float64
	Amenities    []string
	ImageURL     string
	Available    bool
	Floor        string
	Location     string
	CreatedAt    time.Time
}

// SpaceFilter narrows availability searches. Zero values mean "no filter";
// Start/End, when both set, exclude spaces with a conflicting reservation in
// the window.
type SpaceFilter struct {
	Type        SpaceType
	MinCapacity int
	MaxPrice    float64
	Start       time.Time
	End         time.Time
}

// SpaceRepository defines data access for spaces.
type SpaceRepository interface {
	Create(space *Space) error
	GetByID(id int64) (*Space, error)
	Update(space *Space) error
	Delete(id int64) error
	List() ([]*Space, error)
	ListAvailable(filter SpaceFilter) ([]*Space, error)
}
